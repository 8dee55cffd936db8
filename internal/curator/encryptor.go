package curator

import "io"

// Encryptor encrypts archive payloads with a locally stored public key.
// Decryption requires unlocking the private key with a passphrase first,
// which yields a DecryptionContext that can be reused across entries.
type Encryptor interface {
	// Setup generates and stores a new key pair, protecting the private
	// key with the given passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether a key pair exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key.
type DecryptionContext interface {
	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
