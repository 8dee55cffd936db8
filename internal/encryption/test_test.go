package encryption

import (
	"bytes"
	"testing"
)

func TestTestEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if err := e.Setup("any-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.setupCalled {
		t.Error("Setup() did not record that it was called")
	}
}

func TestTestEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestTestEncryptor_HeaderLooksLikeAge(t *testing.T) {
	t.Parallel()

	// Restore sniffs encrypted archive entries by the age format magic, so
	// test ciphertext must carry the same prefix.
	if !bytes.HasPrefix(testHeader, []byte("age-encryption.org/v1")) {
		t.Errorf("testHeader = %q, want age magic prefix", testHeader)
	}
}

func TestTestEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewTestEncryptor()

			// Encrypt
			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			// Encrypted output should differ from plaintext (unless input is empty,
			// in which case the header itself makes it different).
			if bytes.Equal(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}

			// Encrypted output should start with the header
			if !bytes.HasPrefix(encrypted.Bytes(), testHeader) {
				t.Error("encrypted output does not start with test header")
			}

			// Decrypt
			ctx, err := e.Unlock("any-passphrase")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var decrypted bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %q, want %q", decrypted.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_Deterministic(t *testing.T) {
	t.Parallel()

	input := []byte("deterministic test")
	e := NewTestEncryptor()

	var enc1, enc2 bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &enc1); err != nil {
		t.Fatalf("first Encrypt() error = %v", err)
	}
	if err := e.Encrypt(bytes.NewReader(input), &enc2); err != nil {
		t.Fatalf("second Encrypt() error = %v", err)
	}

	if !bytes.Equal(enc1.Bytes(), enc2.Bytes()) {
		t.Error("same input produced different encrypted output")
	}
}

func TestTestDecryptionContext_InvalidHeader(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	badData := bytes.NewReader(bytes.Repeat([]byte("X"), len(testHeader)+4))
	var out bytes.Buffer
	err := ctx.Decrypt(badData, &out)
	if err == nil {
		t.Error("Decrypt() with invalid header should return error")
	}
}

func TestTestDecryptionContext_TruncatedHeader(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	short := bytes.NewReader([]byte("age"))
	var out bytes.Buffer
	err := ctx.Decrypt(short, &out)
	if err == nil {
		t.Error("Decrypt() with truncated data should return error")
	}
}

func TestTestDecryptionContext_EmptyInput(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	var out bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(nil), &out); err == nil {
		t.Error("Decrypt() with empty input should return error")
	}
}
