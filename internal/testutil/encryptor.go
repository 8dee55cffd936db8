package testutil

import (
	"curator-go/internal/curator"
	"curator-go/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() curator.Encryptor {
	return encryption.NewTestEncryptor()
}
