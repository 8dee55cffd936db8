package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"curator-go/internal/curator"
)

// MemoryVault is an in-memory implementation of curator.ArchiveVault.
// Use in tests.
type MemoryVault struct {
	name     string
	mu       sync.Mutex
	archives map[string][]byte
}

// NewMemoryVault creates a new in-memory vault.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		archives: map[string][]byte{},
	}
}

// PutArchive stores an archive under the given name.
func (v *MemoryVault) PutArchive(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.archives[name] = data
	return nil
}

// GetArchive retrieves an archive by name and writes it to w.
func (v *MemoryVault) GetArchive(name string, w io.Writer) error {
	v.mu.Lock()
	data, ok := v.archives[name]
	v.mu.Unlock()
	if !ok {
		return fmt.Errorf("archive not found: %s", name)
	}

	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

// ListArchives returns the names of all stored archives, sorted.
func (v *MemoryVault) ListArchives() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	names := make([]string, 0, len(v.archives))
	for name := range v.archives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (v *MemoryVault) ValidateSetup() error { return nil }

// Compile-time check that MemoryVault implements the curator.ArchiveVault interface
var _ curator.ArchiveVault = (*MemoryVault)(nil)
