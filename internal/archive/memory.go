package archive

import (
	"fmt"
	"sort"
	"sync"

	"curator-go/internal/curator"
)

// MemoryArchiver is an in-memory implementation of curator.Archiver.
// Archives are keyed by destination path. Use in tests.
type MemoryArchiver struct {
	mu       sync.Mutex
	archives map[string]map[string][]byte
}

// NewMemoryArchiver creates a new in-memory archiver.
func NewMemoryArchiver() *MemoryArchiver {
	return &MemoryArchiver{archives: map[string]map[string][]byte{}}
}

// Zip stores a copy of the payloads under the destination key.
func (m *MemoryArchiver) Zip(destination string, payloads map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make(map[string][]byte, len(payloads))
	for name, data := range payloads {
		stored[name] = append([]byte(nil), data...)
	}
	m.archives[destination] = stored
	return nil
}

// Unzip replays the stored entries in sorted name order. Callback errors
// are swallowed, matching the log-and-continue contract of the zip backend.
func (m *MemoryArchiver) Unzip(source string, fn curator.EntryFunc) error {
	m.mu.Lock()
	payloads, ok := m.archives[source]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("archive not found: %s", source)
	}

	names := make([]string, 0, len(payloads))
	for name := range payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_ = fn(name, payloads[name])
	}
	return nil
}

// Compile-time check that MemoryArchiver implements the curator.Archiver interface
var _ curator.Archiver = (*MemoryArchiver)(nil)
