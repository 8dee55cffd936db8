package curator

import "io"

// ArchiveVault is long-term storage for finished export archives. Backends
// are pluggable (filesystem directory, memory, S3 bucket) and selected from
// configuration at startup.
type ArchiveVault interface {
	// PutArchive stores an archive under the given name.
	// Storing the same name again replaces the previous archive.
	PutArchive(name string, r io.Reader, size int64) error

	// GetArchive retrieves an archive by name and writes it to w.
	GetArchive(name string, w io.Writer) error

	// ListArchives returns the names of all stored archives.
	ListArchives() ([]string, error)

	// ValidateSetup verifies the backend is reachable and writable.
	ValidateSetup() error
}
