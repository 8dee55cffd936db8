package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"curator-go/internal/curator"
)

// ZipArchiver implements curator.Archiver with standard zip files.
//
// Zip writes the archive to a staging file next to the destination and
// renames it into place only after the trailer has been finalized, so an
// interrupted export leaves either the previous archive or nothing —
// never a valid-looking but truncated archive.
type ZipArchiver struct {
	logger curator.Logger
}

// NewZipArchiver creates a new zip-backed archiver.
func NewZipArchiver(logger curator.Logger) *ZipArchiver {
	return &ZipArchiver{logger: logger}
}

// Zip writes all payloads into a compressed archive at destination.
func (z *ZipArchiver) Zip(destination string, payloads map[string][]byte) error {
	dir := filepath.Dir(destination)
	tmp, err := os.CreateTemp(dir, ".curator-export-*.partial")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := writeEntries(tmp, payloads); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing staging file: %w", err)
	}

	// Trailer is finalized; replace the destination atomically.
	if err := os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("moving archive into place: %w", err)
	}

	success = true
	return nil
}

// writeEntries streams each payload into the zip writer sequentially.
// Entries are written in sorted name order so archives are reproducible.
func writeEntries(w io.Writer, payloads map[string][]byte) error {
	zw := zip.NewWriter(w)

	names := make([]string, 0, len(payloads))
	for name := range payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("creating entry %s: %w", name, err)
		}
		if _, err := entry.Write(payloads[name]); err != nil {
			zw.Close()
			return fmt.Errorf("writing entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// Unzip streams entries out of the archive in archive order. A failure for
// one entry (unreadable or rejected by the callback) is logged and the
// remaining entries are still processed — archives may be hand-edited or
// partially corrupted, and one bad entry should not sink the rest.
func (z *ZipArchiver) Unzip(source string, fn curator.EntryFunc) error {
	r, err := zip.OpenReader(source)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		content, err := readEntry(f)
		if err != nil {
			z.logger.Warn("skipping unreadable archive entry", "entry", f.Name, "error", err)
			continue
		}
		if err := fn(f.Name, content); err != nil {
			z.logger.Warn("archive entry rejected", "entry", f.Name, "error", err)
		}
	}

	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Compile-time check that ZipArchiver implements the curator.Archiver interface
var _ curator.Archiver = (*ZipArchiver)(nil)
