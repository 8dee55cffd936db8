package curator

import "strings"

// Entry names inside an export archive. Each entry holds one serialized
// category; lists get one entry per list, named by the list's uuid, so
// unzip can route each entry to the right decoder without a manifest.
const (
	EntryFavorites     = "favorites"
	EntryBlacklisted   = "blacklisted"
	EntrySettings      = "settings"
	EntrySearchHistory = "search_history"

	listEntryPrefix = "list:"
)

// ListEntryName returns the archive entry name for a list's header+items.
func ListEntryName(uuid string) string { return listEntryPrefix + uuid }

// ParseListEntryName extracts the list uuid from an entry name.
// Returns false if the name is not a list entry.
func ParseListEntryName(name string) (string, bool) {
	if !strings.HasPrefix(name, listEntryPrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, listEntryPrefix), true
}

// EntryFunc is invoked once per archive entry during Unzip.
// An error from the callback applies to that entry only; the archiver logs
// it and continues with the remaining entries.
type EntryFunc func(name string, content []byte) error

// Archiver packs a map of logical-name to payload into a single portable
// archive and unpacks it symmetrically.
type Archiver interface {
	// Zip writes all payloads into a compressed archive at destination.
	// The archive only ever appears at the destination path fully written:
	// implementations stage the write and replace the destination
	// atomically, so an interrupted export leaves either the previous
	// archive or nothing.
	Zip(destination string, payloads map[string][]byte) error

	// Unzip streams entries out of the archive at source in archive order,
	// invoking fn once per entry. A failure to open or read the archive
	// itself is fatal; a callback failure for one entry is not.
	Unzip(source string, fn EntryFunc) error
}
