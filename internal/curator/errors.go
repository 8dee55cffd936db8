package curator

import "errors"

// ErrListNotFound is returned when an operation names a list uuid that does
// not exist in the store.
var ErrListNotFound = errors.New("list not found")

// ErrArchiveCorrupt is returned when an archive cannot be opened or its
// trailer is unreadable. It is fatal for the whole export/import, unlike
// per-entry failures which are collected into the operation's report.
var ErrArchiveCorrupt = errors.New("archive is corrupt or unreadable")

// ErrEncryptedEntry is returned for an archive entry that is age-encrypted
// when no decryption context was provided.
var ErrEncryptedEntry = errors.New("entry is encrypted but no passphrase was provided")
