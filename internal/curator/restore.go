package curator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"curator-go/internal/model"
)

// ageMagic is the header line of an age-encrypted payload. Entry payloads
// are JSON otherwise, so this prefix is enough to tell the two apart.
var ageMagic = []byte("age-encryption.org/v1")

// EntryError records a recoverable failure for one archive entry or one
// restored item. These are collected and summarized after the restore
// attempt completes instead of aborting it.
type EntryError struct {
	Entry string
	Err   error
}

func (e EntryError) Error() string { return fmt.Sprintf("%s: %v", e.Entry, e.Err) }

// RestoreReport aggregates the outcome of a restore: how many rows of each
// category were merged, how many were dropped as duplicates of existing
// local rows, and the recoverable per-entry failures.
type RestoreReport struct {
	Favorites     int
	Blacklisted   int
	Settings      int
	SearchHistory int
	Lists         int
	ListItems     int
	Duplicates    int
	Errors        []EntryError
}

// Ok reports whether the restore completed without recoverable failures.
func (r *RestoreReport) Ok() bool { return len(r.Errors) == 0 }

func (r *RestoreReport) addError(entry string, err error) {
	r.Errors = append(r.Errors, EntryError{Entry: entry, Err: err})
}

// ReadBundle reads an archive back into a BackupBundle. decryptCtx may be
// nil; it is required when the archive holds encrypted entries.
//
// An unreadable archive is fatal. A malformed single entry is recoverable:
// it is recorded in the report and the remaining entries are still decoded.
func (s *LibraryService) ReadBundle(source string, decryptCtx DecryptionContext) (*model.BackupBundle, *RestoreReport, error) {
	bundle := &model.BackupBundle{}
	report := &RestoreReport{}

	err := s.archiver.Unzip(source, func(name string, content []byte) error {
		if err := decodeOne(bundle, name, content, decryptCtx); err != nil {
			report.addError(name, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	return bundle, report, nil
}

// decodeOne decrypts (when needed) and decodes a single archive entry.
func decodeOne(bundle *model.BackupBundle, name string, content []byte, decryptCtx DecryptionContext) error {
	if bytes.HasPrefix(content, ageMagic) {
		if decryptCtx == nil {
			return ErrEncryptedEntry
		}
		var buf bytes.Buffer
		if err := decryptCtx.Decrypt(bytes.NewReader(content), &buf); err != nil {
			return fmt.Errorf("decrypting entry: %w", err)
		}
		content = buf.Bytes()
	}
	return decodeEntry(bundle, name, content)
}

// decodeEntry routes one archive entry to the bundle field its name keys.
func decodeEntry(bundle *model.BackupBundle, name string, content []byte) error {
	switch name {
	case EntryFavorites:
		return json.Unmarshal(content, &bundle.Favorites)
	case EntryBlacklisted:
		return json.Unmarshal(content, &bundle.Blacklisted)
	case EntrySettings:
		return json.Unmarshal(content, &bundle.Settings)
	case EntrySearchHistory:
		return json.Unmarshal(content, &bundle.SearchHistory)
	default:
		uuid, ok := ParseListEntryName(name)
		if !ok {
			return fmt.Errorf("unknown entry name: %s", name)
		}
		var list model.ListWithItems
		if err := json.Unmarshal(content, &list); err != nil {
			return err
		}
		if list.Header.UUID != uuid {
			return fmt.Errorf("entry name %s does not match header uuid %s", name, list.Header.UUID)
		}
		bundle.Lists = append(bundle.Lists, list)
		return nil
	}
}

// Restore reads the archive at source and reconciles its contents into the
// store per the selection. See Reconcile for the merge semantics.
func (s *LibraryService) Restore(ctx context.Context, source string, sel model.Selection, decryptCtx DecryptionContext) (*RestoreReport, error) {
	bundle, report, err := s.ReadBundle(source, decryptCtx)
	if err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, bundle, sel, report); err != nil {
		return report, err
	}
	return report, nil
}

// Reconcile merges a bundle into the store, deduplicating against existing
// rows by external identity. Local data always wins: a bundle row whose
// identity already exists locally is dropped, never overwritten, which
// makes restoring the same archive twice a no-op. Search history is the
// one exception — an existing query gets its timestamp refreshed.
//
// Per-item failures are recorded in the report and do not abort the rest
// of the restore; only a store-level failure is returned as an error.
func (s *LibraryService) Reconcile(ctx context.Context, bundle *model.BackupBundle, sel model.Selection) (*RestoreReport, error) {
	report := &RestoreReport{}
	if err := s.reconcile(ctx, bundle, sel, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *LibraryService) reconcile(ctx context.Context, bundle *model.BackupBundle, sel model.Selection, report *RestoreReport) error {
	if sel.Favorites {
		for _, f := range bundle.Favorites {
			added, err := s.store.AddFavorite(ctx, f)
			if err != nil {
				report.addError("favorite "+f.ID, err)
				continue
			}
			if added {
				report.Favorites++
			} else {
				report.Duplicates++
			}
		}
	}

	if sel.Blacklisted {
		for _, e := range bundle.Blacklisted {
			added, err := s.store.AddBlacklistEntry(ctx, e)
			if err != nil {
				report.addError("blacklist "+e.ID, err)
				continue
			}
			if added {
				report.Blacklisted++
			} else {
				report.Duplicates++
			}
		}
	}

	if sel.Settings && bundle.Settings != nil {
		existing, err := s.store.Settings(ctx)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		for key, value := range bundle.Settings {
			if _, ok := existing[key]; ok {
				report.Duplicates++
				continue
			}
			if err := s.store.PutSetting(ctx, key, value); err != nil {
				report.addError("setting "+key, err)
				continue
			}
			report.Settings++
		}
	}

	if sel.SearchHistory {
		for _, h := range bundle.SearchHistory {
			if err := s.store.RecordSearch(ctx, h.Query, h.SearchedAt); err != nil {
				report.addError("search "+h.Query, err)
				continue
			}
			report.SearchHistory++
		}
	}

	for _, list := range bundle.Lists {
		if !sel.IncludesList(list.Header.UUID) {
			continue
		}
		if err := s.restoreList(ctx, list, report); err != nil {
			return err
		}
	}

	s.logger.Info("restore reconciled",
		"favorites", report.Favorites,
		"blacklisted", report.Blacklisted,
		"lists", report.Lists,
		"items", report.ListItems,
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return nil
}

// restoreList merges one list. The header is created only if absent,
// reusing the original uuid so the list keeps its identity across devices;
// items are merged with the same no-op-on-duplicate semantics as AddToList.
func (s *LibraryService) restoreList(ctx context.Context, list model.ListWithItems, report *RestoreReport) error {
	existing, err := s.store.GetListHeader(ctx, list.Header.UUID)
	if err != nil {
		return fmt.Errorf("checking for existing list: %w", err)
	}
	if existing == nil {
		if err := s.store.InsertListHeader(ctx, list.Header); err != nil {
			return fmt.Errorf("restoring list header: %w", err)
		}
		report.Lists++
	}

	for _, item := range list.Items {
		item.ListUUID = list.Header.UUID
		added, err := s.store.AddListItem(ctx, item)
		if err != nil {
			report.addError(fmt.Sprintf("list %s item %s", list.Header.UUID, item.EntityID), err)
			continue
		}
		if added {
			report.ListItems++
		} else {
			report.Duplicates++
		}
	}
	return nil
}

// FetchArchive downloads a previously uploaded archive from the vault to a
// local path so it can be restored.
func (s *LibraryService) FetchArchive(name, destination string) error {
	if s.vault == nil {
		return fmt.Errorf("no archive vault configured")
	}

	payload := &bytes.Buffer{}
	if err := s.vault.GetArchive(name, payload); err != nil {
		return fmt.Errorf("fetching archive from vault: %w", err)
	}
	if err := writeFileAtomic(destination, payload.Bytes()); err != nil {
		return fmt.Errorf("writing fetched archive: %w", err)
	}

	s.logger.Info("archive fetched", "name", name, "path", destination)
	return nil
}

// writeFileAtomic writes data to path via a temp file and rename, so the
// destination never holds a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
