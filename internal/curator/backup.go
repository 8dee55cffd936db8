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

// ExportReport summarizes an export: which entries were written and which
// categories failed to serialize. Categories are independent — one failing
// category never blocks the others, but it is reported here so the caller
// can surface partial success precisely.
type ExportReport struct {
	Entries     []string
	ArchivePath string
	Uploaded    bool
	Failed      map[string]error
}

// Ok reports whether every selected category was exported.
func (r *ExportReport) Ok() bool { return len(r.Failed) == 0 }

// Export gathers the selected categories from the store, serializes each
// one independently, and writes them into a single archive at destination.
// enc may be nil; when set, each payload is encrypted before archiving.
// If an archive vault is configured the finished archive is uploaded to it.
//
// A failure reading or serializing one category is recorded in the report
// and the remaining categories still ship. A failure writing the archive
// itself is fatal and returns an error.
func (s *LibraryService) Export(ctx context.Context, sel model.Selection, destination string, enc Encryptor) (*ExportReport, error) {
	report := &ExportReport{
		ArchivePath: destination,
		Failed:      map[string]error{},
	}
	payloads := map[string][]byte{}

	add := func(name string, v any, err error) {
		if err != nil {
			report.Failed[name] = err
			s.logger.Error("export category failed", "entry", name, "error", err)
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			report.Failed[name] = fmt.Errorf("serializing: %w", err)
			s.logger.Error("export category failed", "entry", name, "error", err)
			return
		}
		payloads[name] = data
		report.Entries = append(report.Entries, name)
	}

	if sel.Favorites {
		favorites, err := s.store.ListFavorites(ctx)
		add(EntryFavorites, favorites, err)
	}
	if sel.Blacklisted {
		blacklisted, err := s.store.ListBlacklist(ctx)
		add(EntryBlacklisted, blacklisted, err)
	}
	if sel.Settings {
		settings, err := s.store.Settings(ctx)
		add(EntrySettings, settings, err)
	}
	if sel.SearchHistory {
		history, err := s.store.SearchHistory(ctx, "")
		add(EntrySearchHistory, history, err)
	}
	uuids := sel.ListUUIDs
	if sel.AllLists {
		headers, err := s.store.ListHeaders(ctx)
		if err != nil {
			report.Failed["lists"] = err
			s.logger.Error("export category failed", "entry", "lists", "error", err)
		} else {
			uuids = nil
			for _, h := range headers {
				uuids = append(uuids, h.UUID)
			}
		}
	}
	for _, uuid := range uuids {
		list, err := s.loadList(ctx, uuid)
		add(ListEntryName(uuid), list, err)
	}

	if len(payloads) == 0 {
		return report, fmt.Errorf("nothing selected for export")
	}

	if enc != nil {
		for name, data := range payloads {
			var buf bytes.Buffer
			if err := enc.Encrypt(bytes.NewReader(data), &buf); err != nil {
				return report, fmt.Errorf("encrypting entry %s: %w", name, err)
			}
			payloads[name] = buf.Bytes()
		}
	}

	if err := s.archiver.Zip(destination, payloads); err != nil {
		return report, fmt.Errorf("writing archive: %w", err)
	}
	s.logger.Info("archive written", "path", destination, "entries", len(payloads))

	if s.vault != nil {
		if err := s.uploadArchive(destination); err != nil {
			return report, err
		}
		report.Uploaded = true
	}

	return report, nil
}

// loadList loads one list header plus all of its items for export.
func (s *LibraryService) loadList(ctx context.Context, uuid string) (*model.ListWithItems, error) {
	h, err := s.store.GetListHeader(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrListNotFound
	}
	items, err := s.store.ListItems(ctx, uuid)
	if err != nil {
		return nil, err
	}
	return &model.ListWithItems{Header: *h, Items: items}, nil
}

// uploadArchive stores the finished archive in the configured vault under
// its base filename.
func (s *LibraryService) uploadArchive(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	name := filepath.Base(path)
	if err := s.vault.PutArchive(name, f, info.Size()); err != nil {
		return fmt.Errorf("uploading archive to vault: %w", err)
	}

	s.logger.Info("archive uploaded", "name", name, "size", info.Size())
	return nil
}
