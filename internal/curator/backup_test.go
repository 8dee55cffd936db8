package curator_test

import (
	"context"
	"path/filepath"
	"testing"

	"curator-go/internal/archive"
	"curator-go/internal/curator"
	"curator-go/internal/model"
	"curator-go/internal/testutil"
	"curator-go/internal/vault"
)

func selectAll() model.Selection {
	return model.Selection{
		Favorites:     true,
		Blacklisted:   true,
		Settings:      true,
		SearchHistory: true,
		AllLists:      true,
	}
}

func TestLibraryService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("exports only the selected categories", func(t *testing.T) {
		svc, store := newService(t)

		if _, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}
		if err := store.PutSetting(ctx, "theme", "dark"); err != nil {
			t.Fatalf("PutSetting() error = %v", err)
		}

		report, err := svc.Export(ctx, model.Selection{Favorites: true}, "out.zip", nil)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !report.Ok() {
			t.Fatalf("report.Failed = %v", report.Failed)
		}

		bundle, _, err := svc.ReadBundle("out.zip", nil)
		if err != nil {
			t.Fatalf("ReadBundle() error = %v", err)
		}
		if len(bundle.Favorites) != 1 {
			t.Errorf("len(Favorites) = %d, want 1", len(bundle.Favorites))
		}
		if bundle.Settings != nil {
			t.Errorf("Settings = %v, want nil (not selected)", bundle.Settings)
		}
	})

	t.Run("a failing category does not block the others", func(t *testing.T) {
		svc, _ := newService(t)

		if _, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}

		sel := model.Selection{Favorites: true, ListUUIDs: []string{"missing"}}
		report, err := svc.Export(ctx, sel, "out.zip", nil)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if report.Ok() {
			t.Error("report.Ok() = true, want failure recorded for missing list")
		}
		if _, failed := report.Failed[curator.ListEntryName("missing")]; !failed {
			t.Errorf("Failed = %v, want entry for the missing list", report.Failed)
		}

		found := false
		for _, e := range report.Entries {
			if e == curator.EntryFavorites {
				found = true
			}
		}
		if !found {
			t.Errorf("Entries = %v, want favorites shipped despite list failure", report.Entries)
		}
	})

	t.Run("empty selection is an error", func(t *testing.T) {
		svc, _ := newService(t)

		if _, err := svc.Export(ctx, model.Selection{}, "out.zip", nil); err == nil {
			t.Error("Export() = nil, want error for empty selection")
		}
	})

	t.Run("uploads the finished archive to the vault", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		v := vault.NewMemoryVault("test")
		svc := curator.NewLibraryService(store, archive.NewZipArchiver(curator.NewNopLogger()), v,
			curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

		if _, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}

		dest := filepath.Join(t.TempDir(), "library.zip")
		report, err := svc.Export(ctx, model.Selection{Favorites: true}, dest, nil)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !report.Uploaded {
			t.Error("Uploaded = false, want true")
		}

		names, err := v.ListArchives()
		if err != nil {
			t.Fatalf("ListArchives() error = %v", err)
		}
		if len(names) != 1 || names[0] != "library.zip" {
			t.Errorf("archives = %v, want [library.zip]", names)
		}
	})

	t.Run("fetches an uploaded archive back from the vault", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		v := vault.NewMemoryVault("test")
		svc := curator.NewLibraryService(store, archive.NewZipArchiver(curator.NewNopLogger()), v,
			curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

		if _, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}

		dir := t.TempDir()
		dest := filepath.Join(dir, "library.zip")
		if _, err := svc.Export(ctx, model.Selection{Favorites: true}, dest, nil); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		fetched := filepath.Join(dir, "fetched.zip")
		if err := svc.FetchArchive("library.zip", fetched); err != nil {
			t.Fatalf("FetchArchive() error = %v", err)
		}

		bundle, _, err := svc.ReadBundle(fetched, nil)
		if err != nil {
			t.Fatalf("ReadBundle() error = %v", err)
		}
		if len(bundle.Favorites) != 1 {
			t.Errorf("len(Favorites) = %d, want 1", len(bundle.Favorites))
		}
	})
}
