package curator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator-go/internal/archive"
	"curator-go/internal/curator"
	"curator-go/internal/model"
	"curator-go/internal/testutil"
)

// newService creates a LibraryService over a fresh in-memory store with a
// fixed clock and sequential IDs.
func newService(t *testing.T) (*curator.LibraryService, curator.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	svc := curator.NewLibraryService(store, archive.NewMemoryArchiver(), nil,
		curator.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	return svc, store
}

func TestLibraryService_CreateList(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a list with a generated uuid", func(t *testing.T) {
		svc, store := newService(t)

		uuid, err := svc.CreateList(ctx, "Dragons", "winged things", "")
		if err != nil {
			t.Fatalf("CreateList() error = %v", err)
		}
		if uuid != "id-1" {
			t.Errorf("uuid = %q, want id-1", uuid)
		}

		h, err := store.GetListHeader(ctx, uuid)
		if err != nil {
			t.Fatalf("GetListHeader() error = %v", err)
		}
		if h == nil {
			t.Fatal("header not persisted")
		}
		if h.Name != "Dragons" {
			t.Errorf("Name = %q, want Dragons", h.Name)
		}
		if h.LastModified.IsZero() {
			t.Error("LastModified is zero")
		}
	})

	t.Run("rejects empty names", func(t *testing.T) {
		svc, _ := newService(t)

		if _, err := svc.CreateList(ctx, "", "", ""); err == nil {
			t.Error("CreateList() = nil, want error for empty name")
		}
	})

	t.Run("permits duplicate names", func(t *testing.T) {
		svc, _ := newService(t)

		u1, err := svc.CreateList(ctx, "Same", "", "")
		if err != nil {
			t.Fatalf("first CreateList() error = %v", err)
		}
		u2, err := svc.CreateList(ctx, "Same", "", "")
		if err != nil {
			t.Fatalf("second CreateList() error = %v", err)
		}
		if u1 == u2 {
			t.Errorf("both lists got uuid %q", u1)
		}
	})
}

func TestLibraryService_AddToList(t *testing.T) {
	ctx := context.Background()

	t.Run("fills defaults on insert", func(t *testing.T) {
		svc, store := newService(t)

		uuid, err := svc.CreateList(ctx, "Stuff", "", "")
		if err != nil {
			t.Fatalf("CreateList() error = %v", err)
		}

		added, err := svc.AddToList(ctx, uuid, model.ListItem{EntityID: "e1", Name: "Thing"})
		if err != nil {
			t.Fatalf("AddToList() error = %v", err)
		}
		if !added {
			t.Fatal("AddToList() = false, want true")
		}

		items, err := store.ListItems(ctx, uuid)
		if err != nil {
			t.Fatalf("ListItems() error = %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("len(items) = %d, want 1", len(items))
		}
		if items[0].Category != "Other" {
			t.Errorf("Category = %q, want Other", items[0].Category)
		}
		if items[0].ModelID != "e1" {
			t.Errorf("ModelID = %q, want e1", items[0].ModelID)
		}
		if items[0].DateAdded.IsZero() {
			t.Error("DateAdded is zero")
		}
	})

	t.Run("duplicate returns false without error", func(t *testing.T) {
		svc, _ := newService(t)

		uuid, _ := svc.CreateList(ctx, "Stuff", "", "")
		if _, err := svc.AddToList(ctx, uuid, model.ListItem{EntityID: "e1"}); err != nil {
			t.Fatalf("AddToList() error = %v", err)
		}

		added, err := svc.AddToList(ctx, uuid, model.ListItem{EntityID: "e1"})
		if err != nil {
			t.Fatalf("second AddToList() error = %v", err)
		}
		if added {
			t.Error("second AddToList() = true, want false")
		}
	})

	t.Run("unknown list returns ErrListNotFound", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.AddToList(ctx, "missing", model.ListItem{EntityID: "e1"})
		if !errors.Is(err, curator.ErrListNotFound) {
			t.Errorf("AddToList() error = %v, want ErrListNotFound", err)
		}
	})
}

func TestLibraryService_AddToMultipleLists(t *testing.T) {
	ctx := context.Background()

	t.Run("counts only actual insertions", func(t *testing.T) {
		svc, _ := newService(t)

		u1, _ := svc.CreateList(ctx, "One", "", "")
		u2, _ := svc.CreateList(ctx, "Two", "", "")

		// Pre-seed the entity into the first list.
		if _, err := svc.AddToList(ctx, u1, model.ListItem{EntityID: "e1"}); err != nil {
			t.Fatalf("AddToList() error = %v", err)
		}

		added, err := svc.AddToMultipleLists(ctx, []string{u1, u2}, model.ListItem{EntityID: "e1"})
		if err != nil {
			t.Fatalf("AddToMultipleLists() error = %v", err)
		}
		if added != 1 {
			t.Errorf("added = %d, want 1 (one duplicate)", added)
		}
	})

	t.Run("unknown uuid fails the call", func(t *testing.T) {
		svc, _ := newService(t)

		u1, _ := svc.CreateList(ctx, "One", "", "")

		_, err := svc.AddToMultipleLists(ctx, []string{u1, "missing"}, model.ListItem{EntityID: "e1"})
		if !errors.Is(err, curator.ErrListNotFound) {
			t.Errorf("AddToMultipleLists() error = %v, want ErrListNotFound", err)
		}
	})
}

func TestLibraryService_SearchLists(t *testing.T) {
	ctx := context.Background()

	t.Run("records the query in search history", func(t *testing.T) {
		svc, store := newService(t)

		if _, err := svc.SearchLists(ctx, "dragons", false); err != nil {
			t.Fatalf("SearchLists() error = %v", err)
		}

		history, err := store.SearchHistory(ctx, "")
		if err != nil {
			t.Fatalf("SearchHistory() error = %v", err)
		}
		if len(history) != 1 || history[0].Query != "dragons" {
			t.Errorf("history = %v, want [dragons]", history)
		}
	})

	t.Run("rejects empty queries", func(t *testing.T) {
		svc, _ := newService(t)

		if _, err := svc.SearchLists(ctx, "", true); err == nil {
			t.Error("SearchLists() = nil, want error for empty query")
		}
	})

	t.Run("indexed and scan modes find the same lists", func(t *testing.T) {
		svc, _ := newService(t)

		uuid, _ := svc.CreateList(ctx, "Dragon Hoard", "", "")
		if _, err := svc.AddToList(ctx, uuid, model.ListItem{EntityID: "e1", Name: "Gold Pile"}); err != nil {
			t.Fatalf("AddToList() error = %v", err)
		}

		scanned, err := svc.SearchLists(ctx, "gold", false)
		if err != nil {
			t.Fatalf("SearchLists(scan) error = %v", err)
		}
		indexed, err := svc.SearchLists(ctx, "gold", true)
		if err != nil {
			t.Fatalf("SearchLists(indexed) error = %v", err)
		}
		if len(scanned) != 1 || len(indexed) != 1 {
			t.Errorf("scan found %d, index found %d, want 1 and 1", len(scanned), len(indexed))
		}
	})
}

func TestLibraryService_ListItems(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown list returns ErrListNotFound", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.ListItems(ctx, "missing")
		if !errors.Is(err, curator.ErrListNotFound) {
			t.Errorf("ListItems() error = %v, want ErrListNotFound", err)
		}
	})
}

func TestLibraryService_Favorites(t *testing.T) {
	ctx := context.Background()

	t.Run("fills defaults and dedupes", func(t *testing.T) {
		svc, _ := newService(t)

		added, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Name: "First", Kind: model.KindModel})
		if err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}
		if !added {
			t.Fatal("AddFavorite() = false, want true")
		}

		added, err = svc.AddFavorite(ctx, model.Favorite{ID: "m1", Name: "Again", Kind: model.KindModel})
		if err != nil {
			t.Fatalf("second AddFavorite() error = %v", err)
		}
		if added {
			t.Error("second AddFavorite() = true, want false")
		}

		favorites, err := svc.Favorites(ctx)
		if err != nil {
			t.Fatalf("Favorites() error = %v", err)
		}
		if len(favorites) != 1 {
			t.Fatalf("len(favorites) = %d, want 1", len(favorites))
		}
		if favorites[0].ModelID != "m1" {
			t.Errorf("ModelID = %q, want m1", favorites[0].ModelID)
		}
	})

	t.Run("blacklisting removes the favorite", func(t *testing.T) {
		svc, _ := newService(t)

		if _, err := svc.AddFavorite(ctx, model.Favorite{ID: "m1", Kind: model.KindModel}); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}
		if _, err := svc.Blacklist(ctx, model.BlacklistEntry{ID: "m1"}); err != nil {
			t.Fatalf("Blacklist() error = %v", err)
		}

		favorites, err := svc.Favorites(ctx)
		if err != nil {
			t.Fatalf("Favorites() error = %v", err)
		}
		if len(favorites) != 0 {
			t.Errorf("len(favorites) = %d, want 0", len(favorites))
		}
	})
}

func TestLibraryService_UpdateCoverImage(t *testing.T) {
	ctx := context.Background()

	t.Run("leaves last_modified untouched", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		clock := testutil.FixedClock()
		svc := curator.NewLibraryService(store, archive.NewMemoryArchiver(), nil,
			curator.NewNopLogger(), clock, testutil.NewStubIDGenerator())

		uuid, err := svc.CreateList(ctx, "Stuff", "", "")
		if err != nil {
			t.Fatalf("CreateList() error = %v", err)
		}
		created := clock.Now()

		clock.Advance(time.Hour)
		if err := svc.UpdateCoverImage(ctx, uuid, "img", "hash"); err != nil {
			t.Fatalf("UpdateCoverImage() error = %v", err)
		}
		if err := svc.UpdateListLock(ctx, uuid, true); err != nil {
			t.Fatalf("UpdateListLock() error = %v", err)
		}

		h, err := store.GetListHeader(ctx, uuid)
		if err != nil {
			t.Fatalf("GetListHeader() error = %v", err)
		}
		if h.LastModified.UnixMilli() != created.UnixMilli() {
			t.Errorf("LastModified = %v, want %v", h.LastModified, created)
		}
	})
}
