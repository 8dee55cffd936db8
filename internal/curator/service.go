package curator

import (
	"context"
	"fmt"

	"curator-go/internal/model"
)

// LibraryService is the orchestration layer that coordinates across all
// components to perform the high-level library operations needed by the CLI.
type LibraryService struct {
	store    Store
	archiver Archiver
	vault    ArchiveVault
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewLibraryService creates a new LibraryService with the provided
// dependencies. vault may be nil when no archive vault is configured;
// export then leaves the archive on local disk only.
func NewLibraryService(store Store, archiver Archiver, vault ArchiveVault, logger Logger, clock Clock, idgen IDGenerator) *LibraryService {
	return &LibraryService{
		store:    store,
		archiver: archiver,
		vault:    vault,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// CreateList creates a new list and returns its uuid.
// Duplicate names are permitted; the uuid is the unique key.
func (s *LibraryService) CreateList(ctx context.Context, name, description, coverImage string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("list name must not be empty")
	}

	h := model.ListHeader{
		UUID:         s.idgen.New(),
		Name:         name,
		Description:  description,
		CoverImage:   coverImage,
		LastModified: s.clock.Now(),
	}
	if err := s.store.InsertListHeader(ctx, h); err != nil {
		return "", fmt.Errorf("creating list: %w", err)
	}

	s.logger.Info("list created", "uuid", h.UUID, "name", name)
	return h.UUID, nil
}

// AddToList adds an entity to a list. Returns false if the entity is
// already present (nothing is mutated). Returns ErrListNotFound if the
// uuid is unknown.
func (s *LibraryService) AddToList(ctx context.Context, uuid string, item model.ListItem) (bool, error) {
	item.ListUUID = uuid
	if item.Category == "" {
		item.Category = "Other"
	}
	if item.ModelID == "" {
		item.ModelID = item.EntityID
	}
	if item.DateAdded.IsZero() {
		item.DateAdded = s.clock.Now()
	}

	added, err := s.store.AddListItem(ctx, item)
	if err != nil {
		return false, fmt.Errorf("adding to list: %w", err)
	}
	if !added {
		s.logger.Debug("entity already in list", "uuid", uuid, "entity", item.EntityID)
		return false, nil
	}

	s.logger.Info("entity added to list", "uuid", uuid, "entity", item.EntityID)
	return true, nil
}

// AddToMultipleLists applies AddToList once per selected list and returns
// the number of lists the entity was actually added to. Per-list semantics
// are identical to AddToList; an unknown uuid fails the whole call.
func (s *LibraryService) AddToMultipleLists(ctx context.Context, uuids []string, item model.ListItem) (int, error) {
	added := 0
	for _, u := range uuids {
		ok, err := s.AddToList(ctx, u, item)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// RemoveList deletes a list and all of its items as one unit.
func (s *LibraryService) RemoveList(ctx context.Context, uuid string) error {
	if err := s.store.RemoveList(ctx, uuid); err != nil {
		return fmt.Errorf("removing list: %w", err)
	}
	s.logger.Info("list removed", "uuid", uuid)
	return nil
}

// UpdateCoverImage sets a list's cover image and content hash.
// Cover changes are not content changes: last_modified is untouched.
func (s *LibraryService) UpdateCoverImage(ctx context.Context, uuid, coverImage, coverHash string) error {
	if err := s.store.UpdateListCover(ctx, uuid, coverImage, coverHash); err != nil {
		return fmt.Errorf("updating cover image: %w", err)
	}
	return nil
}

// UpdateListLock sets a list's requires-authentication flag.
// Security metadata changes are not content changes: last_modified is untouched.
func (s *LibraryService) UpdateListLock(ctx context.Context, uuid string, locked bool) error {
	if err := s.store.UpdateListLock(ctx, uuid, locked); err != nil {
		return fmt.Errorf("updating list lock: %w", err)
	}
	return nil
}

// Lists returns all list headers, unauthenticated lists first, most
// recently touched first within each group.
func (s *LibraryService) Lists(ctx context.Context) ([]model.ListHeader, error) {
	return s.store.ListHeaders(ctx)
}

// ListItems returns the items of one list.
func (s *LibraryService) ListItems(ctx context.Context, uuid string) ([]model.ListItem, error) {
	h, err := s.store.GetListHeader(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrListNotFound
	}
	return s.store.ListItems(ctx, uuid)
}

// SearchLists finds lists matching the query. With indexed=true the
// full-text shadow index answers the query; otherwise a substring scan
// over header and item name/description is used. Both return the same set
// of lists for whole-word queries. The query is also recorded in the
// search history.
func (s *LibraryService) SearchLists(ctx context.Context, query string, indexed bool) ([]model.ListWithItems, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}

	if err := s.store.RecordSearch(ctx, query, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("recording search: %w", err)
	}

	if indexed {
		return s.store.SearchListsIndexed(ctx, query)
	}
	return s.store.SearchLists(ctx, query)
}

// SearchSuggestions returns the most recent history entries matching the
// prefix (capped at five), or the whole history for an empty prefix.
func (s *LibraryService) SearchSuggestions(ctx context.Context, prefix string) ([]model.SearchHistoryItem, error) {
	return s.store.SearchHistory(ctx, prefix)
}

// AddFavorite records a favorite. Returns false if the entity is already
// favorited.
func (s *LibraryService) AddFavorite(ctx context.Context, f model.Favorite) (bool, error) {
	if f.Category == "" {
		f.Category = "Other"
	}
	if f.ModelID == "" {
		f.ModelID = f.ID
	}
	if f.DateAdded.IsZero() {
		f.DateAdded = s.clock.Now()
	}

	added, err := s.store.AddFavorite(ctx, f)
	if err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	if added {
		s.logger.Info("favorite added", "id", f.ID, "kind", f.Kind)
	}
	return added, nil
}

// RemoveFavorite deletes a favorite by ID.
func (s *LibraryService) RemoveFavorite(ctx context.Context, id string) error {
	if err := s.store.RemoveFavorite(ctx, id); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	s.logger.Info("favorite removed", "id", id)
	return nil
}

// Favorites returns all favorites, newest first.
func (s *LibraryService) Favorites(ctx context.Context) ([]model.Favorite, error) {
	return s.store.ListFavorites(ctx)
}

// Blacklist adds an entity to the blacklist. Any favorite with the same ID
// is removed in the same transaction.
func (s *LibraryService) Blacklist(ctx context.Context, e model.BlacklistEntry) (bool, error) {
	added, err := s.store.AddBlacklistEntry(ctx, e)
	if err != nil {
		return false, fmt.Errorf("blacklisting entity: %w", err)
	}
	if added {
		s.logger.Info("entity blacklisted", "id", e.ID)
	}
	return added, nil
}

// Unblacklist removes an entity from the blacklist.
func (s *LibraryService) Unblacklist(ctx context.Context, id string) error {
	if err := s.store.RemoveBlacklistEntry(ctx, id); err != nil {
		return fmt.Errorf("unblacklisting entity: %w", err)
	}
	s.logger.Info("entity unblacklisted", "id", id)
	return nil
}

// Blacklisted returns all blacklist entries.
func (s *LibraryService) Blacklisted(ctx context.Context) ([]model.BlacklistEntry, error) {
	return s.store.ListBlacklist(ctx)
}
