package curator

import (
	"context"
	"time"

	"curator-go/internal/model"
)

// Store provides the persistence interface for all library collections.
// Implementations own the transaction boundary: every mutation of a list
// header or item commits together with its full-text shadow entry, and no
// method exposes a raw write path to the shadow index.
type Store interface {
	// Favorites

	// AddFavorite inserts a favorite. Returns false without mutating
	// anything if a favorite with the same ID already exists.
	AddFavorite(ctx context.Context, f model.Favorite) (bool, error)

	// RemoveFavorite deletes a favorite by ID. Unknown IDs are a no-op.
	RemoveFavorite(ctx context.Context, id string) error

	// ListFavorites returns all favorites ordered by date added, newest first.
	ListFavorites(ctx context.Context) ([]model.Favorite, error)

	// Blacklist

	// AddBlacklistEntry inserts a blacklist entry and, in the same
	// transaction, removes any favorite with the same ID. Returns false if
	// the entry already exists.
	AddBlacklistEntry(ctx context.Context, e model.BlacklistEntry) (bool, error)

	// RemoveBlacklistEntry deletes a blacklist entry by ID.
	RemoveBlacklistEntry(ctx context.Context, id string) error

	// ListBlacklist returns all blacklist entries.
	ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error)

	// Search history

	// RecordSearch inserts a search query, or refreshes its timestamp if
	// the same query was recorded before.
	RecordSearch(ctx context.Context, query string, at time.Time) error

	// SearchHistory returns history items, most recent first. With a
	// non-empty prefix only matching queries are returned, capped at five;
	// with an empty prefix the full history is returned.
	SearchHistory(ctx context.Context, prefix string) ([]model.SearchHistoryItem, error)

	// Settings

	// PutSetting stores a key/value pair, replacing any existing value.
	PutSetting(ctx context.Context, key, value string) error

	// Settings returns all stored key/value pairs.
	Settings(ctx context.Context) (map[string]string, error)

	// Lists

	// InsertListHeader creates a new list header row and its shadow entry.
	InsertListHeader(ctx context.Context, h model.ListHeader) error

	// GetListHeader returns a header by uuid, or nil if not found.
	GetListHeader(ctx context.Context, uuid string) (*model.ListHeader, error)

	// ListHeaders returns all headers ordered by requires_auth ascending,
	// then last_modified descending.
	ListHeaders(ctx context.Context) ([]model.ListHeader, error)

	// ListItems returns the items of one list ordered by date added.
	ListItems(ctx context.Context, uuid string) ([]model.ListItem, error)

	// AddListItem inserts an item and touches the owning header's
	// last_modified, as one transaction. Returns false without mutating
	// anything if the entity is already in the list. Returns
	// ErrListNotFound if item.ListUUID is unknown.
	AddListItem(ctx context.Context, item model.ListItem) (bool, error)

	// RemoveList deletes a list's items and its header as one transaction.
	RemoveList(ctx context.Context, uuid string) error

	// UpdateListCover sets the cover image and hash. Does not touch
	// last_modified.
	UpdateListCover(ctx context.Context, uuid, coverImage, coverHash string) error

	// UpdateListLock sets the requires-authentication flag. Does not touch
	// last_modified.
	UpdateListLock(ctx context.Context, uuid string, locked bool) error

	// SearchLists scans header and item name/description for the substring
	// and returns matching lists with their matching items.
	SearchLists(ctx context.Context, query string) ([]model.ListWithItems, error)

	// SearchListsIndexed answers the same question through the full-text
	// shadow index: headers whose own entry matches, unioned with headers
	// owning at least one matching item.
	SearchListsIndexed(ctx context.Context, query string) ([]model.ListWithItems, error)

	// Operation tracking

	CreateOperation(ctx context.Context, operation, parameters string) (*model.Operation, error)
	FinishOperation(ctx context.Context, id int64, status string) error
	ListOperations(ctx context.Context, limit int) ([]model.Operation, error)

	// Close closes the underlying connection.
	Close() error
}
