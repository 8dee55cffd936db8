package model

import "time"

// FavoriteKind classifies what kind of catalog entity a favorite points at.
type FavoriteKind string

const (
	KindModel   FavoriteKind = "model"
	KindImage   FavoriteKind = "image"
	KindCreator FavoriteKind = "creator"
)

// Favorite is a standalone favorited catalog entity.
// The ID is the upstream catalog identifier, not a locally generated key.
type Favorite struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	NSFW        bool         `json:"nsfw"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Kind        FavoriteKind `json:"kind"`
	ImageMeta   []byte       `json:"imageMeta,omitempty"`
	ModelID     string       `json:"modelId"`
	DateAdded   time.Time    `json:"dateAdded"`
}

// BlacklistEntry marks a catalog entity the user never wants to see again.
type BlacklistEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NSFW     bool   `json:"nsfw"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// SearchHistoryItem records one search query. Query is the primary key:
// repeating a search refreshes SearchedAt instead of inserting a second row.
type SearchHistoryItem struct {
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searchedAt"`
}

// ListHeader is a user-created named collection of favorited entities.
// UUID is generated locally at creation and never changes; it is the
// identity that survives export/import across devices.
type ListHeader struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CoverImage   string    `json:"coverImage,omitempty"`
	CoverHash    string    `json:"coverHash,omitempty"`
	RequiresAuth bool      `json:"requiresAuth"`
	LastModified time.Time `json:"lastModified"`
}

// ListItem is one entity placed inside a list. Identity is the pair
// (ListUUID, EntityID); EntityID is the upstream catalog identifier.
type ListItem struct {
	ListUUID     string       `json:"-"`
	EntityID     string       `json:"entityId"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Category     string       `json:"category"`
	NSFW         bool         `json:"nsfw"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	Kind         FavoriteKind `json:"kind"`
	ImageMeta    []byte       `json:"imageMeta,omitempty"`
	ContentHash  string       `json:"contentHash,omitempty"`
	CreatorName  string       `json:"creatorName,omitempty"`
	CreatorImage string       `json:"creatorImage,omitempty"`
	ModelID      string       `json:"modelId"`
	DateAdded    time.Time    `json:"dateAdded"`
}

// ListWithItems pairs a header with its member items, as loaded for
// search results and for export.
type ListWithItems struct {
	Header ListHeader `json:"header"`
	Items  []ListItem `json:"items"`
}

// BackupBundle is the category-partitioned snapshot moved through the
// archive codec. A nil slice means the category was not selected for
// backup, which is distinct from a selected-but-empty category.
type BackupBundle struct {
	Favorites     []Favorite          `json:"favorites,omitempty"`
	Blacklisted   []BlacklistEntry    `json:"blacklisted,omitempty"`
	Settings      map[string]string   `json:"settings,omitempty"`
	SearchHistory []SearchHistoryItem `json:"searchHistory,omitempty"`
	Lists         []ListWithItems     `json:"lists,omitempty"`
}

// Selection is the user-chosen inclusion filter passed to both export and
// import. ListUUIDs names the specific lists to include.
type Selection struct {
	Favorites     bool     `json:"favorites"`
	Blacklisted   bool     `json:"blacklisted"`
	Settings      bool     `json:"settings"`
	SearchHistory bool     `json:"searchHistory"`
	AllLists      bool     `json:"allLists"`
	ListUUIDs     []string `json:"listUuids"`
}

// IncludesList reports whether the selection covers the given list uuid.
// AllLists covers every uuid; otherwise the uuid must be named explicitly.
func (s Selection) IncludesList(uuid string) bool {
	if s.AllLists {
		return true
	}
	for _, u := range s.ListUUIDs {
		if u == uuid {
			return true
		}
	}
	return false
}

// Operation records one mutating CLI operation for the history view.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
