package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"curator-go/internal/curator"
	"curator-go/internal/database/migrations"
	"curator-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the curator.Store interface using SQLite.
//
// The full-text shadow tables (list_headers_fts, list_items_fts) are
// maintained entirely by triggers installed in the migrations; no method
// here writes them directly. Every list mutation therefore commits its
// shadow change in the same transaction as the source row.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is its own empty database, so an
	// in-memory store must never grow a second pooled connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Writes come from a bounded worker pool; wait for locks instead of
	// failing immediately when two operations land at once.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := checkFTS5(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// checkFTS5 verifies the driver was compiled with the FTS5 module. The
// shadow-index migrations need it, so fail fast with instructions instead
// of surfacing "no such module: fts5" halfway through a migration.
// go-sqlite3 only includes FTS5 when built with the sqlite_fts5 tag.
func checkFTS5(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("SELECT sqlite_compileoption_used('ENABLE_FTS5')").Scan(&enabled); err != nil {
		return fmt.Errorf("checking FTS5 support: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite driver compiled without FTS5; rebuild with -tags sqlite_fts5")
	}
	return nil
}

// Favorite operations

func (s *SQLiteStore) AddFavorite(ctx context.Context, f model.Favorite) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, name, description, category, nsfw, image_url, kind, image_meta, model_id, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		f.ID, f.Name, f.Description, f.Category, f.NSFW, f.ImageURL, string(f.Kind), f.ImageMeta, f.ModelID, f.DateAdded.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, category, nsfw, image_url, kind, image_meta, model_id, date_added
		FROM favorites ORDER BY date_added DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var favorites []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var kind string
		var added int64
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Category, &f.NSFW, &f.ImageURL, &kind, &f.ImageMeta, &f.ModelID, &added); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		f.Kind = model.FavoriteKind(kind)
		f.DateAdded = time.UnixMilli(added)
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Blacklist operations

// AddBlacklistEntry inserts the entry and removes any favorite with the
// same ID as one transaction. Blacklisting something and keeping it
// favorited would contradict each other.
func (s *SQLiteStore) AddBlacklistEntry(ctx context.Context, e model.BlacklistEntry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO blacklist (id, name, nsfw, image_url) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Name, e.NSFW, e.ImageURL)
	if err != nil {
		return false, fmt.Errorf("adding blacklist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adding blacklist entry: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", e.ID); err != nil {
		return false, fmt.Errorf("removing blacklisted favorite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) RemoveBlacklistEntry(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM blacklist WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing blacklist entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, nsfw, image_url FROM blacklist ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing blacklist: %w", err)
	}
	defer rows.Close()

	var entries []model.BlacklistEntry
	for rows.Next() {
		var e model.BlacklistEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.NSFW, &e.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Search history operations

func (s *SQLiteStore) RecordSearch(ctx context.Context, query string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (query, searched_at) VALUES (?, ?)
		ON CONFLICT (query) DO UPDATE SET searched_at = excluded.searched_at`,
		query, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SearchHistory(ctx context.Context, prefix string) ([]model.SearchHistoryItem, error) {
	var rows *sql.Rows
	var err error
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx,
			"SELECT query, searched_at FROM search_history ORDER BY searched_at DESC, query")
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT query, searched_at FROM search_history
			WHERE query LIKE '%' || ? || '%'
			ORDER BY searched_at DESC, query LIMIT 5`, prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("listing search history: %w", err)
	}
	defer rows.Close()

	var items []model.SearchHistoryItem
	for rows.Next() {
		var it model.SearchHistoryItem
		var at int64
		if err := rows.Scan(&it.Query, &at); err != nil {
			return nil, fmt.Errorf("scanning search history: %w", err)
		}
		it.SearchedAt = time.UnixMilli(at)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Settings operations

func (s *SQLiteStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("putting setting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// List operations

func (s *SQLiteStore) InsertListHeader(ctx context.Context, h model.ListHeader) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_headers (uuid, name, description, cover_image, cover_hash, requires_auth, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.UUID, h.Name, h.Description, h.CoverImage, h.CoverHash, h.RequiresAuth, h.LastModified.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting list header: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetListHeader(ctx context.Context, uuid string) (*model.ListHeader, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, name, description, cover_image, cover_hash, requires_auth, last_modified
		FROM list_headers WHERE uuid = ?`, uuid)

	h, err := scanListHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding list header: %w", err)
	}
	return h, nil
}

func (s *SQLiteStore) ListHeaders(ctx context.Context) ([]model.ListHeader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, name, description, cover_image, cover_hash, requires_auth, last_modified
		FROM list_headers ORDER BY requires_auth ASC, last_modified DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing list headers: %w", err)
	}
	defer rows.Close()

	return collectListHeaders(rows)
}

func (s *SQLiteStore) ListItems(ctx context.Context, uuid string) ([]model.ListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_uuid, entity_id, name, description, category, nsfw, image_url, kind,
		       image_meta, content_hash, creator_name, creator_image, model_id, date_added
		FROM list_items WHERE list_uuid = ? ORDER BY date_added ASC, entity_id`, uuid)
	if err != nil {
		return nil, fmt.Errorf("listing list items: %w", err)
	}
	defer rows.Close()

	var items []model.ListItem
	for rows.Next() {
		it, err := scanListItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// AddListItem inserts the item and touches the owning header's
// last_modified as one transaction. The item's shadow entry is written by
// the insert trigger inside the same transaction. Returns false without
// mutating anything if the entity is already present.
func (s *SQLiteStore) AddListItem(ctx context.Context, item model.ListItem) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM list_headers WHERE uuid = ?", item.ListUUID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, curator.ErrListNotFound
	}
	if err != nil {
		return false, fmt.Errorf("finding list header: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO list_items (list_uuid, entity_id, name, description, category, nsfw, image_url, kind,
		                        image_meta, content_hash, creator_name, creator_image, model_id, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (list_uuid, entity_id) DO NOTHING`,
		item.ListUUID, item.EntityID, item.Name, item.Description, item.Category, item.NSFW, item.ImageURL,
		string(item.Kind), item.ImageMeta, item.ContentHash, item.CreatorName, item.CreatorImage,
		item.ModelID, item.DateAdded.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("inserting list item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting list item: %w", err)
	}
	if n == 0 {
		// Duplicate: defined no-op, nothing to commit.
		return false, nil
	}

	// MAX keeps the header's recency monotonic: an item merged in from an
	// old archive must not move last_modified backwards.
	_, err = tx.ExecContext(ctx, "UPDATE list_headers SET last_modified = MAX(last_modified, ?) WHERE uuid = ?",
		item.DateAdded.UnixMilli(), item.ListUUID)
	if err != nil {
		return false, fmt.Errorf("touching list header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

// RemoveList deletes all of a list's items and then its header as one
// transaction; partial deletion is never observable.
func (s *SQLiteStore) RemoveList(ctx context.Context, uuid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM list_items WHERE list_uuid = ?", uuid); err != nil {
		return fmt.Errorf("deleting list items: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM list_headers WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("deleting list header: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting list header: %w", err)
	}
	if n == 0 {
		return curator.ErrListNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateListCover(ctx context.Context, uuid, coverImage, coverHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE list_headers SET cover_image = ?, cover_hash = ? WHERE uuid = ?",
		coverImage, coverHash, uuid)
	if err != nil {
		return fmt.Errorf("updating list cover: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) UpdateListLock(ctx context.Context, uuid string, locked bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE list_headers SET requires_auth = ? WHERE uuid = ?", locked, uuid)
	if err != nil {
		return fmt.Errorf("updating list lock: %w", err)
	}
	return requireRow(res)
}

// requireRow maps a zero-row update to ErrListNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return curator.ErrListNotFound
	}
	return nil
}

// Search

// SearchLists performs the plain substring scan over header and item
// name/description.
func (s *SQLiteStore) SearchLists(ctx context.Context, query string) ([]model.ListWithItems, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.uuid, h.name, h.description, h.cover_image, h.cover_hash, h.requires_auth, h.last_modified
		FROM list_headers h
		WHERE h.name LIKE ?1 OR h.description LIKE ?1
		   OR EXISTS (
		       SELECT 1 FROM list_items i
		       WHERE i.list_uuid = h.uuid AND (i.name LIKE ?1 OR i.description LIKE ?1)
		   )
		ORDER BY h.requires_auth ASC, h.last_modified DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching lists: %w", err)
	}
	defer rows.Close()

	return s.collectListsWithItems(ctx, rows)
}

// SearchListsIndexed answers the same question through the shadow index:
// headers whose own entry matches the query, unioned with headers owning
// at least one matching item entry. Equivalent to SearchLists for
// whole-word queries; tokenization granularity is the only difference.
func (s *SQLiteStore) SearchListsIndexed(ctx context.Context, query string) ([]model.ListWithItems, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT h.uuid, h.name, h.description, h.cover_image, h.cover_hash, h.requires_auth, h.last_modified
		FROM list_headers h
		WHERE h.uuid IN (
		    SELECT uuid FROM list_headers_fts WHERE list_headers_fts MATCH ?1
		    UNION
		    SELECT list_uuid FROM list_items_fts WHERE list_items_fts MATCH ?1
		)
		ORDER BY h.requires_auth ASC, h.last_modified DESC`, match)
	if err != nil {
		return nil, fmt.Errorf("searching lists via index: %w", err)
	}
	defer rows.Close()

	return s.collectListsWithItems(ctx, rows)
}

// ftsMatchExpr converts free text into an FTS5 match expression: each
// token is double-quoted so user input cannot inject FTS5 query syntax.
func ftsMatchExpr(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func (s *SQLiteStore) collectListsWithItems(ctx context.Context, rows *sql.Rows) ([]model.ListWithItems, error) {
	headers, err := collectListHeaders(rows)
	if err != nil {
		return nil, err
	}

	var lists []model.ListWithItems
	for _, h := range headers {
		items, err := s.ListItems(ctx, h.UUID)
		if err != nil {
			return nil, err
		}
		lists = append(lists, model.ListWithItems{Header: h, Items: items})
	}
	return lists, nil
}

// Operation tracking

func (s *SQLiteStore) CreateOperation(ctx context.Context, operation, parameters string) (*model.Operation, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, 'started')",
		operation, parameters, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &model.Operation{ID: id, Operation: operation, Parameters: parameters, StartedAt: now, Status: "started"}, nil
}

func (s *SQLiteStore) FinishOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE operations SET finished_at = ?, status = ? WHERE id = ?",
		time.Now().UnixMilli(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListOperations(ctx context.Context, limit int) ([]model.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &started, &finished, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// row scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListHeader(r rowScanner) (*model.ListHeader, error) {
	var h model.ListHeader
	var modified int64
	if err := r.Scan(&h.UUID, &h.Name, &h.Description, &h.CoverImage, &h.CoverHash, &h.RequiresAuth, &modified); err != nil {
		return nil, err
	}
	h.LastModified = time.UnixMilli(modified)
	return &h, nil
}

func collectListHeaders(rows *sql.Rows) ([]model.ListHeader, error) {
	var headers []model.ListHeader
	for rows.Next() {
		h, err := scanListHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning list header: %w", err)
		}
		headers = append(headers, *h)
	}
	return headers, rows.Err()
}

func scanListItem(r rowScanner) (*model.ListItem, error) {
	var it model.ListItem
	var kind string
	var added int64
	err := r.Scan(&it.ListUUID, &it.EntityID, &it.Name, &it.Description, &it.Category, &it.NSFW, &it.ImageURL,
		&kind, &it.ImageMeta, &it.ContentHash, &it.CreatorName, &it.CreatorImage, &it.ModelID, &added)
	if err != nil {
		return nil, fmt.Errorf("scanning list item: %w", err)
	}
	it.Kind = model.FavoriteKind(kind)
	it.DateAdded = time.UnixMilli(added)
	return &it, nil
}

// Compile-time check that SQLiteStore implements the curator.Store interface
var _ curator.Store = (*SQLiteStore)(nil)
