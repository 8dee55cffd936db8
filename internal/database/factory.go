package database

import (
	"fmt"
	"path/filepath"

	"curator-go/internal/config"
	"curator-go/internal/curator"
	"curator-go/internal/database/migrations"
)

// NewStoreFromConfig creates a Store implementation based on the database config type.
// Memory stores are always fresh, so their schema is migrated on the spot;
// file-backed stores are only opened — the caller decides when to migrate.
func NewStoreFromConfig(cfg config.DatabaseConfig) (curator.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, "library.db")
		return NewSQLiteStore(dbPath)
	case "memory":
		store, err := NewSQLiteStore(":memory:")
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(store.db); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating in-memory database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// MigrateUp brings a store's schema to the latest version.
func MigrateUp(store *SQLiteStore) error {
	return migrations.MigrateUp(store.db)
}
