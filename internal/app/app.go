package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"curator-go/internal/archive"
	"curator-go/internal/config"
	"curator-go/internal/curator"
	"curator-go/internal/database"
	"curator-go/internal/encryption"
	"curator-go/internal/model"
	"curator-go/internal/vault"
	"curator-go/internal/worker"
)

// App is the application layer between the CLI and LibraryService.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the store and runner lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     curator.Store
	vault     curator.ArchiveVault
	encryptor curator.Encryptor
	service   *curator.LibraryService
	runner    *worker.Runner
	op        *LibraryOperation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "CreateList", "Export").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// File-backed stores are migrated in place; MigrateUp is a no-op when
	// the schema is already current.
	if s, ok := store.(*database.SQLiteStore); ok {
		if err := database.MigrateUp(s); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	archiver := archive.NewZipArchiver(logger)
	svc := curator.NewLibraryService(store, archiver, v, logger, curator.RealClock{}, curator.UUIDGenerator{})
	runner := worker.NewRunner(svc, stdoutNotifier{}, logger, curator.RealClock{})
	op := NewLibraryOperation(operation, "")

	return &App{
		cfg:       cfg,
		store:     store,
		vault:     v,
		encryptor: enc,
		service:   svc,
		runner:    runner,
		op:        op,
		logFile:   logFile,
	}, nil
}

// stdoutNotifier prints restore completion to the terminal.
type stdoutNotifier struct{}

func (stdoutNotifier) RestoreFinished(report *curator.RestoreReport, elapsed time.Duration, err error) {
	if err != nil {
		fmt.Printf("restore failed after %s: %v\n", elapsed.Round(time.Millisecond), err)
		return
	}
	fmt.Printf("restore finished in %s: %d favorites, %d blacklisted, %d settings, %d searches, %d lists, %d items merged, %d duplicates skipped\n",
		elapsed.Round(time.Millisecond),
		report.Favorites, report.Blacklisted, report.Settings,
		report.SearchHistory, report.Lists, report.ListItems, report.Duplicates)
	for _, e := range report.Errors {
		fmt.Printf("  warning: %v\n", e)
	}
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. This should only be called for DB-mutating commands.
func (a *App) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	dbOp, err := a.store.CreateOperation(ctx, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// CreateList creates a new list and returns its uuid.
func (a *App) CreateList(ctx context.Context, name, description, coverImage string) (string, error) {
	if err := a.persistOperation(ctx); err != nil {
		return "", err
	}
	return a.service.CreateList(ctx, name, description, coverImage)
}

// AddToLists adds an entity to one or more lists and returns the number of
// lists the entity was actually added to.
func (a *App) AddToLists(ctx context.Context, uuids []string, item model.ListItem) (int, error) {
	if err := a.persistOperation(ctx); err != nil {
		return 0, err
	}
	if len(uuids) == 1 {
		added, err := a.service.AddToList(ctx, uuids[0], item)
		if added {
			return 1, err
		}
		return 0, err
	}
	return a.service.AddToMultipleLists(ctx, uuids, item)
}

// RemoveList deletes a list and all of its items.
func (a *App) RemoveList(ctx context.Context, uuid string) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.service.RemoveList(ctx, uuid)
}

// UpdateCoverImage sets a list's cover image and content hash.
func (a *App) UpdateCoverImage(ctx context.Context, uuid, coverImage, coverHash string) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.service.UpdateCoverImage(ctx, uuid, coverImage, coverHash)
}

// UpdateListLock sets a list's requires-authentication flag.
func (a *App) UpdateListLock(ctx context.Context, uuid string, locked bool) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.service.UpdateListLock(ctx, uuid, locked)
}

// Lists returns all list headers.
func (a *App) Lists(ctx context.Context) ([]model.ListHeader, error) {
	return a.service.Lists(ctx)
}

// ListItems returns the items of one list.
func (a *App) ListItems(ctx context.Context, uuid string) ([]model.ListItem, error) {
	return a.service.ListItems(ctx, uuid)
}

// SearchLists finds lists matching the query, recording it in the search
// history. indexed selects the full-text index over the substring scan.
func (a *App) SearchLists(ctx context.Context, query string, indexed bool) ([]model.ListWithItems, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	return a.service.SearchLists(ctx, query, indexed)
}

// SearchSuggestions returns recent history entries matching the prefix.
func (a *App) SearchSuggestions(ctx context.Context, prefix string) ([]model.SearchHistoryItem, error) {
	return a.service.SearchSuggestions(ctx, prefix)
}

// AddFavorite records a favorite.
func (a *App) AddFavorite(ctx context.Context, f model.Favorite) (bool, error) {
	if err := a.persistOperation(ctx); err != nil {
		return false, err
	}
	return a.service.AddFavorite(ctx, f)
}

// RemoveFavorite deletes a favorite by ID.
func (a *App) RemoveFavorite(ctx context.Context, id string) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.service.RemoveFavorite(ctx, id)
}

// Favorites returns all favorites, newest first.
func (a *App) Favorites(ctx context.Context) ([]model.Favorite, error) {
	return a.service.Favorites(ctx)
}

// Blacklist adds an entity to the blacklist, removing any favorite with the
// same ID.
func (a *App) Blacklist(ctx context.Context, e model.BlacklistEntry) (bool, error) {
	if err := a.persistOperation(ctx); err != nil {
		return false, err
	}
	return a.service.Blacklist(ctx, e)
}

// Unblacklist removes an entity from the blacklist.
func (a *App) Unblacklist(ctx context.Context, id string) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.service.Unblacklist(ctx, id)
}

// Blacklisted returns all blacklist entries.
func (a *App) Blacklisted(ctx context.Context) ([]model.BlacklistEntry, error) {
	return a.service.Blacklisted(ctx)
}

// SetupEncryption generates and stores a new key pair protected by the
// passphrase. Fails if a key pair already exists.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether an encryption key pair exists.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Export writes the selected categories to an archive at destination.
// When encrypt is true each entry payload is encrypted with the stored
// public key.
func (a *App) Export(ctx context.Context, sel model.Selection, destination string, encrypt bool) (*curator.ExportReport, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}

	var enc curator.Encryptor
	if encrypt {
		if !a.encryptor.IsConfigured() {
			return nil, fmt.Errorf("encryption requested but no keys configured: run 'curator keys setup' first")
		}
		enc = a.encryptor
	}
	return a.service.Export(ctx, sel, destination, enc)
}

// Import restores the archive at source into the library. passphrase may be
// empty when the archive is unencrypted. With background=true the restore is
// handed to the runner and Import returns immediately; a restore already in
// flight is cancelled and replaced.
func (a *App) Import(ctx context.Context, source string, sel model.Selection, passphrase string, background bool) (*curator.RestoreReport, error) {
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}

	var decryptCtx curator.DecryptionContext
	if passphrase != "" {
		var err error
		decryptCtx, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlocking private key: %w", err)
		}
	}

	if background {
		a.runner.Start(context.Background(), source, sel, decryptCtx)
		return nil, nil
	}
	return a.service.Restore(ctx, source, sel, decryptCtx)
}

// FetchArchive downloads an archive from the vault to a local path.
func (a *App) FetchArchive(name, destination string) error {
	return a.service.FetchArchive(name, destination)
}

// ListArchives returns the names of archives stored in the vault.
func (a *App) ListArchives() ([]string, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no archive vault configured")
	}
	return a.vault.ListArchives()
}

// History returns the most recent operations.
func (a *App) History(ctx context.Context, limit int) ([]model.Operation, error) {
	return a.store.ListOperations(ctx, limit)
}

// SetStatus overrides the status recorded for this operation on Close.
func (a *App) SetStatus(status string) {
	a.op.Status = status
}

// Close drains the background runner, finalizes the operation record, and
// closes all resources.
func (a *App) Close() error {
	var firstErr error

	// Let any background restore run to completion before shutting down.
	a.runner.Wait()

	if a.op.Persisted() {
		if err := a.store.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
