package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"curator-go/internal/app"
	"curator-go/internal/config"
	"curator-go/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "CreateList", "Export").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// addSelectionFlags registers the category selection flags shared by export
// and import.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("favorites", false, "Include favorites")
	cmd.Flags().Bool("blacklist", false, "Include the blacklist")
	cmd.Flags().Bool("settings", false, "Include settings")
	cmd.Flags().Bool("search-history", false, "Include search history")
	cmd.Flags().StringSlice("lists", nil, "Include specific lists by uuid")
	cmd.Flags().Bool("all", false, "Include everything")
}

// readSelection builds a Selection from the flags registered by
// addSelectionFlags.
func readSelection(cmd *cobra.Command) model.Selection {
	all, _ := cmd.Flags().GetBool("all")
	favorites, _ := cmd.Flags().GetBool("favorites")
	blacklist, _ := cmd.Flags().GetBool("blacklist")
	settings, _ := cmd.Flags().GetBool("settings")
	history, _ := cmd.Flags().GetBool("search-history")
	lists, _ := cmd.Flags().GetStringSlice("lists")

	return model.Selection{
		Favorites:     favorites || all,
		Blacklisted:   blacklist || all,
		Settings:      settings || all,
		SearchHistory: history || all,
		AllLists:      all && len(lists) == 0,
		ListUUIDs:     lists,
	}
}

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Personal content library manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Vault:     %s\n", cfg.Vault.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage lists",
}

var listCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		cover, _ := cmd.Flags().GetString("cover")

		a, err := newApp("CreateList")
		if err != nil {
			return err
		}
		defer a.Close()

		uuid, err := a.CreateList(cmd.Context(), args[0], description, cover)
		if err != nil {
			return fmt.Errorf("creating list: %w", err)
		}

		fmt.Printf("Created list %s (%s)\n", args[0], uuid)
		return nil
	},
}

var listAddCmd = &cobra.Command{
	Use:   "add ENTITY_ID",
	Short: "Add an entity to one or more lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uuids, _ := cmd.Flags().GetStringSlice("to")
		name, _ := cmd.Flags().GetString("name")
		kind, _ := cmd.Flags().GetString("kind")
		category, _ := cmd.Flags().GetString("category")

		if len(uuids) == 0 {
			return fmt.Errorf("at least one --to list uuid is required")
		}

		a, err := newApp("AddToList")
		if err != nil {
			return err
		}
		defer a.Close()

		item := model.ListItem{
			EntityID: args[0],
			Name:     name,
			Category: category,
			Kind:     model.FavoriteKind(kind),
		}

		added, err := a.AddToLists(cmd.Context(), uuids, item)
		if err != nil {
			return fmt.Errorf("adding to lists: %w", err)
		}

		switch {
		case added == 0:
			fmt.Println("Already present in the selected lists.")
		case added == 1 && len(uuids) == 1:
			fmt.Println("Added to list.")
		default:
			fmt.Printf("Added to %d lists.\n", added)
		}
		return nil
	},
}

var listRmCmd = &cobra.Command{
	Use:   "rm UUID",
	Short: "Delete a list and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveList")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveList(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("removing list: %w", err)
		}

		fmt.Println("List removed.")
		return nil
	},
}

var listLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "View all lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Lists")
		if err != nil {
			return err
		}
		defer a.Close()

		headers, err := a.Lists(cmd.Context())
		if err != nil {
			return err
		}

		if len(headers) == 0 {
			fmt.Println("No lists.")
			return nil
		}

		for _, h := range headers {
			lock := " "
			if h.RequiresAuth {
				lock = "L"
			}
			fmt.Printf("%s %s  %-20s  %s\n",
				lock, h.UUID, h.Name,
				h.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var listShowCmd = &cobra.Command{
	Use:   "show UUID",
	Short: "View a list's items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListItems")
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.ListItems(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("List is empty.")
			return nil
		}

		for _, item := range items {
			fmt.Printf("%-10s  %-20s  %-12s  %s\n",
				item.EntityID, item.Name, item.Category,
				item.DateAdded.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var listCoverCmd = &cobra.Command{
	Use:   "cover UUID IMAGE",
	Short: "Set a list's cover image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, _ := cmd.Flags().GetString("hash")

		a, err := newApp("UpdateCoverImage")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.UpdateCoverImage(cmd.Context(), args[0], args[1], hash); err != nil {
			return fmt.Errorf("updating cover: %w", err)
		}

		fmt.Println("Cover updated.")
		return nil
	},
}

var listLockCmd = &cobra.Command{
	Use:   "lock UUID",
	Short: "Require authentication to open a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setListLock(cmd.Context(), args[0], true)
	},
}

var listUnlockCmd = &cobra.Command{
	Use:   "unlock UUID",
	Short: "Remove a list's authentication requirement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setListLock(cmd.Context(), args[0], false)
	},
}

func setListLock(ctx context.Context, uuid string, locked bool) error {
	a, err := newApp("UpdateListLock")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.UpdateListLock(ctx, uuid, locked); err != nil {
		return fmt.Errorf("updating list lock: %w", err)
	}

	if locked {
		fmt.Println("List locked.")
	} else {
		fmt.Println("List unlocked.")
	}
	return nil
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search lists by name and content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		indexed, _ := cmd.Flags().GetBool("indexed")

		a, err := newApp("SearchLists")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.SearchLists(cmd.Context(), args[0], indexed)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		for _, r := range results {
			fmt.Printf("%s  %s\n", r.Header.UUID, r.Header.Name)
			for _, item := range r.Items {
				fmt.Printf("    %-10s  %s\n", item.EntityID, item.Name)
			}
		}
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [PREFIX]",
	Short: "View recent searches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}

		a, err := newApp("SearchSuggestions")
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.SearchSuggestions(cmd.Context(), prefix)
		if err != nil {
			return err
		}

		for _, item := range items {
			fmt.Printf("%s  %s\n", item.SearchedAt.Format("2006-01-02 15:04:05"), item.Query)
		}
		return nil
	},
}

// fav command
var favCmd = &cobra.Command{
	Use:   "fav",
	Short: "Manage favorites",
}

var favAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Favorite an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		kind, _ := cmd.Flags().GetString("kind")
		category, _ := cmd.Flags().GetString("category")

		a, err := newApp("AddFavorite")
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.AddFavorite(cmd.Context(), model.Favorite{
			ID:       args[0],
			Name:     name,
			Category: category,
			Kind:     model.FavoriteKind(kind),
		})
		if err != nil {
			return fmt.Errorf("adding favorite: %w", err)
		}

		if added {
			fmt.Println("Favorite added.")
		} else {
			fmt.Println("Already favorited.")
		}
		return nil
	},
}

var favRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveFavorite")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveFavorite(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("removing favorite: %w", err)
		}

		fmt.Println("Favorite removed.")
		return nil
	},
}

var favLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "View favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Favorites")
		if err != nil {
			return err
		}
		defer a.Close()

		favorites, err := a.Favorites(cmd.Context())
		if err != nil {
			return err
		}

		if len(favorites) == 0 {
			fmt.Println("No favorites.")
			return nil
		}

		for _, f := range favorites {
			fmt.Printf("%-10s  %-20s  %-8s  %s\n",
				f.ID, f.Name, f.Kind,
				f.DateAdded.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// blacklist command
var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the blacklist",
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Blacklist an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp("Blacklist")
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.Blacklist(cmd.Context(), model.BlacklistEntry{
			ID:   args[0],
			Name: name,
		})
		if err != nil {
			return fmt.Errorf("blacklisting: %w", err)
		}

		if added {
			fmt.Println("Blacklisted.")
		} else {
			fmt.Println("Already blacklisted.")
		}
		return nil
	},
}

var blacklistRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove an entity from the blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Unblacklist")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Unblacklist(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("unblacklisting: %w", err)
		}

		fmt.Println("Removed from blacklist.")
		return nil
	},
}

var blacklistLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "View the blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Blacklisted")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Blacklisted(cmd.Context())
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("Blacklist is empty.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%-10s  %s\n", e.ID, e.Name)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export DEST",
	Short: "Export selected categories to an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")
		sel := readSelection(cmd)

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		dest, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		report, err := a.Export(cmd.Context(), sel, dest, encrypt)
		if err != nil {
			a.SetStatus("error")
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %d entries to %s\n", len(report.Entries), report.ArchivePath)
		if report.Uploaded {
			fmt.Println("Archive uploaded to vault.")
		}
		if !report.Ok() {
			a.SetStatus("error")
			for name, ferr := range report.Failed {
				fmt.Printf("  failed: %s: %v\n", name, ferr)
			}
			return fmt.Errorf("%d categories failed to export", len(report.Failed))
		}
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import SRC",
	Short: "Merge an archive into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		background, _ := cmd.Flags().GetBool("background")
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		sel := readSelection(cmd)

		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		passphrase := ""
		if encrypted {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		report, err := a.Import(cmd.Context(), src, sel, passphrase, background)
		if err != nil {
			a.SetStatus("error")
			return fmt.Errorf("import failed: %w", err)
		}

		if background {
			fmt.Println("Restore started in the background.")
			return nil
		}

		fmt.Printf("Merged %d favorites, %d blacklisted, %d settings, %d searches, %d lists, %d items; %d duplicates skipped\n",
			report.Favorites, report.Blacklisted, report.Settings,
			report.SearchHistory, report.Lists, report.ListItems, report.Duplicates)
		if !report.Ok() {
			a.SetStatus("error")
			for _, e := range report.Errors {
				fmt.Printf("  warning: %v\n", e)
			}
		}
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage archived exports in the vault",
}

var vaultLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "View archives stored in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListArchives")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListArchives()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}

		fmt.Println(strings.Join(names, "\n"))
		return nil
	},
}

var vaultFetchCmd = &cobra.Command{
	Use:   "fetch NAME DEST",
	Short: "Download an archive from the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("FetchArchive")
		if err != nil {
			return err
		}
		defer a.Close()

		dest, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if err := a.FetchArchive(args[0], dest); err != nil {
			return fmt.Errorf("fetching archive: %w", err)
		}

		fmt.Printf("Fetched %s to %s\n", args[0], dest)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysSetupCmd)

	// list subcommands
	listCmd.AddCommand(listCreateCmd)
	listCreateCmd.Flags().StringP("description", "d", "", "List description")
	listCreateCmd.Flags().String("cover", "", "Cover image URL")
	listCmd.AddCommand(listAddCmd)
	listAddCmd.Flags().StringSlice("to", nil, "Target list uuid (repeatable)")
	listAddCmd.Flags().String("name", "", "Entity display name")
	listAddCmd.Flags().String("kind", "model", "Entity kind: model, image or creator")
	listAddCmd.Flags().String("category", "", "Entity category")
	listCmd.AddCommand(listRmCmd)
	listCmd.AddCommand(listLsCmd)
	listCmd.AddCommand(listShowCmd)
	listCmd.AddCommand(listCoverCmd)
	listCoverCmd.Flags().String("hash", "", "Cover image content hash")
	listCmd.AddCommand(listLockCmd)
	listCmd.AddCommand(listUnlockCmd)

	// fav subcommands
	favCmd.AddCommand(favAddCmd)
	favAddCmd.Flags().String("name", "", "Entity display name")
	favAddCmd.Flags().String("kind", "model", "Entity kind: model, image or creator")
	favAddCmd.Flags().String("category", "", "Entity category")
	favCmd.AddCommand(favRmCmd)
	favCmd.AddCommand(favLsCmd)

	// blacklist subcommands
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistAddCmd.Flags().String("name", "", "Entity display name")
	blacklistCmd.AddCommand(blacklistRmCmd)
	blacklistCmd.AddCommand(blacklistLsCmd)

	// vault subcommands
	vaultCmd.AddCommand(vaultLsCmd)
	vaultCmd.AddCommand(vaultFetchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("indexed", false, "Use the full-text index")
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(favCmd)
	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Bool("encrypt", false, "Encrypt archive entries")
	addSelectionFlags(exportCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("background", false, "Run the restore in the background")
	importCmd.Flags().Bool("encrypted", false, "Archive entries are encrypted; prompt for passphrase")
	addSelectionFlags(importCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
