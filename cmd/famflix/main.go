package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/namecoder1/famflix/internal/config"
	"github.com/namecoder1/famflix/internal/database"
	"github.com/namecoder1/famflix/internal/profiles"
	"github.com/namecoder1/famflix/internal/watchstate"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"

	// Global flags
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "famflix",
	Short: "Maintenance tool for the famflix watch-progress engine",
	Long: `famflix inspects and maintains the watch-progress and list-status
database used by the famflix streaming front-end: family profiles, per-title
watch records, episode positions and the derived lists built from them.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for config init
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		cfg, _, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		db, err = database.Open(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := database.CloseDB(db); err != nil && logger != nil {
			logger.Error("failed to close database", "error", err)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(cfgFile); err != nil {
			return err
		}
		fmt.Println("Default configuration written.")
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage family profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := profiles.NewService(db)
		all, err := svc.List()
		if err != nil {
			return err
		}

		if len(all) == 0 {
			fmt.Println("No profiles yet. Create one with 'famflix profiles add <name>'.")
			return nil
		}

		for _, p := range all {
			fmt.Printf("%s  %-16s  created %s\n", p.ID, p.Name, humanize.Time(p.CreatedAt))
		}
		return nil
	},
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		avatar, _ := cmd.Flags().GetString("avatar")

		svc := profiles.NewService(db)
		profile, err := svc.Create(args[0], avatar)
		if err != nil {
			return err
		}

		logger.Info("profile created", "id", profile.ID, "name", profile.Name)
		fmt.Printf("Created profile %s (%s)\n", profile.Name, profile.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <profile-id>",
	Short: "Show a profile's lists",
	Long: `Shows the derived lists (continue watching, favorites, plan to watch)
computed from the profile's watch records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := watchstate.NewService(db)
		selection, err := profiles.NewService(db).Select(args[0], store)
		if err != nil {
			return err
		}
		if selection.Cache.LoadFailed() {
			fmt.Println("Warning: watch state could not be loaded; lists are empty.")
		}

		printSection("Continue watching", selection.Cache.ContinueWatching(), true)
		printSection("Favorites", selection.Cache.Favorites(), false)
		printSection("Plan to watch", selection.Cache.PlanToWatch(), false)
		return nil
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "set <profile-id> <tmdb-id> <action>",
	Short: "Apply a list action to a title",
	Long: `Applies one of the list actions to a title:
  add      add to plan-to-watch
  remove   clear list status and favorite
  favorite toggle favorite
  stop     remove from continue watching (completes or drops by progress)
  resume   pick a dropped title back up`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmdbID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tmdb id %q", args[1])
		}

		action, err := parseAction(args[2])
		if err != nil {
			return err
		}

		store := watchstate.NewService(db)
		record, err := store.ApplyAction(args[0], tmdbID, action, watchstate.Metadata{})
		if err != nil {
			return err
		}

		status := record.Status
		if status == "" {
			status = "(none)"
		}
		fmt.Printf("tmdb %d: status=%s favorite=%v\n", record.TmdbID, status, record.IsFavorite)
		return nil
	},
}

func parseAction(s string) (watchstate.Action, error) {
	switch strings.ToLower(s) {
	case "add":
		return watchstate.ActionAddToList, nil
	case "remove":
		return watchstate.ActionRemoveFromList, nil
	case "favorite":
		return watchstate.ActionToggleFavorite, nil
	case "stop":
		return watchstate.ActionStopTracking, nil
	case "resume":
		return watchstate.ActionResume, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

func printSection(title string, records []database.WatchRecord, withProgress bool) {
	fmt.Printf("\n%s (%d)\n", title, len(records))
	for _, r := range records {
		line := fmt.Sprintf("  %-8d %s", r.TmdbID, r.Title)
		if withProgress && r.DurationSeconds > 0 {
			line += fmt.Sprintf("  %d%%", 100*r.ProgressSeconds/r.DurationSeconds)
		}
		line += "  updated " + humanize.Time(r.UpdatedAt)
		fmt.Println(line)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	profilesAddCmd.Flags().String("avatar", "", "avatar image URL")

	configCmd.AddCommand(configInitCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesAddCmd)
	rootCmd.AddCommand(configCmd, profilesCmd, listCmd, setStatusCmd)
}
