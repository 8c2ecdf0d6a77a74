package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/app"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/config"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/encryption"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/gateway"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/registry"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "SaveDocument").
func newApp(operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// stderrLogger adapts slog for the server commands, which run without the
// per-operation log file.
type stderrLogger struct {
	l *slog.Logger
}

func newStderrLogger() *stderrLogger {
	return &stderrLogger{l: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

func (a *stderrLogger) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *stderrLogger) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *stderrLogger) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *stderrLogger) Error(msg string, args ...any) { a.l.Error(msg, args...) }

var rootCmd = &cobra.Command{
	Use:   "tripcache",
	Short: "Offline trip resource cache",
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

		userID := uuid.New().String()
		cfg := config.NewConfig(userID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		if err := encryption.EnsureKeys(cfg.Encryption); err != nil {
			return fmt.Errorf("generating encryption keys: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Keys:     %s\n", filepath.Dir(cfg.Encryption.IdentityPath))
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
		fmt.Printf("User ID:   %s\n", cfg.UserID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Registry:  %s\n", cfg.Registry.BaseURL)
		fmt.Printf("Tiles:     %s\n", cfg.Tiles.URLTemplate)
		return nil
	},
}

// doc command

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage cached documents",
}

var docSaveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Cache a document for offline use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		tripID, _ := cmd.Flags().GetString("trip")

		a, err := newApp("SaveDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}

		if id == "" {
			id = uuid.New().String()
		}

		doc := &model.OfflineDocument{
			ID:          id,
			FileName:    filepath.Base(args[0]),
			FileType:    strings.TrimPrefix(filepath.Ext(args[0]), "."),
			FileSize:    int64(len(data)),
			BlobData:    data,
			LastUpdated: info.ModTime().UTC(),
			TripID:      tripID,
		}

		if err := a.Service.SaveDocument(cmd.Context(), doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}

		fmt.Printf("Cached %s (%d bytes) as %s\n", doc.FileName, doc.FileSize, doc.ID)
		return nil
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Write a cached document to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp("GetDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.Service.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("document %s is not cached", args[0])
		}

		if out == "" {
			out = doc.FileName
		}
		if err := os.WriteFile(out, doc.BlobData, 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		fmt.Printf("Wrote %s (%d bytes)\n", out, len(doc.BlobData))
		return nil
	},
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a cached document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.DeleteDocument(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}

		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Service.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No cached documents.")
			return nil
		}

		for _, d := range docs {
			fmt.Printf("%-36s  %-30s  %8d  %s\n",
				d.ID, d.FileName, d.FileSize, d.SavedAt.Format("2006-01-02 15:04:05"))
		}

		usage, err := a.Service.StorageUsage(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d document(s), %d bytes\n", len(docs), usage)
		return nil
	},
}

var docClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ClearAllDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service.ClearAllDocuments(cmd.Context())
		if err != nil {
			return fmt.Errorf("clearing documents: %w", err)
		}

		fmt.Printf("Removed %d document(s)\n", n)
		return nil
	},
}

// map command

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Manage offline maps",
}

var mapPlanCmd = &cobra.Command{
	Use:   "plan TRIP_ID DESTINATIONS",
	Short: "Resolve destinations and plan a map download",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		zoomMin, _ := cmd.Flags().GetInt("zoom-min")
		zoomMax, _ := cmd.Flags().GetInt("zoom-max")

		a, err := newApp("PlanTrip")
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, err := a.Resolver.PlanTrip(cmd.Context(), args[0], args[1], zoomMin, zoomMax)
		if err != nil {
			return fmt.Errorf("planning trip: %w", err)
		}

		fmt.Printf("Planned map for trip %s:\n", cfg.TripID)
		for _, loc := range cfg.Locations {
			fmt.Printf("  %-40s  %9.4f, %9.4f\n", loc.DisplayName, loc.Lat, loc.Lng)
		}
		fmt.Printf("Bounds: N %.4f  S %.4f  E %.4f  W %.4f\n",
			cfg.Bounds.North, cfg.Bounds.South, cfg.Bounds.East, cfg.Bounds.West)
		fmt.Printf("Zoom %d-%d, %d tiles, ~%.1f MB\n",
			cfg.ZoomMin, cfg.ZoomMax, cfg.TileCount, cfg.EstimatedSizeMB)
		return nil
	},
}

var mapDownloadCmd = &cobra.Command{
	Use:   "download TRIP_ID",
	Short: "Download the planned map for offline use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp("DownloadMap")
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, err := a.Registry.GetMapConfig(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching map config: %w", err)
		}
		if cfg == nil {
			return fmt.Errorf("no map config for trip %s; run map plan first", args[0])
		}

		set, err := a.Service.DownloadMap(cmd.Context(), cfg, name, func(done, total int, fraction float64) {
			fmt.Printf("\r%d/%d tiles (%.0f%%)", done, total, fraction*100)
		})
		if err != nil {
			fmt.Println()
			return fmt.Errorf("downloading map: %w", err)
		}

		fmt.Printf("\nDownloaded %d tile(s) for %s\n", set.TileCount, set.TripID)
		return nil
	},
}

var mapDeleteCmd = &cobra.Command{
	Use:   "delete TRIP_ID",
	Short: "Remove a downloaded map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteMap")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.DeleteMap(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting map: %w", err)
		}

		fmt.Printf("Deleted map for trip %s\n", args[0])
		return nil
	},
}

var mapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trips with downloaded maps",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CachedTripIDs")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Service.CachedTripIDs(cmd.Context())
		if err != nil {
			return err
		}

		if len(ids) == 0 {
			fmt.Println("No offline maps.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

// sync command

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh stale cached documents from the source",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Reconcile")
		if err != nil {
			return err
		}
		defer a.Close()

		resolve, err := a.DocumentResolver()
		if err != nil {
			return err
		}

		result, err := a.Service.Reconcile(cmd.Context(), resolve)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Updated %d document(s)\n", len(result.Updated))
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

// outbox command

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Manage pending registry intents",
}

var outboxRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Deliver pending registry intents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ProcessOutbox")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service.ProcessOutbox(cmd.Context())
		if err != nil {
			return fmt.Errorf("processing outbox: %w", err)
		}

		pending, err := a.Service.PendingIntents(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Delivered %d intent(s), %d pending\n", n, pending)
		return nil
	},
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count pending registry intents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PendingIntents")
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.Service.PendingIntents(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%d pending intent(s)\n", pending)
		return nil
	},
}

// serve command

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a server component",
}

var serveRegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Run the cache registry API",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := readConfig()
		if err != nil {
			return err
		}

		dsn := cfg.Registry.DSN
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return fmt.Errorf("no registry DSN: set registry.dsn or DATABASE_URL")
		}

		store, err := registry.Open(dsn)
		if err != nil {
			return fmt.Errorf("opening registry store: %w", err)
		}
		defer store.Close()

		logger := newStderrLogger()
		srv := &registry.Server{
			Tracker:     store,
			Configs:     store,
			Logger:      logger,
			CorsOrigins: cfg.Registry.CorsOrigins,
		}

		logger.Info("registry listening", "addr", cfg.Registry.ListenAddr)
		return http.ListenAndServe(cfg.Registry.ListenAddr, srv.Router())
	},
}

var serveGatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the caching gateway in front of the app upstream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		logger := newStderrLogger()
		gw, err := gateway.New(gateway.Config{
			Upstream:         cfg.Gateway.Upstream,
			Version:          cfg.Gateway.Version,
			ShellPaths:       cfg.Gateway.ShellPaths,
			APIPrefixes:      cfg.Gateway.APIPrefixes,
			StaticExtensions: cfg.Gateway.StaticExtensions,
		}, gateway.NewMemoryCacheStorage(), nil, logger)
		if err != nil {
			return fmt.Errorf("creating gateway: %w", err)
		}

		if err := gw.Install(context.Background()); err != nil {
			return fmt.Errorf("precaching app shell: %w", err)
		}
		for _, name := range gw.Activate() {
			logger.Info("dropped stale cache partition", "name", name)
		}

		logger.Info("gateway listening", "addr", cfg.Gateway.ListenAddr, "upstream", cfg.Gateway.Upstream)
		return http.ListenAndServe(cfg.Gateway.ListenAddr, gw.Handler())
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// doc subcommands
	docCmd.AddCommand(docSaveCmd)
	docSaveCmd.Flags().String("id", "", "Document ID (default: random UUID)")
	docSaveCmd.Flags().String("trip", "", "Trip the document belongs to")
	docCmd.AddCommand(docGetCmd)
	docGetCmd.Flags().String("out", "", "Output path (default: original file name)")
	docCmd.AddCommand(docDeleteCmd)
	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docClearCmd)

	// map subcommands
	mapCmd.AddCommand(mapPlanCmd)
	mapPlanCmd.Flags().Int("zoom-min", 10, "Minimum zoom level")
	mapPlanCmd.Flags().Int("zoom-max", 14, "Maximum zoom level")
	mapCmd.AddCommand(mapDownloadCmd)
	mapDownloadCmd.Flags().String("name", "", "Display name for the downloaded map")
	mapCmd.AddCommand(mapDeleteCmd)
	mapCmd.AddCommand(mapListCmd)

	// outbox subcommands
	outboxCmd.AddCommand(outboxRunCmd)
	outboxCmd.AddCommand(outboxStatusCmd)

	// serve subcommands
	serveCmd.AddCommand(serveRegistryCmd)
	serveCmd.AddCommand(serveGatewayCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(serveCmd)
}
