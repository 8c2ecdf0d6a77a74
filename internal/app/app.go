package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/config"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/database"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/encryption"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/geo"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/registry"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/source"
)

// App is the application layer between the CLI and the offline cache
// service. It constructs all device-side dependencies from config and
// manages the DB lifecycle on Close.
type App struct {
	Cfg      *config.Config
	Service  *offline.Service
	Resolver *geo.Resolver
	Registry *registry.Client
	Source   *source.S3Source

	store   *database.SQLiteStore
	logger  *slogAdapter
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "SaveDocument", "DownloadMap").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := database.NewSQLiteStore(filepath.Join(cfg.Client.DataDir, "tripcache.db"))
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	urls, err := offline.NewFileBlobURLProvider(cfg.Client.BlobDir)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating blob url provider: %w", err)
	}

	regClient := registry.NewClient(cfg.Registry.BaseURL, nil)
	fetcher := source.NewHTTPTileFetcher(nil, cfg.Tiles.URLTemplate, cfg.Tiles.UserAgent)

	svc := offline.NewService(store, store, store, regClient, fetcher, urls, enc,
		logger, offline.RealClock{}, offline.RealSleeper{}, offline.Options{
			UserID:         cfg.UserID,
			TileDelay:      time.Duration(cfg.Tiles.DelayMs) * time.Millisecond,
			CacheSizeLimit: cfg.Client.CacheSizeLimitMB * 1024 * 1024,
		})

	geocoder := geo.NewGeocoder(nil, cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent,
		offline.RealClock{}, offline.RealSleeper{})
	resolver := geo.NewResolver(geocoder, regClient, logger, offline.RealClock{})

	a := &App{
		Cfg:      cfg,
		Service:  svc,
		Resolver: resolver,
		Registry: regClient,
		store:    store,
		logger:   logger,
		logFile:  logFile,
	}

	if cfg.Source.Bucket != "" {
		src, err := source.NewS3Source(context.Background(), source.S3Config{
			Bucket:          cfg.Source.Bucket,
			Prefix:          cfg.Source.Prefix,
			Region:          cfg.Source.Region,
			Endpoint:        cfg.Source.Endpoint,
			AccessKeyID:     cfg.Source.AccessKeyID,
			SecretAccessKey: cfg.Source.SecretAccessKey,
			SignedURLTTL:    time.Duration(cfg.Source.SignedURLTTLSec) * time.Second,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating document source: %w", err)
		}
		a.Source = src
	}

	return a, nil
}

// DocumentResolver returns the sync sweep resolver backed by the configured
// document source, or an error when no source is configured.
func (a *App) DocumentResolver() (offline.ResolverFunc, error) {
	if a.Source == nil {
		return nil, fmt.Errorf("no document source configured")
	}
	return a.Source.DocumentResolver(), nil
}

// Close closes the cache database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing cache database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
