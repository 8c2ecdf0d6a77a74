package offline

import "time"

// Service is the orchestration layer for the device-side offline cache:
// document saves, map downloads, the sync sweep, and the registry outbox.
type Service struct {
	docs     DocumentStore
	tiles    TileStore
	outbox   OutboxStore
	registry Registry
	fetcher  TileFetcher
	urls     BlobURLProvider
	enc      Encryptor
	logger   Logger
	clock    Clock
	sleeper  Sleeper
	opts     Options
}

// Options carries per-device settings for the offline service.
type Options struct {
	// UserID identifies the device owner in registry rows.
	UserID string

	// TileDelay is the pause between tile fetches. Defaults to 50ms.
	TileDelay time.Duration

	// CacheSizeLimit is an advisory cap on total cached document bytes.
	// Zero means unlimited. Exceeding it is logged, never enforced.
	CacheSizeLimit int64
}

// NewService creates a Service with the provided dependencies.
// enc may be nil when blobs are stored in plaintext.
func NewService(docs DocumentStore, tiles TileStore, outbox OutboxStore, registry Registry, fetcher TileFetcher, urls BlobURLProvider, enc Encryptor, logger Logger, clock Clock, sleeper Sleeper, opts Options) *Service {
	if opts.TileDelay == 0 {
		opts.TileDelay = 50 * time.Millisecond
	}
	return &Service{
		docs:     docs,
		tiles:    tiles,
		outbox:   outbox,
		registry: registry,
		fetcher:  fetcher,
		urls:     urls,
		enc:      enc,
		logger:   logger,
		clock:    clock,
		sleeper:  sleeper,
		opts:     opts,
	}
}
