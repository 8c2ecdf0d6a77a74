package model

import "time"

// Resource types accepted by the cache registry.
const (
	ResourceDocuments = "documents"
	ResourceItinerary = "itinerary"
	ResourceMaps      = "maps"
	ResourceImages    = "images"
)

// OfflineDocument is a document cached on the device for offline use.
// LastUpdated is the source-side timestamp, not the local save time;
// the sync sweep compares it against the source to detect staleness.
type OfflineDocument struct {
	ID          string    `db:"id"`
	FileName    string    `db:"file_name"`
	FileType    string    `db:"file_type"`
	FileSize    int64     `db:"file_size"`
	BlobData    []byte    `db:"blob_data"`
	LastUpdated time.Time `db:"last_updated"`
	SourceURL   string    `db:"source_url"`
	TripID      string    `db:"trip_id"`
	SavedAt     time.Time `db:"saved_at"`
}

// CacheStatusRecord is a registry row marking that a user holds a cached
// copy of a resource on some device. It never carries the bytes.
type CacheStatusRecord struct {
	UserID       string    `db:"user_id" json:"user_id"`
	ResourceID   string    `db:"resource_id" json:"resource_id"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	TripID       string    `db:"trip_id" json:"trip_id"`
	CacheSize    int64     `db:"cache_size" json:"cache_size"`
	CachedAt     time.Time `db:"cached_at" json:"cached_at"`
}

// GeoPoint is a resolved geocoded location.
type GeoPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}

// Bounds is a geographic bounding rectangle.
type Bounds struct {
	North float64 `json:"north" db:"north"`
	South float64 `json:"south" db:"south"`
	East  float64 `json:"east" db:"east"`
	West  float64 `json:"west" db:"west"`
}

// MapConfig is the server-side per-trip map download plan: padded bounds,
// resolved locations, and an advisory tile budget. One row per trip,
// idempotently upserted. The estimate is never reconciled against the
// bytes actually downloaded.
type MapConfig struct {
	TripID          string     `json:"trip_id"`
	Bounds          Bounds     `json:"bounds"`
	ZoomMin         int        `json:"zoom_min"`
	ZoomMax         int        `json:"zoom_max"`
	Locations       []GeoPoint `json:"locations"`
	TileCount       int        `json:"tile_count"`
	EstimatedSizeMB float64    `json:"estimated_size_mb"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MapTileSet is the client-side metadata record for a downloaded map.
// The tile blobs themselves are stored separately, keyed (tripID, z, x, y).
type MapTileSet struct {
	TripID       string
	TripName     string
	Destination  string
	Bounds       Bounds
	ZoomMin      int
	ZoomMax      int
	Locations    []GeoPoint
	TileCount    int
	DownloadedAt time.Time
}

// Outbox actions.
const (
	OutboxTrack   = "track"
	OutboxUntrack = "untrack"
)

// OutboxEntry is a pending registry intent recorded after a local cache
// write. A background worker delivers intents with retry and backoff so a
// registry outage never fails the local save.
type OutboxEntry struct {
	ID            int64     `db:"id"`
	Action        string    `db:"action"`
	ResourceID    string    `db:"resource_id"`
	ResourceType  string    `db:"resource_type"`
	TripID        string    `db:"trip_id"`
	CacheSize     int64     `db:"cache_size"`
	EnqueuedAt    time.Time `db:"enqueued_at"`
	Attempts      int       `db:"attempts"`
	NextAttemptAt time.Time `db:"next_attempt_at"`
}
