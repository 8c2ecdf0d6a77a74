package offline

import (
	"context"
	"io"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// DocumentStore provides persistent storage for cached document records.
// Single-record lookups return (nil, nil) when the id is unknown.
type DocumentStore interface {
	// Put inserts or overwrites the record with the same id.
	Put(ctx context.Context, doc *model.OfflineDocument) error

	// Get returns the record for id, or nil if it is not cached.
	Get(ctx context.Context, id string) (*model.OfflineDocument, error)

	// Delete removes the record. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns every cached document record.
	List(ctx context.Context) ([]*model.OfflineDocument, error)

	// DeleteAll removes every cached document record.
	DeleteAll(ctx context.Context) error
}

// TileStore provides persistent storage for offline map metadata and tile
// blobs. Tiles are keyed by (tripID, zoom, x, y).
type TileStore interface {
	PutMapSet(ctx context.Context, set *model.MapTileSet) error

	// GetMapSet returns the metadata record for a trip, or nil if the trip
	// has no offline map.
	GetMapSet(ctx context.Context, tripID string) (*model.MapTileSet, error)

	DeleteMapSet(ctx context.Context, tripID string) error

	// TripIDs enumerates metadata records only — the cheap way to answer
	// "which trips have an offline map".
	TripIDs(ctx context.Context) ([]string, error)

	PutTile(ctx context.Context, tripID string, zoom, x, y int, data []byte) error

	// GetTile returns the tile blob, or nil if it was never stored.
	GetTile(ctx context.Context, tripID string, zoom, x, y int) ([]byte, error)

	// DeleteTiles removes every tile belonging to the trip and returns the
	// number removed.
	DeleteTiles(ctx context.Context, tripID string) (int, error)
}

// OutboxStore persists pending registry intents.
type OutboxStore interface {
	// Enqueue appends an intent. Any pending intent for the same resource
	// id and type with the opposite action is removed first: a track
	// followed by an untrack (or vice versa) must not deliver both.
	Enqueue(ctx context.Context, entry *model.OutboxEntry) error

	// Due returns up to limit intents whose next attempt is at or before
	// now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*model.OutboxEntry, error)

	// DeleteIntent removes a delivered intent.
	DeleteIntent(ctx context.Context, id int64) error

	// Reschedule records a failed delivery attempt and its next retry time.
	Reschedule(ctx context.Context, id int64, attempts int, next time.Time) error

	// Pending returns the number of undelivered intents.
	Pending(ctx context.Context) (int, error)
}

// Registry is the client view of the server-side cache-visibility index.
type Registry interface {
	Track(ctx context.Context, rec *model.CacheStatusRecord) error

	// Untrack removes the row for (userID, resourceID). Absence is not an
	// error.
	Untrack(ctx context.Context, userID, resourceID string) error
}

// TileFetcher retrieves a single slippy-map tile.
type TileFetcher interface {
	FetchTile(ctx context.Context, zoom, x, y int) ([]byte, error)
}

// BlobURLProvider wraps a blob into a transient local handle the UI can
// open. The caller must explicitly revoke the handle; there is no
// automatic reclamation.
type BlobURLProvider interface {
	ViewableURL(name string, data []byte) (string, error)
	Revoke(url string) error
}

// Encryptor encrypts document blobs at rest.
type Encryptor interface {
	Encrypt(r io.Reader, w io.Writer) error
	Decrypt(r io.Reader, w io.Writer) error
}
