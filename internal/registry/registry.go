package registry

import (
	"context"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// UserTotals aggregates what one user has cached across devices.
type UserTotals struct {
	UserID    string `db:"user_id" json:"user_id"`
	Count     int    `db:"count" json:"count"`
	TotalSize int64  `db:"total_size" json:"total_size"`
}

// ResourceTotals aggregates how widely one resource is cached.
type ResourceTotals struct {
	ResourceID string `db:"resource_id" json:"resource_id"`
	Users      int    `db:"users" json:"users"`
	TotalSize  int64  `db:"total_size" json:"total_size"`
}

// TripTotals aggregates cached resources per trip.
type TripTotals struct {
	TripID    string `db:"trip_id" json:"trip_id"`
	Count     int    `db:"count" json:"count"`
	TotalSize int64  `db:"total_size" json:"total_size"`
}

// EvictFilter selects registry rows for bulk eviction. Empty fields do not
// filter; an entirely empty filter matches every row. Eviction removes
// registry rows only — it cannot reach the copies on devices, so it
// revokes visibility, not storage.
type EvictFilter struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	TripID     string `json:"trip_id"`
}

// Tracker is the authoritative cross-device index of what is cached where.
// It never holds resource bytes.
type Tracker interface {
	// Track upserts the row for (user, resource); last write wins on size
	// and timestamp.
	Track(ctx context.Context, rec *model.CacheStatusRecord) error

	// Untrack deletes by key. Absence is not an error.
	Untrack(ctx context.Context, userID, resourceID string) error

	// ListByUser returns a user's rows for auditing.
	ListByUser(ctx context.Context, userID string) ([]*model.CacheStatusRecord, error)

	UserTotals(ctx context.Context, userID string) (*UserTotals, error)
	ResourceTotals(ctx context.Context, resourceID string) (*ResourceTotals, error)
	TripTotals(ctx context.Context, tripID string) (*TripTotals, error)

	// Evict removes matching rows and returns how many were deleted.
	Evict(ctx context.Context, filter EvictFilter) (int64, error)
}

// ConfigStore persists per-trip map configs on the server.
type ConfigStore interface {
	PutMapConfig(ctx context.Context, cfg *model.MapConfig) error

	// GetMapConfig returns nil when the trip has no map config.
	GetMapConfig(ctx context.Context, tripID string) (*model.MapConfig, error)
}
