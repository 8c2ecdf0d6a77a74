package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/registry/migrations"
)

// PostgresStore implements Tracker and ConfigStore on Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

var (
	_ Tracker     = (*PostgresStore)(nil)
	_ ConfigStore = (*PostgresStore)(nil)
)

// Open connects to the registry database, tunes the pool, and runs pending
// migrations.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging registry database: %w", err)
	}

	if err := migrations.MigrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating registry database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection. The caller owns it.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func validResourceType(t string) bool {
	switch t {
	case model.ResourceDocuments, model.ResourceItinerary, model.ResourceMaps, model.ResourceImages:
		return true
	}
	return false
}

func (s *PostgresStore) Track(ctx context.Context, rec *model.CacheStatusRecord) error {
	if rec.UserID == "" || rec.ResourceID == "" {
		return fmt.Errorf("user_id and resource_id are required")
	}
	if !validResourceType(rec.ResourceType) {
		return fmt.Errorf("invalid resource_type: %q", rec.ResourceType)
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO cached_resources (user_id, resource_id, resource_type, trip_id, cache_size, cached_at)
		VALUES (:user_id, :resource_id, :resource_type, :trip_id, :cache_size, :cached_at)
		ON CONFLICT (user_id, resource_id) DO UPDATE SET
			resource_type = excluded.resource_type,
			trip_id = excluded.trip_id,
			cache_size = excluded.cache_size,
			cached_at = excluded.cached_at`, rec)
	if err != nil {
		return fmt.Errorf("upserting cache record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Untrack(ctx context.Context, userID, resourceID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cached_resources WHERE user_id = $1 AND resource_id = $2`, userID, resourceID)
	if err != nil {
		return fmt.Errorf("deleting cache record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*model.CacheStatusRecord, error) {
	var recs []*model.CacheStatusRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM cached_resources WHERE user_id = $1 ORDER BY cached_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cache records: %w", err)
	}
	return recs, nil
}

func (s *PostgresStore) UserTotals(ctx context.Context, userID string) (*UserTotals, error) {
	totals := &UserTotals{UserID: userID}
	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cache_size), 0)
		FROM cached_resources WHERE user_id = $1`, userID).
		Scan(&totals.Count, &totals.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("aggregating user totals: %w", err)
	}
	return totals, nil
}

func (s *PostgresStore) ResourceTotals(ctx context.Context, resourceID string) (*ResourceTotals, error) {
	totals := &ResourceTotals{ResourceID: resourceID}
	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(DISTINCT user_id), COALESCE(SUM(cache_size), 0)
		FROM cached_resources WHERE resource_id = $1`, resourceID).
		Scan(&totals.Users, &totals.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("aggregating resource totals: %w", err)
	}
	return totals, nil
}

func (s *PostgresStore) TripTotals(ctx context.Context, tripID string) (*TripTotals, error) {
	totals := &TripTotals{TripID: tripID}
	err := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cache_size), 0)
		FROM cached_resources WHERE trip_id = $1`, tripID).
		Scan(&totals.Count, &totals.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("aggregating trip totals: %w", err)
	}
	return totals, nil
}

func (s *PostgresStore) Evict(ctx context.Context, filter EvictFilter) (int64, error) {
	query := `DELETE FROM cached_resources WHERE 1=1`
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.ResourceID != "" {
		args = append(args, filter.ResourceID)
		query += fmt.Sprintf(" AND resource_id = $%d", len(args))
	}
	if filter.TripID != "" {
		args = append(args, filter.TripID)
		query += fmt.Sprintf(" AND trip_id = $%d", len(args))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("evicting cache records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting evicted records: %w", err)
	}
	return n, nil
}

// Map config persistence

type mapConfigRow struct {
	TripID          string    `db:"trip_id"`
	North           float64   `db:"north"`
	South           float64   `db:"south"`
	East            float64   `db:"east"`
	West            float64   `db:"west"`
	ZoomMin         int       `db:"zoom_min"`
	ZoomMax         int       `db:"zoom_max"`
	Locations       []byte    `db:"locations"`
	TileCount       int       `db:"tile_count"`
	EstimatedSizeMB float64   `db:"estimated_size_mb"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (s *PostgresStore) PutMapConfig(ctx context.Context, cfg *model.MapConfig) error {
	locations, err := json.Marshal(cfg.Locations)
	if err != nil {
		return fmt.Errorf("encoding locations: %w", err)
	}

	row := mapConfigRow{
		TripID:          cfg.TripID,
		North:           cfg.Bounds.North,
		South:           cfg.Bounds.South,
		East:            cfg.Bounds.East,
		West:            cfg.Bounds.West,
		ZoomMin:         cfg.ZoomMin,
		ZoomMax:         cfg.ZoomMax,
		Locations:       locations,
		TileCount:       cfg.TileCount,
		EstimatedSizeMB: cfg.EstimatedSizeMB,
		UpdatedAt:       cfg.UpdatedAt,
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO map_configs (trip_id, north, south, east, west, zoom_min, zoom_max, locations, tile_count, estimated_size_mb, updated_at)
		VALUES (:trip_id, :north, :south, :east, :west, :zoom_min, :zoom_max, :locations, :tile_count, :estimated_size_mb, :updated_at)
		ON CONFLICT (trip_id) DO UPDATE SET
			north = excluded.north,
			south = excluded.south,
			east = excluded.east,
			west = excluded.west,
			zoom_min = excluded.zoom_min,
			zoom_max = excluded.zoom_max,
			locations = excluded.locations,
			tile_count = excluded.tile_count,
			estimated_size_mb = excluded.estimated_size_mb,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upserting map config: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMapConfig(ctx context.Context, tripID string) (*model.MapConfig, error) {
	var row mapConfigRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM map_configs WHERE trip_id = $1`, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("selecting map config: %w", err)
	}

	var locations []model.GeoPoint
	if err := json.Unmarshal(row.Locations, &locations); err != nil {
		return nil, fmt.Errorf("decoding locations: %w", err)
	}

	return &model.MapConfig{
		TripID:          row.TripID,
		Bounds:          model.Bounds{North: row.North, South: row.South, East: row.East, West: row.West},
		ZoomMin:         row.ZoomMin,
		ZoomMax:         row.ZoomMax,
		Locations:       locations,
		TileCount:       row.TileCount,
		EstimatedSizeMB: row.EstimatedSizeMB,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
