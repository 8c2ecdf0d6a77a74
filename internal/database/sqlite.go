package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/database/migrations"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the device-side persistent stores (documents,
// tiles, map metadata, tracking outbox) on one SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteStore opens the cache database at path and runs pending
// migrations. path can be ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the cache store relies on.
func OpenConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Foreign keys are off by default in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	// Concurrent tabs/processes share this file; wait for locks briefly
	// instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// Document operations

func (s *SQLiteStore) Put(ctx context.Context, doc *model.OfflineDocument) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO documents (id, file_name, file_type, file_size, blob_data, last_updated, source_url, trip_id, saved_at)
		VALUES (:id, :file_name, :file_type, :file_size, :blob_data, :last_updated, :source_url, :trip_id, :saved_at)
		ON CONFLICT (id) DO UPDATE SET
			file_name = excluded.file_name,
			file_type = excluded.file_type,
			file_size = excluded.file_size,
			blob_data = excluded.blob_data,
			last_updated = excluded.last_updated,
			source_url = excluded.source_url,
			trip_id = excluded.trip_id,
			saved_at = excluded.saved_at`, doc)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.OfflineDocument, error) {
	var doc model.OfflineDocument
	err := s.db.GetContext(ctx, &doc, `SELECT * FROM documents WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("selecting document: %w", err)
	}
	return &doc, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*model.OfflineDocument, error) {
	var docs []*model.OfflineDocument
	if err := s.db.SelectContext(ctx, &docs, `SELECT * FROM documents ORDER BY saved_at, id`); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// Map metadata operations

// mapSetRow flattens MapTileSet for scanning; locations are stored as JSON.
type mapSetRow struct {
	TripID       string    `db:"trip_id"`
	TripName     string    `db:"trip_name"`
	Destination  string    `db:"destination"`
	North        float64   `db:"north"`
	South        float64   `db:"south"`
	East         float64   `db:"east"`
	West         float64   `db:"west"`
	ZoomMin      int       `db:"zoom_min"`
	ZoomMax      int       `db:"zoom_max"`
	Locations    string    `db:"locations"`
	TileCount    int       `db:"tile_count"`
	DownloadedAt time.Time `db:"downloaded_at"`
}

func (s *SQLiteStore) PutMapSet(ctx context.Context, set *model.MapTileSet) error {
	locations, err := json.Marshal(set.Locations)
	if err != nil {
		return fmt.Errorf("encoding locations: %w", err)
	}

	row := mapSetRow{
		TripID:       set.TripID,
		TripName:     set.TripName,
		Destination:  set.Destination,
		North:        set.Bounds.North,
		South:        set.Bounds.South,
		East:         set.Bounds.East,
		West:         set.Bounds.West,
		ZoomMin:      set.ZoomMin,
		ZoomMax:      set.ZoomMax,
		Locations:    string(locations),
		TileCount:    set.TileCount,
		DownloadedAt: set.DownloadedAt,
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO map_sets (trip_id, trip_name, destination, north, south, east, west, zoom_min, zoom_max, locations, tile_count, downloaded_at)
		VALUES (:trip_id, :trip_name, :destination, :north, :south, :east, :west, :zoom_min, :zoom_max, :locations, :tile_count, :downloaded_at)
		ON CONFLICT (trip_id) DO UPDATE SET
			trip_name = excluded.trip_name,
			destination = excluded.destination,
			north = excluded.north,
			south = excluded.south,
			east = excluded.east,
			west = excluded.west,
			zoom_min = excluded.zoom_min,
			zoom_max = excluded.zoom_max,
			locations = excluded.locations,
			tile_count = excluded.tile_count,
			downloaded_at = excluded.downloaded_at`, row)
	if err != nil {
		return fmt.Errorf("upserting map metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMapSet(ctx context.Context, tripID string) (*model.MapTileSet, error) {
	var row mapSetRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM map_sets WHERE trip_id = ?`, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("selecting map metadata: %w", err)
	}

	var locations []model.GeoPoint
	if err := json.Unmarshal([]byte(row.Locations), &locations); err != nil {
		return nil, fmt.Errorf("decoding locations: %w", err)
	}

	return &model.MapTileSet{
		TripID:       row.TripID,
		TripName:     row.TripName,
		Destination:  row.Destination,
		Bounds:       model.Bounds{North: row.North, South: row.South, East: row.East, West: row.West},
		ZoomMin:      row.ZoomMin,
		ZoomMax:      row.ZoomMax,
		Locations:    locations,
		TileCount:    row.TileCount,
		DownloadedAt: row.DownloadedAt,
	}, nil
}

func (s *SQLiteStore) DeleteMapSet(ctx context.Context, tripID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM map_sets WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("deleting map metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TripIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT trip_id FROM map_sets ORDER BY trip_id`); err != nil {
		return nil, fmt.Errorf("listing map trips: %w", err)
	}
	return ids, nil
}

// Tile operations

func (s *SQLiteStore) PutTile(ctx context.Context, tripID string, zoom, x, y int, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO map_tiles (trip_id, zoom, x, y, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (trip_id, zoom, x, y) DO UPDATE SET data = excluded.data`,
		tripID, zoom, x, y, data)
	if err != nil {
		return fmt.Errorf("upserting tile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTile(ctx context.Context, tripID string, zoom, x, y int) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM map_tiles WHERE trip_id = ? AND zoom = ? AND x = ? AND y = ?`,
		tripID, zoom, x, y)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("selecting tile: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) DeleteTiles(ctx context.Context, tripID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM map_tiles WHERE trip_id = ?`, tripID)
	if err != nil {
		return 0, fmt.Errorf("deleting tiles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted tiles: %w", err)
	}
	return int(n), nil
}

// Outbox operations

func (s *SQLiteStore) Enqueue(ctx context.Context, entry *model.OutboxEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// A track followed by an untrack for the same resource (or vice versa)
	// must not deliver both; the newer intent wins. Ids are only unique
	// within a resource type, so the type is part of the match.
	opposite := model.OutboxUntrack
	if entry.Action == model.OutboxUntrack {
		opposite = model.OutboxTrack
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracking_outbox WHERE resource_id = ? AND resource_type = ? AND action = ?`,
		entry.ResourceID, entry.ResourceType, opposite); err != nil {
		return fmt.Errorf("removing opposing intents: %w", err)
	}

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO tracking_outbox (action, resource_id, resource_type, trip_id, cache_size, enqueued_at, attempts, next_attempt_at)
		VALUES (:action, :resource_id, :resource_type, :trip_id, :cache_size, :enqueued_at, :attempts, :next_attempt_at)`,
		entry); err != nil {
		return fmt.Errorf("inserting intent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Due(ctx context.Context, now time.Time, limit int) ([]*model.OutboxEntry, error) {
	var entries []*model.OutboxEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM tracking_outbox WHERE next_attempt_at <= ? ORDER BY id LIMIT ?`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting due intents: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) DeleteIntent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracking_outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting intent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reschedule(ctx context.Context, id int64, attempts int, next time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE tracking_outbox SET attempts = ?, next_attempt_at = ? WHERE id = ?`,
		attempts, next, id); err != nil {
		return fmt.Errorf("rescheduling intent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Pending(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tracking_outbox`); err != nil {
		return 0, fmt.Errorf("counting pending intents: %w", err)
	}
	return count, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// CheckMigrations verifies the schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time checks that SQLiteStore implements the offline store
// interfaces.
var (
	_ offline.DocumentStore = (*SQLiteStore)(nil)
	_ offline.TileStore     = (*SQLiteStore)(nil)
	_ offline.OutboxStore   = (*SQLiteStore)(nil)
)
