package offline

import (
	"context"
	"fmt"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/geo"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// ProgressFunc receives fractional progress after each tile attempt.
type ProgressFunc func(done, total int, fraction float64)

// DownloadMap fetches every tile covering the map config's bounds across
// [ZoomMin, ZoomMax] and stores the blobs keyed (tripID, zoom, x, y). The
// loop is deliberately serialized with a fixed inter-request delay. A
// failed tile is logged and skipped, so a "completed" download may be
// missing tiles; there is no post-hoc verification. The metadata record is
// written once the loop finishes, followed by a track intent for the map.
func (s *Service) DownloadMap(ctx context.Context, cfg *model.MapConfig, tripName string, progress ProgressFunc) (*model.MapTileSet, error) {
	if cfg.TripID == "" {
		return nil, fmt.Errorf("map config has no trip id")
	}

	ranges := geo.RangesForBounds(cfg.Bounds, cfg.ZoomMin, cfg.ZoomMax)
	total := 0
	for _, r := range ranges {
		total += r.Count()
	}

	s.logger.Info("starting map download", "trip", cfg.TripID, "tiles", total, "zoom_min", cfg.ZoomMin, "zoom_max", cfg.ZoomMax)

	done := 0
	stored := 0
	var storedBytes int64
	for _, r := range ranges {
		for x := r.MinX; x <= r.MaxX; x++ {
			for y := r.MinY; y <= r.MaxY; y++ {
				data, err := s.fetcher.FetchTile(ctx, r.Zoom, x, y)
				if err != nil {
					s.logger.Warn("tile fetch failed, skipping", "trip", cfg.TripID, "zoom", r.Zoom, "x", x, "y", y, "error", err)
				} else if err := s.tiles.PutTile(ctx, cfg.TripID, r.Zoom, x, y, data); err != nil {
					return nil, fmt.Errorf("storing tile %d/%d/%d: %w", r.Zoom, x, y, err)
				} else {
					stored++
					storedBytes += int64(len(data))
				}

				done++
				if progress != nil {
					progress(done, total, float64(done)/float64(total))
				}

				if err := s.sleeper.Sleep(ctx, s.opts.TileDelay); err != nil {
					return nil, fmt.Errorf("map download interrupted: %w", err)
				}
			}
		}
	}

	set := &model.MapTileSet{
		TripID:       cfg.TripID,
		TripName:     tripName,
		Destination:  displayNames(cfg.Locations),
		Bounds:       cfg.Bounds,
		ZoomMin:      cfg.ZoomMin,
		ZoomMax:      cfg.ZoomMax,
		Locations:    cfg.Locations,
		TileCount:    stored,
		DownloadedAt: s.clock.Now(),
	}
	if err := s.tiles.PutMapSet(ctx, set); err != nil {
		return nil, fmt.Errorf("storing map metadata: %w", err)
	}

	s.enqueue(ctx, &model.OutboxEntry{
		Action:       model.OutboxTrack,
		ResourceID:   cfg.TripID,
		ResourceType: model.ResourceMaps,
		TripID:       cfg.TripID,
		CacheSize:    storedBytes,
	})

	s.logger.Info("map download complete", "trip", cfg.TripID, "stored", stored, "attempted", total)
	return set, nil
}

// DeleteMap removes the metadata record, then every tile whose key matches
// the trip, then enqueues an untrack intent.
func (s *Service) DeleteMap(ctx context.Context, tripID string) error {
	if err := s.tiles.DeleteMapSet(ctx, tripID); err != nil {
		return fmt.Errorf("deleting map metadata: %w", err)
	}

	removed, err := s.tiles.DeleteTiles(ctx, tripID)
	if err != nil {
		return fmt.Errorf("deleting map tiles: %w", err)
	}

	s.enqueue(ctx, &model.OutboxEntry{
		Action:       model.OutboxUntrack,
		ResourceID:   tripID,
		ResourceType: model.ResourceMaps,
		TripID:       tripID,
	})

	s.logger.Info("offline map removed", "trip", tripID, "tiles", removed)
	return nil
}

// CachedTripIDs lists the trips that have an offline map, from metadata
// records only.
func (s *Service) CachedTripIDs(ctx context.Context) ([]string, error) {
	ids, err := s.tiles.TripIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cached maps: %w", err)
	}
	return ids, nil
}

func displayNames(points []model.GeoPoint) string {
	out := ""
	for i, p := range points {
		if i > 0 {
			out += ", "
		}
		out += p.DisplayName
	}
	return out
}
