package geo

import (
	"context"
	"fmt"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// ConfigStore persists per-trip map configs.
type ConfigStore interface {
	PutMapConfig(ctx context.Context, cfg *model.MapConfig) error
}

// Resolver turns free-text trip destinations into a persisted map download
// plan: extracted cities, geocoded points, padded bounds, and an advisory
// tile budget.
type Resolver struct {
	geocoder *Geocoder
	configs  ConfigStore
	logger   Logger
	clock    Clock
}

// NewResolver creates a Resolver. configs may be nil when the caller only
// wants in-memory resolution.
func NewResolver(geocoder *Geocoder, configs ConfigStore, logger Logger, clock Clock) *Resolver {
	return &Resolver{geocoder: geocoder, configs: configs, logger: logger, clock: clock}
}

// ResolveDestinations extracts city names from the text and geocodes each.
// A city that fails to resolve is logged and skipped; the call fails only
// when zero cities resolve.
func (r *Resolver) ResolveDestinations(ctx context.Context, text string) ([]model.GeoPoint, error) {
	cities := ExtractCities(text)
	if len(cities) == 0 {
		return nil, fmt.Errorf("no city names found in destination text")
	}

	var points []model.GeoPoint
	for _, city := range cities {
		point, err := r.geocoder.GeocodeCity(ctx, city)
		if err != nil {
			r.logger.Warn("geocoding failed, skipping city", "city", city, "error", err)
			continue
		}
		r.logger.Debug("city resolved", "city", city, "lat", point.Lat, "lng", point.Lng)
		points = append(points, *point)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("none of %d cities could be geocoded", len(cities))
	}
	return points, nil
}

// PlanTrip resolves the destination text, computes bounds and the tile
// budget, and idempotently upserts the trip's map config.
func (r *Resolver) PlanTrip(ctx context.Context, tripID, destinationText string, zoomMin, zoomMax int) (*model.MapConfig, error) {
	if zoomMin > zoomMax {
		return nil, fmt.Errorf("zoom_min %d exceeds zoom_max %d", zoomMin, zoomMax)
	}

	points, err := r.ResolveDestinations(ctx, destinationText)
	if err != nil {
		return nil, err
	}

	bounds, err := CalculateBounds(points)
	if err != nil {
		return nil, err
	}

	tileCount := EstimateTileCount(bounds, zoomMin, zoomMax)
	cfg := &model.MapConfig{
		TripID:          tripID,
		Bounds:          bounds,
		ZoomMin:         zoomMin,
		ZoomMax:         zoomMax,
		Locations:       points,
		TileCount:       tileCount,
		EstimatedSizeMB: EstimateSizeMB(tileCount),
		UpdatedAt:       r.clock.Now(),
	}

	if r.configs != nil {
		if err := r.configs.PutMapConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("persisting map config: %w", err)
		}
	}

	r.logger.Info("map config planned", "trip", tripID, "locations", len(points), "tiles", tileCount, "estimated_mb", cfg.EstimatedSizeMB)
	return cfg, nil
}
