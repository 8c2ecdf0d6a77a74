package geo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/geo"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/testutil"
)

// fakeNominatim serves canned coordinates per city name; unknown names get
// an empty result set.
func fakeNominatim(t *testing.T, coords map[string][2]float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("q")
		c, ok := coords[name]
		if !ok {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"lat":"%v","lon":"%v","display_name":"%s"}]`, c[0], c[1], name)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(t *testing.T, srv *httptest.Server, configs geo.ConfigStore) *geo.Resolver {
	t.Helper()
	clock := testutil.FixedClock()
	g := geo.NewGeocoder(srv.Client(), srv.URL, "t", clock, &testutil.StubSleeper{Clock: clock})
	return geo.NewResolver(g, configs, offline.NewNopLogger(), clock)
}

func TestResolver_ResolveDestinations(t *testing.T) {
	t.Parallel()

	t.Run("resolves every extracted city", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, map[string][2]float64{
			"Paris": {48.8566, 2.3522},
			"Lyon":  {45.7640, 4.8357},
		})
		r := newResolver(t, srv, nil)

		points, err := r.ResolveDestinations(context.Background(), "Paris, Lyon")
		if err != nil {
			t.Fatalf("ResolveDestinations() error = %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("got %d points, want 2", len(points))
		}
		if points[0].DisplayName != "Paris" || points[1].DisplayName != "Lyon" {
			t.Errorf("order not preserved: %q, %q", points[0].DisplayName, points[1].DisplayName)
		}
	})

	t.Run("skips cities that fail to geocode", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, map[string][2]float64{
			"Paris": {48.8566, 2.3522},
		})
		r := newResolver(t, srv, nil)

		points, err := r.ResolveDestinations(context.Background(), "Paris, Atlantis")
		if err != nil {
			t.Fatalf("ResolveDestinations() error = %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("got %d points, want 1", len(points))
		}
	})

	t.Run("fails when nothing resolves", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, nil)
		r := newResolver(t, srv, nil)

		if _, err := r.ResolveDestinations(context.Background(), "Atlantis, Shangri-La"); err == nil {
			t.Fatal("expected error when no city geocodes")
		}
	})

	t.Run("fails on empty destination text", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, nil)
		r := newResolver(t, srv, nil)

		if _, err := r.ResolveDestinations(context.Background(), "  "); err == nil {
			t.Fatal("expected error for empty text")
		}
	})
}

func TestResolver_PlanTrip(t *testing.T) {
	t.Parallel()

	t.Run("persists the planned config", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, map[string][2]float64{
			"Paris": {48.8566, 2.3522},
			"Lyon":  {45.7640, 4.8357},
		})
		configs := testutil.NewMemoryConfigStore()
		r := newResolver(t, srv, configs)

		cfg, err := r.PlanTrip(context.Background(), "trip-1", "Paris, Lyon", 10, 12)
		if err != nil {
			t.Fatalf("PlanTrip() error = %v", err)
		}

		if cfg.TripID != "trip-1" {
			t.Errorf("TripID = %q, want %q", cfg.TripID, "trip-1")
		}
		if cfg.TileCount <= 0 {
			t.Errorf("TileCount = %d, want > 0", cfg.TileCount)
		}
		if cfg.EstimatedSizeMB <= 0 {
			t.Errorf("EstimatedSizeMB = %v, want > 0", cfg.EstimatedSizeMB)
		}
		if cfg.Bounds.North <= cfg.Bounds.South {
			t.Errorf("degenerate bounds: %+v", cfg.Bounds)
		}
		if !cfg.UpdatedAt.Equal(testutil.FixedClock().Now()) {
			t.Errorf("UpdatedAt = %v, want fixed clock time", cfg.UpdatedAt)
		}

		stored, err := configs.GetMapConfig(context.Background(), "trip-1")
		if err != nil {
			t.Fatalf("GetMapConfig() error = %v", err)
		}
		if stored == nil {
			t.Fatal("config was not persisted")
		}
		if stored.TileCount != cfg.TileCount {
			t.Errorf("stored TileCount = %d, want %d", stored.TileCount, cfg.TileCount)
		}
	})

	t.Run("replanning overwrites the stored config", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, map[string][2]float64{
			"Paris": {48.8566, 2.3522},
		})
		configs := testutil.NewMemoryConfigStore()
		r := newResolver(t, srv, configs)

		if _, err := r.PlanTrip(context.Background(), "trip-1", "Paris", 10, 12); err != nil {
			t.Fatalf("PlanTrip() error = %v", err)
		}
		second, err := r.PlanTrip(context.Background(), "trip-1", "Paris", 8, 10)
		if err != nil {
			t.Fatalf("PlanTrip() error = %v", err)
		}

		stored, _ := configs.GetMapConfig(context.Background(), "trip-1")
		if stored.ZoomMin != second.ZoomMin || stored.ZoomMax != second.ZoomMax {
			t.Errorf("stored zoom = %d-%d, want %d-%d", stored.ZoomMin, stored.ZoomMax, second.ZoomMin, second.ZoomMax)
		}
	})

	t.Run("rejects inverted zoom range", func(t *testing.T) {
		t.Parallel()
		srv := fakeNominatim(t, nil)
		r := newResolver(t, srv, nil)

		if _, err := r.PlanTrip(context.Background(), "trip-1", "Paris", 12, 10); err == nil {
			t.Fatal("expected error for zoom_min > zoom_max")
		}
	})
}
