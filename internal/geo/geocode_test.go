package geo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/geo"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/testutil"
)

func TestGeocoder_GeocodeCity(t *testing.T) {
	t.Parallel()

	t.Run("parses the first match", func(t *testing.T) {
		t.Parallel()
		var gotUA, gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotQuery = r.URL.Query().Get("q")
			fmt.Fprint(w, `[{"lat":"48.8566","lon":"2.3522","display_name":"Paris, France"}]`)
		}))
		defer srv.Close()

		clock := testutil.FixedClock()
		g := geo.NewGeocoder(srv.Client(), srv.URL, "tripcache-test/1.0", clock, &testutil.StubSleeper{Clock: clock})

		point, err := g.GeocodeCity(context.Background(), "Paris")
		if err != nil {
			t.Fatalf("GeocodeCity() error = %v", err)
		}

		if point.Lat != 48.8566 || point.Lng != 2.3522 {
			t.Errorf("got (%v, %v), want (48.8566, 2.3522)", point.Lat, point.Lng)
		}
		if point.DisplayName != "Paris, France" {
			t.Errorf("DisplayName = %q, want %q", point.DisplayName, "Paris, France")
		}
		if gotUA != "tripcache-test/1.0" {
			t.Errorf("User-Agent = %q, want %q", gotUA, "tripcache-test/1.0")
		}
		if gotQuery != "Paris" {
			t.Errorf("query = %q, want %q", gotQuery, "Paris")
		}
	})

	t.Run("no match is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		}))
		defer srv.Close()

		clock := testutil.FixedClock()
		g := geo.NewGeocoder(srv.Client(), srv.URL, "t", clock, &testutil.StubSleeper{Clock: clock})

		if _, err := g.GeocodeCity(context.Background(), "Nowhereville"); err == nil {
			t.Fatal("expected error for empty result set")
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		clock := testutil.FixedClock()
		g := geo.NewGeocoder(srv.Client(), srv.URL, "t", clock, &testutil.StubSleeper{Clock: clock})

		if _, err := g.GeocodeCity(context.Background(), "Paris"); err == nil {
			t.Fatal("expected error for status 429")
		}
	})

	t.Run("spaces successive lookups", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"lat":"1","lon":"2","display_name":"x"}]`)
		}))
		defer srv.Close()

		clock := testutil.FixedClock()
		sleeper := &testutil.StubSleeper{Clock: clock}
		g := geo.NewGeocoder(srv.Client(), srv.URL, "t", clock, sleeper)

		for i := 0; i < 3; i++ {
			if _, err := g.GeocodeCity(context.Background(), "Paris"); err != nil {
				t.Fatalf("GeocodeCity() error = %v", err)
			}
		}

		// First lookup goes straight through; the next two wait the full
		// interval because the stub clock only advances inside Sleep.
		if len(sleeper.Sleeps) != 2 {
			t.Fatalf("got %d sleeps, want 2", len(sleeper.Sleeps))
		}
		for _, d := range sleeper.Sleeps {
			if d != 1100*time.Millisecond {
				t.Errorf("sleep = %v, want 1.1s", d)
			}
		}
	})
}
