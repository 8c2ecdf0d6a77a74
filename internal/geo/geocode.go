package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// Clock abstracts time retrieval so the rate limiter is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts delays so tests can substitute a fake for real timers.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Logger matches the service-layer logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// geocodeMinInterval is the polite spacing between lookups; the public
// service allows roughly one request per second.
const geocodeMinInterval = 1100 * time.Millisecond

// Geocoder resolves place names through a Nominatim-style HTTP endpoint,
// one city at a time, rate limited and identified by User-Agent.
type Geocoder struct {
	client    *http.Client
	baseURL   string
	userAgent string
	clock     Clock
	sleeper   Sleeper
	last      time.Time
}

// NewGeocoder creates a Geocoder. client may be nil for a default client
// with a 15s timeout.
func NewGeocoder(client *http.Client, baseURL, userAgent string, clock Clock, sleeper Sleeper) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Geocoder{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		clock:     clock,
		sleeper:   sleeper,
	}
}

type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeocodeCity resolves one place name to its single best match.
func (g *Geocoder) GeocodeCity(ctx context.Context, name string) (*model.GeoPoint, error) {
	if err := g.throttle(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding %q: unexpected status %d", name, resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding geocode response for %q: %w", name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no geocoding match for %q", name)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude for %q: %w", name, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude for %q: %w", name, err)
	}

	return &model.GeoPoint{Lat: lat, Lng: lng, DisplayName: results[0].DisplayName}, nil
}

// throttle enforces the minimum spacing between requests.
func (g *Geocoder) throttle(ctx context.Context) error {
	now := g.clock.Now()
	if !g.last.IsZero() {
		if wait := geocodeMinInterval - now.Sub(g.last); wait > 0 {
			if err := g.sleeper.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	g.last = g.clock.Now()
	return nil
}
