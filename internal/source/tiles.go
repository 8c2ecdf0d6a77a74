package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// HTTPTileFetcher retrieves tiles from a standard {z}/{x}/{y}.png slippy
// map endpoint.
type HTTPTileFetcher struct {
	client    *http.Client
	template  string
	userAgent string
}

var _ offline.TileFetcher = (*HTTPTileFetcher)(nil)

// NewHTTPTileFetcher creates a fetcher for the given URL template, e.g.
// "https://tile.example.org/{z}/{x}/{y}.png". client may be nil for a
// default with a 20s timeout.
func NewHTTPTileFetcher(client *http.Client, template, userAgent string) *HTTPTileFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPTileFetcher{client: client, template: template, userAgent: userAgent}
}

func (f *HTTPTileFetcher) FetchTile(ctx context.Context, zoom, x, y int) ([]byte, error) {
	url := strings.NewReplacer(
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(f.template)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building tile request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %d/%d/%d: %w", zoom, x, y, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile %d/%d/%d: unexpected status %d", zoom, x, y, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tile %d/%d/%d: %w", zoom, x, y, err)
	}
	return data, nil
}
