package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// Client talks to the registry API from the device. It implements the
// offline service's Registry interface and the geo planner's ConfigStore.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ offline.Registry = (*Client)(nil)

// NewClient creates a registry client. httpClient may be nil for a default
// with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), client: httpClient}
}

func (c *Client) Track(ctx context.Context, rec *model.CacheStatusRecord) error {
	body := TrackRequest{
		ResourceID:   rec.ResourceID,
		ResourceType: rec.ResourceType,
		TripID:       rec.TripID,
		CacheSize:    rec.CacheSize,
	}
	return c.do(ctx, http.MethodPost, "/api/cache/track", rec.UserID, body, nil)
}

func (c *Client) Untrack(ctx context.Context, userID, resourceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cache/track/"+resourceID, userID, nil, nil)
}

// PutMapConfig upserts the trip's map config on the server.
func (c *Client) PutMapConfig(ctx context.Context, cfg *model.MapConfig) error {
	return c.do(ctx, http.MethodPut, "/api/maps/config/"+cfg.TripID, "", cfg, nil)
}

// GetMapConfig fetches the trip's map config; nil when none exists.
func (c *Client) GetMapConfig(ctx context.Context, tripID string) (*model.MapConfig, error) {
	var cfg model.MapConfig
	found, err := c.get(ctx, "/api/maps/config/"+tripID, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &cfg, nil
}

func (c *Client) do(ctx context.Context, method, path, userID string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("registry returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding registry response: %w", err)
		}
	}
	return nil
}

// get performs a GET, reporting (false, nil) on 404.
func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("registry returned status %d for GET %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding registry response: %w", err)
	}
	return true, nil
}
