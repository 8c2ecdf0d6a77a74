package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// StubTileFetcher returns deterministic tile bytes. Coordinates added to
// Fail return an error instead.
type StubTileFetcher struct {
	mu      sync.Mutex
	Fail    map[string]bool
	Fetched []string
}

var _ offline.TileFetcher = (*StubTileFetcher)(nil)

func NewStubTileFetcher() *StubTileFetcher {
	return &StubTileFetcher{Fail: make(map[string]bool)}
}

// FailAt marks a tile as unfetchable.
func (f *StubTileFetcher) FailAt(zoom, x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail[fmt.Sprintf("%d/%d/%d", zoom, x, y)] = true
}

func (f *StubTileFetcher) FetchTile(_ context.Context, zoom, x, y int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%d/%d", zoom, x, y)
	f.Fetched = append(f.Fetched, key)
	if f.Fail[key] {
		return nil, fmt.Errorf("tile %s unavailable", key)
	}
	return []byte("tile:" + key), nil
}

// StubBlobURLProvider hands out fake URLs and records revocations.
type StubBlobURLProvider struct {
	mu      sync.Mutex
	counter int
	Revoked []string
}

var _ offline.BlobURLProvider = (*StubBlobURLProvider)(nil)

func NewStubBlobURLProvider() *StubBlobURLProvider {
	return &StubBlobURLProvider{}
}

func (p *StubBlobURLProvider) ViewableURL(name string, _ []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	return fmt.Sprintf("stub://blob/%d/%s", p.counter, name), nil
}

func (p *StubBlobURLProvider) Revoke(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Revoked = append(p.Revoked, url)
	return nil
}
