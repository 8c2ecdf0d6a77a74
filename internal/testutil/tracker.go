package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/registry"
)

type trackerKey struct {
	userID     string
	resourceID string
}

// MemoryTracker is an in-memory registry Tracker. Setting Err makes every
// Track and Untrack call fail, for exercising retry paths.
type MemoryTracker struct {
	mu   sync.Mutex
	rows map[trackerKey]*model.CacheStatusRecord
	Err  error
}

var (
	_ registry.Tracker = (*MemoryTracker)(nil)
	_ offline.Registry = (*MemoryTracker)(nil)
)

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{rows: make(map[trackerKey]*model.CacheStatusRecord)}
}

func (t *MemoryTracker) Track(_ context.Context, rec *model.CacheStatusRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	cp := *rec
	t.rows[trackerKey{rec.UserID, rec.ResourceID}] = &cp
	return nil
}

func (t *MemoryTracker) Untrack(_ context.Context, userID, resourceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	delete(t.rows, trackerKey{userID, resourceID})
	return nil
}

func (t *MemoryTracker) ListByUser(_ context.Context, userID string) ([]*model.CacheStatusRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*model.CacheStatusRecord
	for key, rec := range t.rows {
		if key.userID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (t *MemoryTracker) UserTotals(_ context.Context, userID string) (*registry.UserTotals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	totals := &registry.UserTotals{UserID: userID}
	for key, rec := range t.rows {
		if key.userID == userID {
			totals.Count++
			totals.TotalSize += rec.CacheSize
		}
	}
	return totals, nil
}

func (t *MemoryTracker) ResourceTotals(_ context.Context, resourceID string) (*registry.ResourceTotals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	totals := &registry.ResourceTotals{ResourceID: resourceID}
	users := make(map[string]bool)
	for key, rec := range t.rows {
		if key.resourceID == resourceID {
			users[key.userID] = true
			totals.TotalSize += rec.CacheSize
		}
	}
	totals.Users = len(users)
	return totals, nil
}

func (t *MemoryTracker) TripTotals(_ context.Context, tripID string) (*registry.TripTotals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	totals := &registry.TripTotals{TripID: tripID}
	for _, rec := range t.rows {
		if rec.TripID == tripID {
			totals.Count++
			totals.TotalSize += rec.CacheSize
		}
	}
	return totals, nil
}

func (t *MemoryTracker) Evict(_ context.Context, filter registry.EvictFilter) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for key, rec := range t.rows {
		if filter.UserID != "" && key.userID != filter.UserID {
			continue
		}
		if filter.ResourceID != "" && key.resourceID != filter.ResourceID {
			continue
		}
		if filter.TripID != "" && rec.TripID != filter.TripID {
			continue
		}
		delete(t.rows, key)
		n++
	}
	return n, nil
}

// Rows returns a snapshot of all registry rows, sorted by user then resource.
func (t *MemoryTracker) Rows() []*model.CacheStatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*model.CacheStatusRecord
	for _, rec := range t.rows {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID == out[j].UserID {
			return out[i].ResourceID < out[j].ResourceID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// MemoryConfigStore is an in-memory map config store.
type MemoryConfigStore struct {
	mu      sync.Mutex
	configs map[string]*model.MapConfig
}

var _ registry.ConfigStore = (*MemoryConfigStore)(nil)

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: make(map[string]*model.MapConfig)}
}

func (s *MemoryConfigStore) PutMapConfig(_ context.Context, cfg *model.MapConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.configs[cfg.TripID] = &cp
	return nil
}

func (s *MemoryConfigStore) GetMapConfig(_ context.Context, tripID string) (*model.MapConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[tripID]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}
