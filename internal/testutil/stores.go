package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// MemoryDocumentStore is an in-memory DocumentStore for tests.
type MemoryDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*model.OfflineDocument
}

var _ offline.DocumentStore = (*MemoryDocumentStore)(nil)

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]*model.OfflineDocument)}
}

func (s *MemoryDocumentStore) Put(_ context.Context, doc *model.OfflineDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *MemoryDocumentStore) Get(_ context.Context, id string) (*model.OfflineDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryDocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryDocumentStore) List(_ context.Context) ([]*model.OfflineDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*model.OfflineDocument, 0, len(ids))
	for _, id := range ids {
		cp := *s.docs[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryDocumentStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*model.OfflineDocument)
	return nil
}

// MemoryTileStore is an in-memory TileStore for tests.
type MemoryTileStore struct {
	mu    sync.Mutex
	sets  map[string]*model.MapTileSet
	tiles map[string][]byte
}

var _ offline.TileStore = (*MemoryTileStore)(nil)

func NewMemoryTileStore() *MemoryTileStore {
	return &MemoryTileStore{
		sets:  make(map[string]*model.MapTileSet),
		tiles: make(map[string][]byte),
	}
}

func tileKey(tripID string, zoom, x, y int) string {
	return fmt.Sprintf("%s/%d/%d/%d", tripID, zoom, x, y)
}

func (s *MemoryTileStore) PutMapSet(_ context.Context, set *model.MapTileSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *set
	s.sets[set.TripID] = &cp
	return nil
}

func (s *MemoryTileStore) GetMapSet(_ context.Context, tripID string) (*model.MapTileSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[tripID]
	if !ok {
		return nil, nil
	}
	cp := *set
	return &cp, nil
}

func (s *MemoryTileStore) DeleteMapSet(_ context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, tripID)
	return nil
}

func (s *MemoryTileStore) TripIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sets))
	for id := range s.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryTileStore) PutTile(_ context.Context, tripID string, zoom, x, y int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[tileKey(tripID, zoom, x, y)] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryTileStore) GetTile(_ context.Context, tripID string, zoom, x, y int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.tiles[tileKey(tripID, zoom, x, y)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryTileStore) DeleteTiles(_ context.Context, tripID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := tripID + "/"
	n := 0
	for key := range s.tiles {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.tiles, key)
			n++
		}
	}
	return n, nil
}

// TileCount returns the number of stored tiles for the trip.
func (s *MemoryTileStore) TileCount(tripID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := tripID + "/"
	n := 0
	for key := range s.tiles {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// MemoryOutbox is an in-memory OutboxStore for tests.
type MemoryOutbox struct {
	mu      sync.Mutex
	nextID  int64
	entries []*model.OutboxEntry
}

var _ offline.OutboxStore = (*MemoryOutbox)(nil)

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func opposite(action string) string {
	if action == model.OutboxTrack {
		return model.OutboxUntrack
	}
	return model.OutboxTrack
}

func (o *MemoryOutbox) Enqueue(_ context.Context, entry *model.OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	opp := opposite(entry.Action)
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.ResourceID == entry.ResourceID && e.ResourceType == entry.ResourceType && e.Action == opp {
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept

	o.nextID++
	cp := *entry
	cp.ID = o.nextID
	o.entries = append(o.entries, &cp)
	return nil
}

func (o *MemoryOutbox) Due(_ context.Context, now time.Time, limit int) ([]*model.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var due []*model.OutboxEntry
	for _, e := range o.entries {
		if !e.NextAttemptAt.After(now) {
			cp := *e
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].EnqueuedAt.Equal(due[j].EnqueuedAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].EnqueuedAt.Before(due[j].EnqueuedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (o *MemoryOutbox) DeleteIntent(_ context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	o.entries = kept
	return nil
}

func (o *MemoryOutbox) Reschedule(_ context.Context, id int64, attempts int, next time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.ID == id {
			e.Attempts = attempts
			e.NextAttemptAt = next
			return nil
		}
	}
	return fmt.Errorf("no outbox entry with id %d", id)
}

func (o *MemoryOutbox) Pending(_ context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries), nil
}
