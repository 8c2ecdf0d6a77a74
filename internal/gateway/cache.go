package gateway

import (
	"maps"
	"net/http"
	"sort"
	"sync"
)

// CachedResponse is one stored HTTP response.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns an independent copy safe to store while the original is
// written to a client.
func (r *CachedResponse) Clone() *CachedResponse {
	h := make(http.Header, len(r.Header))
	maps.Copy(h, r.Header)
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &CachedResponse{Status: r.Status, Header: h, Body: body}
}

// Partition is a named, isolated collection of cached responses keyed by
// request path+query. Overlapping writes to the same key resolve
// last-write-wins; there is no locking across lookups and stores.
type Partition interface {
	Match(key string) (*CachedResponse, bool)
	Put(key string, resp *CachedResponse)
	Keys() []string
}

// CacheStorage owns the set of named partitions. It is explicit, injected
// state with a clear lifecycle rather than an ambient global, so tests can
// reset it deterministically.
type CacheStorage interface {
	// Open returns the named partition, creating it if needed.
	Open(name string) Partition

	// Names lists existing partition names.
	Names() []string

	// Delete drops a partition and everything in it. Returns whether it
	// existed.
	Delete(name string) bool
}

// MemoryCacheStorage is the in-process CacheStorage implementation.
// Safe for concurrent use.
type MemoryCacheStorage struct {
	mu         sync.RWMutex
	partitions map[string]*memoryPartition
}

var _ CacheStorage = (*MemoryCacheStorage)(nil)

func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{partitions: make(map[string]*memoryPartition)}
}

func (s *MemoryCacheStorage) Open(name string) Partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partitions[name]
	if !ok {
		p = &memoryPartition{entries: make(map[string]*CachedResponse)}
		s.partitions[name] = p
	}
	return p
}

func (s *MemoryCacheStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *MemoryCacheStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.partitions[name]
	delete(s.partitions, name)
	return ok
}

type memoryPartition struct {
	mu      sync.RWMutex
	entries map[string]*CachedResponse
}

func (p *memoryPartition) Match(key string) (*CachedResponse, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	resp, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

func (p *memoryPartition) Put(key string, resp *CachedResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = resp.Clone()
}

func (p *memoryPartition) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
