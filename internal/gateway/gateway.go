package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Logger matches the service-layer logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultStaticExtensions is the static-asset allowlist served cache-first.
var defaultStaticExtensions = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
	".ico", ".woff", ".woff2", ".ttf", ".otf",
}

// Config describes one gateway deployment.
type Config struct {
	// Upstream is the origin the gateway fronts.
	Upstream string

	// Version tokens the cache partition names. Bumping it invalidates the
	// old app shell at the next Activate.
	Version string

	// ShellPaths is the fixed app-shell manifest precached on Install.
	ShellPaths []string

	// APIPrefixes identifies backend-API paths, served network-first.
	APIPrefixes []string

	// StaticExtensions overrides the cache-first extension allowlist.
	StaticExtensions []string
}

// Gateway transparently caches HTTP traffic for the whole application: an
// immutable versioned precache for the app shell plus a mutable runtime
// cache, with network-first and cache-first fetch policies. The runtime
// cache has no eviction policy — it grows until a version bump or a manual
// clear.
type Gateway struct {
	cfg      Config
	upstream *url.URL
	client   *http.Client
	caches   CacheStorage
	logger   Logger
}

// New creates a Gateway. client may be nil for a default with a 30s
// timeout.
func New(cfg Config, caches CacheStorage, client *http.Client, logger Logger) (*Gateway, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream url must be absolute: %q", cfg.Upstream)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if len(cfg.StaticExtensions) == 0 {
		cfg.StaticExtensions = defaultStaticExtensions
	}
	return &Gateway{cfg: cfg, upstream: upstream, client: client, caches: caches, logger: logger}, nil
}

func (g *Gateway) precacheName() string { return "shell-" + g.cfg.Version }
func (g *Gateway) runtimeName() string  { return "runtime-" + g.cfg.Version }

// Install populates the precache with every app-shell path. The install is
// all-or-nothing: a single failed path fails the whole install and leaves
// the precache untouched.
func (g *Gateway) Install(ctx context.Context) error {
	fetched := make(map[string]*CachedResponse, len(g.cfg.ShellPaths))
	for _, p := range g.cfg.ShellPaths {
		resp, err := g.fetchUpstream(ctx, http.MethodGet, p, nil, nil)
		if err != nil {
			return fmt.Errorf("precaching %s: %w", p, err)
		}
		if resp.Status != http.StatusOK {
			return fmt.Errorf("precaching %s: unexpected status %d", p, resp.Status)
		}
		fetched[p] = resp
	}

	precache := g.caches.Open(g.precacheName())
	for p, resp := range fetched {
		precache.Put(p, resp)
	}

	g.logger.Info("app shell precached", "version", g.cfg.Version, "paths", len(fetched))
	return nil
}

// Activate deletes every cache partition whose name belongs to neither the
// current precache nor the current runtime cache. Returns the deleted
// names.
func (g *Gateway) Activate() []string {
	keep := map[string]struct{}{
		g.precacheName(): {},
		g.runtimeName():  {},
	}

	var deleted []string
	for _, name := range g.caches.Names() {
		if _, ok := keep[name]; ok {
			continue
		}
		if g.caches.Delete(name) {
			deleted = append(deleted, name)
		}
	}

	if len(deleted) > 0 {
		g.logger.Info("stale cache partitions dropped", "names", strings.Join(deleted, ","))
	}
	return deleted
}

// Handler returns the fetch-policy handler. Non-GET requests bypass the
// cache entirely.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/*", http.HandlerFunc(g.serve))
	return r
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.passThrough(w, r)
		return
	}

	key := cacheKey(r)
	switch {
	case g.isAPIRequest(r):
		g.networkFirst(w, r, key, false)
	case g.isStaticAsset(r):
		g.cacheFirst(w, r, key)
	case isNavigation(r):
		g.networkFirst(w, r, key, true)
	default:
		g.networkFirst(w, r, key, false)
	}
}

// networkFirst tries the network, caching 200 responses; on failure it
// falls back to the best cache match. Navigation requests additionally
// fall back to the root document when no match exists.
func (g *Gateway) networkFirst(w http.ResponseWriter, r *http.Request, key string, navigation bool) {
	resp, err := g.fetchUpstream(r.Context(), r.Method, r.URL.RequestURI(), r.Header, nil)
	if err == nil {
		if resp.Status == http.StatusOK {
			g.caches.Open(g.runtimeName()).Put(key, resp)
		}
		writeCached(w, resp)
		return
	}

	if cached, ok := g.matchAny(key); ok {
		g.logger.Debug("network failed, served from cache", "key", key, "error", err)
		writeCached(w, cached)
		return
	}

	if navigation {
		if cached, ok := g.matchAny("/"); ok {
			g.logger.Debug("navigation fallback to root document", "path", key)
			writeCached(w, cached)
			return
		}
	}

	g.logger.Warn("upstream unreachable and nothing cached", "key", key, "error", err)
	http.Error(w, "upstream unreachable", http.StatusBadGateway)
}

// cacheFirst returns a cache match immediately with no network attempt; on
// a miss it fetches, caches 200 responses, and returns the result.
func (g *Gateway) cacheFirst(w http.ResponseWriter, r *http.Request, key string) {
	if cached, ok := g.matchAny(key); ok {
		writeCached(w, cached)
		return
	}

	resp, err := g.fetchUpstream(r.Context(), r.Method, r.URL.RequestURI(), r.Header, nil)
	if err != nil {
		g.logger.Warn("static asset unreachable and not cached", "key", key, "error", err)
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	if resp.Status == http.StatusOK {
		g.caches.Open(g.runtimeName()).Put(key, resp)
	}
	writeCached(w, resp)
}

// passThrough proxies the request without touching any cache.
func (g *Gateway) passThrough(w http.ResponseWriter, r *http.Request) {
	resp, err := g.fetchUpstream(r.Context(), r.Method, r.URL.RequestURI(), r.Header, r.Body)
	if err != nil {
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	writeCached(w, resp)
}

// matchAny checks the precache first, then the runtime cache.
func (g *Gateway) matchAny(key string) (*CachedResponse, bool) {
	if resp, ok := g.caches.Open(g.precacheName()).Match(key); ok {
		return resp, true
	}
	return g.caches.Open(g.runtimeName()).Match(key)
}

func (g *Gateway) fetchUpstream(ctx context.Context, method, requestURI string, header http.Header, body io.Reader) (*CachedResponse, error) {
	// requestURI is already escaped; parsing keeps percent-encoded path
	// segments intact instead of escaping them a second time.
	ref, err := url.ParseRequestURI(requestURI)
	if err != nil {
		return nil, fmt.Errorf("parsing request uri: %w", err)
	}
	target := g.upstream.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}

	return &CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: data}, nil
}

func (g *Gateway) isAPIRequest(r *http.Request) bool {
	for _, prefix := range g.cfg.APIPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gateway) isStaticAsset(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Dest") {
	case "script", "style", "image", "font":
		return true
	}
	ext := strings.ToLower(path.Ext(r.URL.Path))
	for _, allowed := range g.cfg.StaticExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// isNavigation detects full-page requests.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" || r.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func cacheKey(r *http.Request) string {
	return r.URL.RequestURI()
}

func writeCached(w http.ResponseWriter, resp *CachedResponse) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
