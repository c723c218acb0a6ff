package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"
	"time"
)

// CacheAdaptor stores dumped HTTP responses for idempotent page fetches
// that tolerate short staleness, such as badge and game-cards pages.
type CacheAdaptor interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

type cacheTTLKey struct{}

// ContextWithCacheTTL opts a single request into response caching.
func ContextWithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

type cachingTransport struct {
	next  http.RoundTripper
	cache CacheAdaptor
}

func newCachingTransport(next http.RoundTripper, cache CacheAdaptor) http.RoundTripper {
	if cache == nil {
		return next
	}
	return &cachingTransport{next: next, cache: cache}
}

func (c *cachingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	// only idempotent requests are cacheable
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		return c.next.RoundTrip(request)
	}

	ctx := request.Context()
	ttl, ok := ctx.Value(cacheTTLKey{}).(time.Duration)
	if !ok || ttl == 0 {
		return c.next.RoundTrip(request)
	}

	key := request.URL.String()
	if cached, found := c.cache.Get(ctx, key); found {
		reader := bufio.NewReader(strings.NewReader(cached))
		if response, err := http.ReadResponse(reader, request); err == nil {
			return response, nil
		}
	}

	response, err := c.next.RoundTrip(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		if dump, dumpErr := httputil.DumpResponse(response, true); dumpErr == nil {
			c.cache.Set(ctx, key, string(dump), ttl)
		}
	}

	return response, nil
}

// MemoryCache is a minimal CacheAdaptor for callers that don't bring their
// own backing store.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", false
	}

	return entry.value, true
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryCacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}
