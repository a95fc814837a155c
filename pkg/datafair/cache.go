package datafair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus metrics for the page cache.
var (
	pageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dpe_page_cache_hits_total",
		Help: "Total page cache hits",
	})

	pageCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dpe_page_cache_misses_total",
		Help: "Total page cache misses",
	})

	pageCacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dpe_page_cache_errors_total",
		Help: "Total page cache operation errors",
	}, []string{"operation"})
)

// cacheEntry is a cached page response body. Only the raw body is
// stored; pages are re-parsed on hit so cached and fresh responses go
// through the same code path.
type cacheEntry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// pageCache stores raw page responses in Redis so an interrupted fetch
// session can be re-run without refetching completed pages. The cursor
// itself always lives in memory; the cache only short-circuits the
// network request for an identical query.
type pageCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func newPageCache(client *redis.Client, ttl time.Duration) *pageCache {
	return &pageCache{redis: client, ttl: ttl}
}

// key builds a deterministic cache key from the dataset and the full
// query parameter set.
// Format: datafair:<dataset>:param1=val1:param2=val2
func (pc *pageCache) key(dataset string, params url.Values) string {
	parts := []string{"datafair", dataset}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, params.Get(name)))
	}
	return strings.Join(parts, ":")
}

// Get retrieves a cached page body. Returns ErrCacheMiss when absent.
func (pc *pageCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := pc.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			pageCacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		pageCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		pageCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	pageCacheHits.Inc()
	return entry.Body, nil
}

// Set stores a page body with the configured TTL.
func (pc *pageCache) Set(ctx context.Context, key string, body []byte) error {
	entry := cacheEntry{Body: body, FetchedAt: time.Now()}

	data, err := json.Marshal(entry)
	if err != nil {
		pageCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := pc.redis.Set(ctx, key, data, pc.ttl).Err(); err != nil {
		pageCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
