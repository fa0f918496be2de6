package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched page is reused.
const DefaultCacheTTL = 30 * time.Minute

// CachedFetcher fetches pages and keeps successful results in memory for a
// TTL, so several research queries hitting the same page fetch it once.
// It is safe for concurrent use.
type CachedFetcher struct {
	options *Options
	ttl     time.Duration
	now     func() time.Time
	fetch   func(ctx context.Context, urlStr string, opts *Options) (*Result, error)

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *Result
	expires time.Time
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// NewCachedFetcher creates a fetcher. A zero ttl uses DefaultCacheTTL.
func NewCachedFetcher(opts *Options, ttl time.Duration) *CachedFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{
		options: opts,
		ttl:     ttl,
		now:     time.Now,
		fetch:   Page,
		entries: make(map[string]cacheEntry),
	}
}

// Fetch returns a fresh cached page or fetches and caches it. Failures are
// not cached.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	f.mu.Lock()
	entry, ok := f.entries[urlStr]
	if ok && f.now().Before(entry.expires) {
		f.mu.Unlock()
		return &CachedResult{Result: entry.result, FromCache: true}, nil
	}
	f.mu.Unlock()

	result, err := f.fetch(ctx, urlStr, f.options)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.entries[urlStr] = cacheEntry{result: result, expires: f.now().Add(f.ttl)}
	f.mu.Unlock()
	return &CachedResult{Result: result}, nil
}

// Invalidate drops a cached page.
func (f *CachedFetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	delete(f.entries, urlStr)
	f.mu.Unlock()
}

// Len returns the number of cached pages, including expired ones.
func (f *CachedFetcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
