// Package quote serves swap quotes through a persistent fingerprint cache.
package quote

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ggonzalez94/swapsage/internal/metrics"
	"github.com/ggonzalez94/swapsage/internal/store"
)

// Status reports how a quote was obtained.
type Status string

const (
	StatusHit    Status = "hit"
	StatusMiss   Status = "miss"
	StatusStale  Status = "stale"
	StatusShared Status = "shared"
)

const keyVersion = "quote:v1"

// ComputeCacheKey returns the canonical fingerprint of a quote request.
// Addresses are lower-cased; none of the fields can contain ':'.
func ComputeCacheKey(chainID int64, src, dst, amountWei string) string {
	return strings.Join([]string{
		keyVersion,
		strconv.FormatInt(chainID, 10),
		strings.ToLower(strings.TrimSpace(src)),
		strings.ToLower(strings.TrimSpace(dst)),
		strings.TrimSpace(amountWei),
	}, ":")
}

// FetchFunc produces the entry to cache on a miss. CacheKey is filled in by the cache.
type FetchFunc func(ctx context.Context) (store.QuoteEntry, error)

// flightTimeout bounds a shared fetch once it no longer follows any one
// caller's context.
const flightTimeout = 2 * time.Minute

type Cache struct {
	store         *store.Store
	ttl           time.Duration
	now           func() time.Time
	group         singleflight.Group
	flightTimeout time.Duration
}

// NewCache returns a cache over s. A zero ttl keeps rows forever.
func NewCache(s *store.Store, ttl time.Duration) *Cache {
	return &Cache{store: s, ttl: ttl, now: time.Now, flightTimeout: flightTimeout}
}

// GetOrFetch returns the cached entry for key, calling fetch only when no
// fresh row exists. Concurrent callers for one key share a single fetch;
// writers in other processes are reconciled by the key's uniqueness, with
// the first stored row returned to everyone.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (store.QuoteEntry, Status, error) {
	entry, found, err := c.lookup(ctx, key)
	if err != nil {
		return store.QuoteEntry{}, "", err
	}
	if found && !c.stale(entry) {
		metrics.QuoteCacheLookups.WithLabelValues(string(StatusHit)).Inc()
		return entry, StatusHit, nil
	}

	// The flight runs detached so one caller leaving does not fail the
	// others waiting on it; each caller still stops waiting on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		return c.fill(flightCtx, key, fetch)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return store.QuoteEntry{}, "", ctx.Err()
	}
	if res.Err != nil {
		return store.QuoteEntry{}, "", res.Err
	}
	out := res.Val.(fetchResult)
	if res.Shared {
		out.status = StatusShared
	}
	metrics.QuoteCacheLookups.WithLabelValues(string(out.status)).Inc()
	return out.entry, out.status, nil
}

// fill re-checks the row, fetches on a miss or stale row, and returns
// whichever row ends up stored for key.
func (c *Cache) fill(ctx context.Context, key string, fetch FetchFunc) (fetchResult, error) {
	// Another process may have written the row since the first read.
	current, ok, err := c.lookup(ctx, key)
	if err != nil {
		return fetchResult{}, err
	}
	if ok && !c.stale(current) {
		return fetchResult{entry: current, status: StatusHit}, nil
	}

	fetched, err := fetch(ctx)
	if err != nil {
		return fetchResult{}, err
	}
	fetched.CacheKey = key
	if _, err := c.store.InsertQuote(ctx, fetched, ok); err != nil {
		return fetchResult{}, store.AppError(err, "cache quote")
	}
	winner, err := c.store.GetQuote(ctx, key)
	if err != nil {
		return fetchResult{}, store.AppError(err, "read cached quote")
	}
	status := StatusMiss
	if ok {
		status = StatusStale
	}
	return fetchResult{entry: winner, status: status}, nil
}

type fetchResult struct {
	entry  store.QuoteEntry
	status Status
}

func (c *Cache) lookup(ctx context.Context, key string) (store.QuoteEntry, bool, error) {
	entry, err := c.store.GetQuote(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.QuoteEntry{}, false, nil
		}
		return store.QuoteEntry{}, false, store.AppError(err, "read cached quote")
	}
	return entry, true, nil
}

func (c *Cache) stale(entry store.QuoteEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.CreatedAt) > c.ttl
}
