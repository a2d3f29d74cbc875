// Package board keeps a TTL-cached snapshot of the external board so repeated
// dashboard polling never multiplies load on the complexity-limited API.
package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"floorboard/internal/config"
	"floorboard/internal/domain"
	"floorboard/internal/ports"
)

// Cache serves the last good snapshot while it is fresh and coalesces all
// concurrent refreshes into a single fetch. A failed refresh never replaces
// a still-valid snapshot.
type Cache struct {
	fetcher       ports.BoardFetcher
	ttl           time.Duration
	fetchTimeout  time.Duration
	pageLimit     int
	maxPages      int
	retryAttempts uint64
	retryBase     time.Duration
	logger        *slog.Logger

	flight singleflight.Group

	mu       sync.RWMutex
	snapshot *domain.BoardSnapshot
	expires  time.Time
}

func New(fetcher ports.BoardFetcher, cfg config.BoardConfig, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher:       fetcher,
		ttl:           cfg.CacheTTL,
		fetchTimeout:  cfg.FetchTimeout,
		pageLimit:     cfg.PageLimit,
		maxPages:      cfg.MaxPages,
		retryAttempts: uint64(cfg.RetryAttempts),
		retryBase:     500 * time.Millisecond,
		logger:        logger,
	}
}

// Snapshot returns the cached board, refreshing it when expired. Concurrent
// callers behind an expired cache share one in-flight refresh and all observe
// that refresh's result.
func (c *Cache) Snapshot(ctx context.Context) (*domain.BoardSnapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}

	v, err, _ := c.flight.Do("board", func() (any, error) {
		// A waiter queued behind a finished refresh must not start another.
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}

		// The refresh is shared by every waiter, so it runs on its own
		// deadline rather than the first caller's context.
		fctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()

		snap, err := c.refresh(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.snapshot = snap
		c.expires = time.Now().Add(c.ttl)
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.BoardSnapshot), nil
}

func (c *Cache) fresh() *domain.BoardSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot != nil && time.Now().Before(c.expires) {
		return c.snapshot
	}
	return nil
}

// refresh walks items_page cursors up to maxPages. On a complexity rejection
// that survives the page's retry budget, it degrades to the partial snapshot
// accumulated so far instead of failing the whole refresh.
func (c *Cache) refresh(ctx context.Context) (*domain.BoardSnapshot, error) {
	var items []domain.TrackedItem
	limit := c.pageLimit
	cursor := ""
	for page := 0; page < c.maxPages; page++ {
		fetched, err := c.fetchPage(ctx, &limit, cursor)
		if err != nil {
			if ports.IsComplexity(err) {
				c.logger.Warn("complexity budget exhausted, serving partial board",
					"pages_fetched", page, "items", len(items))
				break
			}
			return nil, err
		}
		items = append(items, fetched.Items...)
		if fetched.Cursor == "" {
			break
		}
		cursor = fetched.Cursor
	}
	return domain.BuildSnapshot(items), nil
}

// fetchPage retries a complexity-rejected page with capped backoff, halving
// the page size before each retry. Other errors fail immediately.
func (c *Cache) fetchPage(ctx context.Context, limit *int, cursor string) (ports.FetchedPage, error) {
	var page ports.FetchedPage
	backoff := retry.WithCappedDuration(10*time.Second,
		retry.WithMaxRetries(c.retryAttempts, retry.NewExponential(c.retryBase)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := c.fetcher.FetchItemsPage(ctx, *limit, cursor)
		if err != nil {
			if ports.IsComplexity(err) {
				if *limit > 1 {
					*limit /= 2
				}
				return retry.RetryableError(err)
			}
			return err
		}
		page = fetched
		return nil
	})
	return page, err
}
