// Package reconciler repairs board items whose column updates were lost after
// a committed scan advance. The internal counter is authoritative; this loop
// makes the external mirror catch up.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"floorboard/internal/domain"
	"floorboard/internal/ports"
)

const batchSize = 25

var retryDelay = 2 * time.Second

// Store is the slice of the scan store the reconciler needs.
type Store interface {
	ListUnmirrored(ctx context.Context, limit int) ([]domain.ScanRecord, error)
	MarkMirrored(ctx context.Context, itemID string, asOf time.Time) error
}

// Mirrorer pushes a record's full state to the external board.
type Mirrorer interface {
	Mirror(ctx context.Context, rec domain.ScanRecord) error
}

// Run polls for lagging records until ctx is cancelled. A zero or negative
// interval disables the loop.
func Run(ctx context.Context, store Store, mirror Mirrorer, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx, store, mirror, logger)
		}
	}
}

func tick(ctx context.Context, store Store, mirror Mirrorer, logger *slog.Logger) {
	recs, err := store.ListUnmirrored(ctx, batchSize)
	if err != nil {
		logger.Error("list unmirrored failed", "error", err)
		return
	}
	for _, rec := range recs {
		if err := push(ctx, mirror, rec); err != nil {
			if errors.Is(err, ports.ErrNoToken) {
				// No credential yet; the whole batch would fail the same way.
				return
			}
			logger.Warn("reconcile push failed", "item_id", rec.ItemID, "scan_count", rec.ScanCount, "error", err)
			continue
		}
		if err := store.MarkMirrored(ctx, rec.ItemID, rec.LastScannedAt); err != nil {
			logger.Warn("mark mirrored failed", "item_id", rec.ItemID, "error", err)
			continue
		}
		logger.Info("reconciled board item", "item_id", rec.ItemID, "scan_count", rec.ScanCount)
	}
}

func push(ctx context.Context, mirror Mirrorer, rec domain.ScanRecord) error {
	backoff := retry.WithMaxRetries(2, retry.NewConstant(retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := mirror.Mirror(ctx, rec); err != nil {
			if errors.Is(err, ports.ErrNoToken) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
