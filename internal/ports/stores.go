package ports

import (
	"context"
	"time"

	"floorboard/internal/domain"
)

// ScanStore persists per-item scan state and the append-only event log.
type ScanStore interface {
	// Advance creates the record on first scan, bumps the saturating counter,
	// and appends the audit event, all atomically with respect to concurrent
	// advances of the same item id.
	Advance(ctx context.Context, itemID string) (domain.ScanRecord, error)

	// All returns every known scan record.
	All(ctx context.Context) ([]domain.ScanRecord, error)

	// ListUnmirrored returns scanned records whose state has not yet been
	// pushed to the external board.
	ListUnmirrored(ctx context.Context, limit int) ([]domain.ScanRecord, error)

	// MarkMirrored records that the item's state as of asOf reached the
	// external board. A scan after asOf leaves the record eligible again.
	MarkMirrored(ctx context.Context, itemID string, asOf time.Time) error
}
