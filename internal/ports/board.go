package ports

import (
	"context"
	"errors"
	"fmt"

	"floorboard/internal/domain"
)

// ErrNoToken means no external-board credential is present; the HTTP layer
// maps it to 401.
var ErrNoToken = errors.New("not authenticated with board API")

// FetchedPage is one page of board items plus the opaque cursor for the next
// page. An empty cursor means the board is exhausted.
type FetchedPage struct {
	Items  []domain.TrackedItem
	Cursor string
}

// BoardFetcher fetches one page of board items from the external API.
type BoardFetcher interface {
	FetchItemsPage(ctx context.Context, limit int, cursor string) (FetchedPage, error)
}

// ColumnUpdater sets a single field on an external board item. Field-level
// idempotent: repeating the same set is safe.
type ColumnUpdater interface {
	ChangeColumnValue(ctx context.Context, itemID, columnID string, value any) error
}

// ComplexityError is the external API's cost-based rejection, distinct from
// plain HTTP rate limiting. Fetchers return it when the provider reports an
// exhausted complexity budget.
type ComplexityError struct {
	Message string
}

func (e *ComplexityError) Error() string {
	return fmt.Sprintf("complexity budget exhausted: %s", e.Message)
}

// IsComplexity reports whether err is (or wraps) a ComplexityError.
func IsComplexity(err error) bool {
	var ce *ComplexityError
	return errors.As(err, &ce)
}
