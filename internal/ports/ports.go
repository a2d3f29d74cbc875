package ports

import (
	"context"

	"floorboard/internal/domain"
)

// Scanner advances scan state and reports it.
type Scanner interface {
	Advance(ctx context.Context, itemID string) (domain.ScanRecord, error)
	States(ctx context.Context) (map[string]domain.ScanState, error)
}

// BoardReader serves the cached, normalized board snapshot.
type BoardReader interface {
	Snapshot(ctx context.Context) (*domain.BoardSnapshot, error)
}

// TokenSource exposes the current external-board credential. An empty token
// means the process is not authenticated.
type TokenSource interface {
	Token() string
}
