// Package scan advances jobs through the fixed production stages and mirrors
// the result onto the external board.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"floorboard/internal/domain"
	"floorboard/internal/ports"
)

// ErrMirrorUpdate marks a board column update that failed after the internal
// advance already committed. The internal counter stays authoritative.
var ErrMirrorUpdate = errors.New("board column update failed")

type Service struct {
	store           ports.ScanStore
	updater         ports.ColumnUpdater
	labels          domain.StageLabels
	statusColumn    string
	checkedInColumn string
	logger          *slog.Logger
}

func New(store ports.ScanStore, updater ports.ColumnUpdater, labels domain.StageLabels, statusColumn, checkedInColumn string, logger *slog.Logger) *Service {
	return &Service{
		store:           store,
		updater:         updater,
		labels:          labels,
		statusColumn:    statusColumn,
		checkedInColumn: checkedInColumn,
		logger:          logger,
	}
}

// Advance commits one scan of itemID and pushes the transition outward.
// A failed push never rolls back the committed advance: the physical scan
// happened, so the record is returned alongside ErrMirrorUpdate.
func (s *Service) Advance(ctx context.Context, itemID string) (domain.ScanRecord, error) {
	rec, err := s.store.Advance(ctx, itemID)
	if err != nil {
		return domain.ScanRecord{}, err
	}

	if err := s.project(ctx, rec); err != nil {
		s.logger.Error("column update failed after committed advance",
			"item_id", rec.ItemID, "scan_count", rec.ScanCount, "error", err)
		return rec, fmt.Errorf("%w: %v", ErrMirrorUpdate, err)
	}
	if err := s.store.MarkMirrored(ctx, rec.ItemID, rec.LastScannedAt); err != nil {
		s.logger.Warn("mark mirrored failed", "item_id", rec.ItemID, "error", err)
	}
	return rec, nil
}

// project pushes only the fields this transition changes: the checkbox flips
// exactly once at count 1, the status label follows counts 2 and 3.
func (s *Service) project(ctx context.Context, rec domain.ScanRecord) error {
	if rec.ScanCount == 1 && s.checkedInColumn != "" {
		if err := s.updater.ChangeColumnValue(ctx, rec.ItemID, s.checkedInColumn, map[string]string{"checked": "true"}); err != nil {
			return err
		}
	}
	if rec.ScanCount >= 2 && s.statusColumn != "" {
		if err := s.updater.ChangeColumnValue(ctx, rec.ItemID, s.statusColumn, map[string]string{"label": s.statusLabel(rec.ScanCount)}); err != nil {
			return err
		}
	}
	return nil
}

// Mirror pushes the full current state of rec, not just one transition. The
// reconciler uses it to repair lagging records whose intermediate pushes were
// lost; re-setting the checkbox is safe because the fields are idempotent.
func (s *Service) Mirror(ctx context.Context, rec domain.ScanRecord) error {
	if rec.ScanCount >= 1 && s.checkedInColumn != "" {
		if err := s.updater.ChangeColumnValue(ctx, rec.ItemID, s.checkedInColumn, map[string]string{"checked": "true"}); err != nil {
			return err
		}
	}
	if rec.ScanCount >= 2 && s.statusColumn != "" {
		if err := s.updater.ChangeColumnValue(ctx, rec.ItemID, s.statusColumn, map[string]string{"label": s.statusLabel(rec.ScanCount)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) statusLabel(count int) string {
	if count >= domain.MaxScanCount {
		return s.labels.Stage3
	}
	return s.labels.Stage2
}

// States returns the compact per-item projection used to paint progress
// indicators.
func (s *Service) States(ctx context.Context) (map[string]domain.ScanState, error) {
	recs, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.ScanState, len(recs))
	for _, rec := range recs {
		out[rec.ItemID] = rec.State()
	}
	return out, nil
}
