package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"floorboard/internal/domain"
)

// ScanStore is the Postgres-backed scan state store. The row lock taken in
// Advance serializes concurrent scans of the same item id; different items
// never block each other.
type ScanStore struct {
	db     *DB
	labels domain.StageLabels
}

func NewScanStore(db *DB, labels domain.StageLabels) *ScanStore {
	return &ScanStore{db: db, labels: labels}
}

// Advance creates the record lazily, bumps the saturating counter, and
// appends the audit event in one transaction. Saturated scans still append
// an event at the capped count.
func (s *ScanStore) Advance(ctx context.Context, itemID string) (rec domain.ScanRecord, err error) {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rec, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO job_scans (item_id, scan_count, status)
		VALUES ($1, 0, $2)
		ON CONFLICT (item_id) DO NOTHING
	`, itemID, domain.StatusPending); err != nil {
		return rec, err
	}

	var current int
	if err = tx.QueryRow(ctx, `
		SELECT scan_count FROM job_scans WHERE item_id = $1 FOR UPDATE
	`, itemID).Scan(&current); err != nil {
		return rec, err
	}

	next, status := s.labels.Advance(current)
	rec = domain.ScanRecord{ItemID: itemID, ScanCount: next, Status: status}
	if err = tx.QueryRow(ctx, `
		UPDATE job_scans SET scan_count = $2, status = $3, last_scanned_at = now()
		WHERE item_id = $1
		RETURNING last_scanned_at
	`, itemID, next, status).Scan(&rec.LastScannedAt); err != nil {
		return rec, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO job_scan_events (id, item_id, scan_number, new_status)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), itemID, next, status); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *ScanStore) All(ctx context.Context) ([]domain.ScanRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT item_id, scan_count, status, last_scanned_at FROM job_scans
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(&rec.ItemID, &rec.ScanCount, &rec.Status, &rec.LastScannedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListUnmirrored returns scanned records whose latest state has not reached
// the external board, oldest first.
func (s *ScanStore) ListUnmirrored(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT item_id, scan_count, status, last_scanned_at FROM job_scans
		WHERE scan_count > 0 AND (mirrored_at IS NULL OR mirrored_at < last_scanned_at)
		ORDER BY last_scanned_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(&rec.ItemID, &rec.ScanCount, &rec.Status, &rec.LastScannedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkMirrored stamps the record as mirrored as of asOf. A scan committed
// after asOf keeps mirrored_at behind last_scanned_at, so the record stays
// eligible for reconciliation.
func (s *ScanStore) MarkMirrored(ctx context.Context, itemID string, asOf time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE job_scans SET mirrored_at = $2 WHERE item_id = $1
	`, itemID, asOf)
	return err
}
