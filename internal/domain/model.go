package domain

import "time"

// StatusPending is the status of a job that exists but has never been scanned.
const StatusPending = "Pending"

// MaxScanCount is the highest stage a job can reach. Scans past this point
// saturate the counter but are still recorded as events.
const MaxScanCount = 3

// StageLabels maps the three scan stages to their human-readable status
// strings. Labels come from configuration, not constants; different floors
// name their stages differently.
type StageLabels struct {
	Stage1 string
	Stage2 string
	Stage3 string
}

// StatusFor returns the status string for a given scan count. It is total:
// any count at or below zero is Pending, anything at or above MaxScanCount
// gets the final stage label.
func (l StageLabels) StatusFor(count int) string {
	switch {
	case count <= 0:
		return StatusPending
	case count == 1:
		return l.Stage1
	case count == 2:
		return l.Stage2
	default:
		return l.Stage3
	}
}

// NextCount returns the scan count after one more scan, saturating at
// MaxScanCount. It never decrements.
func NextCount(current int) int {
	if current >= MaxScanCount {
		return MaxScanCount
	}
	if current < 0 {
		current = 0
	}
	return current + 1
}

// Advance applies a single scan to the current count.
func (l StageLabels) Advance(current int) (next int, status string) {
	next = NextCount(current)
	return next, l.StatusFor(next)
}

// ScanRecord is the durable per-item scan state. One row per external item id.
type ScanRecord struct {
	ItemID        string
	ScanCount     int
	Status        string
	LastScannedAt time.Time
}

// ScanState is the compact projection served to dashboard clients.
type ScanState struct {
	ScanCount int    `json:"scan_count"`
	Status    string `json:"status"`
}

// State returns the dashboard projection of the record.
func (r ScanRecord) State() ScanState {
	return ScanState{ScanCount: r.ScanCount, Status: r.Status}
}

// ScanEvent is one append-only audit row per advance, including saturated
// scans. Events are write-once and never read back by the engine.
type ScanEvent struct {
	ItemID     string
	ScanNumber int
	NewStatus  string
	ScannedAt  time.Time
}
