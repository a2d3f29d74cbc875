package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorboard/internal/domain"
)

var labels = domain.StageLabels{Stage1: "Checked In", Stage2: "In Production", Stage3: "Completed"}

// memStore reproduces the store contract in memory: per-item serialized
// read-modify-write plus unconditional event append.
type memStore struct {
	mu       sync.Mutex
	records  map[string]domain.ScanRecord
	events   []domain.ScanEvent
	mirrored map[string]time.Time
	failWith error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.ScanRecord), mirrored: make(map[string]time.Time)}
}

func (m *memStore) Advance(_ context.Context, itemID string) (domain.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return domain.ScanRecord{}, m.failWith
	}
	rec, ok := m.records[itemID]
	if !ok {
		rec = domain.ScanRecord{ItemID: itemID, Status: domain.StatusPending}
	}
	next, status := labels.Advance(rec.ScanCount)
	rec.ScanCount = next
	rec.Status = status
	rec.LastScannedAt = time.Now()
	m.records[itemID] = rec
	m.events = append(m.events, domain.ScanEvent{ItemID: itemID, ScanNumber: next, NewStatus: status, ScannedAt: rec.LastScannedAt})
	return rec, nil
}

func (m *memStore) All(context.Context) ([]domain.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]domain.ScanRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) ListUnmirrored(context.Context, int) ([]domain.ScanRecord, error) {
	return nil, nil
}

func (m *memStore) MarkMirrored(_ context.Context, itemID string, asOf time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrored[itemID] = asOf
	return nil
}

type columnCall struct {
	itemID, columnID string
	value            any
}

type memUpdater struct {
	mu       sync.Mutex
	calls    []columnCall
	failWith error
}

func (u *memUpdater) ChangeColumnValue(_ context.Context, itemID, columnID string, value any) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return u.failWith
	}
	u.calls = append(u.calls, columnCall{itemID, columnID, value})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store *memStore, updater *memUpdater) *Service {
	return New(store, updater, labels, "status_col", "checkin_col", testLogger())
}

func TestAdvanceThreeScans(t *testing.T) {
	store := newMemStore()
	updater := &memUpdater{}
	svc := newService(store, updater)
	ctx := context.Background()

	var statuses []string
	for i := 0; i < 3; i++ {
		rec, err := svc.Advance(ctx, "501")
		require.NoError(t, err)
		statuses = append(statuses, rec.Status)
	}
	assert.Equal(t, []string{"Checked In", "In Production", "Completed"}, statuses)

	require.Len(t, store.events, 3)
	for i, ev := range store.events {
		assert.Equal(t, i+1, ev.ScanNumber)
	}

	// Scan 1 flips the checkbox; scans 2 and 3 set the status label.
	require.Len(t, updater.calls, 3)
	assert.Equal(t, "checkin_col", updater.calls[0].columnID)
	assert.Equal(t, map[string]string{"checked": "true"}, updater.calls[0].value)
	assert.Equal(t, "status_col", updater.calls[1].columnID)
	assert.Equal(t, map[string]string{"label": "In Production"}, updater.calls[1].value)
	assert.Equal(t, map[string]string{"label": "Completed"}, updater.calls[2].value)
}

func TestAdvanceFourthScanSaturates(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &memUpdater{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Advance(ctx, "501")
		require.NoError(t, err)
	}

	rec := store.records["501"]
	assert.Equal(t, 3, rec.ScanCount)
	assert.Equal(t, "Completed", rec.Status)

	// Saturated scans still append events at the capped count.
	require.Len(t, store.events, 4)
	assert.Equal(t, 3, store.events[3].ScanNumber)
}

func TestAdvanceConcurrentSameItem(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &memUpdater{})
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Advance(ctx, "501")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, store.records["501"].ScanCount)
	assert.Len(t, store.events, n)
}

func TestAdvanceDifferentItemsIndependent(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &memUpdater{})
	ctx := context.Background()

	_, err := svc.Advance(ctx, "501")
	require.NoError(t, err)
	rec, err := svc.Advance(ctx, "502")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ScanCount)
}

func TestAdvanceMirrorFailureKeepsCommit(t *testing.T) {
	store := newMemStore()
	updater := &memUpdater{failWith: errors.New("monday down")}
	svc := newService(store, updater)

	rec, err := svc.Advance(context.Background(), "501")
	require.ErrorIs(t, err, ErrMirrorUpdate)

	// The advance is committed and returned despite the failed push.
	assert.Equal(t, 1, rec.ScanCount)
	assert.Equal(t, 1, store.records["501"].ScanCount)
	require.Len(t, store.events, 1)
	// And it is not marked mirrored, so the reconciler can repair it.
	assert.Empty(t, store.mirrored)
}

func TestAdvanceStorageFailureTouchesNothingExternal(t *testing.T) {
	store := newMemStore()
	store.failWith = errors.New("db unreachable")
	updater := &memUpdater{}
	svc := newService(store, updater)

	_, err := svc.Advance(context.Background(), "501")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMirrorUpdate)
	assert.Empty(t, updater.calls)
}

func TestAdvanceWithoutConfiguredColumns(t *testing.T) {
	store := newMemStore()
	updater := &memUpdater{}
	svc := New(store, updater, labels, "", "", testLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Advance(context.Background(), "501")
		require.NoError(t, err)
	}
	assert.Empty(t, updater.calls)
}

func TestMirrorPushesFullState(t *testing.T) {
	updater := &memUpdater{}
	svc := newService(newMemStore(), updater)
	rec := domain.ScanRecord{ItemID: "501", ScanCount: 3, Status: "Completed"}

	require.NoError(t, svc.Mirror(context.Background(), rec))
	require.Len(t, updater.calls, 2)
	assert.Equal(t, "checkin_col", updater.calls[0].columnID)
	assert.Equal(t, map[string]string{"label": "Completed"}, updater.calls[1].value)
}

func TestStates(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &memUpdater{})
	ctx := context.Background()

	_, err := svc.Advance(ctx, "501")
	require.NoError(t, err)
	_, err = svc.Advance(ctx, "502")
	require.NoError(t, err)
	_, err = svc.Advance(ctx, "502")
	require.NoError(t, err)

	states, err := svc.States(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanState{ScanCount: 1, Status: "Checked In"}, states["501"])
	assert.Equal(t, domain.ScanState{ScanCount: 2, Status: "In Production"}, states["502"])
}
