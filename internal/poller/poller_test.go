package poller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitble/bridge/internal/models"
	"github.com/profitble/bridge/internal/store"
)

// fakeReader serves scripted foreign rows above the requested id.
type fakeReader struct {
	mu   sync.Mutex
	rows []models.ForeignRow
	err  error
}

func (r *fakeReader) ListNewRows(ctx context.Context, sinceID int64) ([]models.ForeignRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.ForeignRow
	for _, row := range r.rows {
		if row.ForeignID > sinceID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeReader) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// collectingHub records broadcast events in order.
type collectingHub struct {
	mu     sync.Mutex
	events []models.Event
}

func (h *collectingHub) Broadcast(event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *collectingHub) all() []models.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Event(nil), h.events...)
}

// advanceFailingStore simulates a crash between persist and advance by
// failing AdvanceCheckpoint a scripted number of times.
type advanceFailingStore struct {
	store.MessageStore
	failures int
}

func (s *advanceFailingStore) AdvanceCheckpoint(ctx context.Context, id int64) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("simulated crash before advance")
	}
	return s.MessageStore.AdvanceCheckpoint(ctx, id)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state.db"), 20)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCycleAbsorbsNewRows(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.AdvanceCheckpoint(ctx, 100))

	reader := &fakeReader{rows: []models.ForeignRow{
		{ForeignID: 101, SenderID: "+1555", Text: "hi", Direction: models.Inbound, Timestamp: 1700000000},
		{ForeignID: 102, SenderID: "+1555", Text: "yo", Direction: models.Outbound, Timestamp: 1700000010},
	}}
	h := &collectingHub{}
	p := New(reader, st, h, 10*time.Millisecond, zerolog.Nop())

	require.NoError(t, p.cycle(ctx))

	history, err := st.History(ctx, "+1555", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Text)
	assert.Equal(t, "yo", history[1].Text)

	cp, err := st.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(102), cp)

	events := h.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventMessageReceived, events[0].Type)
	assert.Equal(t, "hi", events[0].Message)
	assert.Equal(t, models.EventMessageSent, events[1].Type)
	assert.Equal(t, "yo", events[1].Message)
}

func TestCycleEmptyLogIsQuiet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	h := &collectingHub{}
	p := New(&fakeReader{}, st, h, 10*time.Millisecond, zerolog.Nop())

	require.NoError(t, p.cycle(ctx))
	assert.Empty(t, h.all())

	cp, err := st.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cp)
}

func TestCycleReaderErrorLeavesCheckpoint(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.AdvanceCheckpoint(ctx, 50))

	reader := &fakeReader{}
	reader.setError(errors.New("database is locked"))
	p := New(reader, st, &collectingHub{}, 10*time.Millisecond, zerolog.Nop())

	require.Error(t, p.cycle(ctx))

	cp, err := st.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), cp)

	// The failure is transient: clearing it lets the next cycle proceed.
	reader.setError(nil)
	require.NoError(t, p.cycle(ctx))
}

func TestCrashBetweenPersistAndAdvanceRedelivers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	reader := &fakeReader{rows: []models.ForeignRow{
		{ForeignID: 1, SenderID: "+1555", Text: "survivor", Direction: models.Inbound, Timestamp: 1700000000},
	}}
	h := &collectingHub{}

	failing := &advanceFailingStore{MessageStore: st, failures: 1}
	p := New(reader, failing, h, 10*time.Millisecond, zerolog.Nop())

	// First cycle persists but "crashes" before advancing.
	require.Error(t, p.cycle(ctx))
	cp, err := st.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cp)

	// The retry re-delivers the row rather than losing it.
	require.NoError(t, p.cycle(ctx))
	cp, err = st.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cp)

	history, err := st.History(ctx, "+1555", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2, "at-least-once allows the duplicate, never a loss")
}

func TestCycleAdvancesPerRow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	reader := &fakeReader{rows: []models.ForeignRow{
		{ForeignID: 1, SenderID: "+1555", Text: "one", Direction: models.Inbound, Timestamp: 1},
		{ForeignID: 2, SenderID: "+1555", Text: "two", Direction: models.Inbound, Timestamp: 2},
	}}

	recorder := &advanceRecorder{MessageStore: st}
	p := New(reader, recorder, &collectingHub{}, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, p.cycle(ctx))

	require.Equal(t, []int64{1, 2}, recorder.advances, "checkpoint must advance per row, in order")
}

// advanceRecorder captures the sequence of AdvanceCheckpoint calls.
type advanceRecorder struct {
	store.MessageStore
	advances []int64
}

func (s *advanceRecorder) AdvanceCheckpoint(ctx context.Context, id int64) error {
	s.advances = append(s.advances, id)
	return s.MessageStore.AdvanceCheckpoint(ctx, id)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := newTestStore(t)
	p := New(&fakeReader{}, st, &collectingHub{}, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop promptly after cancellation")
	}
}
