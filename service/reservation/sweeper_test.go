package reservation

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemreserve/model"
	"itemreserve/notifier"
	"itemreserve/util/clockx"
	"itemreserve/util/database"
)

// fakeStore is an in-memory stand-in for the reservation, item and record
// tables, with the same CAS semantics the SQL repos implement. Sweep tests
// drive it through the function-field mocks below.
type fakeStore struct {
	mu    sync.Mutex
	res   map[int64]*model.Reservation
	items map[int64]model.ItemStatus
	recs  map[int64]*model.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		res:   map[int64]*model.Reservation{},
		items: map[int64]model.ItemStatus{},
		recs:  map[int64]*model.Record{},
	}
}

func (f *fakeStore) resRepo() *resRepoMock {
	return &resRepoMock{
		getForUpdateFn: func(_ context.Context, _ *sql.Tx, id int64) (*model.Reservation, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			r, ok := f.res[id]
			if !ok {
				return nil, sql.ErrNoRows
			}
			cp := *r
			return &cp, nil
		},
		listDueFn: func(_ context.Context, st model.ReservationStatus, now time.Time) ([]model.Reservation, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var out []model.Reservation
			for _, r := range f.res {
				if r.Status == st && !now.Before(r.Start) {
					out = append(out, *r)
				}
			}
			return out, nil
		},
		listByStatusFn: func(_ context.Context, st model.ReservationStatus) ([]model.Reservation, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var out []model.Reservation
			for _, r := range f.res {
				if r.Status == st {
					out = append(out, *r)
				}
			}
			return out, nil
		},
		listDueReminderFn: func(_ context.Context, from, to time.Time) ([]model.Reservation, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var out []model.Reservation
			for _, r := range f.res {
				if r.Status == model.ReservationScheduled && r.ReminderSentAt == nil &&
					r.Start.After(from) && !r.Start.After(to) {
					out = append(out, *r)
				}
			}
			return out, nil
		},
		markReminderFn: func(_ context.Context, _ *sql.Tx, id int64, at time.Time) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			t := at
			f.res[id].ReminderSentAt = &t
			return nil
		},
		updateStatusFn: func(_ context.Context, _ database.Execer, id int64, from, to model.ReservationStatus) (bool, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			r, ok := f.res[id]
			if !ok || r.Status != from {
				return false, nil
			}
			r.Status = to
			return true, nil
		},
	}
}

func (f *fakeStore) itemRepo() *itemRepoMock {
	return &itemRepoMock{
		transitionFn: func(_ context.Context, _ database.Execer, id int64, from, to model.ItemStatus) (bool, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.items[id] != from {
				return false, nil
			}
			f.items[id] = to
			return true, nil
		},
	}
}

func (f *fakeStore) recordRepo() *recordRepoMock {
	return &recordRepoMock{
		findUsingFn: func(_ context.Context, itemID int64) (*model.Record, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, rec := range f.recs {
				if rec.ItemID == itemID && rec.Status == model.RecordUsing {
					cp := *rec
					return &cp, nil
				}
			}
			return nil, nil
		},
	}
}

func (f *fakeStore) status(id int64) model.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res[id].Status
}

func (f *fakeStore) itemStatus(id int64) model.ItemStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeStore) setItem(id int64, st model.ItemStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = st
}

func newTestSweeper(t *testing.T, f *fakeStore, clock clockx.Clock, spy *notifierSpy) (*Sweeper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewSweeper(db, f.resRepo(), f.itemRepo(), f.recordRepo(), clock, spy, testPolicy, log), mock
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSweepActivatesDueReservation(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationScheduled,
		Start: start, End: start.Add(4 * time.Hour)}
	f.items[10] = model.ItemAvailable

	clock := clockx.NewFixed(start.Add(65 * time.Minute))
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Activated)
	assert.Zero(t, st.Errors)
	assert.Equal(t, model.ReservationActive, f.status(1))
	assert.Equal(t, model.ItemReserved, f.itemStatus(10))

	// A second pass at the same instant must be a no-op.
	st2 := sw.RunOnce(context.Background())
	assert.Equal(t, Stats{}, st2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepConflictsWhenItemHeld(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationScheduled,
		Start: start, End: start.Add(4 * time.Hour)}
	f.items[10] = model.ItemBorrowed
	f.recs[20] = &model.Record{ID: 20, ItemID: 10, UserID: 2, Status: model.RecordUsing}

	clock := clockx.NewFixed(start.Add(5 * time.Minute))
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()
	// Same pass re-checks the now-conflicted reservation; the item is still
	// held, so that claim attempt rolls back.
	mock.ExpectBegin()
	mock.ExpectRollback()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Conflicted)
	assert.Equal(t, model.ReservationConflicted, f.status(1))
	assert.Equal(t, model.ItemBorrowed, f.itemStatus(10))

	// The current holder gets asked to bring the item back.
	asked := spy.byKind(notifier.KindConflictReturnRequest)
	require.Len(t, asked, 1)
	assert.Equal(t, int64(2), asked[0].UserID)
	assert.Equal(t, int64(20), asked[0].RecordID)

	// Holder returns the item: the next pass reactivates the reservation.
	f.setItem(10, model.ItemAvailable)
	clock.Advance(10 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st2 := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st2.Reactivated)
	assert.Equal(t, model.ReservationActive, f.status(1))
	assert.Equal(t, model.ItemReserved, f.itemStatus(10))

	ready := spy.byKind(notifier.KindReservationReady)
	require.Len(t, ready, 1)
	assert.Equal(t, int64(1), ready[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpiresConflictedPastEnd(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationConflicted,
		Start: start, End: start.Add(time.Hour)}
	f.items[10] = model.ItemBorrowed

	clock := clockx.NewFixed(start.Add(2 * time.Hour))
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Expired)
	assert.Equal(t, model.ReservationExpired, f.status(1))
	assert.Len(t, spy.byKind(notifier.KindReservationExpired), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpiresActivePastEnd(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationActive,
		Start: start, End: start.Add(time.Hour)}
	f.items[10] = model.ItemReserved

	clock := clockx.NewFixed(start.Add(61 * time.Minute))
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Expired)
	assert.Equal(t, model.ReservationExpired, f.status(1))
	assert.Equal(t, model.ItemAvailable, f.itemStatus(10), "hold released on expiry")
	assert.Len(t, spy.byKind(notifier.KindReservationExpired), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpiresUnclaimedPickup(t *testing.T) {
	// Week-long window, but the item was never picked up: the pickup grace
	// period lapses long before the end.
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationActive,
		Start: start, End: start.Add(6 * 24 * time.Hour)}
	f.items[10] = model.ItemReserved

	clock := clockx.NewFixed(start.Add(testPolicy.OverduePickup + time.Minute))
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Expired)
	assert.Equal(t, model.ReservationExpired, f.status(1))
	assert.Equal(t, model.ItemAvailable, f.itemStatus(10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepReminderSentOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationScheduled,
		Start: now.Add(11*time.Hour + 30*time.Minute), End: now.Add(15 * time.Hour)}
	f.items[10] = model.ItemAvailable

	clock := clockx.NewFixed(now)
	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clock, spy)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := sw.RunOnce(context.Background())
	assert.Equal(t, 1, st.Reminders)
	require.NotNil(t, f.res[1].ReminderSentAt)

	// Still inside the lead window, but the flag suppresses a repeat.
	clock.Advance(10 * time.Minute)
	st2 := sw.RunOnce(context.Background())
	assert.Zero(t, st2.Reminders)
	assert.Len(t, spy.byKind(notifier.KindReservationReminder), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsReservationCancelledBeforeLock(t *testing.T) {
	// The reservation was scheduled when listed, but a user cancelled it
	// before the sweep took the row lock. That is a skip, not a conflict:
	// nothing is counted and the item's holder is left alone.
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	res := &resRepoMock{
		listDueFn: func(_ context.Context, st model.ReservationStatus, _ time.Time) ([]model.Reservation, error) {
			if st != model.ReservationScheduled {
				return nil, nil
			}
			return []model.Reservation{{ID: 1, ItemID: 10, UserID: 1,
				Status: model.ReservationScheduled, Start: start, End: start.Add(4 * time.Hour)}}, nil
		},
		getForUpdateFn: func(_ context.Context, _ *sql.Tx, id int64) (*model.Reservation, error) {
			return &model.Reservation{ID: id, ItemID: 10, UserID: 1,
				Status: model.ReservationCancelled, Start: start, End: start.Add(4 * time.Hour)}, nil
		},
	}
	recs := &recordRepoMock{
		findUsingFn: func(_ context.Context, itemID int64) (*model.Record, error) {
			return &model.Record{ID: 20, ItemID: itemID, UserID: 2, Status: model.RecordUsing}, nil
		},
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	mock.ExpectRollback()

	spy := &notifierSpy{}
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	sw := NewSweeper(db, res, &itemRepoMock{}, recs,
		clockx.NewFixed(start.Add(5*time.Minute)), spy, testPolicy, log)

	st := sw.RunOnce(context.Background())
	assert.Equal(t, Stats{}, st)
	assert.Empty(t, spy.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsFutureScheduled(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.res[1] = &model.Reservation{ID: 1, ItemID: 10, UserID: 1, Status: model.ReservationScheduled,
		Start: now.Add(48 * time.Hour), End: now.Add(50 * time.Hour)}
	f.items[10] = model.ItemAvailable

	spy := &notifierSpy{}
	sw, mock := newTestSweeper(t, f, clockx.NewFixed(now), spy)

	st := sw.RunOnce(context.Background())
	assert.Equal(t, Stats{}, st)
	assert.Equal(t, model.ReservationScheduled, f.status(1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
