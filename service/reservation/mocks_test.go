package reservation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"itemreserve/model"
	"itemreserve/notifier"
	itemrepo "itemreserve/repository/item"
	recordrepo "itemreserve/repository/record"
	resrepo "itemreserve/repository/reservation"
	spacerepo "itemreserve/repository/space"
	"itemreserve/util/database"
)

// function-field mocks in the shape of the repository interfaces; nil
// fields fall back to harmless defaults.

type resRepoMock struct {
	insertFn          func(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
	getFn             func(ctx context.Context, id int64) (*model.Reservation, error)
	getForUpdateFn    func(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error)
	listFn            func(ctx context.Context, f resrepo.Filter) ([]model.Reservation, error)
	findOverlappingFn func(ctx context.Context, tx *sql.Tx, itemID int64, iv model.Interval) (*resrepo.Blocking, error)
	updateStatusFn    func(ctx context.Context, ex database.Execer, id int64, from, to model.ReservationStatus) (bool, error)
	listByStatusFn    func(ctx context.Context, st model.ReservationStatus) ([]model.Reservation, error)
	listDueFn         func(ctx context.Context, st model.ReservationStatus, now time.Time) ([]model.Reservation, error)
	listDueReminderFn func(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	markReminderFn    func(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	findConsumableFn  func(ctx context.Context, tx *sql.Tx, itemID, userID int64) (*model.Reservation, error)
}

var _ resrepo.Repo = (*resRepoMock)(nil)

func (m *resRepoMock) Insert(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	if m.insertFn == nil {
		r.ID = 1
		r.Status = model.ReservationScheduled
		return nil
	}
	return m.insertFn(ctx, tx, r)
}

func (m *resRepoMock) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	if m.getFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getFn(ctx, id)
}

func (m *resRepoMock) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error) {
	if m.getForUpdateFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getForUpdateFn(ctx, tx, id)
}

func (m *resRepoMock) List(ctx context.Context, f resrepo.Filter) ([]model.Reservation, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, f)
}

func (m *resRepoMock) FindOverlapping(ctx context.Context, tx *sql.Tx, itemID int64, iv model.Interval) (*resrepo.Blocking, error) {
	if m.findOverlappingFn == nil {
		return nil, nil
	}
	return m.findOverlappingFn(ctx, tx, itemID, iv)
}

func (m *resRepoMock) UpdateStatus(ctx context.Context, ex database.Execer, id int64, from, to model.ReservationStatus) (bool, error) {
	if m.updateStatusFn == nil {
		return true, nil
	}
	return m.updateStatusFn(ctx, ex, id, from, to)
}

func (m *resRepoMock) ListByStatus(ctx context.Context, st model.ReservationStatus) ([]model.Reservation, error) {
	if m.listByStatusFn == nil {
		return nil, nil
	}
	return m.listByStatusFn(ctx, st)
}

func (m *resRepoMock) ListDue(ctx context.Context, st model.ReservationStatus, now time.Time) ([]model.Reservation, error) {
	if m.listDueFn == nil {
		return nil, nil
	}
	return m.listDueFn(ctx, st, now)
}

func (m *resRepoMock) ListDueReminder(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	if m.listDueReminderFn == nil {
		return nil, nil
	}
	return m.listDueReminderFn(ctx, from, to)
}

func (m *resRepoMock) MarkReminderSent(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	if m.markReminderFn == nil {
		return nil
	}
	return m.markReminderFn(ctx, tx, id, at)
}

func (m *resRepoMock) FindConsumable(ctx context.Context, tx *sql.Tx, itemID, userID int64) (*model.Reservation, error) {
	if m.findConsumableFn == nil {
		return nil, nil
	}
	return m.findConsumableFn(ctx, tx, itemID, userID)
}

type itemRepoMock struct {
	createFn       func(ctx context.Context, it *model.Item) error
	getFn          func(ctx context.Context, id int64) (*model.Item, error)
	getForUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error)
	listFn         func(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error)
	updateFn       func(ctx context.Context, id int64, name, function, serial string, spaceID int64) error
	deleteFn       func(ctx context.Context, id int64) error
	transitionFn   func(ctx context.Context, ex database.Execer, id int64, from, to model.ItemStatus) (bool, error)
}

var _ itemrepo.Repo = (*itemRepoMock)(nil)

func (m *itemRepoMock) Create(ctx context.Context, it *model.Item) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, it)
}

func (m *itemRepoMock) Get(ctx context.Context, id int64) (*model.Item, error) {
	if m.getFn == nil {
		return &model.Item{ID: id, Status: model.ItemAvailable, SpaceID: 1}, nil
	}
	return m.getFn(ctx, id)
}

func (m *itemRepoMock) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
	if m.getForUpdateFn == nil {
		return &model.Item{ID: id, Status: model.ItemAvailable, SpaceID: 1}, nil
	}
	return m.getForUpdateFn(ctx, tx, id)
}

func (m *itemRepoMock) List(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, status, spaceID)
}

func (m *itemRepoMock) Update(ctx context.Context, id int64, name, function, serial string, spaceID int64) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, id, name, function, serial, spaceID)
}

func (m *itemRepoMock) Delete(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, id)
}

func (m *itemRepoMock) Transition(ctx context.Context, ex database.Execer, id int64, from, to model.ItemStatus) (bool, error) {
	if m.transitionFn == nil {
		return true, nil
	}
	return m.transitionFn(ctx, ex, id, from, to)
}

type recordRepoMock struct {
	insertFn       func(ctx context.Context, tx *sql.Tx, rec *model.Record) error
	getFn          func(ctx context.Context, id int64) (*model.Record, error)
	getForUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Record, error)
	markReturnedFn func(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error)
	findUsingFn    func(ctx context.Context, itemID int64) (*model.Record, error)
	listFn         func(ctx context.Context, f recordrepo.Filter) ([]recordrepo.HistoryRow, int, error)
	listOverdueFn  func(ctx context.Context, before time.Time) ([]model.Record, error)
}

var _ recordrepo.Repo = (*recordRepoMock)(nil)

func (m *recordRepoMock) Insert(ctx context.Context, tx *sql.Tx, rec *model.Record) error {
	if m.insertFn == nil {
		rec.ID = 1
		rec.Status = model.RecordUsing
		return nil
	}
	return m.insertFn(ctx, tx, rec)
}

func (m *recordRepoMock) Get(ctx context.Context, id int64) (*model.Record, error) {
	if m.getFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getFn(ctx, id)
}

func (m *recordRepoMock) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Record, error) {
	if m.getForUpdateFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getForUpdateFn(ctx, tx, id)
}

func (m *recordRepoMock) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error) {
	if m.markReturnedFn == nil {
		return true, nil
	}
	return m.markReturnedFn(ctx, tx, id, at)
}

func (m *recordRepoMock) FindUsingByItem(ctx context.Context, itemID int64) (*model.Record, error) {
	if m.findUsingFn == nil {
		return nil, nil
	}
	return m.findUsingFn(ctx, itemID)
}

func (m *recordRepoMock) List(ctx context.Context, f recordrepo.Filter) ([]recordrepo.HistoryRow, int, error) {
	if m.listFn == nil {
		return nil, 0, nil
	}
	return m.listFn(ctx, f)
}

func (m *recordRepoMock) ListOverdue(ctx context.Context, before time.Time) ([]model.Record, error) {
	if m.listOverdueFn == nil {
		return nil, nil
	}
	return m.listOverdueFn(ctx, before)
}

type spaceRepoMock struct {
	pathFn func(ctx context.Context, id int64) (string, error)
}

var _ spacerepo.Repo = (*spaceRepoMock)(nil)

func (m *spaceRepoMock) Get(ctx context.Context, id int64) (*model.Space, error) {
	return &model.Space{ID: id, Name: "lab"}, nil
}

func (m *spaceRepoMock) List(ctx context.Context) ([]model.Space, error) { return nil, nil }

func (m *spaceRepoMock) Path(ctx context.Context, id int64) (string, error) {
	if m.pathFn == nil {
		return "lab/shelf-1", nil
	}
	return m.pathFn(ctx, id)
}

// notifierSpy records notifications for assertions.
type notifierSpy struct {
	mu   sync.Mutex
	sent []notifier.Notification
}

func (n *notifierSpy) Notify(_ context.Context, msg notifier.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *notifierSpy) byKind(k notifier.Kind) []notifier.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifier.Notification
	for _, m := range n.sent {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}
