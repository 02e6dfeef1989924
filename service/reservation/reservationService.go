package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"itemreserve/model"
	itemrepo "itemreserve/repository/item"
	recordrepo "itemreserve/repository/record"
	resrepo "itemreserve/repository/reservation"
	spacerepo "itemreserve/repository/space"
	"itemreserve/util/clockx"
)

// Policy bundles the configured reservation limits.
type Policy struct {
	MaxSpan       time.Duration
	OverduePickup time.Duration
	ReminderFrom  time.Duration
	ReminderTo    time.Duration
}

type Service interface {
	// Create validates the interval and inserts a scheduled reservation,
	// rejecting overlaps with any blocking reservation for the item. The
	// conflict check and the insert run under the item row lock.
	Create(ctx context.Context, userID, itemID int64, start, end time.Time, notes string) (*model.Reservation, error)

	// Cancel moves a non-terminal reservation to cancelled. Owner or admin only.
	Cancel(ctx context.Context, id, actorID int64, admin bool) error

	// Consume turns an active reservation into a usage record, moving the
	// item to borrowed. Reservation update, item transition and record
	// insert commit atomically.
	Consume(ctx context.Context, id, actorID int64, location string) (*model.Record, error)

	Get(ctx context.Context, id int64) (*model.Reservation, error)
	List(ctx context.Context, f resrepo.Filter) ([]model.Reservation, error)
}

type service struct {
	db     *sql.DB
	res    resrepo.Repo
	items  itemrepo.Repo
	recs   recordrepo.Repo
	spaces spacerepo.Repo
	clock  clockx.Clock
	pol    Policy
}

func New(db *sql.DB, res resrepo.Repo, items itemrepo.Repo, recs recordrepo.Repo, spaces spacerepo.Repo, clock clockx.Clock, pol Policy) Service {
	return &service{db: db, res: res, items: items, recs: recs, spaces: spaces, clock: clock, pol: pol}
}

func (s *service) Create(ctx context.Context, userID, itemID int64, start, end time.Time, notes string) (_ *model.Reservation, err error) {
	iv := model.Interval{Start: start.UTC(), End: end.UTC()}
	if verr := iv.Validate(s.clock.Now(), s.pol.MaxSpan); verr != nil {
		return nil, makeErr(ErrValidation, verr.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Item row lock serializes concurrent conflict checks for this item.
	if _, err = s.items.GetForUpdate(ctx, tx, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "item not found")
		}
		return nil, err
	}

	blocking, err := s.res.FindOverlapping(ctx, tx, itemID, iv)
	if err != nil {
		return nil, err
	}
	if blocking != nil {
		return nil, codedError{
			code:      ErrConflict,
			msg:       fmt.Sprintf("time window already reserved by %s", blocking.OwnerName),
			blockedBy: blocking.OwnerName,
		}
	}

	res := &model.Reservation{
		ItemID: itemID,
		UserID: userID,
		Start:  iv.Start,
		End:    iv.End,
		Notes:  notes,
	}
	if err = s.res.Insert(ctx, tx, res); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) Cancel(ctx context.Context, id, actorID int64, admin bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := s.res.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound, "reservation not found")
		}
		return err
	}
	if !admin && res.UserID != actorID {
		return makeErr(ErrPermission, "not the reservation owner")
	}
	if res.Status.Terminal() {
		return makeErr(ErrInvalidState, fmt.Sprintf("cannot cancel a %s reservation", res.Status))
	}

	ok, err := s.res.UpdateStatus(ctx, tx, id, res.Status, model.ReservationCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrLostRace, "reservation changed concurrently")
	}

	// An active reservation holds the item in reserved; release it. The
	// CAS simply misses when the item is held by something else.
	if res.Status == model.ReservationActive {
		if _, err = s.items.Transition(ctx, tx, res.ItemID, model.ItemReserved, model.ItemAvailable); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *service) Consume(ctx context.Context, id, actorID int64, location string) (_ *model.Record, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Peek without locking to learn the item, then take locks in the same
	// order as record.Begin: item row first, reservation row second.
	peek, err := s.res.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "reservation not found")
		}
		return nil, err
	}

	it, err := s.items.GetForUpdate(ctx, tx, peek.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "item not found")
		}
		return nil, err
	}

	res, err := s.res.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "reservation not found")
		}
		return nil, err
	}
	if res.UserID != actorID {
		return nil, makeErr(ErrPermission, "not the reservation owner")
	}
	if res.Status != model.ReservationActive {
		return nil, makeErr(ErrInvalidState, fmt.Sprintf("reservation is %s, not active", res.Status))
	}

	// An active reservation grants the right to the window, but the item
	// may have been borrowed out-of-band; re-check at consumption time.
	claimed, err := s.items.Transition(ctx, tx, it.ID, model.ItemReserved, model.ItemBorrowed)
	if err != nil {
		return nil, err
	}
	if !claimed {
		claimed, err = s.items.Transition(ctx, tx, it.ID, model.ItemAvailable, model.ItemBorrowed)
		if err != nil {
			return nil, err
		}
	}
	if !claimed {
		return nil, makeErr(ErrItemUnavailable, "item is not available right now")
	}

	ok, err := s.res.UpdateStatus(ctx, tx, id, model.ReservationActive, model.ReservationUsed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrLostRace, "reservation changed concurrently")
	}

	spacePath, err := s.spaces.Path(ctx, it.SpaceID)
	if err != nil {
		return nil, err
	}
	rec := &model.Record{
		ItemID:        it.ID,
		UserID:        actorID,
		SpacePath:     spacePath,
		UsageLocation: location,
		StartTime:     s.clock.Now(),
	}
	if err = s.recs.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.res.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "reservation not found")
		}
		return nil, err
	}
	return res, nil
}

func (s *service) List(ctx context.Context, f resrepo.Filter) ([]model.Reservation, error) {
	return s.res.List(ctx, f)
}
