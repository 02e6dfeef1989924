package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"itemreserve/model"
	"itemreserve/notifier"
	itemrepo "itemreserve/repository/item"
	recordrepo "itemreserve/repository/record"
	resrepo "itemreserve/repository/reservation"
	spacerepo "itemreserve/repository/space"
	"itemreserve/util/clockx"
)

// errors used by controllers

type ErrCode string

const (
	ErrItemUnavailable ErrCode = "ITEM_UNAVAILABLE"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrPermission      ErrCode = "PERMISSION"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrLostRace        ErrCode = "LOST_RACE"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Service interface {
	// Begin opens a usage record: the item must be available, or reserved
	// with the caller holding the claiming reservation. A matching
	// scheduled or active reservation is consumed in the same transaction.
	Begin(ctx context.Context, userID, itemID int64, location string) (*model.Record, error)

	// End returns the item. Owner or admin only; fails on a record that is
	// not open.
	End(ctx context.Context, recordID, actorID int64, admin bool) error

	List(ctx context.Context, f recordrepo.Filter) ([]recordrepo.HistoryRow, int, error)

	// NotifyOverdue notifies holders of records out longer than the
	// configured threshold; returns how many were notified.
	NotifyOverdue(ctx context.Context) (int, error)
}

// IsOverdue reports whether an open record has been out longer than the
// threshold. Pure; exported for callers that already hold the record.
func IsOverdue(rec *model.Record, now time.Time, threshold time.Duration) bool {
	return rec.Overdue(now, threshold)
}

type service struct {
	db      *sql.DB
	recs    recordrepo.Repo
	items   itemrepo.Repo
	res     resrepo.Repo
	spaces  spacerepo.Repo
	clock   clockx.Clock
	nt      notifier.Notifier
	overdue time.Duration
}

func New(db *sql.DB, recs recordrepo.Repo, items itemrepo.Repo, res resrepo.Repo, spaces spacerepo.Repo,
	clock clockx.Clock, nt notifier.Notifier, overdue time.Duration) Service {
	return &service{db: db, recs: recs, items: items, res: res, spaces: spaces, clock: clock, nt: nt, overdue: overdue}
}

func (s *service) Begin(ctx context.Context, userID, itemID int64, location string) (_ *model.Record, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	it, err := s.items.GetForUpdate(ctx, tx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "item not found")
		}
		return nil, err
	}

	// Early pickup consumes a scheduled reservation; a reserved item
	// demands the caller hold the active one.
	claim, err := s.res.FindConsumable(ctx, tx, itemID, userID)
	if err != nil {
		return nil, err
	}

	switch it.Status {
	case model.ItemAvailable:
		// ok
	case model.ItemReserved:
		if claim == nil || claim.Status != model.ReservationActive {
			return nil, makeErr(ErrItemUnavailable, "item is reserved by another user")
		}
	default:
		return nil, makeErr(ErrItemUnavailable, fmt.Sprintf("item is %s", it.Status))
	}

	if claim != nil {
		ok, err := s.res.UpdateStatus(ctx, tx, claim.ID, claim.Status, model.ReservationUsed)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, makeErr(ErrLostRace, "reservation changed concurrently")
		}
	}

	claimed, err := s.items.Transition(ctx, tx, itemID, it.Status, model.ItemBorrowed)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, makeErr(ErrLostRace, "item changed concurrently")
	}

	spacePath, err := s.spaces.Path(ctx, it.SpaceID)
	if err != nil {
		return nil, err
	}
	rec := &model.Record{
		ItemID:        itemID,
		UserID:        userID,
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

func (s *service) End(ctx context.Context, recordID, actorID int64, admin bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rec, err := s.recs.GetForUpdate(ctx, tx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrNotFound, "record not found")
		}
		return err
	}
	if !admin && rec.UserID != actorID {
		return makeErr(ErrPermission, "not the record owner")
	}
	if rec.Status != model.RecordUsing {
		return makeErr(ErrAlreadyReturned, "item already returned")
	}

	ok, err := s.recs.MarkReturned(ctx, tx, recordID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrLostRace, "record changed concurrently")
	}

	freed, err := s.items.Transition(ctx, tx, rec.ItemID, model.ItemBorrowed, model.ItemAvailable)
	if err != nil {
		return err
	}
	if !freed {
		// Item status diverged from the open record; refuse to guess.
		return makeErr(ErrLostRace, "item changed concurrently")
	}
	return tx.Commit()
}

func (s *service) List(ctx context.Context, f recordrepo.Filter) ([]recordrepo.HistoryRow, int, error) {
	return s.recs.List(ctx, f)
}

func (s *service) NotifyOverdue(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.overdue)
	overdue, err := s.recs.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for i := range overdue {
		rec := &overdue[i]
		s.nt.Notify(ctx, notifier.Notification{
			UserID:   rec.UserID,
			Kind:     notifier.KindRecordOverdue,
			ItemID:   rec.ItemID,
			RecordID: rec.ID,
		})
	}
	return len(overdue), nil
}
