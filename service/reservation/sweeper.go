package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"itemreserve/model"
	"itemreserve/notifier"
	itemrepo "itemreserve/repository/item"
	recordrepo "itemreserve/repository/record"
	resrepo "itemreserve/repository/reservation"
	"itemreserve/util/clockx"
)

// Stats summarizes one sweep pass.
type Stats struct {
	Activated   int `json:"activated"`
	Conflicted  int `json:"conflicted"`
	Reactivated int `json:"reactivated"`
	Expired     int `json:"expired"`
	Reminders   int `json:"reminders"`
	Errors      int `json:"errors"`
}

// Sweeper is the reconciliation engine: one RunOnce re-evaluates every
// non-terminal reservation against the clock and the item tracker. Each
// reservation commits in its own transaction, so a failure on one never
// blocks the rest, and the whole pass is idempotent given the clock.
type Sweeper struct {
	db    *sql.DB
	res   resrepo.Repo
	items itemrepo.Repo
	recs  recordrepo.Repo
	clock clockx.Clock
	nt    notifier.Notifier
	pol   Policy
	log   *slog.Logger
}

func NewSweeper(db *sql.DB, res resrepo.Repo, items itemrepo.Repo, recs recordrepo.Repo,
	clock clockx.Clock, nt notifier.Notifier, pol Policy, log *slog.Logger) *Sweeper {
	return &Sweeper{db: db, res: res, items: items, recs: recs, clock: clock, nt: nt, pol: pol, log: log}
}

func (s *Sweeper) RunOnce(ctx context.Context) Stats {
	var st Stats
	now := s.clock.Now()

	s.sweepScheduled(ctx, now, &st)
	s.sweepConflicted(ctx, now, &st)
	s.sweepActive(ctx, now, &st)
	s.sweepReminders(ctx, now, &st)

	return st
}

// scheduled -> active | conflicted once the start has arrived.
func (s *Sweeper) sweepScheduled(ctx context.Context, now time.Time, st *Stats) {
	due, err := s.res.ListDue(ctx, model.ReservationScheduled, now)
	if err != nil {
		s.log.Error("sweep: listing due scheduled", "err", err)
		st.Errors++
		return
	}
	for i := range due {
		r := &due[i]
		outcome, err := s.startScheduled(ctx, r, now)
		if err != nil {
			s.log.Error("sweep: scheduled reservation", "reservation_id", r.ID, "err", err)
			st.Errors++
			continue
		}
		switch outcome {
		case model.ReservationActive:
			st.Activated++
		case model.ReservationConflicted:
			st.Conflicted++
			s.notifyConflict(ctx, r)
		}
	}
}

// startScheduled returns the status the reservation moved to, or "" when
// a user action won the race since the list query and the reservation is
// no longer ours to move.
func (s *Sweeper) startScheduled(ctx context.Context, r *model.Reservation, now time.Time) (outcome model.ReservationStatus, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.res.GetForUpdate(ctx, tx, r.ID)
	if err != nil {
		return "", err
	}
	if cur.Status != model.ReservationScheduled || now.Before(cur.Start) {
		return "", tx.Rollback()
	}

	claimed, err := s.items.Transition(ctx, tx, cur.ItemID, model.ItemAvailable, model.ItemReserved)
	if err != nil {
		return "", err
	}
	next := model.ReservationConflicted
	if claimed {
		next = model.ReservationActive
	}
	ok, err := s.res.UpdateStatus(ctx, tx, cur.ID, model.ReservationScheduled, next)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("lost race updating reservation %d", cur.ID)
	}
	return next, tx.Commit()
}

// conflicted -> expired past its end, or -> active once the item frees up.
func (s *Sweeper) sweepConflicted(ctx context.Context, now time.Time, st *Stats) {
	list, err := s.res.ListByStatus(ctx, model.ReservationConflicted)
	if err != nil {
		s.log.Error("sweep: listing conflicted", "err", err)
		st.Errors++
		return
	}
	for i := range list {
		r := &list[i]
		outcome, err := s.resolveConflicted(ctx, r, now)
		if err != nil {
			s.log.Error("sweep: conflicted reservation", "reservation_id", r.ID, "err", err)
			st.Errors++
			continue
		}
		switch outcome {
		case model.ReservationExpired:
			st.Expired++
			s.notify(ctx, notifier.Notification{
				UserID: r.UserID, Kind: notifier.KindReservationExpired,
				ItemID: r.ItemID, ReservationID: r.ID,
			})
		case model.ReservationActive:
			st.Reactivated++
			s.notify(ctx, notifier.Notification{
				UserID: r.UserID, Kind: notifier.KindReservationReady,
				ItemID: r.ItemID, ReservationID: r.ID,
			})
		}
	}
}

func (s *Sweeper) resolveConflicted(ctx context.Context, r *model.Reservation, now time.Time) (outcome model.ReservationStatus, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.res.GetForUpdate(ctx, tx, r.ID)
	if err != nil {
		return "", err
	}
	if cur.Status != model.ReservationConflicted {
		return "", tx.Rollback()
	}

	if !now.Before(cur.End) {
		if _, err = s.res.UpdateStatus(ctx, tx, cur.ID, model.ReservationConflicted, model.ReservationExpired); err != nil {
			return "", err
		}
		return model.ReservationExpired, tx.Commit()
	}

	// Claim the item before flipping the reservation, so two conflicted
	// reservations on one item can never both activate.
	claimed, err := s.items.Transition(ctx, tx, cur.ItemID, model.ItemAvailable, model.ItemReserved)
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", tx.Rollback()
	}
	if _, err = s.res.UpdateStatus(ctx, tx, cur.ID, model.ReservationConflicted, model.ReservationActive); err != nil {
		return "", err
	}
	return model.ReservationActive, tx.Commit()
}

// active -> expired past its end or past the pickup grace window.
func (s *Sweeper) sweepActive(ctx context.Context, now time.Time, st *Stats) {
	list, err := s.res.ListByStatus(ctx, model.ReservationActive)
	if err != nil {
		s.log.Error("sweep: listing active", "err", err)
		st.Errors++
		return
	}
	for i := range list {
		r := &list[i]
		pickupDeadline := r.Start.Add(s.pol.OverduePickup)
		if now.Before(r.End) && now.Before(pickupDeadline) {
			continue
		}
		expired, err := s.expireActive(ctx, r)
		if err != nil {
			s.log.Error("sweep: active reservation", "reservation_id", r.ID, "err", err)
			st.Errors++
			continue
		}
		if expired {
			st.Expired++
			s.notify(ctx, notifier.Notification{
				UserID: r.UserID, Kind: notifier.KindReservationExpired,
				ItemID: r.ItemID, ReservationID: r.ID,
			})
		}
	}
}

func (s *Sweeper) expireActive(ctx context.Context, r *model.Reservation) (expired bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.res.UpdateStatus(ctx, tx, r.ID, model.ReservationActive, model.ReservationExpired)
	if err != nil {
		return false, err
	}
	if !ok {
		// Consumed or cancelled since the list query; nothing to do.
		return false, tx.Rollback()
	}

	// Release the hold this reservation placed on the item. Misses when
	// the item is borrowed, which is correct.
	if _, err = s.items.Transition(ctx, tx, r.ItemID, model.ItemReserved, model.ItemAvailable); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// One-time reminder for reservations starting inside the lead window.
func (s *Sweeper) sweepReminders(ctx context.Context, now time.Time, st *Stats) {
	list, err := s.res.ListDueReminder(ctx, now.Add(s.pol.ReminderFrom), now.Add(s.pol.ReminderTo))
	if err != nil {
		s.log.Error("sweep: listing due reminders", "err", err)
		st.Errors++
		return
	}
	for i := range list {
		r := &list[i]
		if err := s.markReminded(ctx, r.ID, now); err != nil {
			s.log.Error("sweep: reminder", "reservation_id", r.ID, "err", err)
			st.Errors++
			continue
		}
		st.Reminders++
		s.notify(ctx, notifier.Notification{
			UserID: r.UserID, Kind: notifier.KindReservationReminder,
			ItemID: r.ItemID, ReservationID: r.ID,
		})
	}
}

func (s *Sweeper) markReminded(ctx context.Context, id int64, now time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.res.MarkReminderSent(ctx, tx, id, now); err != nil {
		return err
	}
	return tx.Commit()
}

// notifyConflict asks the current holder of the item for a prompt return.
func (s *Sweeper) notifyConflict(ctx context.Context, r *model.Reservation) {
	rec, err := s.recs.FindUsingByItem(ctx, r.ItemID)
	if err != nil {
		s.log.Error("sweep: finding item holder", "item_id", r.ItemID, "err", err)
		return
	}
	if rec == nil {
		return
	}
	s.notify(ctx, notifier.Notification{
		UserID: rec.UserID, Kind: notifier.KindConflictReturnRequest,
		ItemID: r.ItemID, ReservationID: r.ID, RecordID: rec.ID,
	})
}

func (s *Sweeper) notify(ctx context.Context, n notifier.Notification) {
	if s.nt != nil {
		s.nt.Notify(ctx, n)
	}
}
