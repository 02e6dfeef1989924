// repository/reservation/repo.go
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"itemreserve/model"
	"itemreserve/util/database"
)

// Filter narrows List results; zero values mean "any".
type Filter struct {
	Status model.ReservationStatus
	ItemID int64
	UserID int64
}

// Blocking is the reservation that defeated a conflict check, with its
// owner's username for user-facing feedback.
type Blocking struct {
	model.Reservation
	OwnerName string
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
	Get(ctx context.Context, id int64) (*model.Reservation, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error)
	List(ctx context.Context, f Filter) ([]model.Reservation, error)

	// FindOverlapping returns the first reservation on the item in a
	// blocking status whose interval overlaps iv, or nil. Must run inside
	// the transaction that holds the item row lock.
	FindOverlapping(ctx context.Context, tx *sql.Tx, itemID int64, iv model.Interval) (*Blocking, error)

	// UpdateStatus is a CAS on reservation status; false means the row was
	// not in the expected status and nothing changed. Moves not in the
	// model transition table error out before touching the database.
	UpdateStatus(ctx context.Context, ex database.Execer, id int64, from, to model.ReservationStatus) (bool, error)

	ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	ListDue(ctx context.Context, status model.ReservationStatus, now time.Time) ([]model.Reservation, error)
	ListDueReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]model.Reservation, error)
	MarkReminderSent(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error

	// FindConsumable returns the caller's scheduled or active reservation
	// on the item, preferring active, or nil.
	FindConsumable(ctx context.Context, tx *sql.Tx, itemID, userID int64) (*model.Reservation, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const cols = `id, item_id, user_id, start_at, end_at, status, notes, reminder_sent_at, created_at`

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO reservations (item_id, user_id, start_at, end_at, status, notes)
		VALUES ($1, $2, $3, $4, 'scheduled', $5)
		RETURNING id, status, created_at`,
		res.ItemID, res.UserID, res.Start.UTC(), res.End.UTC(), nullable(res.Notes),
	).Scan(&res.ID, &res.Status, &res.CreatedAt)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReservation(row rowScanner) (*model.Reservation, error) {
	res := &model.Reservation{}
	var notes sql.NullString
	var reminder sql.NullTime
	err := row.Scan(&res.ID, &res.ItemID, &res.UserID, &res.Start, &res.End,
		&res.Status, &notes, &reminder, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.Notes = notes.String
	if reminder.Valid {
		t := reminder.Time.UTC()
		res.ReminderSentAt = &t
	}
	res.Start = res.Start.UTC()
	res.End = res.End.UTC()
	return res, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM reservations WHERE id = $1`, id))
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+cols+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
}

func (r *repo) List(ctx context.Context, f Filter) ([]model.Reservation, error) {
	q := `SELECT ` + cols + ` FROM reservations WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.ItemID > 0 {
		args = append(args, f.ItemID)
		q += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	q += " ORDER BY start_at, id"
	return r.queryMany(ctx, q, args...)
}

func (r *repo) queryMany(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Blocking statuses hold a claim on the item's future; terminal ones do not.
const blockingStatuses = `('scheduled', 'active', 'conflicted')`

func (r *repo) FindOverlapping(ctx context.Context, tx *sql.Tx, itemID int64, iv model.Interval) (*Blocking, error) {
	// Half-open overlap: a.start < b.end AND b.start < a.end.
	b := &Blocking{}
	var notes sql.NullString
	var reminder sql.NullTime
	err := tx.QueryRowContext(ctx, `
		SELECT r.id, r.item_id, r.user_id, r.start_at, r.end_at, r.status,
		       r.notes, r.reminder_sent_at, r.created_at, u.username
		FROM reservations r
		JOIN users u ON u.id = r.user_id
		WHERE r.item_id = $1
		AND r.status IN `+blockingStatuses+`
		AND r.start_at < $3
		AND $2 < r.end_at
		ORDER BY r.start_at
		LIMIT 1`,
		itemID, iv.Start.UTC(), iv.End.UTC(),
	).Scan(&b.ID, &b.ItemID, &b.UserID, &b.Start, &b.End, &b.Status,
		&notes, &reminder, &b.CreatedAt, &b.OwnerName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Notes = notes.String
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	return b, nil
}

func (r *repo) UpdateStatus(ctx context.Context, ex database.Execer, id int64, from, to model.ReservationStatus) (bool, error) {
	if !model.CanTransition(from, to) {
		return false, fmt.Errorf("illegal reservation transition %s -> %s", from, to)
	}
	res, err := ex.ExecContext(ctx, `
		UPDATE reservations
		SET status = $3
		WHERE id = $1
		AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (r *repo) ListByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	return r.queryMany(ctx,
		`SELECT `+cols+` FROM reservations WHERE status = $1 ORDER BY start_at, id`, status)
}

func (r *repo) ListDue(ctx context.Context, status model.ReservationStatus, now time.Time) ([]model.Reservation, error) {
	return r.queryMany(ctx, `
		SELECT `+cols+` FROM reservations
		WHERE status = $1 AND start_at <= $2
		ORDER BY start_at, id`, status, now.UTC())
}

// ListDueReminder selects scheduled reservations starting inside the lead
// window that have never been reminded. The reminder_sent_at stamp is the
// idempotency key that keeps repeated sweeps from double-sending.
func (r *repo) ListDueReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]model.Reservation, error) {
	return r.queryMany(ctx, `
		SELECT `+cols+` FROM reservations
		WHERE status = 'scheduled'
		AND reminder_sent_at IS NULL
		AND start_at > $1
		AND start_at <= $2
		ORDER BY start_at, id`, windowStart.UTC(), windowEnd.UTC())
}

func (r *repo) MarkReminderSent(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET reminder_sent_at = $2
		WHERE id = $1
		AND reminder_sent_at IS NULL`,
		id, at.UTC())
	return err
}

func (r *repo) FindConsumable(ctx context.Context, tx *sql.Tx, itemID, userID int64) (*model.Reservation, error) {
	res, err := scanReservation(tx.QueryRowContext(ctx, `
		SELECT `+cols+` FROM reservations
		WHERE item_id = $1
		AND user_id = $2
		AND status IN ('active', 'scheduled')
		ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, start_at
		LIMIT 1
		FOR UPDATE`,
		itemID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}
