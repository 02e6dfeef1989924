// repository/record/repo.go
package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"itemreserve/model"
)

// Filter narrows history listings. Username and ItemName are substring
// matches; Page is 1-based.
type Filter struct {
	UserID   int64
	ItemID   int64
	Status   model.RecordStatus
	Username string
	ItemName string
	Page     int
	PerPage  int
}

// HistoryRow is the joined shape history endpoints return.
type HistoryRow struct {
	RecordID      int64              `json:"record_id"`
	ItemID        int64              `json:"item_id"`
	ItemName      string             `json:"item_name"`
	UserID        int64              `json:"user_id"`
	Username      string             `json:"username"`
	SpacePath     string             `json:"space_path,omitempty"`
	UsageLocation string             `json:"usage_location,omitempty"`
	Status        model.RecordStatus `json:"status"`
	StartTime     time.Time          `json:"start_time"`
	ReturnTime    *time.Time         `json:"return_time,omitempty"`
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, rec *model.Record) error
	Get(ctx context.Context, id int64) (*model.Record, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Record, error)

	// MarkReturned stamps the return; guarded on status so a double return
	// is visible to the caller.
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error)

	// FindUsingByItem returns the open record for an item, or nil. At most
	// one record per item may be in 'using' at a time.
	FindUsingByItem(ctx context.Context, itemID int64) (*model.Record, error)

	List(ctx context.Context, f Filter) ([]HistoryRow, int, error)
	ListOverdue(ctx context.Context, before time.Time) ([]model.Record, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const cols = `id, item_id, user_id, space_path, usage_location, start_time, return_time, status, created_at`

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, rec *model.Record) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO records (item_id, user_id, space_path, usage_location, start_time, status)
		VALUES ($1, $2, $3, $4, $5, 'using')
		RETURNING id, status, created_at`,
		rec.ItemID, rec.UserID, rec.SpacePath, rec.UsageLocation, rec.StartTime.UTC(),
	).Scan(&rec.ID, &rec.Status, &rec.CreatedAt)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(row rowScanner) (*model.Record, error) {
	rec := &model.Record{}
	var spacePath, location sql.NullString
	var returned sql.NullTime
	err := row.Scan(&rec.ID, &rec.ItemID, &rec.UserID, &spacePath, &location,
		&rec.StartTime, &returned, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.SpacePath = spacePath.String
	rec.UsageLocation = location.String
	rec.StartTime = rec.StartTime.UTC()
	if returned.Valid {
		t := returned.Time.UTC()
		rec.ReturnTime = &t
	}
	return rec, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Record, error) {
	return scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM records WHERE id = $1`, id))
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Record, error) {
	return scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+cols+` FROM records WHERE id = $1 FOR UPDATE`, id))
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE records
		SET status = 'returned',
			return_time = $2
		WHERE id = $1
		AND status = 'using'`,
		id, at.UTC())
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (r *repo) FindUsingByItem(ctx context.Context, itemID int64) (*model.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+cols+` FROM records
		WHERE item_id = $1 AND status = 'using'
		ORDER BY start_time DESC
		LIMIT 1`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *repo) List(ctx context.Context, f Filter) ([]HistoryRow, int, error) {
	where := ` FROM records r
		JOIN items i ON i.id = r.item_id
		JOIN users u ON u.id = r.user_id
		WHERE 1=1`
	args := []any{}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND r.user_id = $%d", len(args))
	}
	if f.ItemID > 0 {
		args = append(args, f.ItemID)
		where += fmt.Sprintf(" AND r.item_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if f.Username != "" {
		args = append(args, "%"+f.Username+"%")
		where += fmt.Sprintf(" AND u.username ILIKE $%d", len(args))
	}
	if f.ItemName != "" {
		args = append(args, "%"+f.ItemName+"%")
		where += fmt.Sprintf(" AND i.name ILIKE $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	q := `SELECT r.id, r.item_id, i.name, r.user_id, u.username,
		r.space_path, r.usage_location, r.status, r.start_time, r.return_time` +
		where + ` ORDER BY r.start_time DESC, r.id DESC`
	if f.PerPage > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.PerPage)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*f.PerPage)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var spacePath, location sql.NullString
		var returned sql.NullTime
		if err := rows.Scan(&h.RecordID, &h.ItemID, &h.ItemName, &h.UserID, &h.Username,
			&spacePath, &location, &h.Status, &h.StartTime, &returned); err != nil {
			return nil, 0, fmt.Errorf("scanning record: %w", err)
		}
		h.SpacePath = spacePath.String
		h.UsageLocation = location.String
		h.StartTime = h.StartTime.UTC()
		if returned.Valid {
			t := returned.Time.UTC()
			h.ReturnTime = &t
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

func (r *repo) ListOverdue(ctx context.Context, before time.Time) ([]model.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cols+` FROM records
		WHERE status = 'using'
		AND start_time < $1
		ORDER BY start_time`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("listing overdue records: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
