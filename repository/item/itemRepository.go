// repository/item/repo.go
package item

import (
	"context"
	"database/sql"
	"fmt"

	"itemreserve/model"
	"itemreserve/util/database"
)

type Repo interface {
	Create(ctx context.Context, it *model.Item) error
	Get(ctx context.Context, id int64) (*model.Item, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error)
	List(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error)
	Update(ctx context.Context, id int64, name, function, serial string, spaceID int64) error
	Delete(ctx context.Context, id int64) error

	// Transition is the availability tracker's only write path: a
	// compare-and-swap on status. Returns false with no mutation when the
	// current status does not match from.
	Transition(ctx context.Context, ex database.Execer, id int64, from, to model.ItemStatus) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, it *model.Item) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO items (name, function, serial_number, status, space_id, created_by)
		VALUES ($1, $2, $3, 'available', $4, $5)
		RETURNING id, status, created_at, updated_at`,
		it.Name, it.Function, it.SerialNumber, it.SpaceID, it.CreatedBy,
	).Scan(&it.ID, &it.Status, &it.CreatedAt, &it.UpdatedAt)
}

const itemCols = `id, name, function, serial_number, status, space_id, created_by, created_at, updated_at`

func scanItem(row *sql.Row) (*model.Item, error) {
	it := &model.Item{}
	var function, serial sql.NullString
	err := row.Scan(&it.ID, &it.Name, &function, &serial, &it.Status,
		&it.SpaceID, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Function = function.String
	it.SerialNumber = serial.String
	return it, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Item, error) {
	return scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM items WHERE id = $1`, id))
}

// GetForUpdate locks the item row for the rest of the transaction. This
// is the per-item serialization boundary for check-then-write sequences.
func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Item, error) {
	return scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM items WHERE id = $1 FOR UPDATE`, id))
}

func (r *repo) List(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if spaceID > 0 {
		args = append(args, spaceID)
		q += fmt.Sprintf(" AND space_id = $%d", len(args))
	}
	q += " ORDER BY name, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		var function, serial sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &function, &serial, &it.Status,
			&it.SpaceID, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Function = function.String
		it.SerialNumber = serial.String
		out = append(out, it)
	}
	return out, rows.Err()
}

// Update never touches status; status moves only through Transition.
func (r *repo) Update(ctx context.Context, id int64, name, function, serial string, spaceID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET name = $2, function = $3, serial_number = $4, space_id = $5, updated_at = NOW()
		WHERE id = $1`,
		id, name, function, serial, spaceID)
	return err
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	return err
}

func (r *repo) Transition(ctx context.Context, ex database.Execer, id int64, from, to model.ItemStatus) (bool, error) {
	res, err := ex.ExecContext(ctx, `
		UPDATE items
		SET status = $3, updated_at = NOW()
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
