// repository/space/repo.go
package space

import (
	"context"
	"database/sql"
	"fmt"

	"itemreserve/model"
)

type Repo interface {
	Get(ctx context.Context, id int64) (*model.Space, error)
	List(ctx context.Context) ([]model.Space, error)

	// Path returns the root-to-leaf name path, slash-joined.
	Path(ctx context.Context, id int64) (string, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Get(ctx context.Context, id int64) (*model.Space, error) {
	s := &model.Space{}
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id, created_at FROM spaces WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &parent, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		s.ParentID = &parent.Int64
	}
	return s, nil
}

func (r *repo) List(ctx context.Context) ([]model.Space, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, parent_id, created_at FROM spaces ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	defer rows.Close()

	var out []model.Space
	for rows.Next() {
		var s model.Space
		var parent sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Name, &parent, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		if parent.Valid {
			s.ParentID = &parent.Int64
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) Path(ctx context.Context, id int64) (string, error) {
	var path string
	err := r.db.QueryRowContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, name, parent_id, 0 AS depth
			FROM spaces WHERE id = $1
			UNION ALL
			SELECT s.id, s.name, s.parent_id, c.depth + 1
			FROM spaces s
			JOIN chain c ON s.id = c.parent_id
		)
		SELECT string_agg(name, '/' ORDER BY depth DESC) FROM chain`, id,
	).Scan(&path)
	if err != nil {
		return "", fmt.Errorf("resolving space path: %w", err)
	}
	return path, nil
}
