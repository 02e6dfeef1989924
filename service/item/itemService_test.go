package item

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"itemreserve/model"
	itemrepo "itemreserve/repository/item"
	spacerepo "itemreserve/repository/space"
	"itemreserve/util/database"
)

type mockItems struct {
	createFn func(ctx context.Context, it *model.Item) error
	getFn    func(ctx context.Context, id int64) (*model.Item, error)
}

var _ itemrepo.Repo = (*mockItems)(nil)

func (m *mockItems) Create(ctx context.Context, it *model.Item) error {
	if m.createFn == nil {
		it.ID = 1
		return nil
	}
	return m.createFn(ctx, it)
}

func (m *mockItems) Get(ctx context.Context, id int64) (*model.Item, error) {
	if m.getFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.getFn(ctx, id)
}

func (m *mockItems) GetForUpdate(context.Context, *sql.Tx, int64) (*model.Item, error) {
	return nil, sql.ErrNoRows
}

func (m *mockItems) List(context.Context, model.ItemStatus, int64) ([]model.Item, error) {
	return nil, nil
}

func (m *mockItems) Update(context.Context, int64, string, string, string, int64) error {
	return nil
}

func (m *mockItems) Delete(context.Context, int64) error { return nil }

func (m *mockItems) Transition(context.Context, database.Execer, int64, model.ItemStatus, model.ItemStatus) (bool, error) {
	return true, nil
}

type mockSpaces struct{}

var _ spacerepo.Repo = (*mockSpaces)(nil)

func (mockSpaces) Get(_ context.Context, id int64) (*model.Space, error) {
	return &model.Space{ID: id, Name: "lab"}, nil
}
func (mockSpaces) List(context.Context) ([]model.Space, error) { return nil, nil }
func (mockSpaces) Path(context.Context, int64) (string, error) {
	return "campus/lab-3/cabinet-b", nil
}

func TestCreate_Success(t *testing.T) {
	m := &mockItems{
		createFn: func(ctx context.Context, it *model.Item) error {
			it.ID = 42
			it.Status = model.ItemAvailable
			it.CreatedAt = time.Now()
			return nil
		},
	}
	svc := New(m, mockSpaces{})

	it, err := svc.Create(context.Background(), 7, "oscilloscope", "signal capture", "SN-001", 3)
	require.NoError(t, err)
	require.Equal(t, int64(42), it.ID)
	require.Equal(t, model.ItemAvailable, it.Status)
	require.Equal(t, int64(7), it.CreatedBy)
}

func TestCreate_BadInput(t *testing.T) {
	svc := New(&mockItems{}, mockSpaces{})

	_, err := svc.Create(context.Background(), 7, "", "", "", 3)
	require.ErrorIs(t, err, ErrBadInput)

	_, err = svc.Create(context.Background(), 7, "scope", "", "", 0)
	require.ErrorIs(t, err, ErrBadInput)
}

func TestGet_ResolvesSpacePath(t *testing.T) {
	m := &mockItems{
		getFn: func(ctx context.Context, id int64) (*model.Item, error) {
			return &model.Item{ID: id, Name: "scope", SpaceID: 3, Status: model.ItemAvailable}, nil
		},
	}
	svc := New(m, mockSpaces{})

	d, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "campus/lab-3/cabinet-b", d.SpacePath)
	require.Equal(t, "scope", d.Name)
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockItems{}, mockSpaces{})

	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_BadInput(t *testing.T) {
	svc := New(&mockItems{}, mockSpaces{})
	require.ErrorIs(t, svc.Update(context.Background(), 1, "", "", "", 3), ErrBadInput)
}
