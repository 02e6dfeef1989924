package item

import (
	"context"
	"database/sql"
	"errors"

	"itemreserve/model"
	itemrepo "itemreserve/repository/item"
	spacerepo "itemreserve/repository/space"
)

var (
	ErrNotFound = errors.New("item not found")
	ErrBadInput = errors.New("invalid payload")
)

// Detail is an item joined with its resolved space path.
type Detail struct {
	model.Item
	SpacePath string `json:"space_path"`
}

type Service interface {
	Create(ctx context.Context, createdBy int64, name, function, serial string, spaceID int64) (*model.Item, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error)
	Update(ctx context.Context, id int64, name, function, serial string, spaceID int64) error
	Delete(ctx context.Context, id int64) error
}

type service struct {
	items  itemrepo.Repo
	spaces spacerepo.Repo
}

func New(items itemrepo.Repo, spaces spacerepo.Repo) Service {
	return &service{items: items, spaces: spaces}
}

func (s *service) Create(ctx context.Context, createdBy int64, name, function, serial string, spaceID int64) (*model.Item, error) {
	if name == "" || spaceID <= 0 {
		return nil, ErrBadInput
	}
	it := &model.Item{
		Name:         name,
		Function:     function,
		SerialNumber: serial,
		SpaceID:      spaceID,
		CreatedBy:    createdBy,
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Detail, error) {
	it, err := s.items.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	path, err := s.spaces.Path(ctx, it.SpaceID)
	if err != nil {
		return nil, err
	}
	return &Detail{Item: *it, SpacePath: path}, nil
}

func (s *service) List(ctx context.Context, status model.ItemStatus, spaceID int64) ([]model.Item, error) {
	return s.items.List(ctx, status, spaceID)
}

func (s *service) Update(ctx context.Context, id int64, name, function, serial string, spaceID int64) error {
	if name == "" || spaceID <= 0 {
		return ErrBadInput
	}
	return s.items.Update(ctx, id, name, function, serial, spaceID)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.items.Delete(ctx, id)
}
