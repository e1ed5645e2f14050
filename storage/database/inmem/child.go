package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/child"
)

type childRepository struct {
	db *DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *DB) *childRepository {
	return &childRepository{db: db}
}

func (repo *childRepository) CreateChild(_ context.Context, chld child.Child, _ ...core.DBExecutor) (child.Child, error) {
	t := repo.db.children
	t.mutex.Lock()
	defer t.mutex.Unlock()

	chld.ID = uuid.New().String()
	chld.Avatar = nil
	t.table[chld.ID] = &chld
	return chld, nil
}

func (repo *childRepository) CreateParent(_ context.Context, parent child.Parent, _ ...core.DBExecutor) (child.Parent, error) {
	t := repo.db.parents
	t.mutex.Lock()
	defer t.mutex.Unlock()

	parent.ID = uuid.New().String()
	t.table[parent.ID] = &parent
	return parent, nil
}

func (repo *childRepository) GetChild(_ context.Context, id string, _ ...core.DBExecutor) (child.Child, error) {
	t := repo.db.children
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if chld, ok := t.table[id]; ok {
		return *chld, nil
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) QueryParents(_ context.Context, childID string, _ ...core.DBExecutor) ([]child.Parent, error) {
	t := repo.db.parents
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	parents := make([]child.Parent, 0, 1)
	for _, p := range t.table {
		if p.ChildID == childID {
			parents = append(parents, *p)
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].CreatedAt.Before(parents[j].CreatedAt) })
	return parents, nil
}

func (repo *childRepository) UpdateChild(_ context.Context, chld child.Child, _ ...core.DBExecutor) (child.Child, error) {
	t := repo.db.children
	t.mutex.Lock()
	defer t.mutex.Unlock()

	// only the level is updatable
	orig, ok := t.table[chld.ID]
	if !ok {
		return child.Child{}, child.ErrNotFound
	}
	orig.CurrentLevel = chld.CurrentLevel
	orig.UpdatedAt = chld.UpdatedAt
	return *orig, nil
}

func (repo *childRepository) DeleteChild(_ context.Context, id string, _ ...core.DBExecutor) error {
	t := repo.db.children
	t.mutex.Lock()
	_, ok := t.table[id]
	delete(t.table, id)
	t.mutex.Unlock()

	if !ok {
		return child.ErrNotFound
	}
	repo.db.deleteChildData(id)
	return nil
}
