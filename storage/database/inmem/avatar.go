package inmemdb

import (
	"context"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
)

var errAvatarNotFound = core.NewNotFoundError("avatar")

type avatarRepository struct {
	db *DB
}

var _ avatar.Repository = (*avatarRepository)(nil) // interface compliance check

func NewAvatarRepository(db *DB) *avatarRepository {
	return &avatarRepository{db: db}
}

func (repo *avatarRepository) GetAvatar(_ context.Context, childID string, _ ...core.DBExecutor) (avatar.Config, error) {
	t := repo.db.avatars
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if cfg, ok := t.table[childID]; ok {
		return *cfg, nil
	}
	return avatar.Config{}, errAvatarNotFound
}

func (repo *avatarRepository) UpsertAvatar(_ context.Context, cfg avatar.Config, _ ...core.DBExecutor) (avatar.Config, error) {
	t := repo.db.avatars
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.table[cfg.ChildID] = &cfg
	return cfg, nil
}
