package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateGameSession(_ context.Context, gs session.GameSession, _ ...core.DBExecutor) (session.GameSession, error) {
	t := repo.db.sessions
	t.mutex.Lock()
	defer t.mutex.Unlock()

	gs.ID = uuid.New().String()
	t.games = append(t.games, gs)
	return gs, nil
}

func (repo *sessionRepository) CreateCalmingEpisode(_ context.Context, ep session.CalmingEpisode, _ ...core.DBExecutor) (session.CalmingEpisode, error) {
	t := repo.db.sessions
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ep.ID = uuid.New().String()
	t.episodes = append(t.episodes, ep)
	return ep, nil
}

func (repo *sessionRepository) QueryCalmingEpisodes(_ context.Context, filter session.CalmingFilter, _ ...core.DBExecutor) ([]session.CalmingEpisode, error) {
	t := repo.db.sessions
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	episodes := make([]session.CalmingEpisode, 0)
	for _, ep := range t.episodes {
		if filter.ChildID == "" || ep.ChildID == filter.ChildID {
			episodes = append(episodes, ep)
		}
	}
	sort.SliceStable(episodes, func(i, j int) bool { return episodes[i].StartTime.After(episodes[j].StartTime) })
	if filter.Limit > 0 && len(episodes) > filter.Limit {
		episodes = episodes[:filter.Limit]
	}
	return episodes, nil
}
