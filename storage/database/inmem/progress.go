package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/progress"
)

var errLevelStateNotFound = core.NewNotFoundError("level state")

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetLevelState(_ context.Context, childID string, level int, _ ...core.DBExecutor) (progress.LevelState, error) {
	t := repo.db.progress
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if state, ok := t.states[levelKey{childID, level}]; ok {
		if state.LastPlayedGame != nil {
			game := *state.LastPlayedGame
			state.LastPlayedGame = &game
		}
		return state, nil
	}
	return progress.LevelState{}, errLevelStateNotFound
}

func (repo *progressRepository) SaveLevelState(_ context.Context, childID string, level int, state progress.LevelState, _ ...core.DBExecutor) error {
	t := repo.db.progress
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if state.LastPlayedGame != nil {
		game := *state.LastPlayedGame
		state.LastPlayedGame = &game
	}
	t.states[levelKey{childID, level}] = state
	return nil
}

func (repo *progressRepository) CreateGameScore(_ context.Context, score progress.GameScore, _ ...core.DBExecutor) (progress.GameScore, error) {
	t := repo.db.progress
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.scores = append(t.scores, score)
	return score, nil
}

func (repo *progressRepository) QueryGameScores(_ context.Context, childID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]progress.GameScore, error) {
	t := repo.db.progress
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	scores := make([]progress.GameScore, 0)
	for _, s := range t.scores {
		if s.ChildID == childID {
			scores = append(scores, s)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareScores(scores[i], scores[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
	return scores, nil
}

func compareScores(a, b progress.GameScore, field string) int {
	switch field {
	case "completed_at":
		return a.CompletedAt.Compare(b.CompletedAt)
	case "level":
		return a.Level - b.Level
	case "score":
		return a.Score - b.Score
	case "stars":
		return a.Stars - b.Stars
	}
	return 0
}
