package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
)

var ErrInvalidLevel = errors.New("invalid level")

type (
	Repository interface {
		// GetLevelState returns a NotFoundError when the level was never played.
		GetLevelState(ctx context.Context, childID string, level int, exec ...core.DBExecutor) (LevelState, error)
		SaveLevelState(ctx context.Context, childID string, level int, state LevelState, exec ...core.DBExecutor) error
		CreateGameScore(ctx context.Context, score GameScore, exec ...core.DBExecutor) (GameScore, error)
		QueryGameScores(ctx context.Context, childID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]GameScore, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func checkLevel(level int) error {
	if level < 1 || level > MaxLevel {
		return core.NewValidationError(ErrInvalidLevel, core.FieldError{Field: "level", Error: ErrInvalidLevel.Error()})
	}
	return nil
}

// GetState returns the child's state for level, blank if never played.
func (svc *Service) GetState(ctx context.Context, childID string, level int, exec ...core.DBExecutor) (LevelState, error) {
	if err := checkLevel(level); err != nil {
		return LevelState{}, err
	}
	state, err := svc.repo.GetLevelState(ctx, childID, level, exec...)
	if err != nil {
		if core.IsNotFound(err) {
			return LevelState{}, nil
		}
		return LevelState{}, errors.Wrap(err, "getting level state")
	}
	return state, nil
}

// SaveState replaces the child's state for level.
func (svc *Service) SaveState(ctx context.Context, childID string, level int, state LevelState) (LevelState, error) {
	if err := checkLevel(level); err != nil {
		return LevelState{}, err
	}
	if err := svc.repo.SaveLevelState(ctx, childID, level, state); err != nil {
		return LevelState{}, errors.Wrap(err, "saving level state")
	}
	return state, nil
}

// SetLastPlayed points the level's resume pointer at game. 0 clears it.
func (svc *Service) SetLastPlayed(ctx context.Context, childID string, level, game int) (LevelState, error) {
	var state LevelState
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if state, err = svc.GetState(ctx, childID, level, exec); err != nil {
			return err
		}
		if game > 0 {
			state.LastPlayedGame = &game
		} else {
			state.LastPlayedGame = nil
		}
		return errors.Wrap(svc.repo.SaveLevelState(ctx, childID, level, state, exec), "saving level state")
	})
	return state, err
}

// LogGame records a completed game: its score is graded & the game is marked completed in its level.
func (svc *Service) LogGame(ctx context.Context, childID string, gr NewGameResult) (GameScore, error) {
	if gr.CompletedAt.IsZero() {
		gr.CompletedAt = time.Now()
	}
	score := GameScore{
		ChildID:     childID,
		Level:       gr.Level,
		GameID:      GameKey(gr.Level, gr.GameID),
		GameTitle:   gr.GameTitle,
		Score:       gr.Score,
		Total:       gr.Total,
		Stars:       Stars(gr.Score, gr.Total),
		CompletedAt: gr.CompletedAt.UTC(),
	}

	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if score, err = svc.repo.CreateGameScore(ctx, score, exec); err != nil {
			return errors.Wrap(err, "creating game score")
		}
		state, err := svc.GetState(ctx, childID, gr.Level, exec)
		if err != nil {
			return err
		}
		state.MarkCompleted(gr.GameID)
		return errors.Wrap(svc.repo.SaveLevelState(ctx, childID, gr.Level, state, exec), "saving level state")
	})
	return score, err
}

// AddScore records an already graded score.
func (svc *Service) AddScore(ctx context.Context, score GameScore, exec ...core.DBExecutor) (GameScore, error) {
	score.CompletedAt = score.CompletedAt.UTC()
	s, err := svc.repo.CreateGameScore(ctx, score, exec...)
	return s, errors.Wrap(err, "creating game score")
}

func (svc *Service) Scores(ctx context.Context, childID string, ordering []core.DBOrdering) ([]GameScore, error) {
	return svc.repo.QueryGameScores(ctx, childID, CleanScoreOrdering(ordering))
}
