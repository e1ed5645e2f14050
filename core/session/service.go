package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
)

type (
	Repository interface {
		CreateGameSession(ctx context.Context, gs GameSession, exec ...core.DBExecutor) (GameSession, error)
		CreateCalmingEpisode(ctx context.Context, ep CalmingEpisode, exec ...core.DBExecutor) (CalmingEpisode, error)
		// QueryCalmingEpisodes returns the child's most recent episodes first.
		QueryCalmingEpisodes(ctx context.Context, filter CalmingFilter, exec ...core.DBExecutor) ([]CalmingEpisode, error)
	}

	Service struct {
		db          core.DB
		repo        Repository
		progressSvc *progress.Service
	}
)

func NewService(db core.DB, repo Repository, progressSvc *progress.Service) *Service {
	return &Service{db: db, repo: repo, progressSvc: progressSvc}
}

// Save persists a game session. A completed one is also added to the child's scores.
func (svc *Service) Save(ctx context.Context, ns NewGameSession) (GameSession, error) {
	gs := GameSession{
		ChildID:         ns.ChildID,
		GameID:          ns.GameID,
		Level:           ns.Level,
		StartTime:       ns.StartTime.UTC(),
		EndTime:         ns.EndTime.UTC(),
		Duration:        ns.Duration,
		Score:           ns.Score,
		Stars:           ns.Stars,
		CorrectAnswers:  ns.CorrectAnswers,
		TotalQuestions:  ns.TotalQuestions,
		EmotionDetected: ns.EmotionDetected,
		Status:          ns.Status,
	}
	if gs.EmotionDetected == nil {
		gs.EmotionDetected = []emotion.Sample{}
	}

	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if gs, err = svc.repo.CreateGameSession(ctx, gs, exec); err != nil {
			return errors.Wrap(err, "creating game session")
		}
		if gs.Status != StatusCompleted {
			return nil
		}
		_, err = svc.progressSvc.AddScore(ctx, progress.GameScore{
			ChildID:     gs.ChildID,
			Level:       gs.Level,
			GameID:      gs.GameID,
			Score:       gs.Score,
			Total:       gs.TotalQuestions,
			Stars:       gs.Stars,
			CompletedAt: gs.EndTime,
		}, exec)
		return err
	})
	return gs, err
}

func (svc *Service) SaveCalming(ctx context.Context, nc NewCalmingEpisode) (CalmingEpisode, error) {
	ep, err := svc.repo.CreateCalmingEpisode(ctx, nc.Episode())
	return ep, errors.Wrap(err, "creating calming episode")
}

func (svc *Service) ListCalming(ctx context.Context, filter CalmingFilter) ([]CalmingEpisode, error) {
	filter.Clean()
	return svc.repo.QueryCalmingEpisodes(ctx, filter)
}
