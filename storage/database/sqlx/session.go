package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/session"
)

type episodeRow struct {
	ID              string      `db:"id"`
	ChildID         string      `db:"child_id"`
	StartTime       time.Time   `db:"start_time"`
	EndTime         time.Time   `db:"end_time"`
	DurationMinutes int         `db:"duration_minutes"`
	EmotionBefore   null.String `db:"emotion_before"`
	EmotionAfter    null.String `db:"emotion_after"`
	GamesCompleted  int         `db:"games_completed"`
	Improvement     bool        `db:"improvement"`
	ResumeModule    null.Int    `db:"resume_module"`
}

type sessionRepository struct {
	repository
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(exec core.DBExecutor) *sessionRepository {
	return &sessionRepository{repository{exec: exec}}
}

func (repo sessionRepository) CreateGameSession(ctx context.Context, gs session.GameSession, exec ...core.DBExecutor) (session.GameSession, error) {
	samples, err := json.Marshal(gs.EmotionDetected)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "encoding detected emotions")
	}
	gs.ID = uuid.New().String()
	_, err = repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO game_session (id, child_id, game_id, level, start_time, end_time, duration, score, stars,
			correct_answers, total_questions, emotion_detected, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		gs.ID, gs.ChildID, gs.GameID, gs.Level, gs.StartTime.UTC(), gs.EndTime.UTC(), gs.Duration, gs.Score,
		null.NewInt(gs.Stars, gs.Stars > 0), gs.CorrectAnswers, gs.TotalQuestions, types.JSONText(samples), gs.Status,
	)
	if err != nil {
		return session.GameSession{}, errors.Wrap(err, "inserting game session")
	}
	return gs, nil
}

func (repo sessionRepository) CreateCalmingEpisode(ctx context.Context, ep session.CalmingEpisode, exec ...core.DBExecutor) (session.CalmingEpisode, error) {
	ep.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO calming_episode (id, child_id, start_time, end_time, duration_minutes, emotion_before, emotion_after,
			games_completed, improvement, resume_module)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ep.ID, ep.ChildID, ep.StartTime.UTC(), ep.EndTime.UTC(), ep.DurationMinutes,
		null.NewString(ep.EmotionBefore, ep.EmotionBefore != ""), null.NewString(ep.EmotionAfter, ep.EmotionAfter != ""),
		ep.GamesCompleted, ep.Improvement, null.NewInt(ep.ResumeModule, ep.ResumeModule > 0),
	)
	if err != nil {
		return session.CalmingEpisode{}, errors.Wrap(err, "inserting calming episode")
	}
	return ep, nil
}

func (repo sessionRepository) QueryCalmingEpisodes(ctx context.Context, filter session.CalmingFilter, exec ...core.DBExecutor) ([]session.CalmingEpisode, error) {
	filter.Clean()
	var rows []episodeRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT id, child_id, start_time, end_time, duration_minutes, emotion_before, emotion_after,
			games_completed, improvement, resume_module
		FROM calming_episode WHERE ($1 = '' OR child_id::text = $1) ORDER BY start_time DESC LIMIT $2`,
		filter.ChildID, filter.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying calming episodes")
	}
	episodes := make([]session.CalmingEpisode, 0, len(rows))
	for _, r := range rows {
		episodes = append(episodes, session.CalmingEpisode{
			ID:              r.ID,
			ChildID:         r.ChildID,
			StartTime:       r.StartTime.UTC(),
			EndTime:         r.EndTime.UTC(),
			DurationMinutes: r.DurationMinutes,
			EmotionBefore:   r.EmotionBefore.String,
			EmotionAfter:    r.EmotionAfter.String,
			GamesCompleted:  r.GamesCompleted,
			Improvement:     r.Improvement,
			ResumeModule:    r.ResumeModule.Int,
		})
	}
	return episodes, nil
}
