package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/progress"
)

var errLevelStateNotFound = core.NewNotFoundError("level state")

type (
	levelRow struct {
		CompletedGames pq.Int64Array `db:"completed_games"`
		LastPlayedGame null.Int      `db:"last_played_game"`
	}

	scoreRow struct {
		ChildID     string      `db:"child_id"`
		Level       int         `db:"level"`
		GameID      string      `db:"game_id"`
		GameTitle   null.String `db:"game_title"`
		Score       int         `db:"score"`
		Total       int         `db:"total"`
		Stars       int         `db:"stars"`
		CompletedAt time.Time   `db:"completed_at"`
	}
)

func (r levelRow) state() progress.LevelState {
	var state progress.LevelState
	for _, game := range r.CompletedGames {
		state.MarkCompleted(int(game))
	}
	state.LastPlayedGame = r.LastPlayedGame.Ptr()
	return state
}

func completedGames(state progress.LevelState) pq.Int64Array {
	games := make(pq.Int64Array, 0, progress.GamesPerLevel)
	for game := 1; game <= progress.GamesPerLevel; game++ {
		if state.Completed(game) {
			games = append(games, int64(game))
		}
	}
	return games
}

type progressRepository struct {
	repository
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{repository{exec: exec}}
}

func (repo progressRepository) GetLevelState(ctx context.Context, childID string, level int, exec ...core.DBExecutor) (progress.LevelState, error) {
	var row levelRow
	err := repo.getExec(exec).GetContext(ctx, &row,
		"SELECT completed_games, last_played_game FROM level_progress WHERE child_id = $1 AND level = $2", childID, level)
	if err != nil {
		return progress.LevelState{}, trapNoRowsErr(err, errLevelStateNotFound, "finding level state")
	}
	return row.state(), nil
}

func (repo progressRepository) SaveLevelState(ctx context.Context, childID string, level int, state progress.LevelState, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO level_progress (child_id, level, completed_games, last_played_game) VALUES ($1, $2, $3, $4)
		ON CONFLICT (child_id, level) DO UPDATE SET
			completed_games = EXCLUDED.completed_games, last_played_game = EXCLUDED.last_played_game`,
		childID, level, completedGames(state), null.IntFromPtr(state.LastPlayedGame),
	)
	return errors.Wrap(err, "upserting level state")
}

func (repo progressRepository) CreateGameScore(ctx context.Context, score progress.GameScore, exec ...core.DBExecutor) (progress.GameScore, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO game_score (child_id, level, game_id, game_title, score, total, stars, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		score.ChildID, score.Level, score.GameID, null.NewString(score.GameTitle, score.GameTitle != ""),
		score.Score, score.Total, score.Stars, score.CompletedAt.UTC(),
	)
	if err != nil {
		return progress.GameScore{}, errors.Wrap(err, "inserting game score")
	}
	return score, nil
}

func (repo progressRepository) QueryGameScores(ctx context.Context, childID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]progress.GameScore, error) {
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		// only whitelisted fields reach the query
		if progress.ScoreOrderingFields[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	orderBy = append(orderBy, "id")

	var rows []scoreRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT child_id, level, game_id, game_title, score, total, stars, completed_at
		FROM game_score WHERE child_id = $1 ORDER BY `+strings.Join(orderBy, ", "), childID)
	if err != nil {
		return nil, errors.Wrap(err, "querying game scores")
	}
	scores := make([]progress.GameScore, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, progress.GameScore{
			ChildID:     r.ChildID,
			Level:       r.Level,
			GameID:      r.GameID,
			GameTitle:   r.GameTitle.String,
			Score:       r.Score,
			Total:       r.Total,
			Stars:       r.Stars,
			CompletedAt: r.CompletedAt.UTC(),
		})
	}
	return scores, nil
}
