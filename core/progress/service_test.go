package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	inmemdb "github.com/trezcool/tulia/storage/database/inmem"
)

func newService() *progress.Service {
	return progress.NewService(nil, inmemdb.NewProgressRepository(inmemdb.Open()))
}

func TestStars(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{score: 5, total: 5, want: 3},
		{score: 9, total: 10, want: 3},
		{score: 6, total: 10, want: 2},
		{score: 1, total: 10, want: 1},
		{score: 0, total: 10, want: 0},
		{score: 3, total: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, progress.Stars(tt.score, tt.total), "Stars(%d, %d)", tt.score, tt.total)
	}
}

func TestLevelState_ResumableGame(t *testing.T) {
	var ls progress.LevelState
	_, ok := ls.ResumableGame()
	assert.False(t, ok)

	game := 4
	ls.LastPlayedGame = &game
	got, ok := ls.ResumableGame()
	assert.True(t, ok)
	assert.Equal(t, 4, got)

	ls.MarkCompleted(4)
	_, ok = ls.ResumableGame()
	assert.False(t, ok)
	assert.Equal(t, 1, ls.CompletedCount())
	assert.Equal(t, 16, ls.Percent())
}

func TestService_GetState(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	state, err := svc.GetState(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, progress.LevelState{}, state)

	for _, level := range []int{0, 4} {
		_, err = svc.GetState(ctx, "c1", level)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "level", verr.Fields[0].Field)
	}
}

func TestService_SetLastPlayed(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	state, err := svc.SetLastPlayed(ctx, "c1", 1, 3)
	require.NoError(t, err)
	require.NotNil(t, state.LastPlayedGame)
	assert.Equal(t, 3, *state.LastPlayedGame)

	state, err = svc.GetState(ctx, "c1", 1)
	require.NoError(t, err)
	require.NotNil(t, state.LastPlayedGame)
	assert.Equal(t, 3, *state.LastPlayedGame)

	state, err = svc.SetLastPlayed(ctx, "c1", 1, 0)
	require.NoError(t, err)
	assert.Nil(t, state.LastPlayedGame)
}

func TestService_LogGame(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	now := time.Now().UTC()

	score, err := svc.LogGame(ctx, "c1", progress.NewGameResult{Level: 2, GameID: 5, GameTitle: "Shapes", Score: 7, Total: 10, CompletedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "2-5", score.GameID)
	assert.Equal(t, 2, score.Stars)

	_, err = svc.LogGame(ctx, "c1", progress.NewGameResult{Level: 1, GameID: 1, Score: 10, Total: 10, CompletedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	state, err := svc.GetState(ctx, "c1", 2)
	require.NoError(t, err)
	assert.True(t, state.Completed(5))
	assert.Equal(t, 1, state.CompletedCount())

	scores, err := svc.Scores(ctx, "c1", nil)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "2-5", scores[0].GameID)

	scores, err = svc.Scores(ctx, "c1", []core.DBOrdering{{Field: "stars"}, {Field: "bogus"}})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 3, scores[0].Stars)

	scores, err = svc.Scores(ctx, "other", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestCleanScoreOrdering(t *testing.T) {
	assert.Equal(t,
		[]core.DBOrdering{{Field: "completed_at", Ascending: true}},
		progress.CleanScoreOrdering([]core.DBOrdering{{Field: "password"}}),
	)
	assert.Equal(t,
		[]core.DBOrdering{{Field: "level", Ascending: true}, {Field: "score"}},
		progress.CleanScoreOrdering([]core.DBOrdering{{Field: "level", Ascending: true}, {Field: "id"}, {Field: "score"}}),
	)
}

func TestModuleBounds(t *testing.T) {
	require.Equal(t, emotion.DefaultModulesPerLevel, progress.GamesPerLevel)
	validate, _ := core.NewValidator()

	for game, valid := range map[int]bool{1: true, progress.GamesPerLevel: true, progress.GamesPerLevel + 1: false} {
		gr := progress.NewGameResult{Level: 1, GameID: game, Score: 1, Total: 1}
		assert.Equal(t, valid, gr.Validate(validate) == nil, "game %d", game)

		last := game
		ls := progress.LevelState{LastPlayedGame: &last}
		assert.Equal(t, valid, ls.Validate(validate) == nil, "last played %d", game)
	}
}
