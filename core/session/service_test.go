package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
	inmemdb "github.com/trezcool/tulia/storage/database/inmem"
)

func newServices() (*session.Service, *progress.Service) {
	db := inmemdb.Open()
	progressSvc := progress.NewService(nil, inmemdb.NewProgressRepository(db))
	return session.NewService(nil, inmemdb.NewSessionRepository(db), progressSvc), progressSvc
}

func TestService_Save(t *testing.T) {
	svc, progressSvc := newServices()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		status     string
		wantScores int
	}{
		{status: session.StatusInterrupted, wantScores: 0},
		{status: session.StatusAbandoned, wantScores: 0},
		{status: session.StatusCompleted, wantScores: 1},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			gs, err := svc.Save(ctx, session.NewGameSession{
				ChildID: "c1", GameID: "1-2", Level: 1,
				StartTime: start, EndTime: start.Add(3 * time.Minute), Duration: 180,
				Score: 8, Stars: 2, CorrectAnswers: 8, TotalQuestions: 10,
				Status: tt.status,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, gs.ID)
			assert.NotNil(t, gs.EmotionDetected)

			scores, err := progressSvc.Scores(ctx, "c1", nil)
			require.NoError(t, err)
			assert.Len(t, scores, tt.wantScores)
		})
	}
}

func TestService_Save_Validation(t *testing.T) {
	validate, _ := core.NewValidator()
	start := time.Now()
	ns := session.NewGameSession{
		ChildID: "c1", GameID: "1-2", Level: 1,
		StartTime: start, EndTime: start.Add(-time.Minute),
		CorrectAnswers: 5, TotalQuestions: 3,
		Status:          "paused",
		EmotionDetected: []emotion.Sample{},
	}
	assert.Error(t, ns.Validate(validate))
}

func TestService_Calming(t *testing.T) {
	svc, _ := newServices()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, after := range []string{"sad", "happy", "neutral"} {
		ep, err := svc.SaveCalming(ctx, session.NewCalmingEpisode{
			ChildID:        "c1",
			StartTime:      start.Add(time.Duration(i) * time.Hour),
			EndTime:        start.Add(time.Duration(i)*time.Hour + 4*time.Minute + 30*time.Second),
			EmotionBefore:  "sad",
			EmotionAfter:   after,
			GamesCompleted: i,
			ResumeModule:   i,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, ep.DurationMinutes)
		assert.Equal(t, after != "sad", ep.Improvement)
	}
	_, err := svc.SaveCalming(ctx, session.NewCalmingEpisode{ChildID: "c2", StartTime: start, EndTime: start})
	require.NoError(t, err)

	eps, err := svc.ListCalming(ctx, session.CalmingFilter{ChildID: "c1"})
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, "neutral", eps[0].EmotionAfter)
	assert.Equal(t, 2, eps[0].ResumeModule)

	eps, err = svc.ListCalming(ctx, session.CalmingFilter{ChildID: "c1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, eps, 1)
}

func TestNewCalmingEpisode_Episode(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Duration
		want int
	}{
		{d: 0, want: 0},
		{d: 29 * time.Second, want: 0},
		{d: 30 * time.Second, want: 1},
		{d: 90 * time.Second, want: 2},
		{d: 2*time.Minute + 29*time.Second, want: 2},
		{d: 10 * time.Minute, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			ep := session.NewCalmingEpisode{ChildID: "c1", StartTime: start, EndTime: start.Add(tt.d)}.Episode()
			assert.Equal(t, tt.want, ep.DurationMinutes)
		})
	}
}
