package session

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tulia/core/emotion"
)

// Statuses
const (
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusAbandoned   = "abandoned"
)

const DefaultCalmingLimit = 20

type GameSession struct {
	ID              string           `json:"id"`
	ChildID         string           `json:"child_id"`
	GameID          string           `json:"game_id"`
	Level           int              `json:"level"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	Duration        int              `json:"duration"` // seconds
	Score           int              `json:"score"`
	Stars           int              `json:"stars"`
	CorrectAnswers  int              `json:"correct_answers"`
	TotalQuestions  int              `json:"total_questions"`
	EmotionDetected []emotion.Sample `json:"emotion_detected"`
	Status          string           `json:"status"`
}

type NewGameSession struct {
	ChildID         string           `json:"child_id" validate:"required,notblank"`
	GameID          string           `json:"game_id" validate:"required,notblank"`
	Level           int              `json:"level" validate:"required,min=1,max=3"`
	StartTime       time.Time        `json:"start_time" validate:"required"`
	EndTime         time.Time        `json:"end_time" validate:"required,gtefield=StartTime"`
	Duration        int              `json:"duration" validate:"min=0"`
	Score           int              `json:"score" validate:"min=0"`
	Stars           int              `json:"stars" validate:"omitempty,min=1,max=3"`
	CorrectAnswers  int              `json:"correct_answers" validate:"min=0"`
	TotalQuestions  int              `json:"total_questions" validate:"min=0,gtefield=CorrectAnswers"`
	EmotionDetected []emotion.Sample `json:"emotion_detected"`
	Status          string           `json:"status" validate:"required,oneof=completed interrupted abandoned"`
}

func (ns *NewGameSession) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

// CalmingEpisode is one stay in calming mode.
type CalmingEpisode struct {
	ID              string    `json:"id"`
	ChildID         string    `json:"child_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	EmotionBefore   string    `json:"emotion_before"`
	EmotionAfter    string    `json:"emotion_after"`
	GamesCompleted  int       `json:"games_completed"`
	Improvement     bool      `json:"improvement"`
	// ResumeModule is the learning module the child went back to, 0 if none.
	ResumeModule int `json:"resume_module,omitempty"`
}

type NewCalmingEpisode struct {
	ChildID        string    `json:"child_id" validate:"required,notblank"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required,gtefield=StartTime"`
	EmotionBefore  string    `json:"emotion_before"`
	EmotionAfter   string    `json:"emotion_after"`
	GamesCompleted int       `json:"games_completed" validate:"min=0"`
	ResumeModule   int       `json:"resume_module" validate:"min=0,max=6"`
}

func (nc *NewCalmingEpisode) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

// Episode derives the stored episode: duration is rounded to the nearest minute & an emotion change counts as improvement.
func (nc NewCalmingEpisode) Episode() CalmingEpisode {
	return CalmingEpisode{
		ChildID:         nc.ChildID,
		StartTime:       nc.StartTime.UTC(),
		EndTime:         nc.EndTime.UTC(),
		DurationMinutes: int(math.Round(nc.EndTime.Sub(nc.StartTime).Minutes())),
		EmotionBefore:   nc.EmotionBefore,
		EmotionAfter:    nc.EmotionAfter,
		GamesCompleted:  nc.GamesCompleted,
		Improvement:     nc.EmotionBefore != nc.EmotionAfter,
		ResumeModule:    nc.ResumeModule,
	}
}

type CalmingFilter struct {
	ChildID string `query:"child_id"`
	Limit   int    `query:"limit"`
}

func (cf *CalmingFilter) Clean() {
	if cf.Limit <= 0 {
		cf.Limit = DefaultCalmingLimit
	}
}
