package progress

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tulia/core"
)

const (
	GamesPerLevel = 6
	MaxLevel      = 3
)

// LevelState is a child's progress within one level.
type LevelState struct {
	Game1Completed bool `json:"game1Completed"`
	Game2Completed bool `json:"game2Completed"`
	Game3Completed bool `json:"game3Completed"`
	Game4Completed bool `json:"game4Completed"`
	Game5Completed bool `json:"game5Completed"`
	Game6Completed bool `json:"game6Completed"`
	// LastPlayedGame is the game to resume, nil once the level is left.
	LastPlayedGame *int `json:"lastPlayedGame" validate:"omitempty,min=1,max=6"`
}

func (ls LevelState) completed() [GamesPerLevel]bool {
	return [GamesPerLevel]bool{
		ls.Game1Completed, ls.Game2Completed, ls.Game3Completed,
		ls.Game4Completed, ls.Game5Completed, ls.Game6Completed,
	}
}

// Completed reports whether game (1-based) is completed.
func (ls LevelState) Completed(game int) bool {
	if game < 1 || game > GamesPerLevel {
		return false
	}
	return ls.completed()[game-1]
}

// MarkCompleted sets game (1-based) as completed.
func (ls *LevelState) MarkCompleted(game int) {
	switch game {
	case 1:
		ls.Game1Completed = true
	case 2:
		ls.Game2Completed = true
	case 3:
		ls.Game3Completed = true
	case 4:
		ls.Game4Completed = true
	case 5:
		ls.Game5Completed = true
	case 6:
		ls.Game6Completed = true
	}
}

func (ls LevelState) CompletedCount() int {
	var n int
	for _, done := range ls.completed() {
		if done {
			n++
		}
	}
	return n
}

func (ls LevelState) Percent() int {
	return ls.CompletedCount() * 100 / GamesPerLevel
}

// ResumableGame returns the last played game if it was left unfinished.
func (ls LevelState) ResumableGame() (int, bool) {
	if ls.LastPlayedGame == nil || ls.Completed(*ls.LastPlayedGame) {
		return 0, false
	}
	return *ls.LastPlayedGame, true
}

func (ls *LevelState) Validate(validate *validator.Validate) error {
	return validate.Struct(ls)
}

// GameScore is one completed game.
type GameScore struct {
	ChildID     string    `json:"child_id"`
	Level       int       `json:"level"`
	GameID      string    `json:"game_id"` // <level>-<game>
	GameTitle   string    `json:"game_title"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Stars       int       `json:"stars"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// ScoreOrderingFields are the fields game scores can be ordered by.
var ScoreOrderingFields = map[string]bool{"completed_at": true, "level": true, "score": true, "stars": true}

// CleanScoreOrdering drops unknown fields. Scores default to chronological order.
func CleanScoreOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if ScoreOrderingFields[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, core.DBOrdering{Field: "completed_at", Ascending: true})
	}
	return cleaned
}

// NewGameResult is what the host page reports when a game ends.
type NewGameResult struct {
	Level       int       `json:"level" validate:"required,min=1,max=3"`
	GameID      int       `json:"game_id" validate:"required,min=1,max=6"`
	GameTitle   string    `json:"game_title"`
	Score       int       `json:"score" validate:"min=0"`
	Total       int       `json:"total" validate:"min=0,gtefield=Score"`
	CompletedAt time.Time `json:"completed_at"`
}

func (gr *NewGameResult) Validate(validate *validator.Validate) error {
	return validate.Struct(gr)
}

func GameKey(level, game int) string {
	return fmt.Sprintf("%d-%d", level, game)
}

// Stars grades a score: 90% and up is 3 stars, 60% and up 2, anything above 0 is 1.
func Stars(score, total int) int {
	if total <= 0 {
		return 0
	}
	pct := float64(score) / float64(total)
	switch {
	case pct >= .9:
		return 3
	case pct >= .6:
		return 2
	case pct > 0:
		return 1
	default:
		return 0
	}
}
