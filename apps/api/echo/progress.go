package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/progress"
)

var errInvalidLevel = core.NewValidationError(progress.ErrInvalidLevel, core.FieldError{Field: "level", Error: progress.ErrInvalidLevel.Error()})

type (
	progressApi struct {
		svc      *progress.Service
		validate *validator.Validate
	}

	// LevelProgress is a level state along with its derived figures.
	LevelProgress struct {
		progress.LevelState
		Level         int `json:"level"`
		Done          int `json:"completed"`
		Percent       int `json:"percent"`
		ResumableGame int `json:"resumable_game,omitempty"`
	}
)

func newLevelProgress(level int, state progress.LevelState) LevelProgress {
	resumable, _ := state.ResumableGame()
	return LevelProgress{
		LevelState:    state,
		Level:         level,
		Done:          state.CompletedCount(),
		Percent:       state.Percent(),
		ResumableGame: resumable,
	}
}

func registerProgressAPI(g *echo.Group, loadChild echo.MiddlewareFunc, deps *Deps) {
	api := progressApi{svc: deps.ProgressSvc, validate: deps.Validate}

	pg := g.Group("/children/:id/progress", loadChild)
	pg.GET("/scores", api.scores)
	pg.POST("/games", api.logGame)
	pg.GET("/:level", api.retrieve)
	pg.PUT("/:level", api.update)
}

func levelParam(ctx echo.Context) (int, error) {
	level, err := strconv.Atoi(ctx.Param("level"))
	if err != nil || level < 1 || level > progress.MaxLevel {
		return 0, errInvalidLevel
	}
	return level, nil
}

// Handlers

func (api *progressApi) retrieve(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	level, err := levelParam(ctx)
	if err != nil {
		return err
	}

	state, err := api.svc.GetState(ctx.Request().Context(), chld.ID, level)
	if err != nil {
		return errors.Wrap(err, "getting level state")
	}
	return ctx.JSON(http.StatusOK, newLevelProgress(level, state))
}

func (api *progressApi) update(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	level, err := levelParam(ctx)
	if err != nil {
		return err
	}

	var data progress.LevelState
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LevelState")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	state, err := api.svc.SaveState(ctx.Request().Context(), chld.ID, level, data)
	if err != nil {
		return errors.Wrap(err, "saving level state")
	}
	return ctx.JSON(http.StatusOK, newLevelProgress(level, state))
}

func (api *progressApi) logGame(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}

	var data progress.NewGameResult
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGameResult")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	score, err := api.svc.LogGame(ctx.Request().Context(), chld.ID, data)
	if err != nil {
		return errors.Wrap(err, "logging game")
	}
	return ctx.JSON(http.StatusCreated, score)
}

func (api *progressApi) scores(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	ordering := NewOrdering(progress.ScoreOrderingFields, core.DBOrdering{Field: "completed_at", Ascending: true})
	ordering.Bind(ctx)

	scores, err := api.svc.Scores(ctx.Request().Context(), chld.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}
