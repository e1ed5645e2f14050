package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	wsbroadcast "github.com/trezcool/tulia/services/broadcast/ws"
	"github.com/trezcool/tulia/services/monitor"
)

type (
	monitorApi struct {
		manager     *monitor.Manager
		progressSvc *progress.Service
		hub         *wsbroadcast.Hub
		validate    *validator.Validate
	}

	StartMonitorRequest struct {
		// Level defaults to the child's current level.
		Level int `json:"level" validate:"omitempty,min=1,max=3"`
	}

	// SampleRequest is an already classified sample. Confidence may be a number or a numeric string.
	SampleRequest struct {
		Emotion    string      `json:"emotion"`
		Confidence interface{} `json:"confidence"`
	}

	ModuleRequest struct {
		ModuleID int `json:"module_id" validate:"min=0,max=6"`
	}

	MonitorState struct {
		emotion.State
		ChildID string `json:"child_id"`
		Level   int    `json:"level"`
	}

	SampleResponse struct {
		MonitorState
		Transition *emotion.Transition `json:"transition,omitempty"`
	}

	ResumeResponse struct {
		Fragment string `json:"fragment"`
		Module   int    `json:"module"`
	}
)

func registerMonitorAPI(g *echo.Group, loadChild echo.MiddlewareFunc, deps *Deps) {
	api := monitorApi{
		manager:     deps.Monitor,
		progressSvc: deps.ProgressSvc,
		hub:         deps.Hub,
		validate:    deps.Validate,
	}

	mg := g.Group("/children/:id/monitor", loadChild)
	mg.POST("", api.start)
	mg.GET("", api.retrieve)
	mg.DELETE("", api.stop)
	mg.POST("/samples", api.observe)
	mg.POST("/frame", api.frame)
	mg.PUT("/module", api.setModule)
	mg.POST("/calming-games", api.calmingGame)
	mg.GET("/resume", api.resume)
	mg.GET("/ws", api.stream)
}

func newMonitorState(sess *monitor.Session) MonitorState {
	return MonitorState{State: sess.State(), ChildID: sess.Child.ID, Level: sess.Level}
}

func (api *monitorApi) session(ctx echo.Context) (*monitor.Session, error) {
	return api.manager.Get(ctx.Param("id"))
}

// Handlers

func (api *monitorApi) start(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}

	var data StartMonitorRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartMonitorRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}
	if data.Level == 0 {
		data.Level = chld.CurrentLevel
	}

	sess := api.manager.Start(chld, data.Level)
	return ctx.JSON(http.StatusCreated, newMonitorState(sess))
}

func (api *monitorApi) retrieve(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newMonitorState(sess))
}

func (api *monitorApi) stop(ctx echo.Context) error {
	if err := api.manager.Stop(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *monitorApi) observe(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}

	var data SampleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SampleRequest")
	}

	sample := emotion.NewSample(data.Emotion, emotion.CoerceConfidence(data.Confidence), time.Now())
	resp := SampleResponse{}
	if t, ok := sess.Observe(sample); ok {
		resp.Transition = &t
	}
	resp.MonitorState = newMonitorState(sess)
	return ctx.JSON(http.StatusOK, resp)
}

func (api *monitorApi) frame(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	image, audio, err := readMedia(ctx)
	if err != nil {
		return err
	}
	sess.PutFrame(image)
	sess.PutAudio(audio)
	return ctx.NoContent(http.StatusAccepted)
}

func (api *monitorApi) setModule(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}

	var data ModuleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModuleRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	sess.SetActiveModule(data.ModuleID)
	if sess.Level > 0 {
		if _, err = api.progressSvc.SetLastPlayed(ctx.Request().Context(), sess.Child.ID, sess.Level, data.ModuleID); err != nil {
			return errors.Wrap(err, "saving last played game")
		}
	}
	return ctx.JSON(http.StatusOK, newMonitorState(sess))
}

func (api *monitorApi) calmingGame(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	sess.CalmingGameCompleted()
	return ctx.NoContent(http.StatusNoContent)
}

// resume hands out the pending resume signal once.
func (api *monitorApi) resume(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	id, ok, err := api.manager.TakeResume(ctx.Request().Context(), chld.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, ResumeResponse{Fragment: emotion.FormatResumeFragment(id), Module: id})
}

func (api *monitorApi) stream(ctx echo.Context) error {
	if api.hub == nil {
		return errHttpNotFound
	}
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	if err = api.hub.Serve(ctx.Response(), ctx.Request(), sess.Child.ID, sess.State()); err != nil {
		// the upgrader already answered
		ctx.Logger().Warn(err)
	}
	return nil
}
