package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/session"
)

type sessionApi struct {
	svc      *session.Service
	childSvc *child.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, deps *Deps) {
	api := sessionApi{svc: deps.SessionSvc, childSvc: deps.ChildSvc, validate: deps.Validate}

	g.POST("/sessions", api.create)
	g.POST("/calming-sessions", api.createCalming)
	g.GET("/calming-sessions", api.queryCalming)
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewGameSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGameSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.childSvc.Get(ctx.Request().Context(), data.ChildID); err != nil {
		return errors.Wrap(err, "getting child")
	}

	gs, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving game session")
	}
	return ctx.JSON(http.StatusCreated, gs)
}

func (api *sessionApi) createCalming(ctx echo.Context) error {
	var data session.NewCalmingEpisode
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCalmingEpisode")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.childSvc.Get(ctx.Request().Context(), data.ChildID); err != nil {
		return errors.Wrap(err, "getting child")
	}

	ep, err := api.svc.SaveCalming(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving calming episode")
	}
	return ctx.JSON(http.StatusCreated, ep)
}

func (api *sessionApi) queryCalming(ctx echo.Context) error {
	filter := new(session.CalmingFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []session.CalmingEpisode{})
	}

	episodes, err := api.svc.ListCalming(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying calming episodes")
	}
	if episodes == nil {
		episodes = []session.CalmingEpisode{}
	}
	return ctx.JSON(http.StatusOK, episodes)
}
