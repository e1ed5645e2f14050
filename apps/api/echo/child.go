package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
)

type childApi struct {
	svc        *child.Service
	avatarSvc  *avatar.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerChildAPI(g *echo.Group, loadChild echo.MiddlewareFunc, deps *Deps) {
	api := childApi{
		svc:        deps.ChildSvc,
		avatarSvc:  deps.AvatarSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	cg := g.Group("/children")
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id", loadChild)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/parents", api.parents)
	dg.GET("/avatar", api.retrieveAvatar)
	dg.PUT("/avatar", api.updateAvatar)
}

// Handlers

func (api *childApi) create(ctx echo.Context) error {
	var data child.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reg, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering child")
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, chld)
}

func (api *childApi) update(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}

	var data child.UpdateChild
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	chld, err = api.svc.Update(ctx.Request().Context(), chld, data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, chld)
}

func (api *childApi) destroy(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), chld.ID); err != nil {
		return errors.Wrap(err, "deleting child")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *childApi) parents(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	parents, err := api.svc.Parents(ctx.Request().Context(), chld.ID)
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	if parents == nil {
		parents = []child.Parent{}
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (api *childApi) retrieveAvatar(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}
	cfg, err := api.avatarSvc.Get(ctx.Request().Context(), chld.ID)
	if err != nil {
		return errors.Wrap(err, "getting avatar")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *childApi) updateAvatar(ctx echo.Context) error {
	chld, err := getContextChild(ctx)
	if err != nil {
		return err
	}

	var data avatar.UpdateConfig
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateConfig")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cfg, err := api.avatarSvc.Update(ctx.Request().Context(), chld.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating avatar")
	}
	return ctx.JSON(http.StatusOK, cfg)
}
