package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core/child"
)

// childMiddleware loads the child of the `:id` path param into the context's "object".
func childMiddleware(svc *child.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			chld, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting child")
			}
			ctx.Set("object", chld)
			return next(ctx)
		}
	}
}

func getContextChild(ctx echo.Context) (child.Child, error) {
	chld, ok := ctx.Get("object").(child.Child)
	if !ok {
		return child.Child{}, errors.Wrap(errChildNotFoundCtx, "retrieving object from context")
	}
	return chld, nil
}
