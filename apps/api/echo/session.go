package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core/session"
)

type sessionApi struct {
	svc *session.Service
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service) {
	api := sessionApi{svc: svc}

	sg := g.Group("/sessions", jwt)
	sg.GET("/active", api.active)
}

func (api *sessionApi) active(ctx echo.Context) error {
	sess, err := api.svc.Active(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting active session")
	}
	return ok(ctx, sess)
}
