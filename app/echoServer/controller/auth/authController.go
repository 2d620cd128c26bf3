package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraryapi/app/echoServer/reply"
	"libraryapi/model"
	authsvc "libraryapi/service/auth"
)

type Controller struct {
	Svc authsvc.Service
	Log *slog.Logger
}

// POST /v1/users/register
func (ct *Controller) Register(c echo.Context) error {
	var req model.RegisterReq
	if err := c.Bind(&req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return reply.Error(c, ct.Log, err)
	}

	u, token, err := ct.Svc.Register(c.Request().Context(), req)
	if err != nil {
		return reply.Error(c, ct.Log, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registered",
		"user":    u,
		"token":   token,
	})
}

// POST /v1/users/login
func (ct *Controller) Login(c echo.Context) error {
	var req model.LoginReq
	if err := c.Bind(&req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return reply.Error(c, ct.Log, err)
	}

	_, token, err := ct.Svc.Login(c.Request().Context(), req)
	if err != nil {
		return reply.Error(c, ct.Log, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "login success",
		"token":   token,
	})
}
