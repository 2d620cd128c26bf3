package jwtx

import (
	"github.com/labstack/echo/v4"

	"libraryapi/model"
	"libraryapi/util/apperr"
)

// context keys written by the identity middleware
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

var ErrNoCaller = apperr.New(apperr.Unauth, "UNAUTHENTICATED", "unauthenticated")

func CallerFromContext(c echo.Context) (model.Caller, error) {
	uid, ok := c.Get(KeyUserID).(int64)
	if !ok || uid <= 0 {
		return model.Caller{}, ErrNoCaller
	}
	role, _ := c.Get(KeyRole).(string)
	return model.Caller{UserID: uid, Privileged: role == model.RoleAdmin}, nil
}
