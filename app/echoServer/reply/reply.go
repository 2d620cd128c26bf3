package reply

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"libraryapi/util/apperr"
)

const ErrInvalidParam apperr.Code = "INVALID_PARAM"

// Error writes err as {message, code, errors}. Server faults are logged
// with the request id; their cause never reaches the client.
// echo HTTP errors are handed back to echo untouched.
func Error(c echo.Context, log *slog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	status := apperr.HTTPStatus(err)
	body := echo.Map{"message": apperr.PublicMessage(err)}
	if ae, ok := apperr.As(err); ok {
		body["code"] = ae.Code
		if len(ae.Fields) > 0 {
			body["errors"] = ae.Fields
		}
	}

	attrs := []any{
		"err", err,
		"status", status,
		"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"path", c.Path(),
		"method", c.Request().Method,
	}
	if status >= 500 {
		log.Error("request failed", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}
	return c.JSON(status, body)
}

// ID parses a positive integer path parameter.
func ID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(ErrInvalidParam, "invalid "+name, map[string]string{name: "positive integer"})
	}
	return id, nil
}

// QueryInt reads an optional integer query parameter, def when absent.
func QueryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid(ErrInvalidParam, "invalid "+name, map[string]string{name: "integer"})
	}
	return n, nil
}
