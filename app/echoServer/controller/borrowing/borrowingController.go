package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"libraryapi/app/echoServer/jwtx"
	"libraryapi/app/echoServer/reply"
	"libraryapi/model"
	borrowingsvc "libraryapi/service/borrowing"
	"libraryapi/util/apperr"
)

type Controller struct {
	Svc borrowingsvc.Service
	Log *slog.Logger
}

// POST /v1/borrowings
func (h *Controller) Create(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := c.Validate(&req); err != nil {
		return reply.Error(c, h.Log, err)
	}
	// already checked by the datetime rule
	expected, _ := time.Parse(time.DateOnly, req.ExpectedReturnDate)

	b, err := h.Svc.Create(c.Request().Context(), caller, borrowingsvc.CreateInput{
		BookID:             req.Book,
		ExpectedReturnDate: expected,
	})
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// POST /v1/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	id, err := reply.ID(c, "id")
	if err != nil {
		return reply.Error(c, h.Log, err)
	}

	out, err := h.Svc.Return(c.Request().Context(), caller, id)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	resp := ReturnResp{Message: out.Message}
	if out.Fine != nil {
		resp.PaymentID = &out.Fine.ID
		resp.Fine = out.Fine.MoneyToPay.StringFixed(2)
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /v1/borrowings?is_active=&user_id=
func (h *Controller) List(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}

	var f model.BorrowingFilter
	if raw := c.QueryParam("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return reply.Error(c, h.Log, apperr.Invalid(reply.ErrInvalidParam, "invalid is_active",
				map[string]string{"is_active": "boolean"}))
		}
		f.IsActive = &v
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return reply.Error(c, h.Log, apperr.Invalid(reply.ErrInvalidParam, "invalid user_id",
				map[string]string{"user_id": "positive integer"}))
		}
		f.UserID = &v
	}

	rows, err := h.Svc.List(c.Request().Context(), caller, f)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	if rows == nil {
		rows = []model.ListRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	id, err := reply.ID(c, "id")
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	d, err := h.Svc.Detail(c.Request().Context(), caller, id)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}
