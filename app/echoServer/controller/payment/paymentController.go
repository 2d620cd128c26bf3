package payment

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraryapi/app/echoServer/jwtx"
	"libraryapi/app/echoServer/reply"
	"libraryapi/model"
	paymentsvc "libraryapi/service/payment"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

// POST /v1/payments
func (h *Controller) Create(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	var req CreatePaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := c.Validate(&req); err != nil {
		return reply.Error(c, h.Log, err)
	}

	out, err := h.Svc.Initiate(c.Request().Context(), caller, paymentsvc.InitiateInput{
		BorrowingID: req.BorrowingID,
		Money:       req.Money,
	})
	if err != nil {
		return reply.Error(c, h.Log, err)
	}

	status := http.StatusCreated
	if out.Type == model.PaymentFine {
		status = http.StatusOK
	}
	return c.JSON(status, CreatePaymentResp{
		PaymentID:  out.PaymentID,
		Type:       string(out.Type),
		SessionURL: out.SessionURL,
		SessionID:  out.SessionID,
		Amount:     out.Amount,
	})
}

// GET /v1/payments/success?session_id=
func (h *Controller) Success(c echo.Context) error {
	out, err := h.Svc.ConfirmSettlement(c.Request().Context(), c.QueryParam("session_id"))
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": out.Message, "payment_id": out.PaymentID})
}

// GET /v1/payments/cancel
func (h *Controller) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": h.Svc.Cancel()})
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	rows, err := h.Svc.List(c.Request().Context(), caller)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/payments/xendit
func (h *Controller) HandleXendit(c echo.Context) error {
	sig := c.Request().Header.Get("X-Callback-Token")
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unreadable body"})
	}

	if err := h.Svc.HandleXendit(c.Request().Context(), sig, raw); err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
