package book

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraryapi/app/echoServer/jwtx"
	"libraryapi/app/echoServer/reply"
	"libraryapi/model"
	booksvc "libraryapi/service/book"
)

type Controller struct {
	Svc booksvc.Service
	Log *slog.Logger
}

func (h *Controller) bind(c echo.Context) (booksvc.Input, error) {
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return booksvc.Input{}, echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if err := c.Validate(&req); err != nil {
		return booksvc.Input{}, err
	}
	return booksvc.Input{
		Title:     req.Title,
		Author:    req.Author,
		Cover:     model.Cover(req.Cover),
		Inventory: req.Inventory,
		DailyFee:  req.DailyFee,
	}, nil
}

// POST /v1/books  (admin)
func (h *Controller) Create(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	in, err := h.bind(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	b, err := h.Svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// PUT /v1/books/:id  (admin)
func (h *Controller) Update(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	id, err := reply.ID(c, "id")
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	in, err := h.bind(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	b, err := h.Svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// DELETE /v1/books/:id  (admin)
func (h *Controller) Delete(c echo.Context) error {
	caller, err := jwtx.CallerFromContext(c)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	id, err := reply.ID(c, "id")
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	if err := h.Svc.Delete(c.Request().Context(), caller, id); err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /v1/books?page=&per_page=
func (h *Controller) List(c echo.Context) error {
	page, err := reply.QueryInt(c, "page", 1)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	perPage, err := reply.QueryInt(c, "per_page", booksvc.DefaultPerPage)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	p, err := h.Svc.List(c.Request().Context(), page, perPage)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := reply.ID(c, "id")
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	b, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return reply.Error(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}
