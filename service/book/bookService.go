package booksvc

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"libraryapi/model"
	bookrepo "libraryapi/repository/book"
	"libraryapi/util/apperr"
)

const (
	ErrBookNotFound apperr.Code = "BOOK_NOT_FOUND"
	ErrInvalidBook  apperr.Code = "INVALID_BOOK"
	ErrForbidden    apperr.Code = "FORBIDDEN"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]model.Book, int64, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type Input struct {
	Title     string
	Author    string
	Cover     model.Cover
	Inventory int64
	DailyFee  decimal.Decimal
}

type Page struct {
	Items   []model.Book `json:"items"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int64        `json:"total"`
}

type Service interface {
	Create(ctx context.Context, caller model.Caller, in Input) (*model.Book, error)
	Update(ctx context.Context, caller model.Caller, id int64, in Input) (*model.Book, error)
	Delete(ctx context.Context, caller model.Caller, id int64) error
	List(ctx context.Context, page, perPage int) (*Page, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, caller model.Caller, in Input) (*model.Book, error) {
	if !caller.Privileged {
		return nil, apperr.New(apperr.Permission, ErrForbidden, "forbidden")
	}
	b, err := build(in)
	if err != nil {
		return nil, err
	}
	if err := s.r.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Update(ctx context.Context, caller model.Caller, id int64, in Input) (*model.Book, error) {
	if !caller.Privileged {
		return nil, apperr.New(apperr.Permission, ErrForbidden, "forbidden")
	}
	b, err := build(in)
	if err != nil {
		return nil, err
	}
	b.ID = id
	if err := s.r.Update(ctx, b); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if !caller.Privileged {
		return apperr.New(apperr.Permission, ErrForbidden, "forbidden")
	}
	return notFound(s.r.Delete(ctx, id))
}

func (s *service) List(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	items, total, err := s.r.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Page: page, PerPage: perPage, Total: total}, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.Detail(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func build(in Input) (*model.Book, error) {
	fields := map[string]string{}
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	cover := model.Cover(strings.ToUpper(string(in.Cover)))
	if title == "" {
		fields["title"] = "required"
	}
	if author == "" {
		fields["author"] = "required"
	}
	if !cover.Valid() {
		fields["cover"] = "must be HARD or SOFT"
	}
	if in.Inventory < 0 {
		fields["inventory"] = "must be >= 0"
	}
	if !in.DailyFee.IsPositive() {
		fields["daily_fee"] = "must be > 0"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(ErrInvalidBook, "invalid book", fields)
	}
	return &model.Book{
		Title:     title,
		Author:    author,
		Cover:     cover,
		Inventory: in.Inventory,
		DailyFee:  in.DailyFee.Round(2),
	}, nil
}

func notFound(err error) error {
	if errors.Is(err, bookrepo.ErrNotFound) {
		return apperr.New(apperr.NotFound, ErrBookNotFound, "book not found")
	}
	return err
}
