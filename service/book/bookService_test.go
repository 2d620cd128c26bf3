package booksvc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"libraryapi/model"
	bookrepo "libraryapi/repository/book"
	booksvc "libraryapi/service/book"
	"libraryapi/util/apperr"
)

type repoMock struct {
	createFn func(ctx context.Context, b *model.Book) error
	updateFn func(ctx context.Context, b *model.Book) error
	deleteFn func(ctx context.Context, id int64) error
	listFn   func(ctx context.Context, limit, offset int) ([]model.Book, int64, error)
	detailFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) Update(ctx context.Context, b *model.Book) error { return m.updateFn(ctx, b) }
func (m *repoMock) Delete(ctx context.Context, id int64) error      { return m.deleteFn(ctx, id) }
func (m *repoMock) List(ctx context.Context, limit, offset int) ([]model.Book, int64, error) {
	return m.listFn(ctx, limit, offset)
}
func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return m.detailFn(ctx, id)
}

var (
	admin = model.Caller{UserID: 1, Privileged: true}
	user  = model.Caller{UserID: 2}
)

func validInput() booksvc.Input {
	return booksvc.Input{
		Title:     " Clean Code ",
		Author:    "Robert Martin",
		Cover:     "hard",
		Inventory: 3,
		DailyFee:  decimal.RequireFromString("1.50"),
	}
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{})
	in := booksvc.Input{Cover: "PAPER", Inventory: -1, DailyFee: decimal.Zero}

	_, err := s.Create(context.Background(), admin, in)
	require.Equal(t, booksvc.ErrInvalidBook, apperr.CodeOf(err))

	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Len(t, ae.Fields, 5)
	require.Contains(t, ae.Fields, "daily_fee")
}

func TestCreate_Success(t *testing.T) {
	m := &repoMock{createFn: func(ctx context.Context, b *model.Book) error {
		require.Equal(t, "Clean Code", b.Title)
		require.Equal(t, model.CoverHard, b.Cover)
		b.ID = 42
		return nil
	}}

	b, err := booksvc.New(m).Create(context.Background(), admin, validInput())
	require.NoError(t, err)
	require.Equal(t, int64(42), b.ID)
}

func TestMutations_RequirePrivilege(t *testing.T) {
	s := booksvc.New(&repoMock{})
	ctx := context.Background()

	_, err := s.Create(ctx, user, validInput())
	require.Equal(t, apperr.Permission, apperr.KindOf(err))
	_, err = s.Update(ctx, user, 1, validInput())
	require.Equal(t, apperr.Permission, apperr.KindOf(err))
	require.Equal(t, apperr.Permission, apperr.KindOf(s.Delete(ctx, user, 1)))
}

func TestUpdateAndDelete_NotFound(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, b *model.Book) error { return bookrepo.ErrNotFound },
		deleteFn: func(ctx context.Context, id int64) error { return bookrepo.ErrNotFound },
		detailFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, bookrepo.ErrNotFound },
	}
	s := booksvc.New(m)
	ctx := context.Background()

	_, err := s.Update(ctx, admin, 9, validInput())
	require.Equal(t, booksvc.ErrBookNotFound, apperr.CodeOf(err))
	require.Equal(t, booksvc.ErrBookNotFound, apperr.CodeOf(s.Delete(ctx, admin, 9)))
	_, err = s.Detail(ctx, 9)
	require.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestList_Pagination(t *testing.T) {
	var gotLimit, gotOffset int
	m := &repoMock{listFn: func(ctx context.Context, limit, offset int) ([]model.Book, int64, error) {
		gotLimit, gotOffset = limit, offset
		return []model.Book{}, 420, nil
	}}
	s := booksvc.New(m)
	ctx := context.Background()

	p, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, p.Page)
	require.Equal(t, booksvc.DefaultPerPage, gotLimit)
	require.Equal(t, 0, gotOffset)
	require.Equal(t, int64(420), p.Total)

	_, err = s.List(ctx, 3, 1000)
	require.NoError(t, err)
	require.Equal(t, booksvc.MaxPerPage, gotLimit)
	require.Equal(t, 400, gotOffset)
}

func TestList_Error(t *testing.T) {
	boom := errors.New("db down")
	m := &repoMock{listFn: func(ctx context.Context, limit, offset int) ([]model.Book, int64, error) {
		return nil, 0, boom
	}}
	_, err := booksvc.New(m).List(context.Background(), 1, 10)
	require.ErrorIs(t, err, boom)
}
