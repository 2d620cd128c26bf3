package borrowing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"libraryapi/model"
	bookrepo "libraryapi/repository/book"
	borrowingrepo "libraryapi/repository/borrowing"
	"libraryapi/util/apperr"
)

// memStore backs Repo, Inventory and FineLedger. WithTx serializes callers
// and restores the snapshot when fn fails, like a rolled back transaction.
type memStore struct {
	mu         sync.Mutex
	books      map[int64]model.Book
	borrowings map[int64]model.Borrowing
	payments   []model.Payment
	nextID     int64
}

func newStore(books ...model.Book) *memStore {
	s := &memStore{books: map[int64]model.Book{}, borrowings: map[int64]model.Borrowing{}}
	for _, b := range books {
		s.books[b.ID] = b
	}
	return s
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make(map[int64]model.Book, len(s.books))
	for k, v := range s.books {
		books[k] = v
	}
	borrowings := make(map[int64]model.Borrowing, len(s.borrowings))
	for k, v := range s.borrowings {
		borrowings[k] = v
	}
	payments := append([]model.Payment(nil), s.payments...)

	if err := fn(nil); err != nil {
		s.books, s.borrowings, s.payments = books, borrowings, payments
		return err
	}
	return nil
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) Insert(ctx context.Context, tx pgx.Tx, b *model.Borrowing) error {
	if _, ok := s.books[b.BookID]; !ok {
		return borrowingrepo.ErrBookNotFound
	}
	b.ID = s.id()
	s.borrowings[b.ID] = *b
	return nil
}

func (s *memStore) LockForReturn(ctx context.Context, tx pgx.Tx, id int64) (*borrowingrepo.Locked, error) {
	b, ok := s.borrowings[id]
	if !ok {
		return nil, borrowingrepo.ErrNotFound
	}
	return &borrowingrepo.Locked{Borrowing: b, DailyFee: s.books[b.BookID].DailyFee}, nil
}

func (s *memStore) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, on time.Time) error {
	b := s.borrowings[id]
	if b.ActualReturnDate != nil {
		return borrowingrepo.ErrAlreadyClosed
	}
	b.ActualReturnDate = &on
	s.borrowings[id] = b
	return nil
}

func (s *memStore) Detail(ctx context.Context, id int64) (*model.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.borrowings[id]
	if !ok {
		return nil, borrowingrepo.ErrNotFound
	}
	bk := s.books[b.BookID]
	return &model.Detail{ID: b.ID, UserID: b.UserID, Book: bk.Title, Author: bk.Author, Cover: bk.Cover,
		DailyFee: bk.DailyFee, BorrowDate: b.BorrowDate, ExpectedReturnDate: b.ExpectedReturnDate,
		ActualReturnDate: b.ActualReturnDate}, nil
}

func (s *memStore) List(ctx context.Context, f model.BorrowingFilter) ([]model.ListRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ListRow
	for _, b := range s.borrowings {
		if f.UserID != nil && b.UserID != *f.UserID {
			continue
		}
		if f.IsActive != nil && *f.IsActive != b.Active() {
			continue
		}
		out = append(out, model.ListRow{ID: b.ID, Book: s.books[b.BookID].Title})
	}
	return out, nil
}

func (s *memStore) TakeCopy(ctx context.Context, tx pgx.Tx, bookID int64) (int64, error) {
	b, ok := s.books[bookID]
	if !ok {
		return 0, bookrepo.ErrNotFound
	}
	if b.Inventory <= 0 {
		return 0, bookrepo.ErrNoStock
	}
	b.Inventory--
	s.books[bookID] = b
	return b.Inventory, nil
}

func (s *memStore) PutBackCopy(ctx context.Context, tx pgx.Tx, bookID int64) error {
	b := s.books[bookID]
	b.Inventory++
	s.books[bookID] = b
	return nil
}

func (s *memStore) HasOutstanding(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	for _, p := range s.payments {
		if p.Status == model.PaymentPending && s.borrowings[p.BorrowingID].UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) RecordFine(ctx context.Context, tx pgx.Tx, borrowingID int64, amount decimal.Decimal) (*model.Payment, error) {
	p := model.Payment{ID: s.id(), Status: model.PaymentPending, Type: model.PaymentFine, BorrowingID: borrowingID, MoneyToPay: amount}
	s.payments = append(s.payments, p)
	return &p, nil
}

func (s *memStore) inventory(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id].Inventory
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

var (
	today = time.Date(2024, 5, 20, 15, 4, 0, 0, time.UTC)
	alice = model.Caller{UserID: 1}
	bob   = model.Caller{UserID: 2}
	admin = model.Caller{UserID: 99, Privileged: true}
)

func dune(inventory int64) model.Book {
	return model.Book{ID: 10, Title: "Dune", Author: "Frank Herbert", Cover: model.CoverHard,
		Inventory: inventory, DailyFee: decimal.RequireFromString("5.00")}
}

func newSvc(st *memStore, n *notes) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, st, st, st, n, log, WithClock(func() time.Time { return today }))
}

func TestCreate_LastCopyThenUnavailable(t *testing.T) {
	st := newStore(dune(1))
	n := &notes{}
	svc := newSvc(st, n)
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, 7)})
	require.NoError(t, err)
	require.Equal(t, model.DateOf(today), b.BorrowDate)
	require.Nil(t, b.ActualReturnDate)
	require.Equal(t, int64(0), st.inventory(10))
	require.Len(t, n.msgs, 1)
	require.Contains(t, n.msgs[0], "New Borrowing Created")
	require.Contains(t, n.msgs[0], "*Expected Return Date: 2024-05-27")

	_, err = svc.Create(ctx, bob, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, 7)})
	require.Equal(t, ErrBookUnavailable, apperr.CodeOf(err))
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
	require.Equal(t, int64(0), st.inventory(10))
	require.Len(t, n.msgs, 1)
}

func TestCreate_ExpectedBeforeToday(t *testing.T) {
	st := newStore(dune(3))
	svc := newSvc(st, &notes{})

	_, err := svc.Create(context.Background(), alice, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, -1)})
	require.Equal(t, ErrInvalidDateRange, apperr.CodeOf(err))
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	require.Equal(t, int64(3), st.inventory(10))
}

func TestCreate_SameDayReturnAllowed(t *testing.T) {
	st := newStore(dune(1))
	svc := newSvc(st, &notes{})

	_, err := svc.Create(context.Background(), alice, CreateInput{BookID: 10, ExpectedReturnDate: model.DateOf(today)})
	require.NoError(t, err)
}

func TestCreate_UnknownBook(t *testing.T) {
	svc := newSvc(newStore(), &notes{})

	_, err := svc.Create(context.Background(), alice, CreateInput{BookID: 404, ExpectedReturnDate: today})
	require.Equal(t, ErrBookNotFound, apperr.CodeOf(err))
}

func TestCreate_BlockedByOutstandingPayment(t *testing.T) {
	st := newStore(dune(5))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	st.borrowings[50] = model.Borrowing{ID: 50, BookID: 10, UserID: alice.UserID}
	st.payments = append(st.payments, model.Payment{ID: 51, Status: model.PaymentPending, Type: model.PaymentFine, BorrowingID: 50})

	_, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, 1)})
	require.Equal(t, ErrOutstandingPayment, apperr.CodeOf(err))
	require.Equal(t, int64(5), st.inventory(10))

	// someone else's debt does not block bob
	_, err = svc.Create(ctx, bob, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, 1)})
	require.NoError(t, err)
}

func TestCreate_InsertFailureRollsBackInventory(t *testing.T) {
	st := newStore(dune(2))
	failing := &failingInsert{memStore: st}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(st, failing, st, st, &notes{}, log, WithClock(func() time.Time { return today }))

	_, err := svc.Create(context.Background(), alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.Error(t, err)
	require.Equal(t, int64(2), st.inventory(10))
}

type failingInsert struct{ *memStore }

func (f *failingInsert) Insert(ctx context.Context, tx pgx.Tx, b *model.Borrowing) error {
	return errors.New("db down")
}

func TestCreate_ConcurrentLoansNeverOversell(t *testing.T) {
	st := newStore(dune(3))
	svc := newSvc(st, &notes{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), model.Caller{UserID: uid}, CreateInput{BookID: 10, ExpectedReturnDate: today})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(int64(100 + i))
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, int64(0), st.inventory(10))
}

func TestReturn_OnTime(t *testing.T) {
	st := newStore(dune(1))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today.AddDate(0, 0, 3)})
	require.NoError(t, err)

	res, err := svc.Return(ctx, alice, b.ID)
	require.NoError(t, err)
	require.Nil(t, res.Fine)
	require.Equal(t, ReturnedMessage, res.Message)
	require.Equal(t, int64(1), st.inventory(10))
	require.Empty(t, st.payments)
}

func TestReturn_LateCreatesFine(t *testing.T) {
	st := newStore(dune(0))
	st.borrowings[7] = model.Borrowing{
		ID:                 7,
		BorrowDate:         model.DateOf(today).AddDate(0, 0, -20),
		ExpectedReturnDate: model.DateOf(today).AddDate(0, 0, -10),
		BookID:             10,
		UserID:             alice.UserID,
	}
	svc := newSvc(st, &notes{})

	res, err := svc.Return(context.Background(), alice, 7)
	require.NoError(t, err)
	require.NotNil(t, res.Fine)
	require.Equal(t, model.PaymentFine, res.Fine.Type)
	require.Equal(t, model.PaymentPending, res.Fine.Status)
	require.True(t, decimal.RequireFromString("100.00").Equal(res.Fine.MoneyToPay))
	require.Equal(t, "You have to pay 100.00 for overdue borrowing.", res.Message)
	require.Equal(t, int64(1), st.inventory(10))
	require.Len(t, st.payments, 1)
}

func TestReturn_ReturnedYesterdayDue(t *testing.T) {
	st := newStore(dune(0))
	st.borrowings[8] = model.Borrowing{ID: 8, ExpectedReturnDate: model.DateOf(today).AddDate(0, 0, -1), BookID: 10, UserID: alice.UserID}
	svc := newSvc(st, &notes{})

	res, err := svc.Return(context.Background(), alice, 8)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("10.00").Equal(res.Fine.MoneyToPay))
}

func TestReturn_Twice(t *testing.T) {
	st := newStore(dune(1))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)

	_, err = svc.Return(ctx, alice, b.ID)
	require.NoError(t, err)

	_, err = svc.Return(ctx, alice, b.ID)
	require.Equal(t, ErrAlreadyReturned, apperr.CodeOf(err))
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
	require.Equal(t, int64(1), st.inventory(10))
}

func TestReturn_ConcurrentOnlyOneWins(t *testing.T) {
	st := newStore(dune(1))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Return(ctx, alice, b.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.Equal(t, ErrAlreadyReturned, apperr.CodeOf(err))
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, int64(1), st.inventory(10))
}

func TestReturn_NotOwner(t *testing.T) {
	st := newStore(dune(1))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)

	_, err = svc.Return(ctx, bob, b.ID)
	require.Equal(t, ErrNotOwner, apperr.CodeOf(err))
	require.Equal(t, int64(0), st.inventory(10))

	// staff may return on the borrower's behalf
	_, err = svc.Return(ctx, admin, b.ID)
	require.NoError(t, err)
}

func TestReturn_Missing(t *testing.T) {
	svc := newSvc(newStore(), &notes{})
	_, err := svc.Return(context.Background(), alice, 123)
	require.Equal(t, ErrNotFound, apperr.CodeOf(err))
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestList_RegularCallerScopedToSelf(t *testing.T) {
	st := newStore(dune(5))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)
	bb, err := svc.Create(ctx, bob, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)

	other := alice.UserID
	rows, err := svc.List(ctx, bob, model.BorrowingFilter{UserID: &other})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, bb.ID, rows[0].ID)

	rows, err = svc.List(ctx, admin, model.BorrowingFilter{UserID: &other})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotEqual(t, bb.ID, rows[0].ID)

	rows, err = svc.List(ctx, admin, model.BorrowingFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestList_ActiveFilter(t *testing.T) {
	st := newStore(dune(5))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b1, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)
	_, err = svc.Return(ctx, alice, b1.ID)
	require.NoError(t, err)

	active, inactive := true, false
	rows, err := svc.List(ctx, alice, model.BorrowingFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = svc.List(ctx, alice, model.BorrowingFilter{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b1.ID, rows[0].ID)
}

func TestDetail_HiddenFromOthers(t *testing.T) {
	st := newStore(dune(5))
	svc := newSvc(st, &notes{})
	ctx := context.Background()

	b, err := svc.Create(ctx, alice, CreateInput{BookID: 10, ExpectedReturnDate: today})
	require.NoError(t, err)

	d, err := svc.Detail(ctx, alice, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Dune", d.Book)

	_, err = svc.Detail(ctx, bob, b.ID)
	require.Equal(t, ErrNotFound, apperr.CodeOf(err))

	_, err = svc.Detail(ctx, admin, b.ID)
	require.NoError(t, err)
}
