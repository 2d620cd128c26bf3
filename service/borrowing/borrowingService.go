package borrowing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"libraryapi/model"
	bookrepo "libraryapi/repository/book"
	borrowingrepo "libraryapi/repository/borrowing"
	"libraryapi/service/notify"
	"libraryapi/util/apperr"
	"libraryapi/util/database"
)

// error codes used by controllers and tests
const (
	ErrBookUnavailable    apperr.Code = "BOOK_UNAVAILABLE"
	ErrOutstandingPayment apperr.Code = "OUTSTANDING_PAYMENT"
	ErrInvalidDateRange   apperr.Code = "INVALID_DATE_RANGE"
	ErrAlreadyReturned    apperr.Code = "ALREADY_RETURNED"
	ErrBookNotFound       apperr.Code = "BOOK_NOT_FOUND"
	ErrNotFound           apperr.Code = "BORROWING_NOT_FOUND"
	ErrNotOwner           apperr.Code = "NOT_OWNER"
)

const ReturnedMessage = "Book was successfully returned."

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, b *model.Borrowing) error
	LockForReturn(ctx context.Context, tx pgx.Tx, id int64) (*borrowingrepo.Locked, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, on time.Time) error
	Detail(ctx context.Context, id int64) (*model.Detail, error)
	List(ctx context.Context, f model.BorrowingFilter) ([]model.ListRow, error)
}

// Inventory is the book side of a loan.
type Inventory interface {
	TakeCopy(ctx context.Context, tx pgx.Tx, bookID int64) (int64, error)
	PutBackCopy(ctx context.Context, tx pgx.Tx, bookID int64) error
}

// FineLedger is the payment side of a loan, joined to the caller's transaction.
type FineLedger interface {
	HasOutstanding(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
	RecordFine(ctx context.Context, tx pgx.Tx, borrowingID int64, amount decimal.Decimal) (*model.Payment, error)
}

type CreateInput struct {
	BookID             int64
	ExpectedReturnDate time.Time
}

type ReturnResult struct {
	BorrowingID int64
	Fine        *model.Payment
	Message     string
}

type Service interface {
	Create(ctx context.Context, caller model.Caller, in CreateInput) (*model.Borrowing, error)
	Return(ctx context.Context, caller model.Caller, id int64) (*ReturnResult, error)
	List(ctx context.Context, caller model.Caller, f model.BorrowingFilter) ([]model.ListRow, error)
	Detail(ctx context.Context, caller model.Caller, id int64) (*model.Detail, error)
}

type Option func(*service)

// WithClock replaces time.Now, tests pin "today" with it.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

type service struct {
	tx    database.Transactor
	r     Repo
	inv   Inventory
	fines FineLedger
	n     notify.Notifier
	log   *slog.Logger
	now   func() time.Time
}

func New(tx database.Transactor, r Repo, inv Inventory, fines FineLedger, n notify.Notifier, log *slog.Logger, opts ...Option) Service {
	s := &service{tx: tx, r: r, inv: inv, fines: fines, n: n, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) today() time.Time { return model.DateOf(s.now().UTC()) }

// Create lends one copy of a book. Inventory and the borrowing row change in one transaction.
func (s *service) Create(ctx context.Context, caller model.Caller, in CreateInput) (*model.Borrowing, error) {
	today := s.today()
	expected := model.DateOf(in.ExpectedReturnDate)
	if expected.Before(today) {
		return nil, apperr.Invalid(ErrInvalidDateRange, "Expected return date cannot be earlier than the borrow date.",
			map[string]string{"expected_return_date": "must be today or later"})
	}

	b := &model.Borrowing{
		BorrowDate:         today,
		ExpectedReturnDate: expected,
		BookID:             in.BookID,
		UserID:             caller.UserID,
	}

	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		pending, err := s.fines.HasOutstanding(ctx, tx, caller.UserID)
		if err != nil {
			return err
		}
		if pending {
			return apperr.New(apperr.Conflict, ErrOutstandingPayment, "You have an unpaid payment. Settle it before borrowing again.")
		}

		if _, err := s.inv.TakeCopy(ctx, tx, in.BookID); err != nil {
			switch {
			case errors.Is(err, bookrepo.ErrNotFound):
				return apperr.New(apperr.NotFound, ErrBookNotFound, "book not found")
			case errors.Is(err, bookrepo.ErrNoStock):
				return apperr.New(apperr.Conflict, ErrBookUnavailable, "This book is not currently available for borrowing.")
			}
			return err
		}

		if err := s.r.Insert(ctx, tx, b); err != nil {
			if errors.Is(err, borrowingrepo.ErrBookNotFound) {
				return apperr.New(apperr.NotFound, ErrBookNotFound, "book not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.n.Notify(fmt.Sprintf(
		"New Borrowing Created:\n*ID: %d\n*Book ID: %d\n*User ID: %d\n*Borrow Date: %s\n*Expected Return Date: %s\n",
		b.ID, b.BookID, b.UserID, b.BorrowDate.Format(time.DateOnly), b.ExpectedReturnDate.Format(time.DateOnly),
	))
	return b, nil
}

// Return closes the borrowing, puts the copy back and records a fine when late.
func (s *service) Return(ctx context.Context, caller model.Caller, id int64) (*ReturnResult, error) {
	today := s.today()
	res := &ReturnResult{BorrowingID: id, Message: ReturnedMessage}

	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := s.r.LockForReturn(ctx, tx, id)
		if err != nil {
			if errors.Is(err, borrowingrepo.ErrNotFound) {
				return apperr.New(apperr.NotFound, ErrNotFound, "borrowing not found")
			}
			return err
		}
		if !caller.Privileged && b.UserID != caller.UserID {
			return apperr.New(apperr.Permission, ErrNotOwner, "forbidden")
		}
		if !b.Active() {
			return apperr.New(apperr.Conflict, ErrAlreadyReturned, "The book is already returned.")
		}

		if err := s.r.MarkReturned(ctx, tx, id, today); err != nil {
			if errors.Is(err, borrowingrepo.ErrAlreadyClosed) {
				return apperr.New(apperr.Conflict, ErrAlreadyReturned, "The book is already returned.")
			}
			return err
		}
		if err := s.inv.PutBackCopy(ctx, tx, b.BookID); err != nil {
			return err
		}

		days := model.OverdueDays(b.ExpectedReturnDate, today)
		if days == 0 {
			return nil
		}
		fine, err := s.fines.RecordFine(ctx, tx, id, model.ComputeFine(days, b.DailyFee))
		if err != nil {
			return err
		}
		res.Fine = fine
		res.Message = fmt.Sprintf("You have to pay %s for overdue borrowing.", fine.MoneyToPay.StringFixed(2))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Fine != nil {
		s.log.InfoContext(ctx, "fine recorded", "borrowing_id", id, "payment_id", res.Fine.ID, "amount", res.Fine.MoneyToPay.String())
	}
	return res, nil
}

// List never lets a regular caller see someone else's borrowings.
func (s *service) List(ctx context.Context, caller model.Caller, f model.BorrowingFilter) ([]model.ListRow, error) {
	if !caller.Privileged {
		uid := caller.UserID
		f.UserID = &uid
	}
	return s.r.List(ctx, f)
}

func (s *service) Detail(ctx context.Context, caller model.Caller, id int64) (*model.Detail, error) {
	d, err := s.r.Detail(ctx, id)
	if errors.Is(err, borrowingrepo.ErrNotFound) || (err == nil && !caller.Privileged && d.UserID != caller.UserID) {
		return nil, apperr.New(apperr.NotFound, ErrNotFound, "borrowing not found")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
