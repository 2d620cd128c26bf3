package borrowingrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	perrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"libraryapi/model"
	"libraryapi/util/database"
)

var (
	ErrNotFound      = errors.New("borrowing not found")
	ErrBookNotFound  = errors.New("book not found")
	ErrAlreadyClosed = errors.New("borrowing already returned")
)

// Locked is a borrowing row held FOR UPDATE together with its book's fee.
type Locked struct {
	model.Borrowing
	DailyFee decimal.Decimal
}

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, b *model.Borrowing) error
	LockForReturn(ctx context.Context, tx pgx.Tx, id int64) (*Locked, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, on time.Time) error
	Get(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)

	Detail(ctx context.Context, id int64) (*model.Detail, error)
	List(ctx context.Context, f model.BorrowingFilter) ([]model.ListRow, error)

	ListOverdue(ctx context.Context, today time.Time) ([]model.Overdue, error)
	MarkOverdueNotified(ctx context.Context, id int64, on time.Time) error
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, b *model.Borrowing) error {
	const q = `
INSERT INTO borrowings (borrow_date, expected_return_date, book_id, user_id)
VALUES ($1, $2, $3, $4)
RETURNING id`
	err := tx.QueryRow(ctx, q, b.BorrowDate, b.ExpectedReturnDate, b.BookID, b.UserID).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation &&
			strings.Contains(pgErr.ConstraintName, "book") {
			return ErrBookNotFound
		}
		return perrors.Wrap(err, "insert borrowing")
	}
	return nil
}

// LockForReturn holds the borrowing row so a concurrent return waits and
// then observes the actual return date written by the first one.
func (r *repo) LockForReturn(ctx context.Context, tx pgx.Tx, id int64) (*Locked, error) {
	const q = `
SELECT b.id, b.borrow_date, b.expected_return_date, b.actual_return_date,
       b.book_id, b.user_id, bk.daily_fee
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
WHERE b.id = $1
FOR UPDATE OF b`
	var l Locked
	err := tx.QueryRow(ctx, q, id).Scan(
		&l.ID, &l.BorrowDate, &l.ExpectedReturnDate, &l.ActualReturnDate,
		&l.BookID, &l.UserID, &l.DailyFee,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "lock borrowing")
	}
	return &l, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, on time.Time) error {
	const q = `
UPDATE borrowings
SET actual_return_date = $2
WHERE id = $1
  AND actual_return_date IS NULL`
	tag, err := tx.Exec(ctx, q, id, on)
	if err != nil {
		return perrors.Wrap(err, "mark returned")
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyClosed
	}
	return nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error) {
	const q = `
SELECT b.id, b.borrow_date, b.expected_return_date, b.actual_return_date, b.book_id, b.user_id,
       bk.id, bk.title, bk.author, bk.cover, bk.inventory, bk.daily_fee
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
WHERE b.id = $1`
	var b model.Borrowing
	var bk model.Book
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.BookID, &b.UserID,
		&bk.ID, &bk.Title, &bk.Author, &bk.Cover, &bk.Inventory, &bk.DailyFee,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, perrors.Wrap(err, "get borrowing")
	}
	return &b, &bk, nil
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Detail, error) {
	const q = `
SELECT b.id, b.user_id, bk.title, bk.author, bk.cover, bk.daily_fee,
       b.borrow_date, b.expected_return_date, b.actual_return_date
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
WHERE b.id = $1`
	var d model.Detail
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.Book, &d.Author, &d.Cover, &d.DailyFee,
		&d.BorrowDate, &d.ExpectedReturnDate, &d.ActualReturnDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "borrowing detail")
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, f model.BorrowingFilter) ([]model.ListRow, error) {
	q := `
SELECT b.id, bk.title, bk.author, u.email,
       b.borrow_date, b.expected_return_date, b.actual_return_date
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
JOIN users u ON u.id = b.user_id
WHERE TRUE`
	var args []any
	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += ` AND b.user_id = $` + strconv.Itoa(len(args))
	}
	if f.IsActive != nil {
		if *f.IsActive {
			q += ` AND b.actual_return_date IS NULL`
		} else {
			q += ` AND b.actual_return_date IS NOT NULL`
		}
	}
	q += ` ORDER BY b.id DESC`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, perrors.Wrap(err, "list borrowings")
	}
	defer rows.Close()

	out := []model.ListRow{}
	for rows.Next() {
		var l model.ListRow
		if err := rows.Scan(
			&l.ID, &l.Book, &l.Author, &l.User,
			&l.BorrowDate, &l.ExpectedReturnDate, &l.ActualReturnDate,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repo) ListOverdue(ctx context.Context, today time.Time) ([]model.Overdue, error) {
	const q = `
SELECT b.id, bk.title, bk.author, u.email, b.expected_return_date, b.overdue_notified_on
FROM borrowings b
JOIN books bk ON bk.id = b.book_id
JOIN users u ON u.id = b.user_id
WHERE b.expected_return_date <= $1
  AND b.actual_return_date IS NULL
ORDER BY b.expected_return_date, b.id`
	rows, err := r.db.Pool.Query(ctx, q, today)
	if err != nil {
		return nil, perrors.Wrap(err, "list overdue")
	}
	defer rows.Close()

	var out []model.Overdue
	for rows.Next() {
		var o model.Overdue
		if err := rows.Scan(&o.BorrowingID, &o.BookTitle, &o.BookAuthor, &o.UserEmail,
			&o.ExpectedReturnDate, &o.NotifiedOn); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repo) MarkOverdueNotified(ctx context.Context, id int64, on time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE borrowings SET overdue_notified_on=$2 WHERE id=$1`, id, on)
	return perrors.Wrap(err, "mark overdue notified")
}
