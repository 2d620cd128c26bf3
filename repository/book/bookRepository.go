package bookrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	perrors "github.com/pkg/errors"

	"libraryapi/model"
	"libraryapi/util/database"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrNoStock  = errors.New("book inventory exhausted")
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]model.Book, int64, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)

	// Inventory, always inside the caller's transaction.
	TakeCopy(ctx context.Context, tx pgx.Tx, bookID int64) (remaining int64, err error)
	PutBackCopy(ctx context.Context, tx pgx.Tx, bookID int64) error
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (title, author, cover, inventory, daily_fee)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee).Scan(&b.ID)
	return perrors.Wrap(err, "insert book")
}

func (r *repo) Update(ctx context.Context, b *model.Book) error {
	const q = `
UPDATE books
SET title=$2, author=$3, cover=$4, inventory=$5, daily_fee=$6
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, b.ID, b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee)
	if err != nil {
		return perrors.Wrap(err, "update book")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete cascades to the book's borrowings and their payments.
func (r *repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return perrors.Wrap(err, "delete book")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) List(ctx context.Context, limit, offset int) ([]model.Book, int64, error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, perrors.Wrap(err, "count books")
	}

	const q = `
SELECT id, title, author, cover, inventory, daily_fee
FROM books
ORDER BY id
LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, perrors.Wrap(err, "list books")
	}
	defer rows.Close()

	out := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, author, cover, inventory, daily_fee
FROM books
WHERE id=$1`
	var b model.Book
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "book detail")
	}
	return &b, nil
}

// TakeCopy decrements inventory with a floor at zero. The guarded UPDATE
// takes the row lock, so concurrent loans of the last copy serialize here.
func (r *repo) TakeCopy(ctx context.Context, tx pgx.Tx, bookID int64) (int64, error) {
	const q = `
UPDATE books
SET inventory = inventory - 1
WHERE id = $1
  AND inventory > 0
RETURNING inventory`
	var left int64
	err := tx.QueryRow(ctx, q, bookID).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, perrors.Wrap(err, "take copy")
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id=$1)`, bookID).Scan(&exists); err != nil {
		return 0, perrors.Wrap(err, "book exists")
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrNoStock
}

func (r *repo) PutBackCopy(ctx context.Context, tx pgx.Tx, bookID int64) error {
	tag, err := tx.Exec(ctx, `UPDATE books SET inventory = inventory + 1 WHERE id=$1`, bookID)
	if err != nil {
		return perrors.Wrap(err, "put back copy")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
