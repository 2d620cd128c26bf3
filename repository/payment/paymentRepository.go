package paymentrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	perrors "github.com/pkg/errors"

	"libraryapi/model"
	"libraryapi/util/database"
)

var ErrNotFound = errors.New("payment not found")

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	HasPendingForUser(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
	LockPendingFine(ctx context.Context, tx pgx.Tx, borrowingID int64) (*model.Payment, error)
	AttachSession(ctx context.Context, tx pgx.Tx, id int64, url, sessionID string) error

	HasPaidFine(ctx context.Context, borrowingID int64) (bool, error)
	FindBySession(ctx context.Context, sessionID string) (*model.Settlement, error)
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (status, type, borrowing_id, session_url, session_id, money_to_pay)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`
	err := tx.QueryRow(ctx, q, p.Status, p.Type, p.BorrowingID, p.SessionURL, p.SessionID, p.MoneyToPay).Scan(&p.ID)
	if err != nil {
		return perrors.Wrap(err, "insert payment")
	}
	if p.SessionID == "" {
		return nil
	}
	return recordSession(ctx, tx, p.ID, p.SessionURL, p.SessionID)
}

// recordSession keeps every issued session resolvable to its payment.
func recordSession(ctx context.Context, tx pgx.Tx, paymentID int64, url, sessionID string) error {
	const q = `INSERT INTO payment_sessions (session_id, payment_id, session_url) VALUES ($1,$2,$3)`
	_, err := tx.Exec(ctx, q, sessionID, paymentID, url)
	return perrors.Wrap(err, "record session")
}

func (r *repo) HasPendingForUser(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1
    FROM payments p
    JOIN borrowings b ON b.id = p.borrowing_id
    WHERE b.user_id = $1
      AND p.status = 'PENDING'
)`
	var ok bool
	err := tx.QueryRow(ctx, q, userID).Scan(&ok)
	return ok, perrors.Wrap(err, "pending payments")
}

func (r *repo) LockPendingFine(ctx context.Context, tx pgx.Tx, borrowingID int64) (*model.Payment, error) {
	const q = `
SELECT id, status, type, borrowing_id, session_url, session_id, money_to_pay
FROM payments
WHERE borrowing_id = $1
  AND type = 'FINE'
  AND status = 'PENDING'
ORDER BY id
LIMIT 1
FOR UPDATE`
	var p model.Payment
	err := tx.QueryRow(ctx, q, borrowingID).Scan(&p.ID, &p.Status, &p.Type, &p.BorrowingID, &p.SessionURL, &p.SessionID, &p.MoneyToPay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "lock pending fine")
	}
	return &p, nil
}

// AttachSession makes sessionID the payment's current session. Earlier
// sessions stay in payment_sessions and can still settle the payment.
func (r *repo) AttachSession(ctx context.Context, tx pgx.Tx, id int64, url, sessionID string) error {
	const q = `UPDATE payments SET session_url=$2, session_id=$3 WHERE id=$1`
	if _, err := tx.Exec(ctx, q, id, url, sessionID); err != nil {
		return perrors.Wrap(err, "attach session")
	}
	return recordSession(ctx, tx, id, url, sessionID)
}

func (r *repo) HasPaidFine(ctx context.Context, borrowingID int64) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1
    FROM payments
    WHERE borrowing_id = $1
      AND type = 'FINE'
      AND status = 'PAID'
)`
	var ok bool
	err := r.db.Pool.QueryRow(ctx, q, borrowingID).Scan(&ok)
	return ok, perrors.Wrap(err, "paid fine")
}

func (r *repo) FindBySession(ctx context.Context, sessionID string) (*model.Settlement, error) {
	const q = `
SELECT p.id, p.status, p.type, p.borrowing_id, ps.session_url, ps.session_id, p.money_to_pay,
       u.email, bk.title
FROM payment_sessions ps
JOIN payments p ON p.id = ps.payment_id
JOIN borrowings b ON b.id = p.borrowing_id
JOIN users u ON u.id = b.user_id
JOIN books bk ON bk.id = b.book_id
WHERE ps.session_id = $1`
	var s model.Settlement
	err := r.db.Pool.QueryRow(ctx, q, sessionID).Scan(
		&s.ID, &s.Status, &s.Type, &s.BorrowingID, &s.SessionURL, &s.SessionID, &s.MoneyToPay,
		&s.PayerEmail, &s.BookTitle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "find payment by session")
	}
	return &s, nil
}

// MarkPaid flips the session's payment from PENDING to PAID. False means
// another caller (or another session of the same payment) already did it.
func (r *repo) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	const q = `
UPDATE payments
SET status = 'PAID'
WHERE id = (SELECT payment_id FROM payment_sessions WHERE session_id = $1)
  AND status = 'PENDING'`
	tag, err := r.db.Pool.Exec(ctx, q, sessionID)
	if err != nil {
		return false, perrors.Wrap(err, "mark paid")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) List(ctx context.Context, userID *int64) ([]model.Payment, error) {
	const q = `
SELECT p.id, p.status, p.type, p.borrowing_id, p.session_url, p.session_id, p.money_to_pay
FROM payments p
JOIN borrowings b ON b.id = p.borrowing_id
WHERE $1::BIGINT IS NULL OR b.user_id = $1
ORDER BY p.id DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, perrors.Wrap(err, "list payments")
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Status, &p.Type, &p.BorrowingID, &p.SessionURL, &p.SessionID, &p.MoneyToPay); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
