package paymentsvc

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"libraryapi/model"
)

type ledgerRepo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	HasPendingForUser(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
}

// Ledger is the payment side handed to the borrowing lifecycle.
type Ledger struct{ r ledgerRepo }

func NewLedger(r ledgerRepo) *Ledger { return &Ledger{r: r} }

func (l *Ledger) HasOutstanding(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	return l.r.HasPendingForUser(ctx, tx, userID)
}

// RecordFine stores a pending fine without a checkout session; one is attached on payment.
func (l *Ledger) RecordFine(ctx context.Context, tx pgx.Tx, borrowingID int64, amount decimal.Decimal) (*model.Payment, error) {
	p := &model.Payment{
		Status:      model.PaymentPending,
		Type:        model.PaymentFine,
		BorrowingID: borrowingID,
		MoneyToPay:  amount,
	}
	if err := l.r.Insert(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}
