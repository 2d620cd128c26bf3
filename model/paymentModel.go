// model/paymentModel.go
package model

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

type PaymentType string

const (
	PaymentRegular PaymentType = "PAYMENT"
	PaymentFine    PaymentType = "FINE"
)

type Payment struct {
	ID          int64           `json:"id"`
	Status      PaymentStatus   `json:"status"`
	Type        PaymentType     `json:"type"`
	BorrowingID int64           `json:"borrowing"`
	SessionURL  string          `json:"session_url"`
	SessionID   string          `json:"session_id"`
	MoneyToPay  decimal.Decimal `json:"money_to_pay"`
}

// Settlement is a payment joined with what the settlement notice needs.
type Settlement struct {
	Payment
	PayerEmail string
	BookTitle  string
}
