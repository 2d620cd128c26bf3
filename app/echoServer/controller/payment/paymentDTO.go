package payment

import "github.com/shopspring/decimal"

type CreatePaymentReq struct {
	BorrowingID int64           `json:"borrowing_id" validate:"required,gt=0"`
	Money       decimal.Decimal `json:"money"`
}

type CreatePaymentResp struct {
	PaymentID  int64           `json:"payment_id"`
	Type       string          `json:"type"`
	SessionURL string          `json:"session_url"`
	SessionID  string          `json:"session_id"`
	Amount     decimal.Decimal `json:"amount"`
}
