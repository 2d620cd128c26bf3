package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// normalised settlement states
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

type SessionReq struct {
	ExternalID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
	PayerEmail  string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	ID  string
	URL string
}

// Gateway is a hosted checkout provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionReq) (*Session, error)
	SessionStatus(ctx context.Context, sessionID string) (string, error)
}

// ProviderError carries the provider's own message back to the caller.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string { return e.Provider + ": " + e.Message }
