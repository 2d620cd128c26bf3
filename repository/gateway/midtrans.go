package gateway

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// MidtransCurrency is the only currency Midtrans settles.
const MidtransCurrency = "IDR"

const itemNameMax = 50

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type coreAPI interface {
	CheckTransaction(param string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// Midtrans uses the snap order id as the session id.
type midtransGateway struct {
	snap snapAPI
	core coreAPI
}

func NewMidtrans(serverKey string, production bool) Gateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var (
		s snap.Client
		c coreapi.Client
	)
	s.New(serverKey, env)
	c.New(serverKey, env)
	return &midtransGateway{snap: &s, core: &c}
}

// CreateSession refuses anything it cannot charge exactly: a currency other
// than IDR or an amount with a fractional part.
func (g *midtransGateway) CreateSession(_ context.Context, req SessionReq) (*Session, error) {
	if cur := strings.ToUpper(req.Currency); cur != MidtransCurrency {
		return nil, &ProviderError{Provider: "midtrans", Message: fmt.Sprintf("currency %q not supported, use %s", req.Currency, MidtransCurrency)}
	}
	if !req.Amount.IsInteger() {
		return nil, &ProviderError{Provider: "midtrans", Message: fmt.Sprintf("amount %s must be a whole number of rupiah", req.Amount.String())}
	}
	gross := req.Amount.IntPart()

	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.ExternalID,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.ExternalID,
			Price: gross,
			Qty:   1,
			Name:  truncate(req.Description, itemNameMax),
		}},
	}
	if req.PayerEmail != "" {
		sreq.CustomerDetail = &midtrans.CustomerDetails{Email: req.PayerEmail}
	}
	if req.SuccessURL != "" {
		sreq.Callbacks = &snap.Callbacks{Finish: req.SuccessURL}
	}

	resp, merr := g.snap.CreateTransaction(sreq)
	if merr != nil {
		return nil, &ProviderError{Provider: "midtrans", Message: merr.Message}
	}
	return &Session{ID: req.ExternalID, URL: resp.RedirectURL}, nil
}

func (g *midtransGateway) SessionStatus(_ context.Context, sessionID string) (string, error) {
	resp, merr := g.core.CheckTransaction(sessionID)
	if merr != nil {
		return "", &ProviderError{Provider: "midtrans", Message: merr.Message}
	}
	switch strings.ToLower(resp.TransactionStatus) {
	case "settlement", "capture":
		return StatusPaid, nil
	default:
		return StatusUnpaid, nil
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
