package paymentsvc

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"libraryapi/model"
	borrowingrepo "libraryapi/repository/borrowing"
	"libraryapi/repository/gateway"
	paymentrepo "libraryapi/repository/payment"
	"libraryapi/service/notify"
	"libraryapi/util/apperr"
	"libraryapi/util/database"
)

const (
	ErrBorrowingNotFound apperr.Code = "BORROWING_NOT_FOUND"
	ErrNotOwner          apperr.Code = "NOT_OWNER"
	ErrInvalidAmount     apperr.Code = "INVALID_AMOUNT"
	ErrGateway           apperr.Code = "PAYMENT_GATEWAY_ERROR"
	ErrInvalidSession    apperr.Code = "INVALID_SESSION"
	ErrNotCompleted      apperr.Code = "PAYMENT_NOT_COMPLETED"
	ErrBadCallback       apperr.Code = "BAD_CALLBACK"
	ErrFinePaid          apperr.Code = "FINE_ALREADY_PAID"
)

const CancelMessage = "Payment was cancelled. You can retry payment within 24 hours."

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	LockPendingFine(ctx context.Context, tx pgx.Tx, borrowingID int64) (*model.Payment, error)
	AttachSession(ctx context.Context, tx pgx.Tx, id int64, url, sessionID string) error
	HasPaidFine(ctx context.Context, borrowingID int64) (bool, error)
	FindBySession(ctx context.Context, sessionID string) (*model.Settlement, error)
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
}

type Borrowings interface {
	Get(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)
}

type InitiateInput struct {
	BorrowingID int64
	Money       decimal.Decimal
}

type Initiated struct {
	PaymentID  int64             `json:"payment_id"`
	Type       model.PaymentType `json:"type"`
	SessionURL string            `json:"session_url"`
	SessionID  string            `json:"session_id"`
	Amount     decimal.Decimal   `json:"amount"`
}

type Confirmation struct {
	PaymentID   int64
	AlreadyPaid bool
	Message     string
}

type Service interface {
	Initiate(ctx context.Context, caller model.Caller, in InitiateInput) (*Initiated, error)
	ConfirmSettlement(ctx context.Context, sessionID string) (*Confirmation, error)
	HandleXendit(ctx context.Context, callbackToken string, raw []byte) error
	Cancel() string
	List(ctx context.Context, caller model.Caller) ([]model.Payment, error)
}

type Options struct {
	Currency            string
	SuccessURL          string
	CancelURL           string
	XenditCallbackToken string
}

type service struct {
	tx   database.Transactor
	r    Repo
	b    Borrowings
	gw   gateway.Gateway
	n    notify.Notifier
	log  *slog.Logger
	opts Options
}

func New(tx database.Transactor, r Repo, b Borrowings, gw gateway.Gateway, n notify.Notifier, log *slog.Logger, opts Options) Service {
	return &service{tx: tx, r: r, b: b, gw: gw, n: n, log: log, opts: opts}
}

// Initiate opens a hosted checkout. A returned-late borrowing is charged its
// fine once; otherwise the caller's amount is charged as a regular payment.
// The gateway is called before anything is written, so a gateway failure leaves no row behind.
// A retried fine gets a new session on the same row; older sessions still settle it.
func (s *service) Initiate(ctx context.Context, caller model.Caller, in InitiateInput) (*Initiated, error) {
	b, book, err := s.b.Get(ctx, in.BorrowingID)
	if err != nil {
		if errors.Is(err, borrowingrepo.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, ErrBorrowingNotFound, "borrowing not found")
		}
		return nil, err
	}
	if !caller.Privileged && b.UserID != caller.UserID {
		return nil, apperr.New(apperr.Permission, ErrNotOwner, "forbidden")
	}

	kind := model.PaymentRegular
	amount := in.Money
	if b.ActualReturnDate != nil {
		if days := model.OverdueDays(b.ExpectedReturnDate, *b.ActualReturnDate); days > 0 {
			kind = model.PaymentFine
			amount = model.ComputeFine(days, book.DailyFee)
		}
	}
	if kind == model.PaymentFine {
		paid, err := s.r.HasPaidFine(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if paid {
			return nil, apperr.New(apperr.Conflict, ErrFinePaid, "The fine for this borrowing is already paid.")
		}
	}
	if !amount.IsPositive() {
		return nil, apperr.Invalid(ErrInvalidAmount, "amount must be greater than zero",
			map[string]string{"money": "must be > 0"})
	}

	sess, err := s.gw.CreateSession(ctx, gateway.SessionReq{
		ExternalID:  externalID(kind, b.ID),
		Amount:      amount,
		Currency:    s.opts.Currency,
		Description: book.Title,
		SuccessURL:  s.opts.SuccessURL,
		CancelURL:   s.opts.CancelURL,
	})
	if err != nil {
		return nil, gatewayErr(err)
	}

	p := &model.Payment{
		Status:      model.PaymentPending,
		Type:        kind,
		BorrowingID: b.ID,
		SessionURL:  sess.URL,
		SessionID:   sess.ID,
		MoneyToPay:  amount,
	}
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if kind == model.PaymentFine {
			// reuse the fine recorded at return time
			existing, err := s.r.LockPendingFine(ctx, tx, b.ID)
			if err == nil {
				p.ID = existing.ID
				return s.r.AttachSession(ctx, tx, existing.ID, sess.URL, sess.ID)
			}
			if !errors.Is(err, paymentrepo.ErrNotFound) {
				return err
			}
		}
		return s.r.Insert(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	return &Initiated{
		PaymentID:  p.ID,
		Type:       p.Type,
		SessionURL: p.SessionURL,
		SessionID:  p.SessionID,
		Amount:     p.MoneyToPay,
	}, nil
}

// ConfirmSettlement is idempotent: an already PAID session is acknowledged
// without asking the gateway again and without a second notification.
func (s *service) ConfirmSettlement(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Invalid(ErrInvalidSession, "session_id is required", map[string]string{"session_id": "required"})
	}

	p, err := s.r.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, paymentrepo.ErrNotFound) {
			return nil, apperr.New(apperr.Validation, ErrInvalidSession, "Invalid payment session.")
		}
		return nil, err
	}
	if p.Status == model.PaymentPaid {
		return &Confirmation{PaymentID: p.ID, AlreadyPaid: true, Message: "Payment already confirmed."}, nil
	}

	status, err := s.gw.SessionStatus(ctx, sessionID)
	if err != nil {
		return nil, gatewayErr(err)
	}
	if status != gateway.StatusPaid {
		return nil, apperr.New(apperr.Validation, ErrNotCompleted, "Payment not completed.")
	}

	flipped, err := s.r.MarkPaid(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return &Confirmation{PaymentID: p.ID, AlreadyPaid: true, Message: "Payment already confirmed."}, nil
	}

	s.n.Notify(fmt.Sprintf(
		"Payment received:\n*Amount: %s %s\n*Payer: %s\n*Book: %s\n*Borrowing ID: %d\n",
		p.MoneyToPay.StringFixed(2), s.opts.Currency, p.PayerEmail, p.BookTitle, p.BorrowingID,
	))
	s.log.InfoContext(ctx, "payment settled", "payment_id", p.ID, "type", p.Type, "session_id", sessionID)
	return &Confirmation{PaymentID: p.ID, Message: "Payment was successful."}, nil
}

type xInvoiceEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandleXendit accepts the invoice callback and settles through the same path as the success redirect.
func (s *service) HandleXendit(ctx context.Context, callbackToken string, raw []byte) error {
	want := s.opts.XenditCallbackToken
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(callbackToken)) != 1 {
		return apperr.New(apperr.Permission, ErrBadCallback, "invalid callback token")
	}

	var ev xInvoiceEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return apperr.Wrap(apperr.Validation, ErrBadCallback, "bad webhook json", err)
	}
	if ev.ID == "" || ev.Status == "" {
		return apperr.New(apperr.Validation, ErrBadCallback, "missing invoice fields")
	}
	switch strings.ToUpper(ev.Status) {
	case "PAID", "SETTLED":
		_, err := s.ConfirmSettlement(ctx, ev.ID)
		return err
	default:
		return nil
	}
}

func (s *service) Cancel() string { return CancelMessage }

func (s *service) List(ctx context.Context, caller model.Caller) ([]model.Payment, error) {
	if caller.Privileged {
		return s.r.List(ctx, nil)
	}
	uid := caller.UserID
	return s.r.List(ctx, &uid)
}

// externalID stays within the 50 chars and [A-Za-z0-9-] both providers accept.
func externalID(kind model.PaymentType, borrowingID int64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", strings.ToLower(string(kind)), borrowingID, nonce)
}

func gatewayErr(err error) error {
	msg := err.Error()
	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	return apperr.Wrap(apperr.Gateway, ErrGateway, msg, err)
}
