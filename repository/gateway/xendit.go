package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"libraryapi/util/httpx"
)

const xenditBaseURL = "https://api.xendit.co"

type xendit struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewXendit(apiKey string) Gateway {
	return &xendit{apiKey: apiKey, baseURL: xenditBaseURL, client: httpx.Client()}
}

type xenditInvoice struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
}

type xenditError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (x *xendit) CreateSession(ctx context.Context, req SessionReq) (*Session, error) {
	amount, _ := req.Amount.Float64()
	body := map[string]any{
		"external_id":          req.ExternalID,
		"amount":               amount,
		"currency":             req.Currency,
		"description":          req.Description,
		"success_redirect_url": req.SuccessURL,
		"failure_redirect_url": req.CancelURL,
		"invoice_duration":     24 * 60 * 60,
	}
	if req.PayerEmail != "" {
		body["payer_email"] = req.PayerEmail
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var out xenditInvoice
	if err := x.do(ctx, http.MethodPost, "/v2/invoices", bytes.NewReader(b), &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &ProviderError{Provider: "xendit", Message: "empty invoice id"}
	}
	return &Session{ID: out.ID, URL: out.InvoiceURL}, nil
}

func (x *xendit) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	var out xenditInvoice
	if err := x.do(ctx, http.MethodGet, "/v2/invoices/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return "", err
	}
	switch strings.ToUpper(out.Status) {
	case "PAID", "SETTLED":
		return StatusPaid, nil
	default:
		return StatusUnpaid, nil
	}
}

func (x *xendit) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(x.apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: "xendit", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var xe xenditError
		if json.NewDecoder(resp.Body).Decode(&xe) == nil && xe.Message != "" {
			return &ProviderError{Provider: "xendit", Message: xe.Message}
		}
		return &ProviderError{Provider: "xendit", Message: fmt.Sprintf("unexpected status %s", resp.Status)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
