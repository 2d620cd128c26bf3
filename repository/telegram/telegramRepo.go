package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"libraryapi/util/httpx"
)

const apiBase = "https://api.telegram.org"

// Sender delivers one text message to the notification channel.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type bot struct {
	base   string
	token  string
	chatID string
	client *http.Client
}

func NewBot(token, chatID string) Sender {
	return &bot{base: apiBase, token: token, chatID: chatID, client: httpx.New(5 * time.Second)}
}

func (b *bot) Send(ctx context.Context, text string) error {
	form := url.Values{"chat_id": {b.chatID}, "text": {text}}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.base, b.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 || !out.OK {
		return fmt.Errorf("telegram sendMessage failed: %s %s", resp.Status, out.Description)
	}
	return nil
}

type logOnly struct{ log *slog.Logger }

// NewLogOnly is used when no bot is configured; messages end up in the log.
func NewLogOnly(log *slog.Logger) Sender { return &logOnly{log: log} }

func (l *logOnly) Send(ctx context.Context, text string) error {
	l.log.InfoContext(ctx, "notification (log only)", "text", text)
	return nil
}
