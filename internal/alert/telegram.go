package alert

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"orb-trading-bot/internal/api"
	"orb-trading-bot/internal/types"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramAlerter posts alerts to a chat through the Telegram Bot API.
type TelegramAlerter struct {
	token  string
	chatID string
	client *api.Client
	retry  *api.RetryConfig
}

func NewTelegramAlerter(token, chatID string, opts ...api.ClientOption) *TelegramAlerter {
	base := []api.ClientOption{api.WithBaseURL(telegramBaseURL), api.WithTimeout(30 * time.Second), api.WithLogging(true)}
	return &TelegramAlerter{
		token:  token,
		chatID: chatID,
		client: api.NewClient(append(base, opts...)...),
		retry:  &api.RetryConfig{MaxAttempts: 4, InitialWait: time.Second, MaxWait: 8 * time.Second},
	}
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// botResponse is the envelope of every Bot API reply.
type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramAlerter) Alert(ctx context.Context, a types.Alert) error {
	req := api.NewRequest(http.MethodPost, "/bot"+t.token+"/sendMessage").
		WithContext(ctx).
		WithBody(sendMessage{ChatID: t.chatID, Text: Format(a), ParseMode: "HTML"})
	resp, err := t.client.DoWithRetry(req, t.retry)
	if err != nil {
		return fmt.Errorf("telegram alert: %w", err)
	}
	var br botResponse
	if err := resp.ParseJSON(&br); err != nil {
		return fmt.Errorf("telegram alert: %w", err)
	}
	if !br.OK {
		return fmt.Errorf("telegram alert rejected: %s", br.Description)
	}
	return nil
}

// Format renders a as Telegram HTML.
func Format(a types.Alert) string {
	return fmt.Sprintf("🚨 <b>%s</b> | %s %s\n\n%s\n<i>%s</i>",
		html.EscapeString(a.Kind),
		html.EscapeString(a.Symbol),
		html.EscapeString(a.Date),
		html.EscapeString(a.Message),
		a.Time.Format("2006-01-02 15:04:05 MST"),
	)
}
