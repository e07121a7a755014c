package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/slog"
)

// Gateway names as stored in system settings
const (
	GatewayMock     = "MOCK"
	GatewayTelegram = "TELEGRAM"
	GatewayWebhook  = "WEBHOOK"
)

// ErrUnsupportedRecipient is returned when a gateway cannot reach a recipient
var ErrUnsupportedRecipient = errors.New("gateway cannot deliver to this recipient")

// Message is one outbound notification
type Message struct {
	Recipient string // buyer email or phone; empty for staff alerts
	Staff     bool
	Subject   string
	Body      string
}

// Gateway represents an outbound notification gateway
type Gateway interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}

// MockGateway logs messages instead of sending them
type MockGateway struct {
	name string
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{name: name}
}

// Name returns the gateway name
func (g *MockGateway) Name() string { return g.name }

// Send logs the message and returns a fake message ID
func (g *MockGateway) Send(_ context.Context, msg Message) (string, error) {
	msgID := fmt.Sprintf("%s-MOCK-MSG-%d", g.name, time.Now().UnixNano())
	slog.Info("Mock gateway send", "gateway", g.name, "recipient", msg.Recipient, "staff", msg.Staff, "subject", msg.Subject, "messageId", msgID)
	return msgID, nil
}

// TelegramGateway posts staff alerts to an organizer chat
type TelegramGateway struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramGateway connects the bot with token
func NewTelegramGateway(token string, chatID int64) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramGateway{bot: bot, chatID: chatID}, nil
}

// Name returns the gateway name
func (g *TelegramGateway) Name() string { return GatewayTelegram }

// Send posts msg to the staff chat. Buyers are not reachable over Telegram.
func (g *TelegramGateway) Send(_ context.Context, msg Message) (string, error) {
	if !msg.Staff {
		return "", ErrUnsupportedRecipient
	}
	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}
	sent, err := g.bot.Send(tgbotapi.NewMessage(g.chatID, text))
	if err != nil {
		return "", fmt.Errorf("telegram send failed: %w", err)
	}
	return fmt.Sprintf("tg-%d", sent.MessageID), nil
}

// WebhookGateway relays messages to an email/push service over HTTP
type WebhookGateway struct {
	URL          string
	tokenService *jwt.TokenService
	httpClient   *http.Client
}

// NewWebhookGateway creates a webhook gateway that authenticates with a
// short-lived bearer token signed with secret
func NewWebhookGateway(url, secret string) *WebhookGateway {
	return &WebhookGateway{
		URL:          url,
		tokenService: jwt.NewTokenService(secret, 5*time.Minute, "raffle-backend"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the gateway name
func (g *WebhookGateway) Name() string { return GatewayWebhook }

// Send posts msg as JSON to the relay
func (g *WebhookGateway) Send(ctx context.Context, msg Message) (string, error) {
	token, err := g.tokenService.SignService("notifier", time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to sign webhook token: %w", err)
	}

	jsonBody, err := json.Marshal(map[string]interface{}{
		"recipient": msg.Recipient,
		"staff":     msg.Staff,
		"subject":   msg.Subject,
		"body":      msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		MessageID string `json:"messageId"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return response.MessageID, nil
}
