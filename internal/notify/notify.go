// Package notify provides trade event notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/models"
)

// Notifier defines the interface for sending trade notifications.
type Notifier interface {
	SendTradeOpened(ctx context.Context, pos *models.Position) error
	SendTradeClosed(ctx context.Context, pos *models.Position) error
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOpen  NotificationType = "trade_opened"
	NotificationClose NotificationType = "trade_closed"
)

// Manager fans notifications out to all enabled channels.
type Manager struct {
	channels []Channel
}

// NewManager creates a notification manager from configuration.
func NewManager(cfg config.NotificationConfig) *Manager {
	m := &Manager{}

	if !cfg.Enabled {
		return m
	}

	m.channels = append(m.channels, NewTerminalChannel())
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		m.channels = append(m.channels, NewWebhookChannel(cfg.Webhook.URL))
	}

	return m
}

// SendTradeOpened notifies all channels of a new position.
func (m *Manager) SendTradeOpened(ctx context.Context, pos *models.Position) error {
	n := Notification{
		Type:  NotificationOpen,
		Title: fmt.Sprintf("Opened %s credit spread #%d", pos.Symbol, pos.ID),
		Message: fmt.Sprintf("%.0f/%.0f, credit %.2f x%d contracts",
			pos.SellStrike, pos.BuyStrike, pos.NetCredit, pos.Contracts),
		Data: map[string]interface{}{
			"position_id": pos.ID,
			"symbol":      pos.Symbol,
			"sell_strike": pos.SellStrike,
			"buy_strike":  pos.BuyStrike,
			"net_credit":  pos.NetCredit,
			"contracts":   pos.Contracts,
		},
		Timestamp: time.Now(),
	}
	return m.send(ctx, n)
}

// SendTradeClosed notifies all channels of a closed position.
func (m *Manager) SendTradeClosed(ctx context.Context, pos *models.Position) error {
	n := Notification{
		Type:  NotificationClose,
		Title: fmt.Sprintf("Closed %s credit spread #%d (%s)", pos.Symbol, pos.ID, pos.ExitReason),
		Message: fmt.Sprintf("P&L %.2f after %.1f min",
			pos.PnL, pos.TimeInTrade),
		Data: map[string]interface{}{
			"position_id": pos.ID,
			"symbol":      pos.Symbol,
			"exit_reason": string(pos.ExitReason),
			"pnl":         pos.PnL,
		},
		Timestamp: time.Now(),
	}
	return m.send(ctx, n)
}

func (m *Manager) send(ctx context.Context, n Notification) error {
	var firstErr error
	for _, ch := range m.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		}
	}
	return firstErr
}

// Ensure Manager implements Notifier
var _ Notifier = (*Manager)(nil)

// WebhookChannel posts notifications as JSON to a configured URL.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel creates a webhook notification channel.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel name.
func (w *WebhookChannel) Name() string { return "webhook" }

// IsEnabled reports whether the channel is usable.
func (w *WebhookChannel) IsEnabled() bool { return w.url != "" }

// Send posts the notification to the webhook URL.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":      string(n.Type),
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
