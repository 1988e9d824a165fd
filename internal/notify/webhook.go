package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TicketNotification is the JSON body posted to the webhook.
type TicketNotification struct {
	Event           string   `json:"event"`
	From            string   `json:"from,omitempty"`
	Recipients      []string `json:"recipients"`
	Subject         string   `json:"subject"`
	TicketID        int64    `json:"ticket_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Sector          string   `json:"sector"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	AssignedToEmail string   `json:"assigned_to_email"`
	RequesterEmail  string   `json:"requester_email"`
	EndDate         string   `json:"end_date,omitempty"`
	CreatedOn       string   `json:"created_on"`
}

// Notifier delivers ticket notifications.
type Notifier interface {
	Notify(ctx context.Context, n TicketNotification) error
}

// WebhookNotifier posts notifications to an HTTP endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	from   string
	logger *zap.Logger
}

// NewWebhookNotifier builds a notifier. An empty url makes Notify a no-op.
func NewWebhookNotifier(client *resty.Client, url, from string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if client == nil {
		client = resty.New()
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{client: client, url: strings.TrimSpace(url), from: from, logger: logger}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookNotifier) Enabled() bool {
	return w != nil && w.url != ""
}

// Notify posts n. Non-2xx responses are errors.
func (w *WebhookNotifier) Notify(ctx context.Context, n TicketNotification) error {
	if !w.Enabled() {
		return nil
	}
	if len(n.Recipients) == 0 {
		return errors.New("notification without recipients")
	}
	if n.From == "" {
		n.From = w.from
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(n).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	w.logger.Info("notification delivered",
		zap.Int64("ticket_id", n.TicketID),
		zap.String("event", n.Event),
		zap.Strings("recipients", n.Recipients),
		zap.Int("status", resp.StatusCode()))
	return nil
}

// truncate cuts s after max runes.
func truncate(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
