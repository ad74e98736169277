package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint. The event name
// is also sent as the X-Backtest-Event header for receivers that route on it.
type WebhookNotifier struct {
	url    string
	source string
	client *http.Client
}

// webhookPayload is the body receivers decode.
type webhookPayload struct {
	Source string `json:"source"`
	Alert
	SentAt time.Time `json:"sentAt"`
}

// NewWebhookNotifier creates a webhook notifier for url. source identifies
// this deployment in every payload.
func NewWebhookNotifier(url, source string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		source: source,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{Source: w.source, Alert: alert, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("webhook %s: encode: %w", alert.Event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", alert.Event, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Backtest-Event", string(alert.Event))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", alert.Event, err)
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook %s: receiver answered %d", alert.Event, resp.StatusCode)
	}

	slog.Debug("webhook alert delivered", "event", alert.Event, "source", w.source)
	return nil
}
