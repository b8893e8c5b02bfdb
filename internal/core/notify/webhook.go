package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// WebhookNotifier POSTs the alert as JSON to a URL taken from the channel
// config ("url" key).
type WebhookNotifier struct {
	client *http.Client
	logger *logrus.Logger
}

// NewWebhookNotifier creates a webhook notifier with the given HTTP timeout.
func NewWebhookNotifier(timeout time.Duration, logger *logrus.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (n *WebhookNotifier) Type() alerting.ChannelType {
	return alerting.ChannelWebhook
}

// webhookPayload is the body delivered to webhook receivers.
type webhookPayload struct {
	Event      string                `json:"event"`
	Alert      *alerting.SystemAlert `json:"alert"`
	Recipients []string              `json:"recipients,omitempty"`
	SentAt     time.Time             `json:"sent_at"`
}

func (n *WebhookNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	url := channel.Config["url"]
	if url == "" {
		return fmt.Errorf("webhook channel has no url configured")
	}

	payload := webhookPayload{
		Event:      "alert.notification",
		Alert:      alert,
		Recipients: recipients,
		SentAt:     time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := channel.Config["auth_token"]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"url":      url,
	}).Debug("Webhook notification sent")
	return nil
}
