package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// SMSNotifier sends alert texts through an HTTP SMS gateway. Gateway URL and
// credentials come from the channel config ("gateway_url", "api_key").
type SMSNotifier struct {
	client *http.Client
	logger *logrus.Logger
}

// NewSMSNotifier creates an SMS notifier with the given HTTP timeout.
func NewSMSNotifier(timeout time.Duration, logger *logrus.Logger) *SMSNotifier {
	return &SMSNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (n *SMSNotifier) Type() alerting.ChannelType {
	return alerting.ChannelSMS
}

func (n *SMSNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	gateway := channel.Config["gateway_url"]
	if gateway == "" {
		return fmt.Errorf("sms channel has no gateway_url configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	// Keep the text within a single SMS segment where possible.
	text := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)
	if len(text) > 160 {
		text = text[:157] + "..."
	}

	var firstErr error
	sent := 0
	for _, to := range recipients {
		form := url.Values{}
		form.Set("to", to)
		form.Set("message", text)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to build sms request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if key := channel.Config["api_key"]; key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if firstErr == nil {
				firstErr = fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
			}
			continue
		}
		sent++
	}

	if sent == 0 && firstErr != nil {
		return fmt.Errorf("sms delivery failed: %w", firstErr)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"sent":     sent,
		"total":    len(recipients),
	}).Debug("SMS notifications sent")
	return nil
}
