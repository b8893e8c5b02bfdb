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

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyNotifier triggers incidents via the PagerDuty Events API v2. The
// routing key comes from the channel config ("routing_key" key); an "api_url"
// override is honored for testing.
type PagerDutyNotifier struct {
	client *http.Client
	logger *logrus.Logger
}

// NewPagerDutyNotifier creates a PagerDuty notifier with the given HTTP timeout.
func NewPagerDutyNotifier(timeout time.Duration, logger *logrus.Logger) *PagerDutyNotifier {
	return &PagerDutyNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (n *PagerDutyNotifier) Type() alerting.ChannelType {
	return alerting.ChannelPagerDuty
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key"`
	Payload     pagerDutyPayload `json:"payload"`
}

type pagerDutyPayload struct {
	Summary       string                 `json:"summary"`
	Source        string                 `json:"source"`
	Severity      string                 `json:"severity"`
	Timestamp     string                 `json:"timestamp"`
	CustomDetails map[string]interface{} `json:"custom_details,omitempty"`
}

// pagerDutySeverity maps alert severities onto PagerDuty's fixed set.
func pagerDutySeverity(s alerting.Severity) string {
	switch s {
	case alerting.SeverityCritical:
		return "critical"
	case alerting.SeverityHigh:
		return "error"
	case alerting.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}

func (n *PagerDutyNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	routingKey := channel.Config["routing_key"]
	if routingKey == "" {
		return fmt.Errorf("pagerduty channel has no routing_key configured")
	}
	apiURL := channel.Config["api_url"]
	if apiURL == "" {
		apiURL = pagerDutyEventsURL
	}

	source := alert.ServiceName
	if source == "" {
		source = "pulse-backend"
	}

	event := pagerDutyEvent{
		RoutingKey:  routingKey,
		EventAction: "trigger",
		DedupKey:    alert.ID,
		Payload: pagerDutyPayload{
			Summary:   fmt.Sprintf("%s: %s", alert.Title, alert.Description),
			Source:    source,
			Severity:  pagerDutySeverity(alert.Severity),
			Timestamp: alert.CreatedAt.UTC().Format(time.RFC3339),
			CustomDetails: map[string]interface{}{
				"alert_type":    alert.AlertType,
				"metric_type":   alert.MetricType,
				"current_value": alert.CurrentValue,
				"trend":         alert.Trend,
				"recipients":    recipients,
			},
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal pagerduty event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("pagerduty request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}

	n.logger.WithField("alert_id", alert.ID).Debug("PagerDuty event sent")
	return nil
}
