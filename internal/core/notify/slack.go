package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// SlackNotifier posts alert messages to a Slack incoming webhook. The webhook
// URL comes from the channel config ("webhook_url" key).
type SlackNotifier struct {
	client *http.Client
	logger *logrus.Logger
}

// NewSlackNotifier creates a Slack notifier with the given HTTP timeout.
func NewSlackNotifier(timeout time.Duration, logger *logrus.Logger) *SlackNotifier {
	return &SlackNotifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (n *SlackNotifier) Type() alerting.ChannelType {
	return alerting.ChannelSlack
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func severityColor(s alerting.Severity) string {
	switch s {
	case alerting.SeverityCritical:
		return "#d00000"
	case alerting.SeverityHigh:
		return "#e85d04"
	case alerting.SeverityMedium:
		return "#ffba08"
	default:
		return "#4361ee"
	}
}

func (n *SlackNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	url := channel.Config["webhook_url"]
	if url == "" {
		return fmt.Errorf("slack channel has no webhook_url configured")
	}

	fields := []slackField{
		{Title: "Severity", Value: string(alert.Severity), Short: true},
		{Title: "Status", Value: string(alert.Status), Short: true},
	}
	if alert.ServiceName != "" {
		fields = append(fields, slackField{Title: "Service", Value: alert.ServiceName, Short: true})
	}
	if alert.MetricType != "" {
		fields = append(fields, slackField{
			Title: "Metric",
			Value: fmt.Sprintf("%s = %.2f (%s)", alert.MetricType, alert.CurrentValue, alert.Trend),
			Short: true,
		})
	}
	if len(recipients) > 0 {
		fields = append(fields, slackField{Title: "Notify", Value: strings.Join(recipients, ", ")})
	}

	msg := slackMessage{
		Text: fmt.Sprintf(":rotating_light: *%s*", alert.Title),
		Attachments: []slackAttachment{
			{
				Color:  severityColor(alert.Severity),
				Title:  alert.Title,
				Text:   alert.Description,
				Fields: fields,
				Ts:     alert.CreatedAt.Unix(),
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	n.logger.WithField("alert_id", alert.ID).Debug("Slack notification sent")
	return nil
}
