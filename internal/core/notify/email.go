package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/config"
	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// EmailNotifier sends alert notifications over SMTP.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
	send   func(addr string, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an email notifier using the given SMTP settings.
func NewEmailNotifier(cfg config.SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

func (n *EmailNotifier) Type() alerting.ChannelType {
	return alerting.ChannelEmail
}

func (n *EmailNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	if n.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)
	body := buildEmailBody(alert)

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", n.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.send(addr, n.cfg.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"recipients": len(recipients),
	}).Debug("Alert email sent")
	return nil
}

func buildEmailBody(alert *alerting.SystemAlert) string {
	b := strings.Builder{}
	b.WriteString(alert.Description)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Severity: %s\n", alert.Severity))
	b.WriteString(fmt.Sprintf("Status: %s\n", alert.Status))
	if alert.ServiceName != "" {
		b.WriteString(fmt.Sprintf("Service: %s\n", alert.ServiceName))
	}
	if alert.MetricType != "" {
		b.WriteString(fmt.Sprintf("Metric: %s (current value %.2f, trend %s)\n",
			alert.MetricType, alert.CurrentValue, alert.Trend))
	}
	b.WriteString(fmt.Sprintf("Triggered: %s\n", alert.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString(fmt.Sprintf("Alert ID: %s\n", alert.ID))
	return b.String()
}
