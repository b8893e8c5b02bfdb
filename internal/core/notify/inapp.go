package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/websocket"
)

// InAppNotifier pushes notifications to connected dashboard clients through
// the WebSocket hub. Delivery is best-effort; clients that are not connected
// simply miss the push.
type InAppNotifier struct {
	hub    *websocket.Hub
	logger *logrus.Logger
}

// NewInAppNotifier creates an in-app notifier bound to the hub.
func NewInAppNotifier(hub *websocket.Hub, logger *logrus.Logger) *InAppNotifier {
	return &InAppNotifier{hub: hub, logger: logger}
}

func (n *InAppNotifier) Type() alerting.ChannelType {
	return alerting.ChannelInApp
}

func (n *InAppNotifier) Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	n.hub.BroadcastToAll(websocket.NotificationMessage(alert, recipients))
	n.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"clients":  n.hub.GetClientCount(),
	}).Debug("In-app notification broadcast")
	return nil
}
