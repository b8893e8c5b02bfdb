package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// Notifier delivers an alert notification over one channel type.
type Notifier interface {
	Type() alerting.ChannelType
	Send(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error
}

// Registry routes dispatch requests to the notifier registered for the
// channel type. It implements the engine's Dispatcher interface.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[alerting.ChannelType]Notifier
	logger    *logrus.Logger
}

// NewRegistry creates an empty notifier registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		notifiers: make(map[alerting.ChannelType]Notifier),
		logger:    logger,
	}
}

// Register adds a notifier, replacing any previous one for the same type.
func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[n.Type()] = n
}

// Dispatch sends the alert through the notifier for the channel's type.
// An unregistered channel type is reported as an error so the escalation
// record shows the failed delivery.
func (r *Registry) Dispatch(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	r.mu.RLock()
	n, ok := r.notifiers[channel.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.WithFields(logrus.Fields{
			"channel":  channel.Type,
			"alert_id": alert.ID,
		}).Warn("No notifier registered for channel type")
		return fmt.Errorf("no notifier registered for channel type %q", channel.Type)
	}

	if err := n.Send(ctx, alert, channel, recipients); err != nil {
		return fmt.Errorf("%s delivery failed: %w", channel.Type, err)
	}

	r.logger.WithFields(logrus.Fields{
		"channel":    channel.Type,
		"alert_id":   alert.ID,
		"recipients": len(recipients),
	}).Debug("Notification delivered")
	return nil
}

// Channels returns the registered channel types.
func (r *Registry) Channels() []alerting.ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]alerting.ChannelType, 0, len(r.notifiers))
	for t := range r.notifiers {
		types = append(types, t)
	}
	return types
}
