package websocket

import (
	"encoding/json"
	"time"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// Message types pushed to dashboard clients
const (
	MessageTypeAlertCreated      = "alert_created"
	MessageTypeAlertAcknowledged = "alert_acknowledged"
	MessageTypeAlertResolved     = "alert_resolved"
	MessageTypeNotification      = "notification"
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypeConnection        = "connection"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// AlertMessage builds an alert lifecycle event message.
func AlertMessage(msgType string, alert *alerting.SystemAlert) Message {
	return Message{
		Type: msgType,
		Data: map[string]interface{}{
			"alert": alert,
		},
	}
}

// NotificationMessage builds an in-app notification message.
func NotificationMessage(alert *alerting.SystemAlert, recipients []string) Message {
	return Message{
		Type: MessageTypeNotification,
		Data: map[string]interface{}{
			"alert_id":   alert.ID,
			"title":      alert.Title,
			"message":    alert.Description,
			"severity":   alert.Severity,
			"recipients": recipients,
		},
	}
}
