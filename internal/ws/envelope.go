package ws

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeConnectionEstablished  MessageType = "connection_established"
	TypePong                   MessageType = "pong"
	TypeSubscriptionConfirmed  MessageType = "subscription_confirmed"
	TypeNotification           MessageType = "notification"
	TypeEmergencyAlert         MessageType = "emergency_alert"
	TypeSystemUpdate           MessageType = "system_update"
	TypeDisasterAlert          MessageType = "disaster_alert"
	TypePing                   MessageType = "ping"
	TypeSubscribeNotifications MessageType = "subscribe_notifications"
	TypeUserActivity           MessageType = "user_activity"
)

// Envelope is the outbound wire message. Timestamp is RFC 3339 UTC. Data is
// left out only when nil; an empty payload is sent as is.
type Envelope struct {
	Type         MessageType `json:"type"`
	Data         any         `json:"data,omitempty"`
	Timestamp    string      `json:"timestamp"`
	Priority     string      `json:"priority,omitempty"`
	Notification any         `json:"notification,omitempty"`
}

func newEnvelope(t MessageType, data any, now time.Time) Envelope {
	return Envelope{Type: t, Data: data, Timestamp: now.UTC().Format(time.RFC3339)}
}

func (e Envelope) encode() ([]byte, error) {
	return json.Marshal(e)
}
