package ws

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const maxLoggedFrame = 256

// InboundHandler reacts to frames sent by clients. It never closes a
// connection because of what a client sent.
type InboundHandler struct {
	registry *Registry
	clock    clockwork.Clock
}

func NewInboundHandler(registry *Registry, clock clockwork.Clock) *InboundHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InboundHandler{registry: registry, clock: clock}
}

func (h *InboundHandler) Handle(connID string, frame []byte) {
	if !gjson.ValidBytes(frame) {
		log.Error().Str("connection_id", connID).Str("frame", truncate(frame)).Msg("invalid JSON message")
		return
	}
	msg := gjson.ParseBytes(frame)
	typ := msg.Get("type").String()
	if typ == "" {
		typ = "unknown"
	}

	switch MessageType(typ) {
	case TypePing:
		h.registry.SendTo(connID, newEnvelope(TypePong, nil, h.clock.Now()))
	case TypeSubscribeNotifications:
		h.registry.SendTo(connID, newEnvelope(TypeSubscriptionConfirmed, map[string]any{
			"message": "Subscribed to real-time notifications",
		}, h.clock.Now()))
	case TypeUserActivity:
		log.Info().Str("connection_id", connID).RawJSON("activity", activity(msg)).Msg("user activity")
	default:
		log.Warn().Str("connection_id", connID).Str("type", typ).Msg("unknown message type")
	}
}

func activity(msg gjson.Result) []byte {
	data := msg.Get("data")
	if !data.Exists() || data.Raw == "" {
		return []byte("{}")
	}
	return []byte(data.Raw)
}

func truncate(frame []byte) string {
	if len(frame) > maxLoggedFrame {
		return string(frame[:maxLoggedFrame]) + "..."
	}
	return string(frame)
}
