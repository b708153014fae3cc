package ws

import (
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Router fans envelopes out to connections. The Registry routes locally; the
// Bridge routes through Redis to every instance.
type Router interface {
	SendToUser(userID int64, env Envelope)
	Broadcast(env Envelope, excludeID string)
	BroadcastToRoles(env Envelope, roles []models.Role)
}

// Dispatcher builds typed envelopes and hands them to a Router. It never
// persists, retries or queues.
type Dispatcher struct {
	router Router
	clock  clockwork.Clock
}

func NewDispatcher(router Router, clock clockwork.Clock) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{router: router, clock: clock}
}

// SendNotification targets userID when it is positive and everyone otherwise.
func (d *Dispatcher) SendNotification(payload any, userID int64) {
	env := newEnvelope(TypeNotification, payload, d.clock.Now())
	if userID > 0 {
		d.router.SendToUser(userID, env)
		return
	}
	d.router.Broadcast(env, "")
}

func (d *Dispatcher) SendEmergencyAlert(payload any) {
	env := newEnvelope(TypeEmergencyAlert, payload, d.clock.Now())
	env.Priority = string(models.SeverityHigh)
	d.router.Broadcast(env, "")
	log.Warn().Str("title", titleOf(payload)).Msg("emergency alert broadcasted")
}

func (d *Dispatcher) SendSystemUpdate(payload any) {
	d.router.Broadcast(newEnvelope(TypeSystemUpdate, payload, d.clock.Now()), "")
}

// BroadcastToRoles sends a notification to connections opened by users holding one of roles.
func (d *Dispatcher) BroadcastToRoles(payload any, roles []models.Role) {
	d.router.BroadcastToRoles(newEnvelope(TypeNotification, payload, d.clock.Now()), roles)
}

func (d *Dispatcher) SendDisasterAlert(alert any, notification any) {
	env := newEnvelope(TypeDisasterAlert, alert, d.clock.Now())
	env.Notification = notification
	d.router.Broadcast(env, "")
}

func titleOf(payload any) string {
	switch p := payload.(type) {
	case map[string]any:
		if t, ok := p["title"].(string); ok {
			return t
		}
	case *models.EmergencyAlert:
		return p.Title
	}
	return "Unknown"
}
