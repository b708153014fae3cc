package ws

import (
	"slices"
	"strings"
	"sync"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const welcomeMessage = "Connected to FOOD & DISASTER MANAGEMENT real-time updates"

// Conn is one live duplex channel. Send must not block.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Principal is the identity resolved when a connection is opened. A zero
// UserID means the connection is anonymous.
type Principal struct {
	UserID int64
	Role   models.Role
}

func (p Principal) Authenticated() bool { return p.UserID > 0 }

type entry struct {
	conn      Conn
	principal Principal
}

type target struct {
	id   string
	conn Conn
}

// ConnInfo describes a registered connection.
type ConnInfo struct {
	ID     string      `json:"connection_id"`
	UserID int64       `json:"user_id,omitempty"`
	Role   models.Role `json:"role,omitempty"`
}

// Registry tracks live connections by id and by user.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]entry
	users map[int64]string
	clock clockwork.Clock
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		conns: make(map[string]entry),
		users: make(map[int64]string),
		clock: clock,
	}
}

// Register stores conn under id and binds it to the principal's user. A
// duplicate id or user replaces the previous binding without closing the
// previous connection.
func (r *Registry) Register(id string, conn Conn, p Principal) {
	r.mu.Lock()
	if prev, ok := r.conns[id]; ok && prev.principal.Authenticated() && r.users[prev.principal.UserID] == id {
		delete(r.users, prev.principal.UserID)
	}
	r.conns[id] = entry{conn: conn, principal: p}
	if p.Authenticated() {
		r.users[p.UserID] = id
	}
	r.mu.Unlock()
	r.updateGauges()

	log.Info().Str("connection_id", id).Int64("user_id", p.UserID).Msg("websocket connected")

	r.SendTo(id, newEnvelope(TypeConnectionEstablished, map[string]any{
		"message":       welcomeMessage,
		"connection_id": id,
	}, r.clock.Now()))
}

// Unregister removes id. The user binding is dropped only while it still
// points at id. Unknown ids are ignored.
func (r *Registry) Unregister(id string, userID int64) {
	r.remove(id, userID, nil)
}

// release unregisters id only if it is still bound to conn, so a connection
// that lost its id to a newer one cannot evict the newer entry.
func (r *Registry) release(id string, conn Conn) {
	r.remove(id, 0, conn)
}

func (r *Registry) remove(id string, userID int64, conn Conn) {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok || (conn != nil && e.conn != conn) {
		r.mu.Unlock()
		return
	}
	delete(r.conns, id)
	for _, uid := range []int64{userID, e.principal.UserID} {
		if uid > 0 && r.users[uid] == id {
			delete(r.users, uid)
		}
	}
	r.mu.Unlock()
	r.updateGauges()

	log.Info().Str("connection_id", id).Int64("user_id", e.principal.UserID).Msg("websocket disconnected")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) AuthenticatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Snapshot lists the registered connections.
func (r *Registry) Snapshot() []ConnInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnInfo, 0, len(r.conns))
	for id, e := range r.conns {
		out = append(out, ConnInfo{ID: id, UserID: e.principal.UserID, Role: e.principal.Role})
	}
	slices.SortFunc(out, func(a, b ConnInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// SendTo delivers env to one connection. Failures purge the connection and
// are not reported to the caller.
func (r *Registry) SendTo(id string, env Envelope) {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	payload, err := env.encode()
	if err != nil {
		log.Error().Err(err).Str("type", string(env.Type)).Msg("failed to encode envelope")
		return
	}
	if err := r.deliver(target{id: id, conn: e.conn}, env.Type, payload); err != nil {
		r.purge(target{id: id, conn: e.conn})
	}
}

// SendToUser delivers env to the connection bound to userID, if any.
func (r *Registry) SendToUser(userID int64, env Envelope) {
	r.mu.RLock()
	id, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.SendTo(id, env)
}

// Broadcast delivers env to every connection except excludeID.
func (r *Registry) Broadcast(env Envelope, excludeID string) {
	r.fanOut(env, func(id string, _ Principal) bool { return id != excludeID })
}

// BroadcastToRoles delivers env to authenticated connections whose role is in
// roles. An empty roles list reaches everyone.
func (r *Registry) BroadcastToRoles(env Envelope, roles []models.Role) {
	if len(roles) == 0 {
		r.Broadcast(env, "")
		return
	}
	r.fanOut(env, func(_ string, p Principal) bool {
		return p.Authenticated() && slices.Contains(roles, p.Role)
	})
}

// CloseAll closes and forgets every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]entry)
	r.users = make(map[int64]string)
	r.mu.Unlock()
	r.updateGauges()

	for _, e := range conns {
		e.conn.Close()
	}
}

func (r *Registry) fanOut(env Envelope, keep func(string, Principal) bool) {
	payload, err := env.encode()
	if err != nil {
		log.Error().Err(err).Str("type", string(env.Type)).Msg("failed to encode envelope")
		return
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.conns))
	for id, e := range r.conns {
		if keep(id, e.principal) {
			targets = append(targets, target{id: id, conn: e.conn})
		}
	}
	r.mu.RUnlock()

	var failed []target
	for _, t := range targets {
		if err := r.deliver(t, env.Type, payload); err != nil {
			failed = append(failed, t)
		}
	}
	for _, t := range failed {
		r.purge(t)
	}
}

func (r *Registry) deliver(t target, typ MessageType, payload []byte) error {
	if err := t.conn.Send(payload); err != nil {
		log.Warn().Err(err).Str("connection_id", t.id).Str("type", string(typ)).Msg("failed to send to connection")
		observability.WSSendFailures.Inc()
		return err
	}
	observability.WSMessagesSent.WithLabelValues(string(typ)).Inc()
	return nil
}

func (r *Registry) purge(t target) {
	r.release(t.id, t.conn)
	t.conn.Close()
}

func (r *Registry) updateGauges() {
	r.mu.RLock()
	conns, users := len(r.conns), len(r.users)
	r.mu.RUnlock()
	observability.WSConnections.Set(float64(conns))
	observability.WSAuthenticatedUsers.Set(float64(users))
}
