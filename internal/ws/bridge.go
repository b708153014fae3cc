package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 2 * time.Second
	resubscribeMin = 500 * time.Millisecond
	resubscribeMax = 30 * time.Second
)

type routeKind string

const (
	routeUser      routeKind = "user"
	routeBroadcast routeKind = "broadcast"
	routeRoles     routeKind = "roles"
)

var errSubscriptionClosed = errors.New("subscription channel closed")

// routedEnvelope is the message shape carried on the Redis channel.
type routedEnvelope struct {
	Kind      routeKind     `json:"kind"`
	UserID    int64         `json:"user_id,omitempty"`
	ExcludeID string        `json:"exclude_id,omitempty"`
	Roles     []models.Role `json:"roles,omitempty"`
	Envelope  Envelope      `json:"envelope"`
}

// Bridge routes envelopes through a Redis Pub/Sub channel so that every
// process instance fans them into its own Registry. When publishing fails, or
// while this instance holds no subscription, the envelope is delivered locally.
type Bridge struct {
	client     *redis.Client
	channel    string
	local      *Registry
	subscribed atomic.Bool
	retryMin   time.Duration
}

func NewBridge(client *redis.Client, channel string, local *Registry) *Bridge {
	return &Bridge{client: client, channel: channel, local: local, retryMin: resubscribeMin}
}

// Subscribed reports whether the bridge currently receives from the channel.
func (b *Bridge) Subscribed() bool {
	return b.subscribed.Load()
}

func (b *Bridge) SendToUser(userID int64, env Envelope) {
	b.publish(routedEnvelope{Kind: routeUser, UserID: userID, Envelope: env})
}

func (b *Bridge) Broadcast(env Envelope, excludeID string) {
	b.publish(routedEnvelope{Kind: routeBroadcast, ExcludeID: excludeID, Envelope: env})
}

func (b *Bridge) BroadcastToRoles(env Envelope, roles []models.Role) {
	b.publish(routedEnvelope{Kind: routeRoles, Roles: roles, Envelope: env})
}

func (b *Bridge) publish(msg routedEnvelope) {
	body, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode routed envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		log.Error().Err(err).Str("channel", b.channel).Msg("redis publish failed, delivering locally")
		b.deliver(msg)
		return
	}
	// Nobody on this instance replays the channel yet.
	if !b.subscribed.Load() {
		b.deliver(msg)
	}
}

// Run subscribes to the channel and replays messages into the local
// registry until ctx is done. A failed or lost subscription is retried with
// exponential backoff.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := b.retryMin
	for {
		wasSubscribed, err := b.subscribe(ctx)
		b.subscribed.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if wasSubscribed {
			backoff = b.retryMin
		}
		log.Warn().Err(err).Str("channel", b.channel).Dur("retry_in", backoff).Msg("redis bridge not subscribed, delivering locally")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, resubscribeMax)
	}
}

// subscribe holds one subscription until it ends. It reports whether the
// subscription was ever confirmed.
func (b *Bridge) subscribe(ctx context.Context) (bool, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.subscribed.Store(true)
	log.Info().Str("channel", b.channel).Msg("redis bridge subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			b.handle([]byte(msg.Payload))
		}
	}
}

func (b *Bridge) handle(payload []byte) {
	var msg routedEnvelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Error().Err(err).Str("channel", b.channel).Msg("failed to decode routed envelope")
		return
	}
	b.deliver(msg)
}

func (b *Bridge) deliver(msg routedEnvelope) {
	switch msg.Kind {
	case routeUser:
		b.local.SendToUser(msg.UserID, msg.Envelope)
	case routeBroadcast:
		b.local.Broadcast(msg.Envelope, msg.ExcludeID)
	case routeRoles:
		b.local.BroadcastToRoles(msg.Envelope, msg.Roles)
	default:
		log.Warn().Str("kind", string(msg.Kind)).Msg("unknown route kind")
	}
}
