package ws

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeReplaysRoutedEnvelopes(t *testing.T) {
	r := newTestRegistry()
	b := NewBridge(nil, "test", r)
	user, ngo, anon := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Register("user", user, Principal{UserID: 9, Role: models.RoleDonor})
	r.Register("ngo", ngo, Principal{UserID: 10, Role: models.RoleNGO})
	r.Register("anon", anon, Principal{})

	messages := []routedEnvelope{
		{Kind: routeUser, UserID: 9, Envelope: newEnvelope(TypeNotification, nil, testNow)},
		{Kind: routeRoles, Roles: []models.Role{models.RoleNGO}, Envelope: newEnvelope(TypeNotification, nil, testNow)},
		{Kind: routeBroadcast, ExcludeID: "anon", Envelope: newEnvelope(TypeSystemUpdate, nil, testNow)},
	}
	for _, m := range messages {
		body, err := json.Marshal(m)
		require.NoError(t, err)
		b.handle(body)
	}
	b.handle([]byte("garbage"))

	assert.Len(t, user.received(t), 2)
	assert.Len(t, ngo.received(t), 2)
	assert.Empty(t, anon.received(t))
}

// unreachableRedis returns a client for a port nothing listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBridgeDeliversLocallyWhenRedisUnreachable(t *testing.T) {
	r := newTestRegistry()
	b := NewBridge(unreachableRedis(t), "test", r)
	donor, ngo := &fakeConn{}, &fakeConn{}
	r.Register("donor", donor, Principal{UserID: 9, Role: models.RoleDonor})
	r.Register("ngo", ngo, Principal{UserID: 10, Role: models.RoleNGO})

	b.SendToUser(9, newEnvelope(TypeNotification, map[string]any{"title": "Pickup"}, testNow))
	b.BroadcastToRoles(newEnvelope(TypeNotification, nil, testNow), []models.Role{models.RoleNGO})
	b.Broadcast(newEnvelope(TypeSystemUpdate, nil, testNow), "ngo")

	assert.Len(t, donor.received(t), 2)
	assert.Len(t, ngo.received(t), 1)
	assert.False(t, b.Subscribed())
}

func TestBridgeRunRetriesUntilCancelled(t *testing.T) {
	r := newTestRegistry()
	b := NewBridge(unreachableRedis(t), "test", r)
	b.retryMin = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned before ctx ended: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, b.Subscribed())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after ctx ended")
	}

	// Still not subscribed, so fan-out stays local.
	conn := &fakeConn{}
	r.Register("c", conn, Principal{UserID: 1, Role: models.RoleDonor})
	b.Broadcast(newEnvelope(TypeSystemUpdate, nil, testNow), "")
	assert.Len(t, conn.received(t), 1)
}
