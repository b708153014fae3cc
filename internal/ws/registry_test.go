package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (f *fakeConn) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, p)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) setFail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = true
}

// received decodes everything sent after the welcome envelope.
func (f *fakeConn) received(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, frame := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(frame, &m))
		if m["type"] == string(TypeConnectionEstablished) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClockAt(testNow))
}

func TestRegisterSendsWelcome(t *testing.T) {
	r := newTestRegistry()
	c := &fakeConn{}
	r.Register("c1", c, Principal{})

	require.Len(t, c.frames, 1)
	var env map[string]any
	require.NoError(t, json.Unmarshal(c.frames[0], &env))
	assert.Equal(t, "connection_established", env["type"])
	assert.Equal(t, "2025-06-01T08:30:00Z", env["timestamp"])
	data := env["data"].(map[string]any)
	assert.Equal(t, "c1", data["connection_id"])
	assert.Equal(t, welcomeMessage, data["message"])
}

func TestCountsTrackRegistrations(t *testing.T) {
	r := newTestRegistry()
	r.Register("a", &fakeConn{}, Principal{UserID: 1, Role: models.RoleNGO})
	r.Register("b", &fakeConn{}, Principal{})
	r.Register("c", &fakeConn{}, Principal{UserID: 2, Role: models.RoleAdmin})
	r.Register("c", &fakeConn{}, Principal{UserID: 2, Role: models.RoleAdmin})
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 2, r.AuthenticatedCount())

	r.Unregister("a", 1)
	r.Unregister("missing", 9)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, 1, r.AuthenticatedCount())
	assert.LessOrEqual(t, r.AuthenticatedCount(), r.Count())
}

func TestSecondConnectionForUserOverwritesBinding(t *testing.T) {
	r := newTestRegistry()
	first, second := &fakeConn{}, &fakeConn{}
	r.Register("first", first, Principal{UserID: 7})
	r.Register("second", second, Principal{UserID: 7})

	assert.Equal(t, 2, r.Count())
	assert.False(t, first.isClosed())

	r.SendToUser(7, newEnvelope(TypeNotification, map[string]any{"title": "x"}, testNow))
	assert.Empty(t, first.received(t))
	assert.Len(t, second.received(t), 1)

	// Unregistering the stale connection keeps the newer binding.
	r.Unregister("first", 7)
	assert.Equal(t, 1, r.AuthenticatedCount())
	r.SendToUser(7, newEnvelope(TypeNotification, nil, testNow))
	assert.Len(t, second.received(t), 2)
}

func TestSendToFailingConnectionRemovesIt(t *testing.T) {
	r := newTestRegistry()
	c := &fakeConn{}
	r.Register("c1", c, Principal{UserID: 3})
	c.setFail()

	assert.NotPanics(t, func() { r.SendTo("c1", newEnvelope(TypePong, nil, testNow)) })
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.AuthenticatedCount())
	assert.True(t, c.isClosed())
}

func TestSendToUserScenario(t *testing.T) {
	r := newTestRegistry()
	c := &fakeConn{}
	r.Register("c1", c, Principal{UserID: 42})

	r.SendToUser(42, newEnvelope(TypeNotification, map[string]any{"title": "x"}, testNow))
	got := c.received(t)
	require.Len(t, got, 1)
	assert.Equal(t, "notification", got[0]["type"])

	r.Unregister("c1", 42)
	assert.NotPanics(t, func() { r.SendToUser(42, newEnvelope(TypeNotification, nil, testNow)) })
	assert.Len(t, c.received(t), 1)
}

func TestSendToUnknownUserDoesNotBroadcast(t *testing.T) {
	r := newTestRegistry()
	c := &fakeConn{}
	r.Register("c1", c, Principal{UserID: 1})

	r.SendToUser(99, newEnvelope(TypeNotification, nil, testNow))
	assert.Empty(t, c.received(t))
}

func TestBroadcastPurgesFailuresAndHonoursExclude(t *testing.T) {
	r := newTestRegistry()
	conns := map[string]*fakeConn{"a": {}, "b": {}, "c": {}, "d": {}}
	for id, c := range conns {
		r.Register(id, c, Principal{})
	}
	conns["b"].setFail()

	r.Broadcast(newEnvelope(TypeSystemUpdate, map[string]any{"k": "v"}, testNow), "d")

	assert.Len(t, conns["a"].received(t), 1)
	assert.Len(t, conns["c"].received(t), 1)
	assert.Empty(t, conns["d"].received(t))
	assert.Equal(t, 3, r.Count())
	assert.True(t, conns["b"].isClosed())
}

func TestBroadcastToRolesFilters(t *testing.T) {
	r := newTestRegistry()
	ngo, admin, anon := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Register("ngo", ngo, Principal{UserID: 1, Role: models.RoleNGO})
	r.Register("admin", admin, Principal{UserID: 2, Role: models.RoleAdmin})
	r.Register("anon", anon, Principal{})

	r.BroadcastToRoles(newEnvelope(TypeNotification, nil, testNow), []models.Role{models.RoleNGO})
	assert.Len(t, ngo.received(t), 1)
	assert.Empty(t, admin.received(t))
	assert.Empty(t, anon.received(t))

	r.BroadcastToRoles(newEnvelope(TypeNotification, nil, testNow), nil)
	assert.Len(t, ngo.received(t), 2)
	assert.Len(t, admin.received(t), 1)
	assert.Len(t, anon.received(t), 1)
}

func TestReleaseIgnoresReplacedConnection(t *testing.T) {
	r := newTestRegistry()
	old, newer := &fakeConn{}, &fakeConn{}
	r.Register("c1", old, Principal{UserID: 5})
	r.Register("c1", newer, Principal{UserID: 5})

	r.release("c1", old)
	assert.Equal(t, 1, r.Count())

	r.release("c1", newer)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.AuthenticatedCount())
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Register(id, &fakeConn{}, Principal{UserID: int64(i + 1)})
			if i%2 == 0 {
				r.Unregister(id, int64(i+1))
			}
		}(i)
		go func() {
			defer wg.Done()
			r.Broadcast(newEnvelope(TypeSystemUpdate, nil, testNow), "")
		}()
	}
	wg.Wait()
	assert.Equal(t, 25, r.Count())
	assert.Equal(t, 25, r.AuthenticatedCount())
}

func TestCloseAll(t *testing.T) {
	r := newTestRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register("a", a, Principal{UserID: 1})
	r.Register("b", b, Principal{})

	assert.Len(t, r.Snapshot(), 2)
	r.CloseAll()
	assert.Equal(t, 0, r.Count())
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
}
