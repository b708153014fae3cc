package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint(t *testing.T, cfg ClientConfig) (*Registry, *httptest.Server) {
	t.Helper()
	r := NewRegistry(nil)
	e := NewEndpoint(r, NewInboundHandler(r, nil), cfg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/ws/")
		p := Principal{}
		if req.URL.Query().Get("user") == "1" {
			p.UserID = 1
		}
		e.Serve(w, req, id, p)
	}))
	t.Cleanup(srv.Close)
	return r, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestEndpointRoundTrip(t *testing.T) {
	r, srv := newTestEndpoint(t, ClientConfig{})
	conn := dial(t, srv, "/ws/c1?user=1")

	welcome := readEnvelope(t, conn)
	assert.Equal(t, "connection_established", welcome["type"])
	assert.Eventually(t, func() bool { return r.AuthenticatedCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	pong := readEnvelope(t, conn)
	assert.Equal(t, "pong", pong["type"])
	assert.NotEmpty(t, pong["timestamp"])

	r.SendToUser(1, newEnvelope(TypeNotification, map[string]any{"title": "x"}, time.Now()))
	assert.Equal(t, "notification", readEnvelope(t, conn)["type"])

	conn.Close()
	assert.Eventually(t, func() bool { return r.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, r.AuthenticatedCount())
}

func TestEndpointDropsSilentPeer(t *testing.T) {
	r, srv := newTestEndpoint(t, ClientConfig{PongWait: 200 * time.Millisecond, PingPeriod: 150 * time.Millisecond})
	conn := dial(t, srv, "/ws/idle")
	// Swallow pings without answering so the read deadline lapses.
	conn.SetPingHandler(func(string) error { return nil })
	readEnvelope(t, conn)

	assert.Eventually(t, func() bool { return r.Count() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestClientSendBufferFull(t *testing.T) {
	c := &Client{send: make(chan []byte, 1), done: make(chan struct{})}
	require.NoError(t, c.Send([]byte("a")))
	assert.ErrorIs(t, c.Send([]byte("b")), ErrSendBufferFull)

	close(c.done)
	assert.ErrorIs(t, c.Send([]byte("c")), ErrConnClosed)
}

func TestEndpointClosesOnOversizeFrame(t *testing.T) {
	r, srv := newTestEndpoint(t, ClientConfig{MaxMessageBytes: 64})
	conn := dial(t, srv, "/ws/big")
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","data":"`+strings.Repeat("x", 128)+`"}`)))
	assert.Eventually(t, func() bool { return r.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
