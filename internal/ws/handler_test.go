package ws

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundHandler(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	r := NewRegistry(clock)
	h := NewInboundHandler(r, clock)

	c1, c2 := &fakeConn{}, &fakeConn{}
	r.Register("c1", c1, Principal{})
	r.Register("c2", c2, Principal{})

	tests := []struct {
		name  string
		frame string
		reply string
	}{
		{"ping", `{"type":"ping"}`, "pong"},
		{"subscribe", `{"type":"subscribe_notifications"}`, "subscription_confirmed"},
		{"activity", `{"type":"user_activity","data":{"page":"/dashboard"}}`, ""},
		{"unknown", `{"type":"dance"}`, ""},
		{"missing type", `{"data":1}`, ""},
		{"malformed", `{"type":`, ""},
		{"not json", "hello", ""},
		{"scalar", `42`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(c2.received(t))
			assert.NotPanics(t, func() { h.Handle("c2", []byte(tt.frame)) })

			got := c2.received(t)[before:]
			if tt.reply == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.reply, got[0]["type"])
			assert.Equal(t, "2025-06-01T08:30:00Z", got[0]["timestamp"])
		})
	}

	assert.Empty(t, c1.received(t), "only the sender gets replies")
	assert.Equal(t, 2, r.Count(), "inbound content never drops a connection")
}
