package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads []any
}

func (b *recordingBroadcaster) SendSystemUpdate(payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (s *recordingSink) Write(_ context.Context, e models.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	assert.True(t, bus.Publish(models.ChangeEvent{DataType: "food_inventory"}))
	assert.False(t, bus.Publish(models.ChangeEvent{DataType: "food_inventory"}))

	got := <-bus.Subscribe()
	assert.Equal(t, "food_inventory", got.DataType)
}

func TestRelayBroadcastsAndForwards(t *testing.T) {
	bus := NewEventBus(10)
	b := &recordingBroadcaster{}
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker down")}
	relay := NewRelay(bus, b, failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	bus.Publish(models.ChangeEvent{EventType: "data_change", DataType: "disaster_alerts", RecordID: 1, ChangeType: models.ChangeCreate})
	bus.Publish(models.ChangeEvent{EventType: "data_change", DataType: "disaster_alerts", RecordID: 1, ChangeType: models.ChangeDelete})
	bus.Publish(models.ChangeEvent{EventType: "data_change", DataType: "food_inventory", RecordID: 3, ChangeType: models.ChangeUpdate})

	assert.Eventually(t, func() bool { return ok.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return failing.count() == 3 }, time.Second, 5*time.Millisecond,
		"a failing sink does not stop the relay")
	assert.Equal(t, 3, b.count())

	cancel()
	<-done

	latest := relay.LatestChanges()
	require.Len(t, latest, 2)
	assert.Equal(t, "disaster_alerts", latest[0].DataType)
	assert.Equal(t, models.ChangeDelete, latest[0].ChangeType)
	assert.Equal(t, "food_inventory", latest[1].DataType)
}

// blockingSink holds every write until released or the write context ends.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	started int
}

func (s *blockingSink) Write(ctx context.Context, _ models.ChangeEvent) error {
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *blockingSink) startedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func TestRelaySlowSinkDoesNotDelaySystemUpdates(t *testing.T) {
	bus := NewEventBus(2)
	b := &recordingBroadcaster{}
	slow := &blockingSink{release: make(chan struct{})}
	relay := NewRelay(bus, b, slow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	defer func() {
		close(slow.release)
		cancel()
		<-done
	}()

	for i := 1; i <= 6; i++ {
		require.True(t, bus.Publish(models.ChangeEvent{EventType: "data_change", DataType: "food_inventory",
			RecordID: int64(i), ChangeType: models.ChangeUpdate}), "event %d dropped by the bus", i)
		assert.Eventually(t, func() bool { return b.count() == i }, 200*time.Millisecond, time.Millisecond,
			"system_update %d waited on the sink", i)
	}
	assert.Eventually(t, func() bool { return slow.startedCount() == 1 }, time.Second, time.Millisecond,
		"the sink is still stuck on its first write")
}

func TestNewKafkaSinkBatchTimeout(t *testing.T) {
	s := NewKafkaSink([]string{"127.0.0.1:9092"}, "changes")
	defer s.Close()
	assert.Equal(t, kafkaBatchTimeout, s.writer.BatchTimeout)
	assert.Less(t, s.writer.BatchTimeout, sinkTimeout)
}

func TestUpdatePayload(t *testing.T) {
	p := UpdatePayload(models.ChangeEvent{EventType: "data_change", DataType: "food_inventory", RecordID: 7,
		ChangeType: models.ChangeUpdate, Description: "Rice restocked"})
	assert.Equal(t, map[string]any{
		"event_type":  "data_change",
		"data_type":   "food_inventory",
		"record_id":   int64(7),
		"change_type": "update",
		"description": "Rice restocked",
	}, p)
}

func TestSerializeChange(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	msg, err := serializeChange(models.ChangeEvent{DataType: "emergency_responses", RecordID: 12,
		ChangeType: models.ChangeCreate, Time: now})
	require.NoError(t, err)

	assert.Equal(t, []byte("emergency_responses:12"), msg.Key)
	assert.Contains(t, string(msg.Value), `"record_id":12`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "change_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("create"), msg.Headers[0].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
