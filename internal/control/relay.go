package control

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	sinkTimeout   = 5 * time.Second
	sinkQueueSize = 256
)

type UpdateBroadcaster interface {
	SendSystemUpdate(payload any)
}

// Relay drains the EventBus, pushes each change to connected clients as a
// system update and forwards it to the configured sinks. It remembers the
// latest change per data type.
//
// Every sink is written from its own goroutine through a bounded queue, so a
// slow sink never delays system updates. A full queue drops the event.
type Relay struct {
	mu          sync.RWMutex
	latest      map[string]models.ChangeEvent
	bus         *EventBus
	broadcaster UpdateBroadcaster
	sinks       []*sinkWorker
}

type sinkWorker struct {
	sink  Sink
	name  string
	queue chan models.ChangeEvent
}

func NewRelay(bus *EventBus, broadcaster UpdateBroadcaster, sinks ...Sink) *Relay {
	return &Relay{
		bus:         bus,
		broadcaster: broadcaster,
		sinks: lo.Map(sinks, func(s Sink, _ int) *sinkWorker {
			return &sinkWorker{sink: s, name: fmt.Sprintf("%T", s), queue: make(chan models.ChangeEvent, sinkQueueSize)}
		}),
		latest: make(map[string]models.ChangeEvent),
	}
}

// Run blocks until ctx is done and every sink worker has returned.
func (r *Relay) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range r.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}
	defer wg.Wait()

	ch := r.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			r.handle(event)
		}
	}
}

func (r *Relay) handle(event models.ChangeEvent) {
	r.mu.Lock()
	r.latest[event.DataType] = event
	r.mu.Unlock()

	if r.broadcaster != nil {
		r.broadcaster.SendSystemUpdate(UpdatePayload(event))
	}

	for _, w := range r.sinks {
		select {
		case w.queue <- event:
		default:
			observability.SinkEventsDropped.WithLabelValues(w.name).Inc()
			log.Warn().Str("sink", w.name).Str("data_type", event.DataType).Int64("record_id", event.RecordID).Msg("sink queue full, dropping change event")
		}
	}
}

func (w *sinkWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.queue:
			sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
			if err := w.sink.Write(sctx, event); err != nil {
				log.Error().Err(err).Str("sink", w.name).Str("data_type", event.DataType).Int64("record_id", event.RecordID).Msg("failed to forward change event")
			}
			cancel()
		}
	}
}

// UpdatePayload is the system_update data block for a change event.
func UpdatePayload(event models.ChangeEvent) map[string]any {
	return map[string]any{
		"event_type":  event.EventType,
		"data_type":   event.DataType,
		"record_id":   event.RecordID,
		"change_type": event.ChangeType,
		"description": event.Description,
	}
}

// LatestChanges returns the most recent change for every data type seen.
func (r *Relay) LatestChanges() []models.ChangeEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := lo.Values(r.latest)
	slices.SortFunc(events, func(a, b models.ChangeEvent) int { return strings.Compare(a.DataType, b.DataType) })
	return events
}
