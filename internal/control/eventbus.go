package control

import (
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/observability"
	"github.com/rs/zerolog/log"
)

// EventBus carries change events from request handlers to the Relay without
// blocking the request.
type EventBus struct {
	ch chan models.ChangeEvent
}

func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 100
	}
	return &EventBus{
		ch: make(chan models.ChangeEvent, size),
	}
}

// Publish enqueues event and reports false when the buffer was full and the
// event was dropped.
func (b *EventBus) Publish(event models.ChangeEvent) bool {
	select {
	case b.ch <- event:
		return true
	default:
		observability.ChangeEventsDropped.Inc()
		log.Warn().Str("data_type", event.DataType).Int64("record_id", event.RecordID).Msg("change event dropped, bus full")
		return false
	}
}

func (b *EventBus) Subscribe() <-chan models.ChangeEvent {
	return b.ch
}
