package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	kafkago "github.com/segmentio/kafka-go"
)

// KafkaSink produces change events to a Kafka topic.
type KafkaSink struct {
	writer *kafkago.Writer
}

// kafkaBatchTimeout bounds how long a single change waits for a batch to fill.
// The kafka-go default of one second would hold every write that long.
const kafkaBatchTimeout = 10 * time.Millisecond

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: kafkaBatchTimeout,
	}
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) Write(ctx context.Context, event models.ChangeEvent) error {
	msg, err := serializeChange(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, msg)
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// serializeChange keys messages by data type and record so changes to one
// record stay ordered within a partition.
func serializeChange(event models.ChangeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize change event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.DataType + ":" + strconv.FormatInt(event.RecordID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "change_type", Value: []byte(event.ChangeType)},
			{Key: "occurred_at", Value: []byte(event.Time.UTC().Format(time.RFC3339))},
		},
	}, nil
}
