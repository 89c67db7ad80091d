// Package notify publishes a summary of every run that changed the store.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/opendata-sync/catalog-sync/internal/status"
)

// EventTypeRunCompleted is the type of the event sent after a changing run
const EventTypeRunCompleted = "catalog.sync.completed"

// Notifier is told about completed runs
type Notifier interface {
	Notify(ctx context.Context, stats *status.RunStats) error
	Close() error
}

// Event is the message published for a run
type Event struct {
	EventType  string    `json:"event_type"`
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	Errors     int       `json:"errors"`
}

// NewEvent builds the event of a run
func NewEvent(collection string, stats *status.RunStats) Event {
	return Event{
		EventType:  EventTypeRunCompleted,
		RunID:      stats.RunID,
		Collection: collection,
		Timestamp:  time.UnixMilli(stats.Timestamp).UTC(),
		Inserted:   stats.Inserted,
		Updated:    stats.Updated,
		Removed:    stats.Removed,
		Errors:     stats.Errors,
	}
}

// MessageWriter is the part of kafka.Writer used by KafkaNotifier
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes run events to a kafka topic, keyed by collection
type KafkaNotifier struct {
	writer     MessageWriter
	collection string
}

// NewKafkaNotifier creates a notifier writing to topic
func NewKafkaNotifier(brokers []string, topic, collection string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaNotifierWithWriter(writer, collection)
}

// NewKafkaNotifierWithWriter creates a notifier on top of an existing writer
func NewKafkaNotifierWithWriter(writer MessageWriter, collection string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, collection: collection}
}

// Notify publishes the run when it changed the store
func (k *KafkaNotifier) Notify(ctx context.Context, stats *status.RunStats) error {
	if stats.Changed() == 0 {
		return nil
	}

	value, err := json.Marshal(NewEvent(k.collection, stats))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(k.collection),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeRunCompleted)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", stats.RunID, err)
	}
	return nil
}

// Close flushes and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// Noop discards notifications
type Noop struct{}

// Notify implements Notifier
func (Noop) Notify(context.Context, *status.RunStats) error { return nil }

// Close implements Notifier
func (Noop) Close() error { return nil }
