package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendata-sync/catalog-sync/internal/status"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	notifier := NewKafkaNotifierWithWriter(writer, "items")

	unchanged := status.NewRunStats(time.Now())
	unchanged.Syncd = 10
	require.NoError(t, notifier.Notify(context.Background(), unchanged))
	assert.Empty(t, writer.messages, "unchanged runs are not published")

	changed := status.NewRunStats(time.Now())
	changed.Inserted = 2
	changed.Removed = 1
	changed.Complete(time.Now())
	require.NoError(t, notifier.Notify(context.Background(), changed))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, []byte("items"), msg.Key)

	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeRunCompleted, event.EventType)
	assert.Equal(t, changed.RunID, event.RunID)
	assert.Equal(t, 2, event.Inserted)
	assert.Equal(t, 1, event.Removed)

	require.NoError(t, notifier.Close())
	assert.True(t, writer.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	t.Parallel()

	notifier := NewKafkaNotifierWithWriter(&recordingWriter{err: errors.New("no brokers")}, "items")
	stats := status.NewRunStats(time.Now())
	stats.Updated = 1

	err := notifier.Notify(context.Background(), stats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}
