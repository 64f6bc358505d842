package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/fitplan/internal/domain"
	"example.com/fitplan/internal/events"
)

type captureWriter struct {
	topic string
	msgs  []kafka.Message
	err   error
}

func (w *captureWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	w.topic = topic
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	writer := &captureWriter{}
	publisher := NewKafkaPublisher(writer, "")
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	err := publisher.Append(context.Background(), domain.InteractionRecord{
		UserID:    "user-9",
		Input:     "Generate workout: cardio",
		Output:    "Created workout plan workout_user-9_1_x",
		Category:  domain.CategoryWorkoutGeneration,
		LatencyMS: 12.5,
		CreatedAt: created,
	})
	require.NoError(t, err)

	require.Equal(t, DefaultTopic, writer.topic)
	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	require.Equal(t, "user-9", string(msg.Key))
	require.Equal(t, []kafka.Header{
		{Key: "event_type", Value: []byte(events.InteractionRecordedType)},
		{Key: "user_id", Value: []byte("user-9")},
	}, msg.Headers)

	var evt events.InteractionRecorded
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	require.Equal(t, "Generate workout: cardio", evt.Message)
	require.Equal(t, domain.CategoryWorkoutGeneration, evt.MessageType)
	require.InDelta(t, 12.5, evt.ResponseTimeMS, 1e-9)
	require.True(t, created.Equal(evt.CreatedAt))

	back := FromEvent(evt)
	require.Equal(t, "Created workout plan workout_user-9_1_x", back.Output)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	publisher := NewKafkaPublisher(&captureWriter{err: errors.New("broker unavailable")}, "custom")
	err := publisher.Append(context.Background(), domain.InteractionRecord{UserID: "u"})
	require.ErrorContains(t, err, "publish interaction")
}
