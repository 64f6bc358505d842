package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"example.com/fitplan/internal/domain"
	"example.com/fitplan/internal/events"
)

// DefaultTopic carries interaction records.
const DefaultTopic = "ai_interactions"

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes to topic, creating its writer on first use.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// KafkaPublisher publishes each record as an InteractionRecorded event keyed
// by user so one user's records stay ordered within a partition.
type KafkaPublisher struct {
	producer messageWriter
	topic    string
}

// NewKafkaPublisher constructs a publisher. An empty topic uses DefaultTopic.
func NewKafkaPublisher(producer messageWriter, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Append(ctx context.Context, record domain.InteractionRecord) error {
	payload, err := json.Marshal(ToEvent(record))
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(record.UserID),
		Value: payload,
		Time:  record.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.InteractionRecordedType)},
			{Key: "user_id", Value: []byte(record.UserID)},
		},
	}
	if err := p.producer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish interaction: %w", err)
	}
	return nil
}

// ToEvent converts a record to its wire payload.
func ToEvent(record domain.InteractionRecord) events.InteractionRecorded {
	return events.InteractionRecorded{
		UserID:         record.UserID,
		Message:        record.Input,
		Response:       record.Output,
		MessageType:    record.Category,
		ResponseTimeMS: record.LatencyMS,
		CreatedAt:      record.CreatedAt,
	}
}

// FromEvent converts a wire payload back to a record.
func FromEvent(evt events.InteractionRecorded) domain.InteractionRecord {
	return domain.InteractionRecord{
		UserID:    evt.UserID,
		Input:     evt.Message,
		Output:    evt.Response,
		Category:  evt.MessageType,
		LatencyMS: evt.ResponseTimeMS,
		CreatedAt: evt.CreatedAt,
	}
}
