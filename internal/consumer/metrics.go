package consumer

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/fitplan/internal/domain"
)

const (
	metricsNamespace = "fitplan"
	metricsSubsystem = "interaction_consumer"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "messages_processed_total",
		Help:      "Interaction log messages handled and committed.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "handler_errors_total",
		Help:      "Interaction log messages left uncommitted for redelivery after a handler error.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "decode_errors_total",
		Help:      "Messages committed without processing because the event_type header or JSON body was unusable.",
	}, []string{"topic"})

	persistedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "interactions_persisted_total",
		Help:      "Interaction records written to the store, by message type.",
	}, []string{"message_type"})

	newestMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "last_message_timestamp_seconds",
		Help:      "Publish time of the newest interaction message processed, per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, persistedCounter, newestMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		newestMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

// recordPersisted folds unknown message types into "other" so producers
// cannot grow the label set.
func recordPersisted(messageType string) {
	persistedCounter.WithLabelValues(messageTypeLabel(messageType)).Inc()
}

func messageTypeLabel(messageType string) string {
	switch messageType {
	case domain.MessageGeneral, domain.MessageWorkout, domain.MessageNutrition, domain.MessageMotivation:
		return messageType
	default:
		return "other"
	}
}
