// Package events defines the payloads exchanged over Kafka.
package events

import "time"

// InteractionRecordedType is the event_type header value for interaction records.
const InteractionRecordedType = "ai.interaction"

// InteractionRecorded is emitted for every generation or chat exchange.
type InteractionRecorded struct {
	UserID         string    `json:"user_id"`
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	MessageType    string    `json:"message_type"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
