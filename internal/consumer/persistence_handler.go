package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/fitplan/internal/domain"
	"example.com/fitplan/internal/events"
	"example.com/fitplan/internal/interactions"
)

// Appender persists interaction records.
type Appender interface {
	Append(context.Context, domain.InteractionRecord) error
}

// PersistenceHandler writes interaction events into the interaction store.
// Events of other types are acknowledged without being stored.
type PersistenceHandler struct {
	store Appender
}

// NewPersistenceHandler constructs a handler backed by the provided store.
func NewPersistenceHandler(store Appender) *PersistenceHandler {
	return &PersistenceHandler{store: store}
}

// Handle decodes an InteractionRecorded payload and appends it.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.InteractionRecordedType {
		return nil
	}
	var evt events.InteractionRecorded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}
	if evt.UserID == "" {
		evt.UserID = msg.UserID
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = msg.Timestamp
	}
	if err := h.store.Append(ctx, interactions.FromEvent(evt)); err != nil {
		return err
	}
	recordPersisted(evt.MessageType)
	return nil
}
