// Package events publishes domain events to a message bus.
// Publishing is fire-and-forget from the caller's point of view: callers log
// failures and never roll back the state change that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is a named domain fact.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	PublishBatch(ctx context.Context, events []Event) error
	Close() error
}

// envelope is the wire format shared by every backend.
type envelope struct {
	Name        string    `json:"name"`
	AggregateID string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     Event     `json:"payload"`
}

// Encode serializes an event into its JSON envelope.
func Encode(e Event) ([]byte, error) {
	b, err := json.Marshal(envelope{
		Name:        e.EventName(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt(),
		Payload:     e,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.EventName(), err)
	}
	return b, nil
}
