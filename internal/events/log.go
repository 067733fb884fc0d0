package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the structured logger. Used in development
// and whenever no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	p.log.InfoContext(ctx, "domain event", "name", e.EventName(), "aggregate_id", e.AggregateID(), "body", string(body))
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
