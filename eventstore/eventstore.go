package eventstore

import (
	"context"

	"example.com/florahub/services/plants/domain"
)

// EventStore is the interface for event storage
type EventStore interface {
	// Save appends an aggregate's uncommitted events to the store atomically
	Save(ctx context.Context, aggregate domain.Aggregate) error

	// Load rebuilds an aggregate by replaying its event history
	Load(ctx context.Context, aggregate domain.Aggregate) error

	// Exists checks if any events exist for an aggregate
	Exists(ctx context.Context, aggregateID string) (bool, error)

	// GetEvents gets all events for an aggregate in version order
	GetEvents(ctx context.Context, aggregateID string) ([]domain.Event, error)

	// EventsUnappliedBy gets up to limit events not yet marked applied by
	// the given projector, in append order. Used by the projection runner;
	// an event committed late still shows up here because it has no
	// applied marker, regardless of how far newer events have progressed.
	EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error)

	// EventsByType gets all events of one type, preserving append order
	EventsByType(ctx context.Context, eventType string) ([]domain.Event, error)

	// CountEvents returns the total number of stored events
	CountEvents(ctx context.Context) (int64, error)
}
