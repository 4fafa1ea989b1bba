package projections

import (
	"context"

	"example.com/florahub/services/plants/domain"
)

// Projector folds stored events into one read model. The runner guarantees
// each stored event is handed to a projector at most once, in store order;
// projectors themselves do not deduplicate.
type Projector interface {
	// Name identifies the projector; it keys its applied-event markers
	Name() string

	// Project applies a single event to the read model. Events referencing
	// rows that do not exist yet are logged and skipped, not errors.
	Project(ctx context.Context, event domain.Event) error

	// ResetState clears the projector's own read model only
	ResetState(ctx context.Context) error

	// Count returns the current number of read model rows
	Count(ctx context.Context) (int64, error)
}

// EventSource is the slice of the event store the runner needs
type EventSource interface {
	// EventsUnappliedBy returns up to limit events the named projector has
	// not yet applied, in append order
	EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error)
	CountEvents(ctx context.Context) (int64, error)
}

// AppliedLog records which stored events each projector has applied. Claim
// must be atomic across processes: exactly one caller wins a given
// (projector, event) pair.
type AppliedLog interface {
	// Claim marks the event as taken by the projector. Returns false when
	// another pass already holds the claim.
	Claim(ctx context.Context, projectorName string, eventID uint) (bool, error)

	// Release gives a claim back so the event is retried on the next pass
	Release(ctx context.Context, projectorName string, eventID uint) error

	// LastApplied returns the highest claimed event id, zero if none
	LastApplied(ctx context.Context, projectorName string) (uint, error)

	// CountApplied returns how many events the projector has claimed
	CountApplied(ctx context.Context, projectorName string) (int64, error)

	// Clear drops all claims for a projector so a replay starts from the
	// first event
	Clear(ctx context.Context, projectorName string) error
}
