package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateBase provides common aggregate functionality
type AggregateBase struct {
	id            string
	aggregateType string
	version       int
	events        []Event
	applier       func(event interface{}) error
}

// Aggregate is the interface for all aggregates
type Aggregate interface {
	GetID() string
	GetType() string
	GetVersion() int
	GetEvents() []Event
	ClearEvents()
	Apply(event interface{}) error
}

// NewAggregateBase creates a new aggregate base
func NewAggregateBase(aggregateType string, applier func(interface{}) error) *AggregateBase {
	return &AggregateBase{
		id:            uuid.New().String(),
		aggregateType: aggregateType,
		version:       0,
		events:        []Event{},
		applier:       applier,
	}
}

// GetID returns the aggregate ID
func (a *AggregateBase) GetID() string {
	return a.id
}

// SetID sets the aggregate ID
func (a *AggregateBase) SetID(id string) {
	a.id = id
}

// GetType returns the aggregate type
func (a *AggregateBase) GetType() string {
	return a.aggregateType
}

// GetVersion returns the aggregate version
func (a *AggregateBase) GetVersion() int {
	return a.version
}

// GetEvents returns the uncommitted events
func (a *AggregateBase) GetEvents() []Event {
	return a.events
}

// ClearEvents clears the uncommitted events
func (a *AggregateBase) ClearEvents() {
	a.events = []Event{}
}

// Apply applies an event to the aggregate: the applier transitions state
// without validation, then the event is recorded as uncommitted with the next
// per-aggregate version.
func (a *AggregateBase) Apply(event interface{}) error {
	if a.applier == nil {
		return fmt.Errorf("applier is not set")
	}

	if err := a.applier(event); err != nil {
		return fmt.Errorf("failed to apply event: %w", err)
	}

	domainEvent := Event{
		AggregateID:   a.id,
		AggregateType: a.aggregateType,
		Version:       a.version + 1,
		Timestamp:     time.Now().UTC(),
		Data:          event,
	}

	switch event.(type) {
	// Plant events
	case PlantCreatedEvent:
		domainEvent.Type = PlantCreated
	case PlantUpdatedEvent:
		domainEvent.Type = PlantUpdated
	case PlantDeletedEvent:
		domainEvent.Type = PlantDeleted
	case PlantRestoredEvent:
		domainEvent.Type = PlantRestored

	// Request events
	case PlantCreationRequestedEvent:
		domainEvent.Type = PlantCreationRequested
	case PlantUpdateRequestedEvent:
		domainEvent.Type = PlantUpdateRequested
	case RequestApprovedEvent:
		domainEvent.Type = RequestApproved
	case RequestRejectedEvent:
		domainEvent.Type = RequestRejected
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}

	a.events = append(a.events, domainEvent)
	a.version++

	return nil
}
