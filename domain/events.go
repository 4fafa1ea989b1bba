package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType constants
const (
	// Plant lifecycle events
	PlantCreated  = "V1_PLANT_CREATED"
	PlantUpdated  = "V1_PLANT_UPDATED"
	PlantDeleted  = "V1_PLANT_DELETED"
	PlantRestored = "V1_PLANT_RESTORED"

	// Request lifecycle events
	PlantCreationRequested = "V1_PLANT_CREATION_REQUESTED"
	PlantUpdateRequested   = "V1_PLANT_UPDATE_REQUESTED"
	RequestApproved        = "V1_REQUEST_APPROVED"
	RequestRejected        = "V1_REQUEST_REJECTED"
)

// Aggregate type tags
const (
	AggregateTypePlant   = "plant"
	AggregateTypeRequest = "request"
)

// Event represents a domain event. GlobalSequence is the store-assigned
// position in the append order; it is zero on events that have not been
// persisted yet.
type Event struct {
	ID             string      `json:"id"`
	GlobalSequence uint        `json:"global_sequence"`
	AggregateID    string      `json:"aggregate_id"`
	AggregateType  string      `json:"aggregate_type"`
	Type           string      `json:"type"`
	Version        int         `json:"version"`
	Timestamp      time.Time   `json:"timestamp"`
	Data           interface{} `json:"data"`
}

// Plant Events

// PlantCreatedEvent records the creation of a plant in the catalog
type PlantCreatedEvent struct {
	PlantID          string    `json:"plant_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Category         *string   `json:"category"`
	LatinName        *string   `json:"latin_name"`
	Description      *string   `json:"description"`
	ImageURL         *string   `json:"image_url"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	WasUserRequested bool      `json:"was_user_requested"`
}

// PlantUpdatedEvent records a set of field changes applied to a plant.
// Changes holds only fields whose value actually differed from current state.
type PlantUpdatedEvent struct {
	PlantID   string            `json:"plant_id"`
	Changes   map[string]string `json:"changes"`
	UpdatedBy string            `json:"updated_by"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PlantDeletedEvent records a soft delete of a plant
type PlantDeletedEvent struct {
	PlantID   string    `json:"plant_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
	Reason    *string   `json:"reason"`
}

// PlantRestoredEvent records the restoration of a previously deleted plant
type PlantRestoredEvent struct {
	PlantID    string    `json:"plant_id"`
	RestoredBy string    `json:"restored_by"`
	RestoredAt time.Time `json:"restored_at"`
}

// Request Events

// PlantCreationRequestedEvent records a community request for a new plant.
// PlantID is pre-allocated so the plant keeps a stable identity once approved.
type PlantCreationRequestedEvent struct {
	RequestID    string            `json:"request_id"`
	PlantID      string            `json:"plant_id"`
	ProposedData map[string]string `json:"proposed_data"`
	Reason       string            `json:"reason"`
	RequestedBy  string            `json:"requested_by"`
	RequestedAt  time.Time         `json:"requested_at"`
}

// PlantUpdateRequestedEvent records a community request to change an existing plant
type PlantUpdateRequestedEvent struct {
	RequestID       string            `json:"request_id"`
	PlantID         string            `json:"plant_id"`
	ProposedChanges map[string]string `json:"proposed_changes"`
	Reason          string            `json:"reason"`
	RequestedBy     string            `json:"requested_by"`
	RequestedAt     time.Time         `json:"requested_at"`
}

// RequestApprovedEvent records the approval of a pending request
type RequestApprovedEvent struct {
	RequestID  string    `json:"request_id"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Comment    *string   `json:"comment"`
}

// RequestRejectedEvent records the rejection of a pending request
type RequestRejectedEvent struct {
	RequestID  string    `json:"request_id"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Comment    string    `json:"comment"`
}

// DecodeEventData unmarshals a stored JSON payload into the typed event struct
// for the given event type. The switch is exhaustive over the closed event set;
// a type it does not know is a hard error, never silently skipped.
func DecodeEventData(eventType string, data []byte) (interface{}, error) {
	switch eventType {
	case PlantCreated:
		var e PlantCreatedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case PlantUpdated:
		var e PlantUpdatedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case PlantDeleted:
		var e PlantDeletedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case PlantRestored:
		var e PlantRestoredEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case PlantCreationRequested:
		var e PlantCreationRequestedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case PlantUpdateRequested:
		var e PlantUpdateRequestedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case RequestApproved:
		var e RequestApprovedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	case RequestRejected:
		var e RequestRejectedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}
