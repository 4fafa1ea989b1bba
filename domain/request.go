package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request status values
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Request type values
const (
	RequestTypeNewPlant           = "new_plant"
	RequestTypeUpdateContribution = "update_contribution"
)

// RequestState is the state of a review request aggregate
type RequestState struct {
	Status        string
	RequestType   string
	RequestedBy   string
	PlantID       *string
	ProposedData  map[string]string
	Reason        string
	ReviewedBy    *string
	ReviewComment *string
	RequestedAt   time.Time
	ReviewedAt    *time.Time
}

// RequestAggregate is the review workflow state machine: pending requests can
// be approved or rejected exactly once; both outcomes are terminal.
type RequestAggregate struct {
	*AggregateBase
	State RequestState
}

// NewRequestAggregate creates a request aggregate for the given id
func NewRequestAggregate(id string) *RequestAggregate {
	aggregate := &RequestAggregate{
		State: RequestState{Status: RequestStatusPending},
	}

	base := NewAggregateBase(AggregateTypeRequest, aggregate.applyEvent)
	base.SetID(id)
	aggregate.AggregateBase = base

	return aggregate
}

// SubmitPlantCreationRequest validates and records a community request for a
// new plant. A target plant UUID is pre-allocated so an approved request can
// create the plant under a stable identity.
func (a *RequestAggregate) SubmitPlantCreationRequest(
	proposedData map[string]string,
	reason string,
	requestedBy string,
) error {
	if err := ValidateProposedPlantData(proposedData); err != nil {
		return err
	}
	if err := validateReason(reason); err != nil {
		return err
	}
	if err := validateUserName(requestedBy); err != nil {
		return err
	}

	return a.Apply(PlantCreationRequestedEvent{
		RequestID:    a.GetID(),
		PlantID:      uuid.New().String(),
		ProposedData: proposedData,
		Reason:       strings.TrimSpace(reason),
		RequestedBy:  requestedBy,
		RequestedAt:  time.Now().UTC(),
	})
}

// SubmitUpdateRequest validates and records a community request to change an
// existing plant.
func (a *RequestAggregate) SubmitUpdateRequest(
	plantID string,
	proposedChanges map[string]string,
	reason string,
	requestedBy string,
) error {
	if err := validatePlantID(plantID); err != nil {
		return err
	}
	if err := ValidateProposedChanges(proposedChanges); err != nil {
		return err
	}
	if err := validateReason(reason); err != nil {
		return err
	}
	if err := validateUserName(requestedBy); err != nil {
		return err
	}

	return a.Apply(PlantUpdateRequestedEvent{
		RequestID:       a.GetID(),
		PlantID:         plantID,
		ProposedChanges: proposedChanges,
		Reason:          strings.TrimSpace(reason),
		RequestedBy:     requestedBy,
		RequestedAt:     time.Now().UTC(),
	})
}

// Approve approves a pending request. The comment is optional but length
// checked when present.
func (a *RequestAggregate) Approve(comment *string, reviewedBy string) error {
	if a.State.Status != RequestStatusPending {
		return NewDomainError("Only pending requests can be approved")
	}

	if comment != nil {
		if err := validateComment(*comment, false); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(*comment)
		comment = &trimmed
	}

	return a.Apply(RequestApprovedEvent{
		RequestID:  a.GetID(),
		ReviewedBy: reviewedBy,
		ReviewedAt: time.Now().UTC(),
		Comment:    comment,
	})
}

// Reject rejects a pending request. The comment is mandatory.
func (a *RequestAggregate) Reject(comment string, reviewedBy string) error {
	if a.State.Status != RequestStatusPending {
		return NewDomainError("Only pending requests can be rejected")
	}

	if err := validateComment(comment, true); err != nil {
		return err
	}

	return a.Apply(RequestRejectedEvent{
		RequestID:  a.GetID(),
		ReviewedBy: reviewedBy,
		ReviewedAt: time.Now().UTC(),
		Comment:    strings.TrimSpace(comment),
	})
}

// CanBeModified reports whether the request is still open for review
func (a *RequestAggregate) CanBeModified() bool {
	return a.State.Status == RequestStatusPending
}

// IsPending reports whether the request awaits review
func (a *RequestAggregate) IsPending() bool {
	return a.State.Status == RequestStatusPending
}

// IsApproved reports whether the request was approved
func (a *RequestAggregate) IsApproved() bool {
	return a.State.Status == RequestStatusApproved
}

// IsRejected reports whether the request was rejected
func (a *RequestAggregate) IsRejected() bool {
	return a.State.Status == RequestStatusRejected
}

// IsNewPlantRequest reports whether this request proposes a new plant
func (a *RequestAggregate) IsNewPlantRequest() bool {
	return a.State.RequestType == RequestTypeNewPlant
}

// IsUpdateRequest reports whether this request proposes changes to a plant
func (a *RequestAggregate) IsUpdateRequest() bool {
	return a.State.RequestType == RequestTypeUpdateContribution
}

// applyEvent is the pure state transition for request events
func (a *RequestAggregate) applyEvent(event interface{}) error {
	switch e := event.(type) {
	case PlantCreationRequestedEvent:
		plantID := e.PlantID
		a.State.RequestType = RequestTypeNewPlant
		a.State.Status = RequestStatusPending
		a.State.PlantID = &plantID
		a.State.ProposedData = e.ProposedData
		a.State.Reason = e.Reason
		a.State.RequestedBy = e.RequestedBy
		a.State.RequestedAt = e.RequestedAt

	case PlantUpdateRequestedEvent:
		plantID := e.PlantID
		a.State.RequestType = RequestTypeUpdateContribution
		a.State.Status = RequestStatusPending
		a.State.PlantID = &plantID
		a.State.ProposedData = e.ProposedChanges
		a.State.Reason = e.Reason
		a.State.RequestedBy = e.RequestedBy
		a.State.RequestedAt = e.RequestedAt

	case RequestApprovedEvent:
		reviewedBy := e.ReviewedBy
		reviewedAt := e.ReviewedAt
		a.State.Status = RequestStatusApproved
		a.State.ReviewedBy = &reviewedBy
		a.State.ReviewedAt = &reviewedAt
		a.State.ReviewComment = e.Comment

	case RequestRejectedEvent:
		reviewedBy := e.ReviewedBy
		reviewedAt := e.ReviewedAt
		comment := e.Comment
		a.State.Status = RequestStatusRejected
		a.State.ReviewedBy = &reviewedBy
		a.State.ReviewedAt = &reviewedAt
		a.State.ReviewComment = &comment
	}

	return nil
}
