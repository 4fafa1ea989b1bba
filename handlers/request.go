package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/eventstore"
)

// ApprovalHook runs after a request approval is durably stored. The plant
// creation policy hangs off this; a hook failure does not undo the approval.
type ApprovalHook interface {
	OnRequestApproved(ctx context.Context, request *domain.RequestAggregate) error
}

// OutcomePublisher announces review outcomes to interested consumers
type OutcomePublisher interface {
	PublishRequestReviewed(ctx context.Context, requestID, status, reviewedBy string) error
}

// RequestHandler executes review workflow commands against the event store
type RequestHandler struct {
	store       eventstore.EventStore
	locks       *aggregateLocks
	notifier    ProjectionNotifier
	hook        ApprovalHook
	publisher   OutcomePublisher
	systemActor string
}

// NewRequestHandler creates a new request command handler. notifier, hook and
// publisher may each be nil.
func NewRequestHandler(store eventstore.EventStore, notifier ProjectionNotifier, hook ApprovalHook, publisher OutcomePublisher, systemActor string) *RequestHandler {
	return &RequestHandler{
		store:       store,
		locks:       newAggregateLocks(),
		notifier:    notifier,
		hook:        hook,
		publisher:   publisher,
		systemActor: systemActor,
	}
}

// SetApprovalHook wires the post-approval policy after construction, which
// breaks the cycle between handler and policy setup.
func (h *RequestHandler) SetApprovalHook(hook ApprovalHook) {
	h.hook = hook
}

// SubmitPlantCreationRequest records a community request for a new plant
func (h *RequestHandler) SubmitPlantCreationRequest(ctx context.Context, proposedData map[string]string, reason, requestedBy string) (*domain.RequestAggregate, error) {
	requestID := uuid.New().String()

	unlock := h.locks.Lock(requestID)
	defer unlock()

	aggregate := domain.NewRequestAggregate(requestID)
	if err := aggregate.SubmitPlantCreationRequest(proposedData, reason, requestedBy); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("requested_by", requestedBy).
		Msg("Plant creation request submitted")

	h.notifyProjections(ctx)
	return aggregate, nil
}

// SubmitPlantUpdateRequest records a community request to change a plant
func (h *RequestHandler) SubmitPlantUpdateRequest(ctx context.Context, plantID string, proposedChanges map[string]string, reason, requestedBy string) (*domain.RequestAggregate, error) {
	requestID := uuid.New().String()

	unlock := h.locks.Lock(requestID)
	defer unlock()

	aggregate := domain.NewRequestAggregate(requestID)
	if err := aggregate.SubmitUpdateRequest(plantID, proposedChanges, reason, requestedBy); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("plant_id", plantID).
		Msg("Plant update request submitted")

	h.notifyProjections(ctx)
	return aggregate, nil
}

// ApproveRequest approves a pending request. Once the approval event is
// stored the approval hook and outcome publisher run best effort.
func (h *RequestHandler) ApproveRequest(ctx context.Context, requestID string, comment *string, reviewedBy string) (*domain.RequestAggregate, error) {
	unlock := h.locks.Lock(requestID)
	defer unlock()

	aggregate, err := h.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	reviewer := h.actor(reviewedBy)
	if err := aggregate.Approve(comment, reviewer); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("reviewed_by", reviewer).
		Msg("Request approved")

	h.notifyProjections(ctx)

	if h.hook != nil {
		if err := h.hook.OnRequestApproved(ctx, aggregate); err != nil {
			log.Error().
				Err(err).
				Str("request_id", requestID).
				Msg("Approval hook failed, request remains approved")
		}
	}

	h.publishOutcome(ctx, requestID, domain.RequestStatusApproved, reviewer)
	return aggregate, nil
}

// RejectRequest rejects a pending request. A non-empty comment is required.
func (h *RequestHandler) RejectRequest(ctx context.Context, requestID, comment, reviewedBy string) (*domain.RequestAggregate, error) {
	unlock := h.locks.Lock(requestID)
	defer unlock()

	aggregate, err := h.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	reviewer := h.actor(reviewedBy)
	if err := aggregate.Reject(comment, reviewer); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("reviewed_by", reviewer).
		Msg("Request rejected")

	h.notifyProjections(ctx)
	h.publishOutcome(ctx, requestID, domain.RequestStatusRejected, reviewer)
	return aggregate, nil
}

func (h *RequestHandler) loadRequest(ctx context.Context, requestID string) (*domain.RequestAggregate, error) {
	exists, err := h.store.Exists(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "request %s", requestID)
	}

	aggregate := domain.NewRequestAggregate(requestID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return nil, err
	}
	return aggregate, nil
}

func (h *RequestHandler) actor(actor string) string {
	if actor == "" {
		return h.systemActor
	}
	return actor
}

func (h *RequestHandler) notifyProjections(ctx context.Context) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("Projection catch-up after command failed")
	}
}

func (h *RequestHandler) publishOutcome(ctx context.Context, requestID, status, reviewedBy string) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishRequestReviewed(ctx, requestID, status, reviewedBy); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to publish review outcome")
	}
}
