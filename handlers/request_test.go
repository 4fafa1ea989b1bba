package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/florahub/services/plants/domain"
)

// MockApprovalHook mocks the post-approval policy
type MockApprovalHook struct {
	mock.Mock
}

func (m *MockApprovalHook) OnRequestApproved(ctx context.Context, request *domain.RequestAggregate) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// MockOutcomePublisher mocks the review outcome publisher
type MockOutcomePublisher struct {
	mock.Mock
}

func (m *MockOutcomePublisher) PublishRequestReviewed(ctx context.Context, requestID, status, reviewedBy string) error {
	args := m.Called(ctx, requestID, status, reviewedBy)
	return args.Error(0)
}

func creationRequestedEvent(requestID string) domain.PlantCreationRequestedEvent {
	return domain.PlantCreationRequestedEvent{
		RequestID:    requestID,
		PlantID:      uuid.New().String(),
		ProposedData: map[string]string{"name": "Basilikum", "type": "kraeuter"},
		Reason:       "fehlt noch im Katalog",
		RequestedBy:  "alice",
	}
}

func TestSubmitPlantCreationRequestHandler(t *testing.T) {
	store := new(MockEventStore)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	handler := NewRequestHandler(store, nil, nil, nil, "system")
	aggregate, err := handler.SubmitPlantCreationRequest(
		context.Background(),
		map[string]string{"name": "Basilikum", "type": "kraeuter"},
		"fehlt noch im Katalog",
		"alice",
	)

	require.NoError(t, err)
	require.True(t, aggregate.IsPending())
	require.NotNil(t, aggregate.State.PlantID)
	store.AssertExpectations(t)
}

func TestSubmitInvalidCreationRequestDoesNotSave(t *testing.T) {
	store := new(MockEventStore)

	handler := NewRequestHandler(store, nil, nil, nil, "system")
	_, err := handler.SubmitPlantCreationRequest(
		context.Background(),
		map[string]string{"type": "kraeuter"},
		"fehlt noch im Katalog",
		"alice",
	)

	require.Error(t, err)
	require.True(t, domain.IsValidationError(err))
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmitPlantUpdateRequestHandler(t *testing.T) {
	store := new(MockEventStore)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	plantID := uuid.New().String()
	handler := NewRequestHandler(store, nil, nil, nil, "system")
	aggregate, err := handler.SubmitPlantUpdateRequest(
		context.Background(),
		plantID,
		map[string]string{"description": "Einjähriges Küchenkraut"},
		"Beschreibung fehlt",
		"bob",
	)

	require.NoError(t, err)
	require.True(t, aggregate.IsUpdateRequest())
	require.Equal(t, plantID, *aggregate.State.PlantID)
}

func TestApproveRequestRunsHookAndPublishes(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)
	hook := new(MockApprovalHook)
	publisher := new(MockOutcomePublisher)

	store.On("Exists", mock.Anything, requestID).Return(true, nil)
	replayOnLoad(store, creationRequestedEvent(requestID))
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	hook.On("OnRequestApproved", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishRequestReviewed", mock.Anything, requestID, domain.RequestStatusApproved, "admin").Return(nil)

	handler := NewRequestHandler(store, nil, hook, publisher, "system")
	comment := "ok"
	aggregate, err := handler.ApproveRequest(context.Background(), requestID, &comment, "admin")

	require.NoError(t, err)
	require.True(t, aggregate.IsApproved())
	hook.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApproveRequestHookFailureKeepsApproval(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)
	hook := new(MockApprovalHook)

	store.On("Exists", mock.Anything, requestID).Return(true, nil)
	replayOnLoad(store, creationRequestedEvent(requestID))
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	hook.On("OnRequestApproved", mock.Anything, mock.Anything).Return(errors.New("plant creation failed"))

	handler := NewRequestHandler(store, nil, hook, nil, "system")
	aggregate, err := handler.ApproveRequest(context.Background(), requestID, nil, "admin")

	require.NoError(t, err)
	require.True(t, aggregate.IsApproved())
}

func TestApproveMissingRequest(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)
	store.On("Exists", mock.Anything, requestID).Return(false, nil)

	handler := NewRequestHandler(store, nil, nil, nil, "system")
	_, err := handler.ApproveRequest(context.Background(), requestID, nil, "admin")

	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestApproveAlreadyReviewedRequest(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)

	store.On("Exists", mock.Anything, requestID).Return(true, nil)
	replayOnLoad(store,
		creationRequestedEvent(requestID),
		domain.RequestApprovedEvent{RequestID: requestID, ReviewedBy: "admin"},
	)

	handler := NewRequestHandler(store, nil, nil, nil, "system")
	_, err := handler.ApproveRequest(context.Background(), requestID, nil, "admin")

	require.Error(t, err)
	require.True(t, domain.IsDomainError(err))
	require.Equal(t, "Only pending requests can be approved", err.Error())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRejectRequestHandler(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)
	publisher := new(MockOutcomePublisher)

	store.On("Exists", mock.Anything, requestID).Return(true, nil)
	replayOnLoad(store, creationRequestedEvent(requestID))
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishRequestReviewed", mock.Anything, requestID, domain.RequestStatusRejected, "admin").Return(nil)

	handler := NewRequestHandler(store, nil, nil, publisher, "system")
	aggregate, err := handler.RejectRequest(context.Background(), requestID, "Duplikat von Ocimum basilicum", "admin")

	require.NoError(t, err)
	require.True(t, aggregate.IsRejected())
	publisher.AssertExpectations(t)
}

func TestRejectWithoutComment(t *testing.T) {
	requestID := uuid.New().String()
	store := new(MockEventStore)

	store.On("Exists", mock.Anything, requestID).Return(true, nil)
	replayOnLoad(store, creationRequestedEvent(requestID))

	handler := NewRequestHandler(store, nil, nil, nil, "system")
	_, err := handler.RejectRequest(context.Background(), requestID, "", "admin")

	require.Error(t, err)
	require.True(t, domain.IsValidationError(err))
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
