package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/handlers"
)

// MockEventStore backs a real PlantHandler for policy tests
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Save(ctx context.Context, aggregate domain.Aggregate) error {
	args := m.Called(ctx, aggregate)
	if args.Error(0) == nil {
		aggregate.ClearEvents()
	}
	return args.Error(0)
}

func (m *MockEventStore) Load(ctx context.Context, aggregate domain.Aggregate) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockEventStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	args := m.Called(ctx, aggregateID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]domain.Event, error) {
	args := m.Called(ctx, aggregateID)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventStore) EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, projectorName, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventStore) EventsByType(ctx context.Context, eventType string) ([]domain.Event, error) {
	args := m.Called(ctx, eventType)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventStore) CountEvents(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func approvedCreationRequest(t *testing.T) *domain.RequestAggregate {
	t.Helper()
	aggregate := domain.NewRequestAggregate(uuid.New().String())
	require.NoError(t, aggregate.SubmitPlantCreationRequest(
		map[string]string{
			"name":       "Basilikum",
			"type":       "kraeuter",
			"latin_name": "Ocimum basilicum",
		},
		"fehlt noch im Katalog",
		"alice",
	))
	require.NoError(t, aggregate.Approve(nil, "admin"))
	aggregate.ClearEvents()
	return aggregate
}

func TestApprovalCreatesPlantUnderPreallocatedID(t *testing.T) {
	request := approvedCreationRequest(t)
	plantID := *request.State.PlantID

	store := new(MockEventStore)
	store.On("Exists", mock.Anything, plantID).Return(false, nil)

	var saved *domain.PlantAggregate
	store.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.PlantAggregate)
	}).Return(nil)

	plants := handlers.NewPlantHandler(store, nil, "system")
	policy := NewApprovalPolicy(plants, true)

	require.NoError(t, policy.OnRequestApproved(context.Background(), request))

	require.NotNil(t, saved)
	require.Equal(t, plantID, saved.GetID())
	require.Equal(t, "Basilikum", saved.State.Name)
	require.Equal(t, "kraeuter", saved.State.Type)
	require.NotNil(t, saved.State.LatinName)
	require.Equal(t, "Ocimum basilicum", *saved.State.LatinName)
	require.True(t, saved.State.WasUserRequested)
	require.Equal(t, "admin", saved.State.CreatedBy)
}

func TestApprovalPolicyDisabled(t *testing.T) {
	request := approvedCreationRequest(t)

	store := new(MockEventStore)
	plants := handlers.NewPlantHandler(store, nil, "system")
	policy := NewApprovalPolicy(plants, false)

	require.NoError(t, policy.OnRequestApproved(context.Background(), request))
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// A request proposing an empty value clears the field on approval; what the
// submission admits, the apply step must accept too.
func TestApprovalAppliesFieldRemovalRequest(t *testing.T) {
	plantID := uuid.New().String()

	request := domain.NewRequestAggregate(uuid.New().String())
	require.NoError(t, request.SubmitUpdateRequest(
		plantID,
		map[string]string{"latin_name": ""},
		"Lateinischer Name ist falsch",
		"bob",
	))
	require.NoError(t, request.Approve(nil, "admin"))
	request.ClearEvents()

	latin := "Ocimum basilicum"
	store := new(MockEventStore)
	store.On("Exists", mock.Anything, plantID).Return(true, nil)
	store.On("Load", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		aggregate := args.Get(1).(domain.Aggregate)
		_ = aggregate.Apply(domain.PlantCreatedEvent{
			PlantID:   plantID,
			Name:      "Basilikum",
			Type:      "kraeuter",
			LatinName: &latin,
			CreatedBy: "admin",
		})
		aggregate.ClearEvents()
	}).Return(nil)

	var saved *domain.PlantAggregate
	store.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.PlantAggregate)
	}).Return(nil)

	plants := handlers.NewPlantHandler(store, nil, "system")
	policy := NewApprovalPolicy(plants, true)

	require.NoError(t, policy.OnRequestApproved(context.Background(), request))

	require.NotNil(t, saved)
	require.Nil(t, saved.State.LatinName)
}

func TestApprovalAppliesUpdateRequest(t *testing.T) {
	plantID := uuid.New().String()

	request := domain.NewRequestAggregate(uuid.New().String())
	require.NoError(t, request.SubmitUpdateRequest(
		plantID,
		map[string]string{"description": "Einjähriges Küchenkraut"},
		"Beschreibung fehlt",
		"bob",
	))
	require.NoError(t, request.Approve(nil, "admin"))
	request.ClearEvents()

	store := new(MockEventStore)
	store.On("Exists", mock.Anything, plantID).Return(true, nil)
	store.On("Load", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		aggregate := args.Get(1).(domain.Aggregate)
		_ = aggregate.Apply(domain.PlantCreatedEvent{
			PlantID:   plantID,
			Name:      "Basilikum",
			Type:      "kraeuter",
			CreatedBy: "admin",
		})
		aggregate.ClearEvents()
	}).Return(nil)

	var saved *domain.PlantAggregate
	store.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.PlantAggregate)
	}).Return(nil)

	plants := handlers.NewPlantHandler(store, nil, "system")
	policy := NewApprovalPolicy(plants, true)

	require.NoError(t, policy.OnRequestApproved(context.Background(), request))

	require.NotNil(t, saved)
	require.NotNil(t, saved.State.Description)
	require.Equal(t, "Einjähriges Küchenkraut", *saved.State.Description)
	require.NotNil(t, saved.State.LastUpdatedBy)
	require.Equal(t, "admin", *saved.State.LastUpdatedBy)
}
