package projections

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/florahub/services/plants/domain"
)

type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error) {
	args := m.Called(ctx, projectorName, limit)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventSource) CountEvents(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockAppliedLog struct {
	mock.Mock
}

func (m *MockAppliedLog) Claim(ctx context.Context, projectorName string, eventID uint) (bool, error) {
	args := m.Called(ctx, projectorName, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAppliedLog) Release(ctx context.Context, projectorName string, eventID uint) error {
	args := m.Called(ctx, projectorName, eventID)
	return args.Error(0)
}

func (m *MockAppliedLog) LastApplied(ctx context.Context, projectorName string) (uint, error) {
	args := m.Called(ctx, projectorName)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockAppliedLog) CountApplied(ctx context.Context, projectorName string) (int64, error) {
	args := m.Called(ctx, projectorName)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAppliedLog) Clear(ctx context.Context, projectorName string) error {
	args := m.Called(ctx, projectorName)
	return args.Error(0)
}

type MockProjector struct {
	mock.Mock
	name string
}

func (m *MockProjector) Name() string {
	return m.name
}

func (m *MockProjector) Project(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProjector) ResetState(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProjector) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func eventAt(sequence uint) domain.Event {
	return domain.Event{
		GlobalSequence: sequence,
		Type:           domain.PlantCreated,
		Data:           domain.PlantCreatedEvent{PlantID: "p1", Name: "Tomate", Type: "gemuese"},
	}
}

func TestRunOnceClaimsBeforeEachApply(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	projector := &MockProjector{name: "plant"}

	events := []domain.Event{eventAt(1), eventAt(2), eventAt(3)}
	source.On("EventsUnappliedBy", mock.Anything, "plant", 10).Return(events, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(1)).Return(true, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(2)).Return(true, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(3)).Return(true, nil).Once()
	projector.On("Project", mock.Anything, mock.Anything).Return(nil).Times(3)

	runner := NewRunner(source, applied, []Projector{projector}, 10)
	require.NoError(t, runner.RunOnce(context.Background()))

	source.AssertExpectations(t)
	applied.AssertExpectations(t)
	projector.AssertExpectations(t)
}

// An event whose claim was won by another pass is skipped, not reapplied.
func TestRunOnceSkipsEventsClaimedElsewhere(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	projector := &MockProjector{name: "plant"}

	events := []domain.Event{eventAt(1), eventAt(2)}
	source.On("EventsUnappliedBy", mock.Anything, "plant", 10).Return(events, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(1)).Return(false, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(2)).Return(true, nil).Once()
	projector.On("Project", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.GlobalSequence == 2
	})).Return(nil).Once()

	runner := NewRunner(source, applied, []Projector{projector}, 10)
	require.NoError(t, runner.RunOnce(context.Background()))

	projector.AssertExpectations(t)
	projector.AssertNumberOfCalls(t, "Project", 1)
}

func TestRunOnceLoopsThroughFullBatches(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	projector := &MockProjector{name: "plant"}

	source.On("EventsUnappliedBy", mock.Anything, "plant", 2).Return([]domain.Event{eventAt(1), eventAt(2)}, nil).Once()
	source.On("EventsUnappliedBy", mock.Anything, "plant", 2).Return([]domain.Event{eventAt(3)}, nil).Once()
	applied.On("Claim", mock.Anything, "plant", mock.AnythingOfType("uint")).Return(true, nil).Times(3)
	projector.On("Project", mock.Anything, mock.Anything).Return(nil).Times(3)

	runner := NewRunner(source, applied, []Projector{projector}, 2)
	require.NoError(t, runner.RunOnce(context.Background()))

	source.AssertExpectations(t)
}

// A failing projector must not stall the others, and the claim on the event
// that failed must be released so the next pass retries it.
func TestRunOnceIsolatesProjectorFailure(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	broken := &MockProjector{name: "plant"}
	healthy := &MockProjector{name: "timeline"}

	events := []domain.Event{eventAt(1), eventAt(2)}

	source.On("EventsUnappliedBy", mock.Anything, "plant", 10).Return(events, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(1)).Return(true, nil).Once()
	broken.On("Project", mock.Anything, mock.Anything).Return(nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(2)).Return(true, nil).Once()
	broken.On("Project", mock.Anything, mock.Anything).Return(errors.New("row write failed")).Once()
	applied.On("Release", mock.Anything, "plant", uint(2)).Return(nil).Once()

	source.On("EventsUnappliedBy", mock.Anything, "timeline", 10).Return(events, nil).Once()
	applied.On("Claim", mock.Anything, "timeline", mock.AnythingOfType("uint")).Return(true, nil).Times(2)
	healthy.On("Project", mock.Anything, mock.Anything).Return(nil).Times(2)

	runner := NewRunner(source, applied, []Projector{broken, healthy}, 10)
	err := runner.RunOnce(context.Background())

	require.Error(t, err)
	require.Contains(t, err.Error(), "plant")
	healthy.AssertExpectations(t)
	applied.AssertExpectations(t)
}

// memoryAppliedLog gives real claim semantics for concurrency tests: exactly
// one caller wins a given (projector, event) pair.
type memoryAppliedLog struct {
	mu     sync.Mutex
	claims map[string]map[uint]bool
}

func newMemoryAppliedLog() *memoryAppliedLog {
	return &memoryAppliedLog{claims: make(map[string]map[uint]bool)}
}

func (l *memoryAppliedLog) Claim(ctx context.Context, projectorName string, eventID uint) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claims[projectorName] == nil {
		l.claims[projectorName] = make(map[uint]bool)
	}
	if l.claims[projectorName][eventID] {
		return false, nil
	}
	l.claims[projectorName][eventID] = true
	return true, nil
}

func (l *memoryAppliedLog) Release(ctx context.Context, projectorName string, eventID uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims[projectorName], eventID)
	return nil
}

func (l *memoryAppliedLog) LastApplied(ctx context.Context, projectorName string) (uint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var last uint
	for id := range l.claims[projectorName] {
		if id > last {
			last = id
		}
	}
	return last, nil
}

func (l *memoryAppliedLog) CountApplied(ctx context.Context, projectorName string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.claims[projectorName])), nil
}

func (l *memoryAppliedLog) Clear(ctx context.Context, projectorName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, projectorName)
	return nil
}

// batchSource serves scripted batches per call and is safe for concurrent use
type batchSource struct {
	mu      sync.Mutex
	batches [][]domain.Event
}

func (s *batchSource) EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *batchSource) CountEvents(ctx context.Context) (int64, error) {
	return 0, nil
}

// countingProjector records how often each event sequence was applied
type countingProjector struct {
	name    string
	mu      sync.Mutex
	applies map[uint]int
}

func newCountingProjector(name string) *countingProjector {
	return &countingProjector{name: name, applies: make(map[uint]int)}
}

func (p *countingProjector) Name() string { return p.name }

func (p *countingProjector) Project(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applies[event.GlobalSequence]++
	return nil
}

func (p *countingProjector) ResetState(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applies = make(map[uint]int)
	return nil
}

func (p *countingProjector) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

// Two catch-up passes racing from different processes both see the same
// unapplied events; the claim must make sure each event is applied exactly
// once.
func TestConcurrentPassesApplyEachEventOnce(t *testing.T) {
	events := []domain.Event{eventAt(1), eventAt(2), eventAt(3)}
	applied := newMemoryAppliedLog()
	projector := newCountingProjector("plant")

	// Both passes read the full batch before either has claimed anything.
	source := &batchSource{batches: [][]domain.Event{events, events}}

	serverRunner := NewRunner(source, applied, []Projector{projector}, 10)
	workerRunner := NewRunner(source, applied, []Projector{projector}, 10)

	var wg sync.WaitGroup
	wg.Add(2)
	var serverErr, workerErr error
	go func() {
		defer wg.Done()
		serverErr = serverRunner.RunOnce(context.Background())
	}()
	go func() {
		defer wg.Done()
		workerErr = workerRunner.RunOnce(context.Background())
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, workerErr)

	for _, sequence := range []uint{1, 2, 3} {
		require.Equal(t, 1, projector.applies[sequence], "event %d", sequence)
	}
}

// An event whose transaction commits after newer events were already applied
// has no applied marker yet, so a later pass still picks it up.
func TestLateCommittedEventIsStillApplied(t *testing.T) {
	applied := newMemoryAppliedLog()
	projector := newCountingProjector("plant")

	// Event 5 is invisible on the first pass and shows up on the second.
	source := &batchSource{batches: [][]domain.Event{
		{eventAt(4), eventAt(6)},
		{eventAt(5)},
	}}

	runner := NewRunner(source, applied, []Projector{projector}, 10)
	require.NoError(t, runner.RunOnce(context.Background()))
	require.NoError(t, runner.RunOnce(context.Background()))

	for _, sequence := range []uint{4, 5, 6} {
		require.Equal(t, 1, projector.applies[sequence], "event %d", sequence)
	}
}

func TestResetClearsStateAndAppliedLog(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	plant := &MockProjector{name: "plant"}
	timeline := &MockProjector{name: "timeline"}

	plant.On("ResetState", mock.Anything).Return(nil).Once()
	applied.On("Clear", mock.Anything, "plant").Return(nil).Once()

	runner := NewRunner(source, applied, []Projector{plant, timeline}, 10)
	require.NoError(t, runner.Reset(context.Background(), "plant"))

	plant.AssertExpectations(t)
	timeline.AssertNotCalled(t, "ResetState", mock.Anything)
	applied.AssertExpectations(t)
}

func TestResetUnknownProjector(t *testing.T) {
	runner := NewRunner(new(MockEventSource), new(MockAppliedLog), []Projector{&MockProjector{name: "plant"}}, 10)

	err := runner.Reset(context.Background(), "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown projector: nope")
}

func TestReplayRebuildsFromScratch(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	projector := &MockProjector{name: "plant"}

	projector.On("ResetState", mock.Anything).Return(nil).Once()
	applied.On("Clear", mock.Anything, "plant").Return(nil).Once()
	source.On("EventsUnappliedBy", mock.Anything, "plant", 10).Return([]domain.Event{eventAt(1)}, nil).Once()
	applied.On("Claim", mock.Anything, "plant", uint(1)).Return(true, nil).Once()
	projector.On("Project", mock.Anything, mock.Anything).Return(nil).Once()

	runner := NewRunner(source, applied, []Projector{projector}, 10)
	require.NoError(t, runner.Replay(context.Background(), "plant"))

	projector.AssertExpectations(t)
}

func TestStatusReportsProgress(t *testing.T) {
	source := new(MockEventSource)
	applied := new(MockAppliedLog)
	projector := &MockProjector{name: "plant"}

	source.On("CountEvents", mock.Anything).Return(int64(12), nil).Once()
	applied.On("LastApplied", mock.Anything, "plant").Return(uint(9), nil).Once()
	projector.On("Count", mock.Anything).Return(int64(4), nil).Once()
	applied.On("CountApplied", mock.Anything, "plant").Return(int64(9), nil).Once()

	runner := NewRunner(source, applied, []Projector{projector}, 10)
	status, err := runner.Status(context.Background())

	require.NoError(t, err)
	require.Equal(t, int64(12), status.EventCount)
	require.Len(t, status.Projectors, 1)
	require.Equal(t, "plant", status.Projectors[0].Name)
	require.Equal(t, uint(9), status.Projectors[0].LastEventID)
	require.Equal(t, int64(4), status.Projectors[0].RowCount)
	require.Equal(t, int64(3), status.Projectors[0].PendingEvents)
}
