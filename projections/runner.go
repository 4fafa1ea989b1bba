package projections

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds how many events one catch-up pass loads at a time
const DefaultBatchSize = 200

// ProjectorStatus reports one projector's progress through the event log
type ProjectorStatus struct {
	Name            string `json:"name"`
	LastEventID     uint   `json:"last_event_id"`
	RowCount        int64  `json:"row_count"`
	PendingEvents   int64  `json:"pending_events"`
	LastErrorDetail string `json:"last_error,omitempty"`
}

// RunnerStatus is the maintenance view over all projectors
type RunnerStatus struct {
	EventCount int64             `json:"event_count"`
	Projectors []ProjectorStatus `json:"projectors"`
}

// Runner drives each projector through the event log. Projectors run in a
// fixed order so the plant read model is written before the projectors that
// may reference it, and a failure in one projector never stalls the others.
//
// Each applied event leaves a per-projector marker; claiming the marker
// before the apply is what keeps an event from being applied twice when
// passes overlap, in-process (the mutex) or across processes (the unique
// marker insert).
type Runner struct {
	source     EventSource
	applied    AppliedLog
	projectors []Projector
	batchSize  int

	mu sync.Mutex
}

// NewRunner creates a runner over the given projectors. Order matters: the
// projectors are caught up in the order given.
func NewRunner(source EventSource, applied AppliedLog, projectors []Projector, batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Runner{
		source:     source,
		applied:    applied,
		projectors: projectors,
		batchSize:  batchSize,
	}
}

// RunOnce catches every projector up to the head of the event log. Errors per
// projector are collected, not fatal to the pass; the combined error reports
// every projector that fell behind. Passes on the same runner are serialized.
func (r *Runner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []string
	for _, projector := range r.projectors {
		if err := r.catchUp(ctx, projector); err != nil {
			log.Error().
				Err(err).
				Str("projector", projector.Name()).
				Msg("Projector catch-up failed")
			failed = append(failed, projector.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("projectors failed to catch up: %v", failed)
	}
	return nil
}

// catchUp advances one projector through its unapplied events. Every event is
// claimed before it is applied; a claim lost to a concurrent pass is skipped
// here and applied there. On an apply failure the claim is released so the
// next pass retries the event.
func (r *Runner) catchUp(ctx context.Context, projector Projector) error {
	name := projector.Name()

	for {
		events, err := r.source.EventsUnappliedBy(ctx, name, r.batchSize)
		if err != nil {
			return errors.Wrap(err, "failed to load events")
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			claimed, err := r.applied.Claim(ctx, name, event.GlobalSequence)
			if err != nil {
				return errors.Wrapf(err, "failed to claim event %d", event.GlobalSequence)
			}
			if !claimed {
				continue
			}

			if err := projector.Project(ctx, event); err != nil {
				if relErr := r.applied.Release(ctx, name, event.GlobalSequence); relErr != nil {
					log.Error().
						Err(relErr).
						Str("projector", name).
						Uint("eventID", event.GlobalSequence).
						Msg("Failed to release claim on event; replay the projector to recover")
				}
				return errors.Wrapf(err, "failed to project event %d (%s)", event.GlobalSequence, event.Type)
			}
		}

		if len(events) < r.batchSize {
			return nil
		}
	}
}

// Status reports the event count and each projector's progress and row count
func (r *Runner) Status(ctx context.Context) (*RunnerStatus, error) {
	eventCount, err := r.source.CountEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count events")
	}

	status := &RunnerStatus{
		EventCount: eventCount,
		Projectors: make([]ProjectorStatus, 0, len(r.projectors)),
	}

	for _, projector := range r.projectors {
		entry := ProjectorStatus{Name: projector.Name()}

		last, err := r.applied.LastApplied(ctx, projector.Name())
		if err != nil {
			entry.LastErrorDetail = err.Error()
			status.Projectors = append(status.Projectors, entry)
			continue
		}
		entry.LastEventID = last

		rows, err := projector.Count(ctx)
		if err != nil {
			entry.LastErrorDetail = err.Error()
			status.Projectors = append(status.Projectors, entry)
			continue
		}
		entry.RowCount = rows

		applied, err := r.applied.CountApplied(ctx, projector.Name())
		if err != nil {
			entry.LastErrorDetail = err.Error()
		} else if pending := eventCount - applied; pending > 0 {
			entry.PendingEvents = pending
		}
		status.Projectors = append(status.Projectors, entry)
	}

	return status, nil
}

// Reset clears one projector's read model and applied markers, or all of
// them when projectorName is empty.
func (r *Runner) Reset(ctx context.Context, projectorName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, err := r.selectProjectors(projectorName)
	if err != nil {
		return err
	}

	for _, projector := range targets {
		if err := projector.ResetState(ctx); err != nil {
			return errors.Wrapf(err, "failed to reset projector %s", projector.Name())
		}
		if err := r.applied.Clear(ctx, projector.Name()); err != nil {
			return errors.Wrapf(err, "failed to clear applied events for %s", projector.Name())
		}
		log.Info().Str("projector", projector.Name()).Msg("Projector reset")
	}
	return nil
}

// Replay resets one projector (or all) and re-runs the full event log
// through it. Commands writing new events must be quiesced by the operator
// while a replay runs.
func (r *Runner) Replay(ctx context.Context, projectorName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, err := r.selectProjectors(projectorName)
	if err != nil {
		return err
	}

	for _, projector := range targets {
		if err := projector.ResetState(ctx); err != nil {
			return errors.Wrapf(err, "failed to reset projector %s", projector.Name())
		}
		if err := r.applied.Clear(ctx, projector.Name()); err != nil {
			return errors.Wrapf(err, "failed to clear applied events for %s", projector.Name())
		}
		if err := r.catchUp(ctx, projector); err != nil {
			return errors.Wrapf(err, "replay failed for projector %s", projector.Name())
		}
		log.Info().Str("projector", projector.Name()).Msg("Projector replayed")
	}
	return nil
}

// ProjectorNames lists the registered projectors in run order
func (r *Runner) ProjectorNames() []string {
	names := make([]string, 0, len(r.projectors))
	for _, projector := range r.projectors {
		names = append(names, projector.Name())
	}
	return names
}

func (r *Runner) selectProjectors(projectorName string) ([]Projector, error) {
	if projectorName == "" {
		return r.projectors, nil
	}
	for _, projector := range r.projectors {
		if projector.Name() == projectorName {
			return []Projector{projector}, nil
		}
	}
	return nil, fmt.Errorf("unknown projector: %s", projectorName)
}
