package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/eventstore"
)

// ErrNotFound marks commands addressing an aggregate with no event history
var ErrNotFound = errors.New("not found")

// ProjectionNotifier lets command handlers push read models to the event log
// head right after a save. Failures here are logged, never propagated: the
// events are already durable and the catch-up worker repairs lag.
type ProjectionNotifier interface {
	RunOnce(ctx context.Context) error
}

// CreatePlantCommand carries the input of a direct plant creation
type CreatePlantCommand struct {
	Name        string  `json:"name" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	Category    *string `json:"category"`
	LatinName   *string `json:"latin_name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	CreatedBy   string  `json:"created_by"`
}

// PlantHandler executes plant lifecycle commands against the event store
type PlantHandler struct {
	store       eventstore.EventStore
	locks       *aggregateLocks
	notifier    ProjectionNotifier
	systemActor string
}

// NewPlantHandler creates a new plant command handler. notifier may be nil.
func NewPlantHandler(store eventstore.EventStore, notifier ProjectionNotifier, systemActor string) *PlantHandler {
	return &PlantHandler{
		store:       store,
		locks:       newAggregateLocks(),
		notifier:    notifier,
		systemActor: systemActor,
	}
}

// CreatePlant creates a new plant with a fresh uuid
func (h *PlantHandler) CreatePlant(ctx context.Context, cmd CreatePlantCommand) (*domain.PlantAggregate, error) {
	return h.CreatePlantWithID(ctx, uuid.New().String(), cmd, false)
}

// CreatePlantWithID creates a plant under a caller-chosen uuid. Used by the
// approval workflow, which pre-allocates the plant id at request time.
func (h *PlantHandler) CreatePlantWithID(ctx context.Context, plantID string, cmd CreatePlantCommand, wasUserRequested bool) (*domain.PlantAggregate, error) {
	unlock := h.locks.Lock(plantID)
	defer unlock()

	exists, err := h.store.Exists(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewDomainError("Plant already exists")
	}

	aggregate := domain.NewPlantAggregate(plantID)
	if err := aggregate.CreatePlant(
		cmd.Name,
		cmd.Type,
		cmd.Category,
		cmd.LatinName,
		cmd.Description,
		cmd.ImageURL,
		wasUserRequested,
		h.actor(cmd.CreatedBy),
	); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("plant_id", plantID).
		Str("name", aggregate.State.Name).
		Msg("Plant created")

	h.notifyProjections(ctx)
	return aggregate, nil
}

// UpdatePlant applies a set of field changes to an existing plant
func (h *PlantHandler) UpdatePlant(ctx context.Context, plantID string, changes map[string]string, updatedBy string) (*domain.PlantAggregate, error) {
	unlock := h.locks.Lock(plantID)
	defer unlock()

	aggregate, err := h.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}

	if err := aggregate.UpdatePlant(changes, h.actor(updatedBy)); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("plant_id", plantID).
		Int("changes", len(changes)).
		Msg("Plant updated")

	h.notifyProjections(ctx)
	return aggregate, nil
}

// DeletePlant soft-deletes a plant, optionally recording a reason
func (h *PlantHandler) DeletePlant(ctx context.Context, plantID string, reason *string, deletedBy string) (*domain.PlantAggregate, error) {
	unlock := h.locks.Lock(plantID)
	defer unlock()

	aggregate, err := h.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}

	if err := aggregate.DeletePlant(reason, h.actor(deletedBy)); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("plant_id", plantID).
		Msg("Plant deleted")

	h.notifyProjections(ctx)
	return aggregate, nil
}

// RestorePlant restores a previously deleted plant
func (h *PlantHandler) RestorePlant(ctx context.Context, plantID string, restoredBy string) (*domain.PlantAggregate, error) {
	unlock := h.locks.Lock(plantID)
	defer unlock()

	aggregate, err := h.loadPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}

	if err := aggregate.RestorePlant(h.actor(restoredBy)); err != nil {
		return nil, err
	}

	if err := h.store.Save(ctx, aggregate); err != nil {
		return nil, err
	}

	log.Info().
		Str("plant_id", plantID).
		Msg("Plant restored")

	h.notifyProjections(ctx)
	return aggregate, nil
}

func (h *PlantHandler) loadPlant(ctx context.Context, plantID string) (*domain.PlantAggregate, error) {
	exists, err := h.store.Exists(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "plant %s", plantID)
	}

	aggregate := domain.NewPlantAggregate(plantID)
	if err := h.store.Load(ctx, aggregate); err != nil {
		return nil, err
	}
	return aggregate, nil
}

func (h *PlantHandler) actor(actor string) string {
	if actor == "" {
		return h.systemActor
	}
	return actor
}

func (h *PlantHandler) notifyProjections(ctx context.Context) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("Projection catch-up after command failed")
	}
}
