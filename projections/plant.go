package projections

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/models"
)

// SearchIndexer pushes plant rows into the search backend
type SearchIndexer interface {
	IndexPlant(ctx context.Context, plant *models.Plant) error
}

// CacheInvalidator drops cached plant reads after a projection write
type CacheInvalidator interface {
	InvalidatePlant(ctx context.Context, uuid string) error
}

// PlantProjector maintains the plant current-state read model. Search indexing
// and cache invalidation are best effort: a failure there is logged but never
// fails the projection, the row in the database is the source of truth.
type PlantProjector struct {
	db      *gorm.DB
	indexer SearchIndexer
	cache   CacheInvalidator
}

// NewPlantProjector creates a new plant projector. indexer and cache may be nil.
func NewPlantProjector(db *gorm.DB, indexer SearchIndexer, cache CacheInvalidator) *PlantProjector {
	return &PlantProjector{
		db:      db,
		indexer: indexer,
		cache:   cache,
	}
}

// Name keys the projector's applied-event markers
func (p *PlantProjector) Name() string {
	return "plant"
}

// Project applies a single event to the plant read model
func (p *PlantProjector) Project(ctx context.Context, event domain.Event) error {
	switch data := event.Data.(type) {
	case domain.PlantCreatedEvent:
		return p.onPlantCreated(ctx, data)
	case domain.PlantUpdatedEvent:
		return p.onPlantUpdated(ctx, data)
	case domain.PlantDeletedEvent:
		return p.onPlantDeleted(ctx, data)
	case domain.PlantRestoredEvent:
		return p.onPlantRestored(ctx, data)
	default:
		// Not a plant event, nothing to fold
		return nil
	}
}

// ResetState clears the plant read model table for a full replay
func (p *PlantProjector) ResetState(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Where("1 = 1").Delete(&models.Plant{}).Error; err != nil {
		return err
	}
	log.Info().Str("projector", p.Name()).Msg("Projection state reset")
	return nil
}

// Count returns the number of plant rows
func (p *PlantProjector) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&models.Plant{}).Count(&count).Error
	return count, err
}

func (p *PlantProjector) onPlantCreated(ctx context.Context, data domain.PlantCreatedEvent) error {
	plant := models.Plant{
		UUID:                  data.PlantID,
		Name:                  data.Name,
		Type:                  data.Type,
		Category:              data.Category,
		LatinName:             data.LatinName,
		Description:           data.Description,
		ImageURL:              data.ImageURL,
		IsDeleted:             false,
		WasCommunityRequested: data.WasUserRequested,
		CreatedBy:             data.CreatedBy,
		LastUpdatedBy:         data.CreatedBy,
		LastEventAt:           data.CreatedAt,
	}

	if err := p.db.WithContext(ctx).Create(&plant).Error; err != nil {
		return err
	}

	log.Info().
		Str("plant_id", data.PlantID).
		Str("name", data.Name).
		Msg("Plant row created")

	p.afterWrite(ctx, &plant)
	return nil
}

func (p *PlantProjector) onPlantUpdated(ctx context.Context, data domain.PlantUpdatedEvent) error {
	plant, found, err := p.loadPlant(ctx, data.PlantID, domain.PlantUpdated)
	if err != nil || !found {
		return err
	}

	for field, value := range data.Changes {
		switch field {
		case "name":
			plant.Name = value
		case "type":
			plant.Type = value
		case "category":
			plant.Category = strPtrOrNil(value)
		case "latin_name":
			plant.LatinName = strPtrOrNil(value)
		case "description":
			plant.Description = strPtrOrNil(value)
		case "image_url":
			plant.ImageURL = strPtrOrNil(value)
		}
	}
	plant.LastUpdatedBy = data.UpdatedBy
	plant.LastEventAt = data.UpdatedAt

	if err := p.db.WithContext(ctx).Save(plant).Error; err != nil {
		return err
	}

	p.afterWrite(ctx, plant)
	return nil
}

func (p *PlantProjector) onPlantDeleted(ctx context.Context, data domain.PlantDeletedEvent) error {
	plant, found, err := p.loadPlant(ctx, data.PlantID, domain.PlantDeleted)
	if err != nil || !found {
		return err
	}

	plant.IsDeleted = true
	plant.LastUpdatedBy = data.DeletedBy
	plant.LastEventAt = data.DeletedAt

	if err := p.db.WithContext(ctx).Save(plant).Error; err != nil {
		return err
	}

	p.afterWrite(ctx, plant)
	return nil
}

func (p *PlantProjector) onPlantRestored(ctx context.Context, data domain.PlantRestoredEvent) error {
	plant, found, err := p.loadPlant(ctx, data.PlantID, domain.PlantRestored)
	if err != nil || !found {
		return err
	}

	plant.IsDeleted = false
	plant.LastUpdatedBy = data.RestoredBy
	plant.LastEventAt = data.RestoredAt

	if err := p.db.WithContext(ctx).Save(plant).Error; err != nil {
		return err
	}

	p.afterWrite(ctx, plant)
	return nil
}

// loadPlant fetches the row for an event's plant id. A missing row is logged
// and skipped rather than failing the projection: events can arrive for
// aggregates this projector has not materialized yet, a replay heals the gap.
func (p *PlantProjector) loadPlant(ctx context.Context, plantID, eventType string) (*models.Plant, bool, error) {
	var plant models.Plant
	err := p.db.WithContext(ctx).Where("uuid = ?", plantID).First(&plant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().
				Str("plant_id", plantID).
				Str("event_type", eventType).
				Msg("Plant row not found for event, skipping")
			return nil, false, nil
		}
		return nil, false, err
	}
	return &plant, true, nil
}

func (p *PlantProjector) afterWrite(ctx context.Context, plant *models.Plant) {
	if p.indexer != nil {
		if err := p.indexer.IndexPlant(ctx, plant); err != nil {
			log.Warn().
				Err(err).
				Str("plant_id", plant.UUID).
				Msg("Failed to index plant in search backend")
		}
	}
	if p.cache != nil {
		if err := p.cache.InvalidatePlant(ctx, plant.UUID); err != nil {
			log.Warn().
				Err(err).
				Str("plant_id", plant.UUID).
				Msg("Failed to invalidate plant cache entry")
		}
	}
}

func strPtrOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
