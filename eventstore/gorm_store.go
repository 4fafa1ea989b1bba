package eventstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/models"
)

// GormEventStore implements EventStore using GORM
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore creates a new GORM event store
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Save appends an aggregate's uncommitted events within one transaction.
// Either all events of the command are stored or none; a failure surfaces as
// domain.StoreError and the command is considered not to have happened.
func (s *GormEventStore) Save(ctx context.Context, aggregate domain.Aggregate) error {
	events := aggregate.GetEvents()
	if len(events) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			data, err := json.Marshal(event.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal event data: %w", err)
			}

			dbEvent := models.Event{
				EventID:       uuid.New().String(),
				AggregateID:   event.AggregateID,
				AggregateType: event.AggregateType,
				EventType:     event.Type,
				Data:          data,
				Version:       event.Version,
				Timestamp:     event.Timestamp,
			}

			if err := tx.Create(&dbEvent).Error; err != nil {
				return fmt.Errorf("failed to save event: %w", err)
			}

			log.Info().
				Str("aggregateID", event.AggregateID).
				Str("eventType", event.Type).
				Int("version", event.Version).
				Msg("Event saved")
		}

		return nil
	})
	if err != nil {
		return domain.NewStoreError(err)
	}

	aggregate.ClearEvents()
	return nil
}

// Load rebuilds an aggregate by replaying its stored events in version order.
// Replay goes through Apply, which trusts history and re-checks no business
// rules.
func (s *GormEventStore) Load(ctx context.Context, aggregate domain.Aggregate) error {
	aggregateID := aggregate.GetID()
	if aggregateID == "" {
		return fmt.Errorf("aggregate ID is empty")
	}

	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&dbEvents).Error; err != nil {
		return domain.NewStoreError(fmt.Errorf("failed to load events: %w", err))
	}

	if len(dbEvents) == 0 {
		return nil
	}

	for _, dbEvent := range dbEvents {
		eventData, err := domain.DecodeEventData(dbEvent.EventType, dbEvent.Data)
		if err != nil {
			return err
		}

		if err := aggregate.Apply(eventData); err != nil {
			return fmt.Errorf("failed to apply event: %w", err)
		}
	}

	aggregate.ClearEvents()
	return nil
}

// Exists checks if any events exist for an aggregate
func (s *GormEventStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("aggregate_id = ?", aggregateID).
		Count(&count).Error; err != nil {
		return false, domain.NewStoreError(fmt.Errorf("failed to check if aggregate exists: %w", err))
	}

	return count > 0, nil
}

// GetEvents gets all events for an aggregate in version order
func (s *GormEventStore) GetEvents(ctx context.Context, aggregateID string) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&dbEvents).Error; err != nil {
		return nil, domain.NewStoreError(fmt.Errorf("failed to get events: %w", err))
	}

	return s.toDomainEvents(dbEvents)
}

// EventsUnappliedBy gets up to limit events without an applied marker for
// the given projector, in append order
func (s *GormEventStore) EventsUnappliedBy(ctx context.Context, projectorName string, limit int) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Select("events.*").
		Joins("LEFT JOIN projector_applied_events applied ON applied.event_id = events.id AND applied.projector_name = ?", projectorName).
		Where("applied.id IS NULL").
		Order("events.id ASC").
		Limit(limit).
		Find(&dbEvents).Error; err != nil {
		return nil, domain.NewStoreError(fmt.Errorf("failed to get unapplied events for %s: %w", projectorName, err))
	}

	return s.toDomainEvents(dbEvents)
}

// EventsByType gets all events of one type in append order
func (s *GormEventStore) EventsByType(ctx context.Context, eventType string) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("id ASC").
		Find(&dbEvents).Error; err != nil {
		return nil, domain.NewStoreError(fmt.Errorf("failed to get events by type: %w", err))
	}

	return s.toDomainEvents(dbEvents)
}

// CountEvents returns the total number of stored events
func (s *GormEventStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Count(&count).Error; err != nil {
		return 0, domain.NewStoreError(fmt.Errorf("failed to count events: %w", err))
	}

	return count, nil
}

func (s *GormEventStore) toDomainEvents(dbEvents []models.Event) ([]domain.Event, error) {
	events := make([]domain.Event, len(dbEvents))
	for i, dbEvent := range dbEvents {
		eventData, err := domain.DecodeEventData(dbEvent.EventType, dbEvent.Data)
		if err != nil {
			return nil, err
		}

		events[i] = domain.Event{
			ID:             dbEvent.EventID,
			GlobalSequence: dbEvent.ID,
			AggregateID:    dbEvent.AggregateID,
			AggregateType:  dbEvent.AggregateType,
			Type:           dbEvent.EventType,
			Version:        dbEvent.Version,
			Timestamp:      dbEvent.Timestamp,
			Data:           eventData,
		}
	}

	return events, nil
}
