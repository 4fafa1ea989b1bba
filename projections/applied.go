package projections

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/florahub/services/plants/models"
)

// GormAppliedLog persists per-projector applied-event markers in the
// database. The unique (projector_name, event_id) index is what makes Claim
// atomic across processes.
type GormAppliedLog struct {
	db *gorm.DB
}

// NewGormAppliedLog creates a new applied log
func NewGormAppliedLog(db *gorm.DB) *GormAppliedLog {
	return &GormAppliedLog{db: db}
}

// Claim inserts the marker for (projector, event). A conflicting insert means
// another pass already claimed the event; that is reported as false, not an
// error.
func (s *GormAppliedLog) Claim(ctx context.Context, projectorName string, eventID uint) (bool, error) {
	marker := models.ProjectorAppliedEvent{
		ProjectorName: projectorName,
		EventID:       eventID,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "projector_name"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&marker)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim event %d for %s: %w", eventID, projectorName, result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Release drops the marker so the event is retried on the next pass
func (s *GormAppliedLog) Release(ctx context.Context, projectorName string, eventID uint) error {
	err := s.db.WithContext(ctx).
		Where("projector_name = ? AND event_id = ?", projectorName, eventID).
		Delete(&models.ProjectorAppliedEvent{}).Error
	if err != nil {
		return fmt.Errorf("failed to release event %d for %s: %w", eventID, projectorName, err)
	}

	return nil
}

// LastApplied returns the highest claimed event id for a projector, zero if
// none
func (s *GormAppliedLog) LastApplied(ctx context.Context, projectorName string) (uint, error) {
	var last uint
	err := s.db.WithContext(ctx).
		Model(&models.ProjectorAppliedEvent{}).
		Where("projector_name = ?", projectorName).
		Select("COALESCE(MAX(event_id), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load progress for %s: %w", projectorName, err)
	}

	return last, nil
}

// CountApplied returns how many events the projector has claimed
func (s *GormAppliedLog) CountApplied(ctx context.Context, projectorName string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ProjectorAppliedEvent{}).
		Where("projector_name = ?", projectorName).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count applied events for %s: %w", projectorName, err)
	}

	return count, nil
}

// Clear removes all markers for a projector so a replay starts from the
// first event
func (s *GormAppliedLog) Clear(ctx context.Context, projectorName string) error {
	err := s.db.WithContext(ctx).
		Where("projector_name = ?", projectorName).
		Delete(&models.ProjectorAppliedEvent{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear applied events for %s: %w", projectorName, err)
	}

	return nil
}
