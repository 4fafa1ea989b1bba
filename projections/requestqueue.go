package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/models"
	"example.com/florahub/services/plants/utils"
)

// RequestQueueProjector maintains the moderation queue read model
type RequestQueueProjector struct {
	db *gorm.DB
}

// NewRequestQueueProjector creates a new request queue projector
func NewRequestQueueProjector(db *gorm.DB) *RequestQueueProjector {
	return &RequestQueueProjector{db: db}
}

// Name keys the projector's applied-event markers
func (p *RequestQueueProjector) Name() string {
	return "request_queue"
}

// Project applies a single event to the request queue read model
func (p *RequestQueueProjector) Project(ctx context.Context, event domain.Event) error {
	switch data := event.Data.(type) {
	case domain.PlantCreationRequestedEvent:
		return p.onCreationRequested(ctx, data)
	case domain.PlantUpdateRequestedEvent:
		return p.onUpdateRequested(ctx, data)
	case domain.RequestApprovedEvent:
		return p.onReviewed(ctx, data.RequestID, domain.RequestStatusApproved, data.Comment, data.ReviewedBy, data.ReviewedAt)
	case domain.RequestRejectedEvent:
		return p.onReviewed(ctx, data.RequestID, domain.RequestStatusRejected, &data.Comment, data.ReviewedBy, data.ReviewedAt)
	default:
		return nil
	}
}

// ResetState clears the request queue table for a full replay
func (p *RequestQueueProjector) ResetState(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Where("1 = 1").Delete(&models.RequestQueueEntry{}).Error; err != nil {
		return err
	}
	log.Info().Str("projector", p.Name()).Msg("Projection state reset")
	return nil
}

// Count returns the number of request queue rows
func (p *RequestQueueProjector) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&models.RequestQueueEntry{}).Count(&count).Error
	return count, err
}

func (p *RequestQueueProjector) onCreationRequested(ctx context.Context, data domain.PlantCreationRequestedEvent) error {
	proposedJSON, err := utils.MarshalJSON(data.ProposedData)
	if err != nil {
		return fmt.Errorf("failed to marshal proposed data: %w", err)
	}

	entry := models.RequestQueueEntry{
		UUID:         data.RequestID,
		PlantUUID:    &data.PlantID,
		RequestType:  domain.RequestTypeNewPlant,
		ProposedData: proposedJSON,
		Reason:       data.Reason,
		RequestedBy:  data.RequestedBy,
		RequestedAt:  data.RequestedAt,
		Status:       domain.RequestStatusPending,
	}

	if err := p.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	log.Info().
		Str("request_id", data.RequestID).
		Str("requested_by", data.RequestedBy).
		Msg("Request queue entry created")
	return nil
}

func (p *RequestQueueProjector) onUpdateRequested(ctx context.Context, data domain.PlantUpdateRequestedEvent) error {
	proposedJSON, err := utils.MarshalJSON(data.ProposedChanges)
	if err != nil {
		return fmt.Errorf("failed to marshal proposed changes: %w", err)
	}

	entry := models.RequestQueueEntry{
		UUID:         data.RequestID,
		PlantUUID:    &data.PlantID,
		RequestType:  domain.RequestTypeUpdateContribution,
		ProposedData: proposedJSON,
		Reason:       data.Reason,
		RequestedBy:  data.RequestedBy,
		RequestedAt:  data.RequestedAt,
		Status:       domain.RequestStatusPending,
	}

	if err := p.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	log.Info().
		Str("request_id", data.RequestID).
		Str("plant_id", data.PlantID).
		Msg("Update request queue entry created")
	return nil
}

func (p *RequestQueueProjector) onReviewed(ctx context.Context, requestID, status string, comment *string, reviewedBy string, reviewedAt time.Time) error {
	var entry models.RequestQueueEntry
	err := p.db.WithContext(ctx).Where("uuid = ?", requestID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().
				Str("request_id", requestID).
				Str("status", status).
				Msg("Request queue entry not found for review event, skipping")
			return nil
		}
		return err
	}

	entry.Status = status
	entry.AdminComment = comment
	entry.ReviewedBy = &reviewedBy
	entry.ReviewedAt = &reviewedAt

	if err := p.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return err
	}

	log.Info().
		Str("request_id", requestID).
		Str("status", status).
		Msg("Request queue entry reviewed")
	return nil
}
