package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/models"
)

// ErrRequestNotFound is returned when no request row matches a lookup
var ErrRequestNotFound = errors.New("request not found")

// RequestFilters narrows a request queue listing
type RequestFilters struct {
	Status      string
	RequestType string
	RequestedBy string
}

// RequestRepository provides read access to the moderation queue
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// GetByUUID gets a request queue entry by its uuid
func (r *RequestRepository) GetByUUID(ctx context.Context, uuid string) (*models.RequestQueueEntry, error) {
	var entry models.RequestQueueEntry
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrRequestNotFound, "uuid %s", uuid)
		}
		return nil, errors.Wrap(err, "failed to get request by uuid")
	}
	return &entry, nil
}

// List gets request queue entries matching the filters, newest first
func (r *RequestRepository) List(ctx context.Context, filters RequestFilters) ([]models.RequestQueueEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.RequestQueueEntry{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.RequestType != "" {
		query = query.Where("request_type = ?", filters.RequestType)
	}
	if filters.RequestedBy != "" {
		query = query.Where("requested_by = ?", filters.RequestedBy)
	}

	var entries []models.RequestQueueEntry
	if err := query.Order("requested_at desc").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list requests")
	}
	return entries, nil
}

// ListForPlant gets all requests targeting one plant, newest first
func (r *RequestRepository) ListForPlant(ctx context.Context, plantUUID string) ([]models.RequestQueueEntry, error) {
	var entries []models.RequestQueueEntry
	err := r.db.WithContext(ctx).
		Where("plant_uuid = ?", plantUUID).
		Order("requested_at desc").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list requests for plant")
	}
	return entries, nil
}
