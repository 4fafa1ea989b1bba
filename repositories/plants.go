package repositories

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/cache"
	"example.com/florahub/services/plants/models"
)

// ErrPlantNotFound is returned when no plant row matches a lookup
var ErrPlantNotFound = errors.New("plant not found")

// PlantFilters narrows a plant listing
type PlantFilters struct {
	Type               string
	Category           string
	Search             string
	CommunityRequested *bool
	IncludeDeleted     bool
}

// PlantWithTimeline bundles a plant's current state with its ordered history
type PlantWithTimeline struct {
	Plant    *models.Plant               `json:"plant"`
	Timeline []models.PlantTimelineEntry `json:"timeline"`
}

// PlantRepository provides read access to the plant read models. Single
// reads go through the cache when one is configured, listings always hit
// the database.
type PlantRepository struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewPlantRepository creates a new plant repository. cache may be nil.
func NewPlantRepository(db *gorm.DB, redisCache *cache.RedisCache) *PlantRepository {
	return &PlantRepository{
		db:    db,
		cache: redisCache,
	}
}

// GetByUUID gets a plant by its uuid, including soft-deleted rows
func (r *PlantRepository) GetByUUID(ctx context.Context, uuid string) (*models.Plant, error) {
	if r.cache != nil && r.cache.Enabled() {
		var cached models.Plant
		if err := r.cache.Get(ctx, cache.PlantCacheKey(uuid), &cached); err == nil {
			return &cached, nil
		}
	}

	var plant models.Plant
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&plant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrPlantNotFound, "uuid %s", uuid)
		}
		return nil, errors.Wrap(err, "failed to get plant by uuid")
	}

	if r.cache != nil && r.cache.Enabled() {
		if err := r.cache.Set(ctx, cache.PlantCacheKey(uuid), &plant); err != nil {
			log.Warn().Err(err).Str("plant_id", uuid).Msg("Failed to cache plant")
		}
	}

	return &plant, nil
}

// GetWithTimeline gets a plant's current state together with its full
// timeline in sequence order
func (r *PlantRepository) GetWithTimeline(ctx context.Context, uuid string) (*PlantWithTimeline, error) {
	plant, err := r.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}

	timeline, err := r.TimelineFor(ctx, uuid)
	if err != nil {
		return nil, err
	}

	return &PlantWithTimeline{
		Plant:    plant,
		Timeline: timeline,
	}, nil
}

// TimelineFor gets a plant's timeline entries in sequence order
func (r *PlantRepository) TimelineFor(ctx context.Context, uuid string) ([]models.PlantTimelineEntry, error) {
	var entries []models.PlantTimelineEntry
	err := r.db.WithContext(ctx).
		Where("plant_uuid = ?", uuid).
		Order("sequence_number asc").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get plant timeline")
	}
	return entries, nil
}

// List gets plants matching the filters, most recently changed first.
// Deleted plants are excluded unless IncludeDeleted is set.
func (r *PlantRepository) List(ctx context.Context, filters PlantFilters) ([]models.Plant, error) {
	query := r.db.WithContext(ctx).Model(&models.Plant{})

	if !filters.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			"name LIKE ? OR description LIKE ? OR latin_name LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filters.CommunityRequested != nil {
		query = query.Where("was_community_requested = ?", *filters.CommunityRequested)
	}

	var plants []models.Plant
	if err := query.Order("last_event_at desc").Find(&plants).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list plants")
	}
	return plants, nil
}

// ListByUUIDs gets plants for a set of uuids, preserving the given order.
// Used to hydrate search hits returned by the search backend.
func (r *PlantRepository) ListByUUIDs(ctx context.Context, uuids []string) ([]models.Plant, error) {
	if len(uuids) == 0 {
		return nil, nil
	}

	var plants []models.Plant
	err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&plants).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list plants by uuids")
	}

	byUUID := make(map[string]models.Plant, len(plants))
	for _, plant := range plants {
		byUUID[plant.UUID] = plant
	}

	ordered := make([]models.Plant, 0, len(plants))
	for _, uuid := range uuids {
		if plant, ok := byUUID[uuid]; ok {
			ordered = append(ordered, plant)
		}
	}
	return ordered, nil
}
