package projections

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/models"
	"example.com/florahub/services/plants/utils"
)

// Timeline entry type tags, stable values the API exposes to clients
const (
	TimelineEntryCreated         = "created"
	TimelineEntryUpdated         = "updated"
	TimelineEntryDeleted         = "deleted"
	TimelineEntryRestored        = "restored"
	TimelineEntryRequested       = "requested"
	TimelineEntryUpdateRequested = "update_requested"
)

// fieldLabels maps plant field names to the labels shown in display texts
var fieldLabels = map[string]string{
	"name":        "Name",
	"type":        "Typ",
	"category":    "Kategorie",
	"latin_name":  "Lateinischer Name",
	"description": "Beschreibung",
	"image_url":   "Bild",
}

// TimelineProjector maintains the append-only per-plant audit timeline.
// Sequence numbers are assigned per plant at projection time, independent of
// the global event store order.
type TimelineProjector struct {
	db *gorm.DB
}

// NewTimelineProjector creates a new timeline projector
func NewTimelineProjector(db *gorm.DB) *TimelineProjector {
	return &TimelineProjector{db: db}
}

// Name keys the projector's applied-event markers
func (p *TimelineProjector) Name() string {
	return "timeline"
}

// Project appends a timeline entry for the event if it concerns a plant
func (p *TimelineProjector) Project(ctx context.Context, event domain.Event) error {
	switch data := event.Data.(type) {
	case domain.PlantCreatedEvent:
		return p.append(ctx, data.PlantID, TimelineEntryCreated, data.CreatedBy, data.CreatedAt,
			createdDisplayText(data),
			map[string]interface{}{
				"initial_data":       createdInitialData(data),
				"was_user_requested": data.WasUserRequested,
			})

	case domain.PlantUpdatedEvent:
		return p.append(ctx, data.PlantID, TimelineEntryUpdated, data.UpdatedBy, data.UpdatedAt,
			fmt.Sprintf("Pflanze wurde aktualisiert (%s)", formatFieldsList(changedFields(data.Changes))),
			map[string]interface{}{
				"changes":        data.Changes,
				"changed_fields": changedFields(data.Changes),
			})

	case domain.PlantDeletedEvent:
		text := "Pflanze wurde gelöscht"
		if data.Reason != nil && *data.Reason != "" {
			text = fmt.Sprintf("Pflanze wurde gelöscht (Grund: %s)", *data.Reason)
		}
		return p.append(ctx, data.PlantID, TimelineEntryDeleted, data.DeletedBy, data.DeletedAt,
			text,
			map[string]interface{}{
				"reason": data.Reason,
			})

	case domain.PlantRestoredEvent:
		return p.append(ctx, data.PlantID, TimelineEntryRestored, data.RestoredBy, data.RestoredAt,
			"Pflanze wurde wiederhergestellt",
			map[string]interface{}{})

	case domain.PlantCreationRequestedEvent:
		return p.append(ctx, data.PlantID, TimelineEntryRequested, data.RequestedBy, data.RequestedAt,
			"Neue Pflanze wurde beantragt",
			map[string]interface{}{
				"request_id":    data.RequestID,
				"proposed_data": data.ProposedData,
				"reason":        data.Reason,
				"request_type":  domain.RequestTypeNewPlant,
			})

	case domain.PlantUpdateRequestedEvent:
		return p.append(ctx, data.PlantID, TimelineEntryUpdateRequested, data.RequestedBy, data.RequestedAt,
			"Änderung wurde beantragt",
			map[string]interface{}{
				"request_id":       data.RequestID,
				"proposed_changes": data.ProposedChanges,
				"reason":           data.Reason,
				"requested_fields": changedFields(data.ProposedChanges),
			})

	default:
		// Request review events carry no plant-visible history
		return nil
	}
}

// ResetState clears the timeline table for a full replay
func (p *TimelineProjector) ResetState(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Where("1 = 1").Delete(&models.PlantTimelineEntry{}).Error; err != nil {
		return err
	}
	log.Info().Str("projector", p.Name()).Msg("Projection state reset")
	return nil
}

// Count returns the number of timeline rows
func (p *TimelineProjector) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&models.PlantTimelineEntry{}).Count(&count).Error
	return count, err
}

// append writes one timeline row. The sequence lookup and insert run in one
// transaction so two entries for the same plant can not claim the same number.
func (p *TimelineProjector) append(ctx context.Context, plantID, entryType, performedBy string, performedAt time.Time, displayText string, details map[string]interface{}) error {
	detailsJSON, err := utils.MarshalJSON(details)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline details: %w", err)
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSequence int
		err := tx.Model(&models.PlantTimelineEntry{}).
			Where("plant_uuid = ?", plantID).
			Select("COALESCE(MAX(sequence_number), 0)").
			Scan(&maxSequence).Error
		if err != nil {
			return err
		}

		entry := models.PlantTimelineEntry{
			PlantUUID:      plantID,
			EventType:      entryType,
			PerformedBy:    performedBy,
			PerformedAt:    performedAt,
			DisplayText:    displayText,
			EventDetails:   detailsJSON,
			SequenceNumber: maxSequence + 1,
		}
		return tx.Create(&entry).Error
	})
}

func createdDisplayText(data domain.PlantCreatedEvent) string {
	if data.WasUserRequested {
		return fmt.Sprintf("Pflanze '%s' wurde nach Community-Anfrage erstellt", data.Name)
	}
	return fmt.Sprintf("Pflanze '%s' wurde erstellt", data.Name)
}

func createdInitialData(data domain.PlantCreatedEvent) map[string]interface{} {
	initial := map[string]interface{}{
		"name": data.Name,
		"type": data.Type,
	}
	if data.Category != nil {
		initial["category"] = *data.Category
	}
	if data.LatinName != nil {
		initial["latin_name"] = *data.LatinName
	}
	if data.Description != nil {
		initial["description"] = *data.Description
	}
	if data.ImageURL != nil {
		initial["image_url"] = *data.ImageURL
	}
	return initial
}

// changedFields returns the sorted field names of a change set
func changedFields(changes map[string]string) []string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// formatFieldsList renders field names as a German enumeration:
// one field stands alone, two are joined with "und", three or more list
// commas with "und" before the last.
func formatFieldsList(fields []string) string {
	labels := make([]string, 0, len(fields))
	for _, field := range fields {
		if label, ok := fieldLabels[field]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, field)
		}
	}

	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " und " + labels[1]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " und " + labels[len(labels)-1]
	}
}
