package models

import (
	"encoding/json"
	"time"
)

// Plant is the current-state read model of one plant, maintained solely by
// the plant projector.
type Plant struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UUID                  string    `gorm:"uniqueIndex" json:"uuid"`
	Name                  string    `gorm:"index" json:"name"`
	Type                  string    `gorm:"index" json:"type"`
	Category              *string   `gorm:"index" json:"category"`
	LatinName             *string   `json:"latin_name"`
	Description           *string   `json:"description"`
	ImageURL              *string   `json:"image_url"`
	IsDeleted             bool      `gorm:"index" json:"is_deleted"`
	WasCommunityRequested bool      `json:"was_community_requested"`
	CreatedBy             string    `json:"created_by"`
	LastUpdatedBy         string    `json:"last_updated_by"`
	LastEventAt           time.Time `gorm:"index" json:"last_event_at"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// PlantTimelineEntry is one row of a plant's audit timeline. SequenceNumber
// is a per-plant counter assigned at projection time and is independent of
// the global event store order. The unique index rejects two appends racing
// to the same slot; the losing insert fails and the event is retried.
type PlantTimelineEntry struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PlantUUID      string          `gorm:"uniqueIndex:idx_timeline_plant_sequence" json:"plant_uuid"`
	EventType      string          `json:"event_type"`
	PerformedBy    string          `json:"performed_by"`
	PerformedAt    time.Time       `json:"performed_at"`
	DisplayText    string          `json:"display_text"`
	EventDetails   json.RawMessage `json:"event_details"`
	SequenceNumber int             `gorm:"uniqueIndex:idx_timeline_plant_sequence" json:"sequence_number"`
	CreatedAt      time.Time       `json:"created_at"`
}
