package models

import (
	"time"
)

// Event represents a stored domain event. ID is the global append sequence;
// the unique (aggregate_id, version) index rejects concurrent writers racing
// on the same aggregate.
type Event struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"uniqueIndex" json:"event_id"`
	AggregateID   string    `gorm:"uniqueIndex:idx_events_aggregate_version" json:"aggregate_id"`
	AggregateType string    `json:"aggregate_type"`
	EventType     string    `gorm:"index" json:"event_type"`
	Data          []byte    `json:"data"`
	Version       int       `gorm:"uniqueIndex:idx_events_aggregate_version" json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectorAppliedEvent marks one stored event as applied by one projector.
// Inserting the row is the claim on the event: the unique
// (projector_name, event_id) index makes the claim win exactly once, even
// with catch-up passes racing across processes.
type ProjectorAppliedEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectorName string    `gorm:"uniqueIndex:idx_applied_projector_event" json:"projector_name"`
	EventID       uint      `gorm:"uniqueIndex:idx_applied_projector_event" json:"event_id"`
	CreatedAt     time.Time `json:"created_at"`
}
