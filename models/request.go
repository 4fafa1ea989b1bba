package models

import (
	"encoding/json"
	"time"
)

// RequestQueueEntry is the moderation queue read model, one row per community
// request, maintained solely by the request queue projector.
type RequestQueueEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UUID         string          `gorm:"uniqueIndex" json:"uuid"`
	PlantUUID    *string         `gorm:"index" json:"plant_uuid"`
	RequestType  string          `gorm:"index" json:"request_type"`
	ProposedData json.RawMessage `json:"proposed_data"`
	Reason       string          `json:"reason"`
	RequestedBy  string          `gorm:"index" json:"requested_by"`
	RequestedAt  time.Time       `json:"requested_at"`
	Status       string          `gorm:"index" json:"status"`
	AdminComment *string         `json:"admin_comment"`
	ReviewedBy   *string         `json:"reviewed_by"`
	ReviewedAt   *time.Time      `json:"reviewed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
