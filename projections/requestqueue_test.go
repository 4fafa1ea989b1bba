package projections

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/models"
)

func TestRequestQueueProjectorApprovalTransition(t *testing.T) {
	db := newProjectionDB(t)
	projector := NewRequestQueueProjector(db)
	requestID := uuid.New().String()
	plantID := uuid.New().String()
	requestedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, projector.Project(context.Background(), plantEvent(1, domain.PlantCreationRequested, domain.PlantCreationRequestedEvent{
		RequestID:    requestID,
		PlantID:      plantID,
		ProposedData: map[string]string{"name": "Basilikum", "type": "kraeuter"},
		Reason:       "fehlt noch im Katalog",
		RequestedBy:  "alice",
		RequestedAt:  requestedAt,
	})))

	var entry models.RequestQueueEntry
	require.NoError(t, db.Where("uuid = ?", requestID).First(&entry).Error)
	require.Equal(t, domain.RequestStatusPending, entry.Status)
	require.Equal(t, domain.RequestTypeNewPlant, entry.RequestType)
	require.NotNil(t, entry.PlantUUID)
	require.Equal(t, plantID, *entry.PlantUUID)
	require.Nil(t, entry.ReviewedBy)

	var proposed map[string]string
	require.NoError(t, json.Unmarshal(entry.ProposedData, &proposed))
	require.Equal(t, "Basilikum", proposed["name"])

	comment := "sieht gut aus"
	reviewedAt := requestedAt.Add(time.Hour)
	require.NoError(t, projector.Project(context.Background(), plantEvent(2, domain.RequestApproved, domain.RequestApprovedEvent{
		RequestID:  requestID,
		ReviewedBy: "admin",
		ReviewedAt: reviewedAt,
		Comment:    &comment,
	})))

	require.NoError(t, db.Where("uuid = ?", requestID).First(&entry).Error)
	require.Equal(t, domain.RequestStatusApproved, entry.Status)
	require.NotNil(t, entry.ReviewedBy)
	require.Equal(t, "admin", *entry.ReviewedBy)
	require.NotNil(t, entry.ReviewedAt)
	require.True(t, entry.ReviewedAt.Equal(reviewedAt))
	require.NotNil(t, entry.AdminComment)
	require.Equal(t, comment, *entry.AdminComment)
}

func TestRequestQueueProjectorRejectionTransition(t *testing.T) {
	db := newProjectionDB(t)
	projector := NewRequestQueueProjector(db)
	requestID := uuid.New().String()
	plantID := uuid.New().String()

	require.NoError(t, projector.Project(context.Background(), plantEvent(1, domain.PlantUpdateRequested, domain.PlantUpdateRequestedEvent{
		RequestID:       requestID,
		PlantID:         plantID,
		ProposedChanges: map[string]string{"description": "Einjähriges Küchenkraut"},
		Reason:          "Beschreibung fehlt",
		RequestedBy:     "bob",
		RequestedAt:     time.Now().UTC(),
	})))

	require.NoError(t, projector.Project(context.Background(), plantEvent(2, domain.RequestRejected, domain.RequestRejectedEvent{
		RequestID:  requestID,
		ReviewedBy: "admin",
		ReviewedAt: time.Now().UTC(),
		Comment:    "Beschreibung ist zu ungenau",
	})))

	var entry models.RequestQueueEntry
	require.NoError(t, db.Where("uuid = ?", requestID).First(&entry).Error)
	require.Equal(t, domain.RequestStatusRejected, entry.Status)
	require.Equal(t, domain.RequestTypeUpdateContribution, entry.RequestType)
	require.NotNil(t, entry.AdminComment)
	require.Equal(t, "Beschreibung ist zu ungenau", *entry.AdminComment)
}

// A review event for an unknown request is skipped, never an error
func TestRequestQueueProjectorSkipsUnknownRequest(t *testing.T) {
	db := newProjectionDB(t)
	projector := NewRequestQueueProjector(db)

	err := projector.Project(context.Background(), plantEvent(1, domain.RequestApproved, domain.RequestApprovedEvent{
		RequestID:  uuid.New().String(),
		ReviewedBy: "admin",
		ReviewedAt: time.Now().UTC(),
	}))
	require.NoError(t, err)

	count, err := projector.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}
