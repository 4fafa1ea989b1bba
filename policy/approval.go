package policy

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/handlers"
)

// ApprovalPolicy materializes approved community requests: a new-plant
// request creates the plant under its pre-allocated uuid, an update request
// applies the proposed changes. The whole policy is gated by configuration so
// deployments can keep approval a pure bookkeeping step.
type ApprovalPolicy struct {
	plants     *handlers.PlantHandler
	autoCreate bool
}

// NewApprovalPolicy creates the post-approval policy
func NewApprovalPolicy(plants *handlers.PlantHandler, autoCreate bool) *ApprovalPolicy {
	return &ApprovalPolicy{
		plants:     plants,
		autoCreate: autoCreate,
	}
}

// OnRequestApproved runs after an approval is durably stored
func (p *ApprovalPolicy) OnRequestApproved(ctx context.Context, request *domain.RequestAggregate) error {
	if !p.autoCreate {
		log.Debug().
			Str("request_id", request.GetID()).
			Msg("Auto-create on approval disabled, skipping")
		return nil
	}

	if request.State.PlantID == nil {
		return errors.New("approved request has no target plant id")
	}
	plantID := *request.State.PlantID

	reviewer := ""
	if request.State.ReviewedBy != nil {
		reviewer = *request.State.ReviewedBy
	}

	switch {
	case request.IsNewPlantRequest():
		return p.createPlant(ctx, request, plantID, reviewer)
	case request.IsUpdateRequest():
		return p.applyChanges(ctx, request, plantID, reviewer)
	default:
		return errors.Errorf("unknown request type: %s", request.State.RequestType)
	}
}

func (p *ApprovalPolicy) createPlant(ctx context.Context, request *domain.RequestAggregate, plantID, reviewer string) error {
	proposed := request.State.ProposedData
	cmd := handlers.CreatePlantCommand{
		Name:        proposed["name"],
		Type:        proposed["type"],
		Category:    optional(proposed, "category"),
		LatinName:   optional(proposed, "latin_name"),
		Description: optional(proposed, "description"),
		ImageURL:    optional(proposed, "image_url"),
		CreatedBy:   reviewer,
	}

	if _, err := p.plants.CreatePlantWithID(ctx, plantID, cmd, true); err != nil {
		return errors.Wrap(err, "failed to create plant from approved request")
	}

	log.Info().
		Str("request_id", request.GetID()).
		Str("plant_id", plantID).
		Msg("Plant created from approved request")
	return nil
}

func (p *ApprovalPolicy) applyChanges(ctx context.Context, request *domain.RequestAggregate, plantID, reviewer string) error {
	if _, err := p.plants.UpdatePlant(ctx, plantID, request.State.ProposedData, reviewer); err != nil {
		return errors.Wrap(err, "failed to apply approved changes")
	}

	log.Info().
		Str("request_id", request.GetID()).
		Str("plant_id", plantID).
		Msg("Approved changes applied to plant")
	return nil
}

func optional(data map[string]string, key string) *string {
	value, ok := data[key]
	if !ok || value == "" {
		return nil
	}
	return &value
}
