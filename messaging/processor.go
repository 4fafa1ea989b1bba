package messaging

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/handlers"
	"example.com/florahub/services/plants/utils"
)

// EventType definitions for inbound community submissions
const (
	SubmitPlantCreationRequest = "SubmitPlantCreationRequest"
	SubmitPlantUpdateRequest   = "SubmitPlantUpdateRequest"
)

// AzureBusMessage is the common message structure
type AzureBusMessage struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// SubmitCreationMessage carries a community request for a new plant
type SubmitCreationMessage struct {
	ProposedData map[string]string `json:"proposed_data"`
	Reason       string            `json:"reason"`
	RequestedBy  string            `json:"requested_by"`
}

// SubmitUpdateMessage carries a community request to change a plant
type SubmitUpdateMessage struct {
	PlantID         string            `json:"plant_id"`
	ProposedChanges map[string]string `json:"proposed_changes"`
	Reason          string            `json:"reason"`
	RequestedBy     string            `json:"requested_by"`
}

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

type Processor struct {
	requestHandler *handlers.RequestHandler
}

func NewProcessor(requestHandler *handlers.RequestHandler) *Processor {
	return &Processor{
		requestHandler: requestHandler,
	}
}

func (p *Processor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	// Malformed payloads are classified as validation failures so the
	// consumer drops them instead of redelivering forever.
	var msg AzureBusMessage
	if err := utils.UnmarshalJSON(message.Body, &msg); err != nil {
		return domain.NewValidationError("error unmarshalling message: %v", err)
	}

	log.Info().Str("eventType", msg.EventType).Msg("Processing message")

	switch msg.EventType {
	case SubmitPlantCreationRequest:
		var cmd SubmitCreationMessage
		if err := utils.UnmarshalJSON(msg.Data, &cmd); err != nil {
			return domain.NewValidationError("error unmarshalling submission: %v", err)
		}
		_, err := p.requestHandler.SubmitPlantCreationRequest(ctx, cmd.ProposedData, cmd.Reason, cmd.RequestedBy)
		return err

	case SubmitPlantUpdateRequest:
		var cmd SubmitUpdateMessage
		if err := utils.UnmarshalJSON(msg.Data, &cmd); err != nil {
			return domain.NewValidationError("error unmarshalling submission: %v", err)
		}
		_, err := p.requestHandler.SubmitPlantUpdateRequest(ctx, cmd.PlantID, cmd.ProposedChanges, cmd.Reason, cmd.RequestedBy)
		return err

	default:
		return domain.NewValidationError("unsupported event type: %s", msg.EventType)
	}
}
