package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/config"
	"example.com/florahub/services/plants/domain"
	"example.com/florahub/services/plants/utils"
)

type AzureClient struct {
	client *azservicebus.Client
	cfg    config.AzureConfig
}

func NewAzureClient(cfg config.AzureConfig) (*AzureClient, error) {
	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, err
	}

	return &AzureClient{client: client, cfg: cfg}, nil
}

// StartConsumers pulls community submissions off the queue, session by
// session, and feeds them through the processor.
func (a *AzureClient) StartConsumers(queueName string, processor MessageProcessor) error {
	log.Info().Msgf("Starting consumers for queue %s", queueName)

	// Loop continuously to handle reconnections
	for {
		sessionReceiver, err := a.client.AcceptNextSessionForQueue(context.TODO(), queueName, nil)
		if err != nil {
			var sbErr *azservicebus.Error
			if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeTimeout {
				log.Info().Msg("No session available, waiting...")
				time.Sleep(2 * time.Second)
				continue
			}
			return err
		}

		log.Info().Msgf("Session '%s' received", sessionReceiver.SessionID())

		go a.handleSession(sessionReceiver, processor)
	}
}

func (a *AzureClient) handleSession(receiver *azservicebus.SessionReceiver, processor MessageProcessor) {
	defer func() {
		log.Info().Msgf("Closing session '%s'", receiver.SessionID())
		err := receiver.Close(context.TODO())
		if err != nil {
			log.Error().Err(err).Msgf("Error closing session '%s'", receiver.SessionID())
		}
	}()

	for {
		messages, err := receiver.ReceiveMessages(context.TODO(), 10, nil)
		if err != nil {
			log.Error().Err(err).Msgf("Error receiving messages from session '%s'", receiver.SessionID())
			return
		}

		if len(messages) == 0 {
			// No more messages in this session
			return
		}

		log.Info().Msgf("Received %d messages from session '%s'", len(messages), receiver.SessionID())

		for _, message := range messages {
			err := processor.ProcessMessage(context.Background(), message)
			if err != nil {
				// Bad input can never succeed on redelivery; complete it so
				// the queue does not churn on it. Everything else goes back.
				if domain.IsValidationError(err) || domain.IsDomainError(err) {
					log.Warn().Err(err).Msgf("Rejecting invalid message '%s'", message.MessageID)
					if err := receiver.CompleteMessage(context.Background(), message, nil); err != nil {
						log.Error().Err(err).Msgf("(CompleteMessage) err: %v", err)
					}
					continue
				}

				log.Error().Err(err).Msgf("Error processing message '%s'", message.MessageID)
				// Return the message to the queue
				err = receiver.AbandonMessage(context.Background(), message, nil)
				if err != nil {
					log.Error().Err(err).Msgf("(AbandonMessage) err: %v", err)
				}
				continue
			}

			err = receiver.CompleteMessage(context.Background(), message, nil)
			if err != nil {
				log.Error().Err(err).Msgf("(CompleteMessage) err: %v", err)
			}
		}
	}
}

// reviewOutcomeMessage is the payload published when a request is reviewed
type reviewOutcomeMessage struct {
	RequestID  string `json:"request_id"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
	ReviewedAt string `json:"reviewed_at"`
}

// PublishRequestReviewed announces a review outcome on the outcomes topic
func (a *AzureClient) PublishRequestReviewed(ctx context.Context, requestID, status, reviewedBy string) error {
	sender, err := a.client.NewSender(a.cfg.TopicName, nil)
	if err != nil {
		return err
	}
	defer sender.Close(ctx)

	body, err := utils.MarshalJSON(reviewOutcomeMessage{
		RequestID:  requestID,
		Status:     status,
		ReviewedBy: reviewedBy,
		ReviewedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return sender.SendMessage(ctx, &azservicebus.Message{
		Body:      body,
		SessionID: &requestID,
	}, nil)
}
