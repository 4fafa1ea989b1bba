package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/florahub/services/plants/api"
	"example.com/florahub/services/plants/eventstore"
	"example.com/florahub/services/plants/handlers"
	"example.com/florahub/services/plants/messaging"
	"example.com/florahub/services/plants/policy"
	"example.com/florahub/services/plants/repositories"
	"example.com/florahub/services/plants/tracing"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting server")

	db := openDatabase()
	eventStore := eventstore.NewGormEventStore(db)

	redisCache := buildCache()
	esClient := buildSearch()
	runner := buildRunner(db, eventStore, esClient, redisCache)

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracer")
	}

	// Azure is optional; without it review outcomes stay local
	var azureClient *messaging.AzureClient
	var publisher handlers.OutcomePublisher
	if cfg.Azure.Enabled {
		azureClient, err = messaging.NewAzureClient(cfg.Azure)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Azure Service Bus")
		}
		publisher = azureClient
	}

	plantHandler := handlers.NewPlantHandler(eventStore, runner, cfg.Workflow.SystemActor)
	requestHandler := handlers.NewRequestHandler(eventStore, runner, nil, publisher, cfg.Workflow.SystemActor)
	requestHandler.SetApprovalHook(policy.NewApprovalPolicy(plantHandler, cfg.Workflow.AutoCreateOnApproval))

	plantRepo := repositories.NewPlantRepository(db, redisCache)
	requestRepo := repositories.NewRequestRepository(db)

	server := api.NewServer(cfg, plantHandler, requestHandler, plantRepo, requestRepo, runner, esClient, tracer)

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return server.Start()
	})

	if azureClient != nil {
		msgProcessor := messaging.NewProcessor(requestHandler)
		group.Go(func() error {
			return azureClient.StartConsumers(cfg.Azure.QueueName, msgProcessor)
		})
	}

	// Wait for interrupt signal or a fatal component error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
	tracer.Close()

	log.Info().Msg("Server exited properly")
}
