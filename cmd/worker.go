package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/florahub/services/plants/eventstore"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the projection catch-up worker",
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting worker")

	db := openDatabase()
	eventStore := eventstore.NewGormEventStore(db)

	redisCache := buildCache()
	esClient := buildSearch()
	runner := buildRunner(db, eventStore, esClient, redisCache)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Projections.CatchUpInterval),
		gocron.NewTask(func() {
			if err := runner.RunOnce(context.Background()); err != nil {
				log.Error().Err(err).Msg("Projection catch-up pass failed")
			}
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule catch-up job")
	}

	scheduler.Start()
	log.Info().
		Dur("interval", cfg.Projections.CatchUpInterval).
		Msg("Projection catch-up scheduled")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler forced to shutdown")
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Worker exited properly")
}
