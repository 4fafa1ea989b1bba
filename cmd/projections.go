package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/florahub/services/plants/eventstore"
	"example.com/florahub/services/plants/projections"
)

var (
	projectorFlag string
	forceFlag     bool
)

var projectionsCmd = &cobra.Command{
	Use:   "projections",
	Short: "Inspect and maintain the projection read models",
}

var projectionsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show event count and per-projector progress",
	Run:   runProjectionsStatus,
}

var projectionsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear one or all projection read models",
	Run:   runProjectionsReset,
}

var projectionsReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild one or all read models from the event log",
	Run:   runProjectionsReplay,
}

func init() {
	projectionsCmd.PersistentFlags().StringVar(&projectorFlag, "projector", "", "target a single projector (default: all)")
	projectionsResetCmd.Flags().BoolVar(&forceFlag, "force", false, "skip the confirmation prompt")
	projectionsReplayCmd.Flags().BoolVar(&forceFlag, "force", false, "skip the confirmation prompt")

	projectionsCmd.AddCommand(projectionsStatusCmd)
	projectionsCmd.AddCommand(projectionsResetCmd)
	projectionsCmd.AddCommand(projectionsReplayCmd)
	rootCmd.AddCommand(projectionsCmd)
}

func buildMaintenanceRunner() *projections.Runner {
	db := openDatabase()
	eventStore := eventstore.NewGormEventStore(db)
	return buildRunner(db, eventStore, buildSearch(), buildCache())
}

func runProjectionsStatus(cmd *cobra.Command, args []string) {
	runner := buildMaintenanceRunner()

	status, err := runner.Status(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read projection status")
	}

	fmt.Printf("Events stored: %d\n", status.EventCount)
	for _, projector := range status.Projectors {
		fmt.Printf("  %-14s last_event=%-6d rows=%-6d pending=%d", projector.Name, projector.LastEventID, projector.RowCount, projector.PendingEvents)
		if projector.LastErrorDetail != "" {
			fmt.Printf("  error=%s", projector.LastErrorDetail)
		}
		fmt.Println()
	}
}

func runProjectionsReset(cmd *cobra.Command, args []string) {
	confirmOrExit("reset")

	runner := buildMaintenanceRunner()
	if err := runner.Reset(context.Background(), projectorFlag); err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}

	fmt.Println("Projections reset")
}

func runProjectionsReplay(cmd *cobra.Command, args []string) {
	confirmOrExit("replay")

	runner := buildMaintenanceRunner()
	if err := runner.Replay(context.Background(), projectorFlag); err != nil {
		log.Fatal().Err(err).Msg("Replay failed")
	}

	fmt.Println("Projections replayed")
}

func confirmOrExit(action string) {
	if forceFlag {
		return
	}

	target := projectorFlag
	if target == "" {
		target = "ALL projectors"
	}
	fmt.Printf("About to %s %s. Continue? [y/N] ", action, target)

	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		fmt.Println("Aborted")
		os.Exit(1)
	}
}
