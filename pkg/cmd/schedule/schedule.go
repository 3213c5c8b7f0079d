package schedule

import (
	"github.com/spf13/cobra"

	"github.com/racedecoder/f1-warehouse-go/log"
	"github.com/racedecoder/f1-warehouse-go/pkg/cmd/bootstrap"
	"github.com/racedecoder/f1-warehouse-go/pkg/config"
)

var season int

func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "commands for the season schedule catalog",
	}
	cmd.AddCommand(newRefreshCmd())
	return cmd
}

// refresh pulls the season schedule into the catalog without touching
// any ingestion bookkeeping.
func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "refresh the races catalog from the upstream schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := bootstrap.Init()
			if err != nil {
				return err
			}
			defer stack.Close()

			count, err := stack.Pipeline.RefreshSchedule(cmd.Context(), season)
			if err != nil {
				return err
			}
			stack.Logger.Info("catalog updated",
				log.Int("season", season), log.Int("events", count))
			return nil
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season to refresh")
	cmd.Flags().StringVar(&config.SessionType, "session-type", "R",
		"session type recorded in the catalog")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}
