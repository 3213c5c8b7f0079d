// The ingest command group drives the pipeline: one race, a whole
// season, a round range, or repeated sweeps until the season is
// complete. Results are printed as JSON on stdout.
package ingest

import (
	"errors"
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/racedecoder/f1-warehouse-go/pkg/cmd/bootstrap"
	"github.com/racedecoder/f1-warehouse-go/pkg/config"
	"github.com/racedecoder/f1-warehouse-go/pkg/ingest"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

var ErrQualityGate = errors.New("quality gate failed")

var (
	season    int
	seasonEnd int
	round     int
	fromRound int
	toRound   int
	maxPasses int
)

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "run the ingestion pipeline",
	}
	cmd.PersistentFlags().StringVar(&config.SessionType, "session-type", "R",
		"session type to ingest")
	cmd.PersistentFlags().BoolVar(&config.StrictQuality, "strict-quality", false,
		"exit non-zero when a run ends quality_failed")
	cmd.PersistentFlags().DurationVar(&config.PauseRace, "pause-race", 0,
		"pause between races during backfill")

	cmd.AddCommand(newSingleCmd())
	cmd.AddCommand(newSeasonCmd())
	cmd.AddCommand(newRangeCmd())
	cmd.AddCommand(newUntilCompleteCmd())
	return cmd
}

func newSingleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "single",
		Short: "ingest one race",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := bootstrap.Init()
			if err != nil {
				return err
			}
			defer stack.Close()

			result, err := stack.Pipeline.IngestSingleRace(
				cmd.Context(), season, round)
			if result != nil {
				printJSON(result)
			}
			if err != nil {
				return err
			}
			return verdict([]model.RunResult{*result})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season of the race")
	cmd.Flags().IntVar(&round, "round", 0, "round of the race")
	_ = cmd.MarkFlagRequired("season")
	_ = cmd.MarkFlagRequired("round")
	return cmd
}

func newSeasonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "season",
		Short: "ingest every round of a season",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := bootstrap.Init()
			if err != nil {
				return err
			}
			defer stack.Close()

			results, err := stack.Pipeline.BackfillSeason(cmd.Context(), season)
			printJSON(results)
			if err != nil {
				return err
			}
			return verdict(results)
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season to ingest")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}

func newRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "ingest a range of rounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			if toRound < fromRound {
				return fmt.Errorf("invalid range: %d..%d", fromRound, toRound)
			}
			stack, err := bootstrap.Init()
			if err != nil {
				return err
			}
			defer stack.Close()

			results, err := stack.Pipeline.BackfillRange(
				cmd.Context(), season, fromRound, toRound)
			printJSON(results)
			if err != nil {
				return err
			}
			return verdict(results)
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season to ingest")
	cmd.Flags().IntVar(&fromRound, "from", 0, "first round (inclusive)")
	cmd.Flags().IntVar(&toRound, "to", 0, "last round (inclusive)")
	_ = cmd.MarkFlagRequired("season")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newUntilCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "until-complete",
		Short: "sweep missing rounds until the target seasons are complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := bootstrap.Init()
			if err != nil {
				return err
			}
			defer stack.Close()

			pipeline := stack.Pipeline
			if maxPasses > 0 {
				pipeline = ingest.NewPipeline(
					ingest.WithPool(stack.Pool),
					ingest.WithUpstream(stack.Upstream),
					ingest.WithLogger(stack.Logger.Named("ingest")),
					ingest.WithCodeVersion(config.CodeVersion),
					ingest.WithSessionType(config.SessionType),
					ingest.WithPauseBetweenRaces(config.PauseRace),
					ingest.WithPauseBetweenPasses(config.PausePass),
					ingest.WithMaxPasses(maxPasses),
				)
			}
			lastSeason := seasonEnd
			if lastSeason == 0 {
				lastSeason = season
			}
			if lastSeason < season {
				return fmt.Errorf("invalid season range: %d..%d", season, lastSeason)
			}
			reports, err := pipeline.BackfillSeasonsUntilComplete(
				cmd.Context(), season, lastSeason)
			printJSON(reports)
			if err != nil {
				return err
			}
			var results []model.RunResult
			for _, report := range reports {
				if report.Ingested < report.Total {
					return fmt.Errorf("season %d incomplete: %d of %d rounds ingested",
						report.Season, report.Ingested, report.Total)
				}
				results = append(results, report.Results...)
			}
			return verdict(results)
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "first season to ingest")
	cmd.Flags().IntVar(&seasonEnd, "season-end", 0,
		"last season to ingest (defaults to --season)")
	cmd.Flags().IntVar(&maxPasses, "max-passes", 0,
		"maximum number of sweeps (0 uses the default)")
	cmd.Flags().DurationVar(&config.PausePass, "pause-pass", 0,
		"pause between sweeps")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}

// verdict maps run outcomes to the process exit code: quality failures
// only count when strict-quality is set.
func verdict(results []model.RunResult) error {
	if !config.StrictQuality {
		return nil
	}
	for i := range results {
		if results[i].Status == model.StatusQualityFailed {
			return fmt.Errorf("%w: %s", ErrQualityGate, results[i].RaceID)
		}
	}
	return nil
}

func printJSON(v any) {
	fmt.Fprintln(os.Stdout, oj.JSON(v, &oj.Options{Indent: 2, UseTags: true}))
}
