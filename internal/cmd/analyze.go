package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/config"
	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/logging"
	"github.com/joshdurbin/strava-trends/internal/server"
)

// AnalyzeOptions are the analyze command's flags
type AnalyzeOptions struct {
	StartDate string
	EndDate   string
	Units     string
	NoTrends  bool
	Compact   bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts AnalyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print a JSON analysis of synced activities",
		Long: `Analyze reads activities from the local database and prints the full
summary as JSON: activity mix, running totals, personal records, distance and
pace trends, and running/all-activity streaks.

Without --start and --end the whole history is analyzed. With only --start the
range ends today; with only --end it starts at the first activity.

Run the server at least once to sync activities. Analyze never calls Strava.`,
		Example: `  strava-trends analyze
  strava-trends analyze --start 2024-01-01 --end 2024-06-30 --units km`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			sqlDB, err := db.Open(dbPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := db.Migrate(cmd.Context(), sqlDB); err != nil {
				return err
			}

			return runAnalyze(cmd.Context(), db.New(sqlDB), cfg, opts, time.Now(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.StartDate, "start", "", "first day to analyze (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "last day to analyze (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Units, "units", "", "distance unit, mi or km (default from config)")
	cmd.Flags().BoolVar(&opts.NoTrends, "no-trends", false, "omit daily, weekly and monthly trend series")
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print JSON on a single line")

	return cmd
}

// runAnalyze builds the summary for opts and writes it to w
func runAnalyze(ctx context.Context, q server.RecordQuerier, cfg *config.Config, opts AnalyzeOptions, now time.Time, w io.Writer) error {
	log := logging.Logger

	window, err := server.ParseWindow(opts.StartDate, opts.EndDate)
	if err != nil {
		return err
	}

	records, rng, err := server.LoadRecords(ctx, q, window, analytics.DateOf(now))
	if err != nil {
		return err
	}

	builderOpts := cfg.Options(rng)
	if opts.Units != "" {
		unit, err := analytics.ParseUnit(opts.Units)
		if err != nil {
			return fmt.Errorf("invalid --units: %w", err)
		}
		builderOpts.Unit = unit
	}
	builderOpts.IncludeTrends = !opts.NoTrends

	log.Debug().
		Int("records", len(records)).
		Str("unit", string(builderOpts.Unit)).
		Bool("trends", builderOpts.IncludeTrends).
		Msg("building summary")

	summary, err := analytics.NewBuilder(builderOpts).Build(records)
	if err != nil {
		if analytics.IsRangeError(err) {
			return fmt.Errorf("invalid date range: %w", err)
		}
		return fmt.Errorf("building summary: %w", err)
	}

	log.Info().
		Int("activities", summary.TotalActivities).
		Bool("no_data", summary.NoData).
		Int("unavailable", len(summary.Unavailable)).
		Msg("analysis complete")

	enc := json.NewEncoder(w)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
