package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/strava-trends/internal/logging"
)

var (
	verbosity            int
	logFormat            string
	configPath           string
	dbPath               string
	mcpPort              int
	syncInterval         time.Duration
	tokenRefreshInterval time.Duration
	noSync               bool
	forceReauth          bool
)

var rootCmd = &cobra.Command{
	Use:   "strava-trends",
	Short: "Strava Trends - streaks, trends and records from your Strava activities",
	Long: `Strava Trends syncs your Strava activities to a local SQLite database and
analyzes them: running totals, weekly and monthly distance and pace trends,
personal records, and consecutive-day streaks with gap detection and milestone
projections. Results are served to AI assistants over the Model Context
Protocol (MCP), or printed as JSON with the analyze command.

The server runs with:
- Automatic authentication via OAuth (prompts on first run)
- Background token refresh to keep authentication valid
- Periodic activity sync from Strava
- MCP server for AI tool access

On first run, you will be prompted for your Strava API credentials.
Get these from https://www.strava.com/settings/api

Use --force-reauth to re-enter credentials and re-authenticate.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := logging.ParseFormat(logFormat)
		if err != nil {
			return err
		}
		// Logs go to stderr so stdio MCP and analyze output stay clean
		logging.SetupWriter(logging.Level(verbosity), format, os.Stderr)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg := &RuntimeConfig{
			DBPath:               dbPath,
			ConfigPath:           configPath,
			MCPPort:              mcpPort,
			SyncInterval:         syncInterval,
			TokenRefreshInterval: tokenRefreshInterval,
			NoSync:               noSync,
			ForceReauth:          forceReauth,
		}

		return Run(rtCfg)
	},
}

func init() {
	// Logging
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug, -vv for trace with HTTP headers)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log encoding: console or json")

	// Shared settings
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "strava_activities.db", "path to SQLite database file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "strava-trends.yaml", "path to analysis settings (YAML); missing file uses defaults")

	// Server settings
	rootCmd.Flags().IntVarP(&mcpPort, "port", "p", 8080, "MCP server port (0 for stdio mode)")
	rootCmd.Flags().DurationVar(&syncInterval, "sync-interval", 15*time.Minute, "interval between activity syncs")
	rootCmd.Flags().DurationVar(&tokenRefreshInterval, "token-refresh-interval", 30*time.Minute, "interval between token refresh checks")

	// Offline mode
	rootCmd.Flags().BoolVar(&noSync, "no-sync", false, "run MCP server only without Strava API sync (offline mode)")

	// Force re-authentication
	rootCmd.Flags().BoolVar(&forceReauth, "force-reauth", false, "force OAuth re-authentication, clearing existing tokens")

	rootCmd.AddCommand(newAnalyzeCmd())
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
