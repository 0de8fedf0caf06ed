package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/joshdurbin/strava-trends/internal/auth"
	"github.com/joshdurbin/strava-trends/internal/config"
	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/logging"
	"github.com/joshdurbin/strava-trends/internal/server"
	"github.com/joshdurbin/strava-trends/internal/strava"
	"github.com/joshdurbin/strava-trends/internal/workers"
)

// RuntimeConfig holds all runtime configuration from CLI flags
type RuntimeConfig struct {
	DBPath               string
	ConfigPath           string
	MCPPort              int
	SyncInterval         time.Duration
	TokenRefreshInterval time.Duration
	NoSync               bool
	ForceReauth          bool
}

// Run syncs, refreshes tokens in the background and serves MCP until a signal arrives
func Run(cfg *RuntimeConfig) error {
	log := logging.Logger

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("config_path", cfg.ConfigPath).
		Int("mcp_port", cfg.MCPPort).
		Bool("no_sync", cfg.NoSync).
		Dur("sync_interval", cfg.SyncInterval).
		Dur("token_refresh_interval", cfg.TokenRefreshInterval).
		Msg("starting strava-trends")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analysisCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	log.Debug().
		Str("units", analysisCfg.Units).
		Ints("milestones", analysisCfg.Milestones).
		Float64("reference_distance_meters", analysisCfg.ReferenceDistanceMeters).
		Int("max_range_days", analysisCfg.MaxRangeDays).
		Msg("analysis settings loaded")

	sqlDB, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	queries := db.New(sqlDB)
	workers.LogDatabaseStats(ctx, queries)

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.NoSync {
		log.Info().Msg("running in offline mode (--no-sync), skipping Strava API sync")
	} else if err := startSync(ctx, gCtx, g, queries, cfg); err != nil {
		return err
	}

	srv := server.New(queries, analysisCfg)

	var serverErr error
	if cfg.MCPPort > 0 {
		serverErr = runHTTPServer(ctx, srv.MCPServer(), cfg.MCPPort)
	} else {
		log.Info().Msg("MCP server running via stdio")
		serverErr = srv.Run(ctx)
	}
	// Stdio ends when the client disconnects; stop the workers with it
	stop()

	log.Info().Msg("waiting for workers to shut down")
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("worker error during shutdown")
	} else {
		log.Info().Msg("all workers shut down gracefully")
	}

	return serverErr
}

// openStore opens the database, refuses a second instance and applies migrations
func openStore(ctx context.Context, path string) (*sql.DB, error) {
	logging.Logger.Info().Str("path", path).Msg("opening database")

	sqlDB, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckLock(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// startSync authenticates, runs one sync and starts the refresh and sync workers on g
func startSync(ctx, gCtx context.Context, g *errgroup.Group, queries *db.Queries, cfg *RuntimeConfig) error {
	log := logging.Logger
	storage := auth.NewStorage(queries)

	accessToken, err := ensureAuthenticated(ctx, storage, cfg, newConsole())
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}

	// Rate limiting is handled by waiting for window resets, not by retrying
	retryConfig := strava.DefaultRetryConfig()

	if err := workers.SyncOnce(ctx, queries, accessToken, retryConfig); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// The background worker retries on its next tick
		log.Warn().Err(err).Msg("initial sync failed")
	}
	workers.LogDatabaseStats(ctx, queries)

	log.Info().Msg("starting background workers")

	tokenRefresher := workers.NewTokenRefresher(storage, cfg.TokenRefreshInterval)
	g.Go(func() error {
		tokenRefresher.Run(gCtx)
		return nil
	})

	activitySyncer := workers.NewActivitySyncer(queries, storage, cfg.SyncInterval, retryConfig)
	g.Go(func() error {
		activitySyncer.Run(gCtx)
		return nil
	})
	return nil
}

// newHTTPHandler serves streamable HTTP on /mcp, SSE on / and a health check
func newHTTPHandler(mcpServer *mcp.Server) http.Handler {
	getServer := func(r *http.Request) *mcp.Server {
		return mcpServer
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, nil))
	mux.Handle("/", mcp.NewSSEHandler(getServer, nil))
	return mux
}

// runHTTPServer runs the MCP server over HTTP until ctx is cancelled
func runHTTPServer(ctx context.Context, mcpServer *mcp.Server, port int) error {
	log := logging.Logger

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(mcpServer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("sse_endpoint", fmt.Sprintf("http://localhost%s/", addr)).
			Str("streamable_endpoint", fmt.Sprintf("http://localhost%s/mcp", addr)).
			Msg("MCP server running via HTTP")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
