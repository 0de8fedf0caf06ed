package workers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-trends/internal/auth"
	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/logging"
	"github.com/joshdurbin/strava-trends/internal/strava"
	syncsvc "github.com/joshdurbin/strava-trends/internal/sync"
)

// refreshWithin is how close to expiry a token gets refreshed
const refreshWithin = 10 * time.Minute

// TokenStore loads and saves OAuth tokens
type TokenStore interface {
	LoadTokens() (*auth.StoredTokens, error)
	LoadClientConfig() (*auth.ClientConfig, error)
	SaveTokens(tokens *auth.TokenResponse) error
	GetValidAccessToken() (string, error)
}

// ActivityStore is the part of the store the syncer writes to
type ActivityStore interface {
	syncsvc.Store
	GetLatestActivityDate(ctx context.Context) (sql.NullTime, error)
}

// StatsStore answers the startup statistics queries
type StatsStore interface {
	CountActivities(ctx context.Context) (int64, error)
	GetLatestActivityDate(ctx context.Context) (sql.NullTime, error)
	GetOldestActivityDate(ctx context.Context) (sql.NullTime, error)
	GetRecentActivities(ctx context.Context, limit int64) ([]db.Activity, error)
}

// TokenRefresher keeps auth tokens up to date
type TokenRefresher struct {
	storage  TokenStore
	interval time.Duration
	refresh  func(clientID, clientSecret, refreshToken string) (*auth.TokenResponse, error)
	now      func() time.Time
}

// NewTokenRefresher creates a new token refresher worker
func NewTokenRefresher(storage TokenStore, interval time.Duration) *TokenRefresher {
	return &TokenRefresher{
		storage:  storage,
		interval: interval,
		refresh:  auth.RefreshAccessToken,
		now:      time.Now,
	}
}

// Run starts the token refresh worker
func (t *TokenRefresher) Run(ctx context.Context) {
	log := logging.Logger
	log.Info().Dur("interval", t.interval).Msg("token refresher started")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.checkAndRefresh()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("token refresher stopped")
			return
		case <-ticker.C:
			t.checkAndRefresh()
		}
	}
}

// checkAndRefresh reports whether a refresh happened
func (t *TokenRefresher) checkAndRefresh() bool {
	log := logging.Logger

	tokens, err := t.storage.LoadTokens()
	if err != nil {
		log.Error().Err(err).Msg("failed to load tokens for refresh check")
		return false
	}

	untilExpiry := time.Unix(tokens.ExpiresAt, 0).Sub(t.now())
	if untilExpiry >= refreshWithin {
		log.Debug().Dur("expires_in", untilExpiry.Round(time.Second)).Msg("token still valid")
		return false
	}

	log.Info().Dur("expires_in", untilExpiry).Msg("token expiring soon, refreshing")

	client, err := t.storage.LoadClientConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to load client config for refresh")
		return false
	}

	fresh, err := t.refresh(client.ClientID, client.ClientSecret, tokens.RefreshToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh token")
		return false
	}

	if err := t.storage.SaveTokens(fresh); err != nil {
		log.Error().Err(err).Msg("failed to save refreshed tokens")
		return false
	}

	log.Info().
		Str("new_expires_at", time.Unix(fresh.ExpiresAt, 0).UTC().Format(time.RFC3339)).
		Msg("token refreshed")
	return true
}

// ActivitySyncer periodically pulls new activities from Strava
type ActivitySyncer struct {
	store       ActivityStore
	tokens      TokenStore
	interval    time.Duration
	retryConfig strava.RetryConfig
	clientOpts  []strava.Option
}

// NewActivitySyncer creates a new activity sync worker. Extra client options
// are applied after the retry config.
func NewActivitySyncer(store ActivityStore, tokens TokenStore, interval time.Duration, retryConfig strava.RetryConfig, opts ...strava.Option) *ActivitySyncer {
	return &ActivitySyncer{
		store:       store,
		tokens:      tokens,
		interval:    interval,
		retryConfig: retryConfig,
		clientOpts:  opts,
	}
}

// Run starts the activity sync worker
func (a *ActivitySyncer) Run(ctx context.Context) {
	log := logging.Logger
	log.Info().Dur("interval", a.interval).Msg("activity syncer started")

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.syncActivities(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("activity syncer stopped")
			return
		case <-ticker.C:
			a.syncActivities(ctx)
		}
	}
}

func (a *ActivitySyncer) syncActivities(ctx context.Context) {
	log := logging.Logger

	accessToken, err := a.tokens.GetValidAccessToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to get access token for sync")
		return
	}

	client := newClient(accessToken, a.retryConfig, a.clientOpts)

	// A previous run may have left us near the limit
	if err := client.WaitForRateLimit(ctx); err != nil {
		log.Info().Err(err).Msg("activity sync cancelled while waiting for rate limit")
		return
	}

	if _, err := syncStore(ctx, a.store, client, "periodic sync"); err != nil {
		log.Error().Err(err).Msg("activity sync failed")
	}
}

// SyncOnce performs a single sync (used for initial sync on startup)
func SyncOnce(ctx context.Context, store ActivityStore, accessToken string, retryConfig strava.RetryConfig, opts ...strava.Option) error {
	client := newClient(accessToken, retryConfig, opts)
	_, err := syncStore(ctx, store, client, "initial sync")
	return err
}

func newClient(accessToken string, retryConfig strava.RetryConfig, opts []strava.Option) *strava.Client {
	all := append([]strava.Option{strava.WithRetry(retryConfig)}, opts...)
	return strava.NewClient(accessToken, all...)
}

// syncStore runs a delta sync from the newest stored activity, or a full
// sync when the store is empty.
func syncStore(ctx context.Context, store ActivityStore, client *strava.Client, label string) (int, error) {
	log := logging.Logger.With().Str("sync", label).Logger()

	latest, err := store.GetLatestActivityDate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get latest activity date, doing full sync")
		latest = sql.NullTime{}
	}

	onPage := func(result strava.FetchResult) {
		rl := result.RateLimit
		event := log.Debug()
		if rl.IsRateLimited || rl.IsApproaching15MinLimit() {
			event = log.Info()
		}
		event.
			Int("page", result.Page).
			Int("activities_on_page", len(result.Activities)).
			Int("total_fetched", result.TotalFetched).
			Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
			Bool("rate_limited", rl.IsRateLimited).
			Msg("sync progress")
	}

	svc := syncsvc.NewService(store, client)
	var saved int
	if latest.Valid {
		log.Info().Str("since", latest.Time.UTC().Format(time.RFC3339)).Msg("performing delta sync")
		saved, err = svc.SyncDelta(ctx, latest.Time, onPage, nil)
	} else {
		log.Info().Msg("performing full sync (no existing activities)")
		saved, err = svc.Sync(ctx, onPage, nil)
	}
	if err != nil {
		return saved, fmt.Errorf("%s: %w", label, err)
	}

	rl := client.RateLimit()
	log.Info().
		Int("saved", saved).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("sync completed")
	return saved, nil
}

// LogDatabaseStats logs the activity count and date bounds of the store
func LogDatabaseStats(ctx context.Context, store StatsStore) {
	log := logging.Logger

	count, err := store.CountActivities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count activities")
		return
	}

	if count == 0 {
		log.Info().Int64("total_activities", 0).Msg("database statistics")
		return
	}

	newest, _ := store.GetLatestActivityDate(ctx)
	oldest, _ := store.GetOldestActivityDate(ctx)

	log.Info().
		Int64("total_activities", count).
		Str("newest_activity", formatDate(newest)).
		Str("oldest_activity", formatDate(oldest)).
		Msg("database statistics")

	if !logging.IsVerbose() {
		return
	}
	recent, err := store.GetRecentActivities(ctx, 5)
	if err != nil {
		log.Debug().Err(err).Msg("failed to list recent activities")
		return
	}
	for _, a := range recent {
		log.Debug().
			Int64("id", a.ID).
			Str("name", a.Name).
			Str("type", a.Type.String).
			Str("start", formatDate(a.StartDate)).
			Msg("recent activity")
	}
}

func formatDate(t sql.NullTime) string {
	if !t.Valid {
		return "unknown"
	}
	return t.Time.UTC().Format(time.RFC3339)
}
