// Package sync copies Strava activities into the local store.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/logging"
	"github.com/joshdurbin/strava-trends/internal/strava"
)

// FetchProgressCallback is called after each page is fetched
type FetchProgressCallback func(result strava.FetchResult)

// SaveProgressCallback is called after each activity is saved
type SaveProgressCallback func(current, total int, activityName string)

// Fetcher lists activities from Strava
type Fetcher interface {
	FetchActivities(ctx context.Context, w strava.Window, progress strava.ProgressCallback) ([]strava.Activity, error)
}

// Store persists activities
type Store interface {
	CreateActivity(ctx context.Context, arg db.CreateActivityParams) error
}

// Service syncs activities from Strava into the store
type Service struct {
	store   Store
	fetcher Fetcher
}

// NewService creates a sync service
func NewService(store Store, fetcher Fetcher) *Service {
	return &Service{store: store, fetcher: fetcher}
}

// Sync fetches the full activity history and upserts every activity
func (s *Service) Sync(ctx context.Context, fetchProgress FetchProgressCallback, saveProgress SaveProgressCallback) (int, error) {
	return s.SyncRange(ctx, strava.Window{}, fetchProgress, saveProgress)
}

// SyncDelta fetches only activities that started after since
func (s *Service) SyncDelta(ctx context.Context, since time.Time, fetchProgress FetchProgressCallback, saveProgress SaveProgressCallback) (int, error) {
	return s.SyncRange(ctx, strava.Window{After: since}, fetchProgress, saveProgress)
}

// SyncRange fetches and upserts the activities inside w. It returns the number
// saved, which is less than the number fetched when a save fails.
func (s *Service) SyncRange(ctx context.Context, w strava.Window, fetchProgress FetchProgressCallback, saveProgress SaveProgressCallback) (int, error) {
	log := logging.Logger

	var progressCb strava.ProgressCallback
	if fetchProgress != nil {
		progressCb = strava.ProgressCallback(fetchProgress)
	}

	activities, err := s.fetcher.FetchActivities(ctx, w, progressCb)
	if err != nil {
		return 0, fmt.Errorf("fetching activities: %w", err)
	}
	if len(activities) == 0 {
		return 0, nil
	}

	log.Debug().Int("fetched", len(activities)).Msg("saving activities")

	for i, activity := range activities {
		if err := s.store.CreateActivity(ctx, ConvertActivityToParams(activity)); err != nil {
			return i, fmt.Errorf("saving activity %d (%s): %w", activity.ID, activity.Name, err)
		}
		if saveProgress != nil {
			saveProgress(i+1, len(activities), activity.Name)
		}
	}

	return len(activities), nil
}

// ConvertActivityToParams maps a Strava activity onto store columns. Zero values become NULL.
func ConvertActivityToParams(a strava.Activity) db.CreateActivityParams {
	return db.CreateActivityParams{
		ID:                 a.ID,
		Name:               a.Name,
		Distance:           toNullFloat64(a.Distance),
		MovingTime:         toNullInt64(int64(a.MovingTime)),
		ElapsedTime:        toNullInt64(int64(a.ElapsedTime)),
		TotalElevationGain: toNullFloat64(a.TotalElevationGain),
		Type:               toNullString(a.Type),
		SportType:          toNullString(a.SportType),
		StartDate:          toNullTime(a.StartDate),
		StartDateLocal:     toNullTime(a.StartDateLocal),
		Timezone:           toNullString(a.Timezone),
		AverageSpeed:       toNullFloat64(a.AverageSpeed),
		MaxSpeed:           toNullFloat64(a.MaxSpeed),
	}
}

func toNullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func toNullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func toNullTime(v time.Time) sql.NullTime {
	return sql.NullTime{Time: v, Valid: !v.IsZero()}
}
