package sync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/strava"
)

type fakeFetcher struct {
	activities []strava.Activity
	err        error
	gotWindow  strava.Window
}

func (f *fakeFetcher) FetchActivities(ctx context.Context, w strava.Window, progress strava.ProgressCallback) ([]strava.Activity, error) {
	f.gotWindow = w
	if progress != nil {
		progress(strava.FetchResult{Activities: f.activities, Page: 1, TotalFetched: len(f.activities)})
	}
	return f.activities, f.err
}

type fakeStore struct {
	saved  []db.CreateActivityParams
	failOn int64
}

func (s *fakeStore) CreateActivity(ctx context.Context, arg db.CreateActivityParams) error {
	if arg.ID == s.failOn {
		return errors.New("disk full")
	}
	s.saved = append(s.saved, arg)
	return nil
}

func TestConvertActivityToParams(t *testing.T) {
	startDate := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	startDateLocal := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	activity := strava.Activity{
		ID:                 12345,
		Name:               "Morning Run",
		Distance:           5000.5,
		MovingTime:         1800,
		ElapsedTime:        2000,
		TotalElevationGain: 50.5,
		Type:               "Run",
		SportType:          "TrailRun",
		StartDate:          startDate,
		StartDateLocal:     startDateLocal,
		Timezone:           "(GMT+01:00) Europe/Paris",
		AverageSpeed:       2.78,
		MaxSpeed:           4.5,
	}

	params := ConvertActivityToParams(activity)

	if params.ID != 12345 {
		t.Errorf("expected ID 12345, got %d", params.ID)
	}
	if !params.Distance.Valid || params.Distance.Float64 != 5000.5 {
		t.Errorf("expected distance 5000.5, got %+v", params.Distance)
	}
	if !params.MovingTime.Valid || params.MovingTime.Int64 != 1800 {
		t.Errorf("expected moving time 1800, got %+v", params.MovingTime)
	}
	if !params.TotalElevationGain.Valid || params.TotalElevationGain.Float64 != 50.5 {
		t.Errorf("expected elevation 50.5, got %+v", params.TotalElevationGain)
	}
	if !params.SportType.Valid || params.SportType.String != "TrailRun" {
		t.Errorf("expected sport type 'TrailRun', got %+v", params.SportType)
	}
	if !params.StartDateLocal.Valid || !params.StartDateLocal.Time.Equal(startDateLocal) {
		t.Errorf("expected local start %v, got %+v", startDateLocal, params.StartDateLocal)
	}
}

func TestConvertActivityToParams_ZeroValues(t *testing.T) {
	params := ConvertActivityToParams(strava.Activity{ID: 12345, Name: "Test Activity"})

	if params.Distance.Valid {
		t.Error("expected distance to be invalid for zero value")
	}
	if params.MovingTime.Valid {
		t.Error("expected moving time to be invalid for zero value")
	}
	if params.Type.Valid {
		t.Error("expected type to be invalid for empty string")
	}
	if params.StartDate.Valid {
		t.Error("expected start date to be invalid for zero time")
	}
}

func TestNullHelpers(t *testing.T) {
	if got := toNullFloat64(0); got.Valid {
		t.Errorf("toNullFloat64(0) = %+v, want invalid", got)
	}
	if got := toNullFloat64(-50.5); !got.Valid || got.Float64 != -50.5 {
		t.Errorf("toNullFloat64(-50.5) = %+v", got)
	}
	if got := toNullInt64(100); got != (sql.NullInt64{Int64: 100, Valid: true}) {
		t.Errorf("toNullInt64(100) = %+v", got)
	}
	if got := toNullString(""); got.Valid {
		t.Errorf("toNullString(\"\") = %+v, want invalid", got)
	}
	if got := toNullTime(time.Time{}); got.Valid {
		t.Error("expected invalid time for zero value")
	}
}

func TestSyncRange(t *testing.T) {
	fetcher := &fakeFetcher{activities: []strava.Activity{
		{ID: 1, Name: "Run A"},
		{ID: 2, Name: "Run B"},
	}}
	store := &fakeStore{}
	svc := NewService(store, fetcher)

	w := strava.Window{After: time.Unix(1700000000, 0), Before: time.Unix(1710000000, 0)}
	var fetchCalls, saveCalls int
	n, err := svc.SyncRange(context.Background(), w,
		func(strava.FetchResult) { fetchCalls++ },
		func(current, total int, name string) { saveCalls++ },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(store.saved) != 2 {
		t.Errorf("expected 2 saved, got n=%d stored=%d", n, len(store.saved))
	}
	if fetcher.gotWindow != w {
		t.Errorf("expected window %+v, got %+v", w, fetcher.gotWindow)
	}
	if fetchCalls != 1 || saveCalls != 2 {
		t.Errorf("expected 1 fetch and 2 save callbacks, got %d and %d", fetchCalls, saveCalls)
	}
}

func TestSyncDelta_PassesSince(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := NewService(&fakeStore{}, fetcher)

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	n, err := svc.SyncDelta(context.Background(), since, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 saved, got %d", n)
	}
	if !fetcher.gotWindow.After.Equal(since) || !fetcher.gotWindow.Before.IsZero() {
		t.Errorf("unexpected window %+v", fetcher.gotWindow)
	}
}

func TestSync_FetchError(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeFetcher{err: strava.ErrRateLimited})

	_, err := svc.Sync(context.Background(), nil, nil)
	if !errors.Is(err, strava.ErrRateLimited) {
		t.Errorf("expected wrapped ErrRateLimited, got %v", err)
	}
}

func TestSync_SaveErrorReportsProgress(t *testing.T) {
	fetcher := &fakeFetcher{activities: []strava.Activity{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := NewService(&fakeStore{failOn: 2}, fetcher)

	n, err := svc.Sync(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected save error")
	}
	if n != 1 {
		t.Errorf("expected 1 saved before failure, got %d", n)
	}
}
