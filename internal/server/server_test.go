package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/config"
	"github.com/joshdurbin/strava-trends/internal/db"
)

// MockQuerier implements the Querier interface for testing
type MockQuerier struct {
	activities []db.Activity
	listErr    error
	lastParams db.ListActivitiesInRangeParams
}

func (m *MockQuerier) GetActivity(ctx context.Context, id int64) (db.Activity, error) {
	for _, a := range m.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return db.Activity{}, sql.ErrNoRows
}

func (m *MockQuerier) ListActivitiesInRange(ctx context.Context, arg db.ListActivitiesInRangeParams) ([]db.Activity, error) {
	m.lastParams = arg
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []db.Activity
	for _, a := range m.activities {
		start := a.StartDateLocal
		if !start.Valid {
			start = a.StartDate
		}
		if arg.From.Valid && (!start.Valid || start.Time.Before(arg.From.Time)) {
			continue
		}
		if arg.To.Valid && (!start.Valid || !start.Time.Before(arg.To.Time)) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *MockQuerier) CountActivities(ctx context.Context) (int64, error) {
	return int64(len(m.activities)), nil
}

func (m *MockQuerier) GetOldestActivityDate(ctx context.Context) (sql.NullTime, error) {
	var oldest sql.NullTime
	for _, a := range m.activities {
		if a.StartDate.Valid && (!oldest.Valid || a.StartDate.Time.Before(oldest.Time)) {
			oldest = a.StartDate
		}
	}
	return oldest, nil
}

func (m *MockQuerier) GetLatestActivityDate(ctx context.Context) (sql.NullTime, error) {
	var latest sql.NullTime
	for _, a := range m.activities {
		if a.StartDate.Valid && (!latest.Valid || a.StartDate.Time.After(latest.Time)) {
			latest = a.StartDate
		}
	}
	return latest, nil
}

// Test helpers
func createTestActivity(id int64, activityType, start string, meters float64, seconds int64) db.Activity {
	ts, err := time.Parse("2006-01-02T15:04", start)
	if err != nil {
		panic(err)
	}
	return db.Activity{
		ID:             id,
		Name:           activityType + " " + start,
		Type:           sql.NullString{String: activityType, Valid: true},
		StartDate:      sql.NullTime{Time: ts, Valid: true},
		StartDateLocal: sql.NullTime{Time: ts, Valid: true},
		Distance:       sql.NullFloat64{Float64: meters, Valid: meters > 0},
		MovingTime:     sql.NullInt64{Int64: seconds, Valid: seconds > 0},
	}
}

// testActivities: one ride, then three consecutive runs ending on 2024-03-10
func testActivities() []db.Activity {
	hilly := createTestActivity(4, "Run", "2024-03-10T08:00", 5000, 1200)
	hilly.TotalElevationGain = sql.NullFloat64{Float64: 80, Valid: true}
	return []db.Activity{
		createTestActivity(1, "Ride", "2024-03-01T09:00", 20000, 3600),
		createTestActivity(2, "Run", "2024-03-08T07:30", 5000, 1500),
		createTestActivity(3, "Run", "2024-03-09T07:30", 10000, 3000),
		hilly,
	}
}

func newTestServer(t *testing.T, activities []db.Activity) (*Server, *MockQuerier) {
	t.Helper()
	mock := &MockQuerier{activities: activities}
	cfg := config.Default()
	cfg.Units = string(analytics.Kilometers)
	srv := New(mock, cfg)
	srv.now = func() time.Time { return time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC) }
	return srv, mock
}

func requireToolError(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %T (%v)", err, err)
	}
	if te.Code != code {
		t.Errorf("expected code %s, got %s", code, te.Code)
	}
}

func TestServerNew(t *testing.T) {
	t.Parallel()

	mock := &MockQuerier{}
	srv := New(mock, nil)

	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	if srv.mcp == nil {
		t.Error("expected non-nil MCP server")
	}
	if srv.queries == nil {
		t.Error("expected non-nil queries")
	}
	if srv.cfg == nil {
		t.Error("expected default config")
	}
}

func TestServerMCPServer(t *testing.T) {
	t.Parallel()

	srv := New(&MockQuerier{}, nil)

	mcpServer := srv.MCPServer()
	if mcpServer == nil {
		t.Error("expected non-nil MCP server from MCPServer()")
	}
	if mcpServer != srv.mcp {
		t.Error("expected MCPServer() to return the internal mcp server")
	}
}

func TestAnalyzeActivities(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.analyzeActivities(context.Background(), nil, AnalyzeInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := out.Summary
	if s.NoData {
		t.Fatal("expected data")
	}
	if s.Unit != "km" {
		t.Errorf("expected unit km, got %q", s.Unit)
	}
	if s.Range == nil || s.Range.Start != "2024-03-01" || s.Range.End != "2024-03-10" {
		t.Errorf("unexpected range %+v", s.Range)
	}
	if s.TotalActivities != 4 {
		t.Errorf("expected 4 activities, got %d", s.TotalActivities)
	}
	if s.Running == nil || s.Running.TotalRuns != 3 {
		t.Fatalf("expected 3 runs, got %+v", s.Running)
	}
	if s.Running.TotalDistance != "20 km" {
		t.Errorf("expected total distance '20 km', got %q", s.Running.TotalDistance)
	}
	if s.RunningStreak == nil || s.RunningStreak.CurrentStreakDays != 3 {
		t.Errorf("expected running streak 3, got %+v", s.RunningStreak)
	}
	if s.ActivityStreak == nil || s.ActivityStreak.ActiveDays != 4 || s.ActivityStreak.LongestGapDays != 6 {
		t.Errorf("unexpected activity streak %+v", s.ActivityStreak)
	}
	if len(s.WeeklyDistance) == 0 || len(s.MonthlyDistance) != 1 {
		t.Errorf("expected weekly and one monthly distance point, got %d/%d", len(s.WeeklyDistance), len(s.MonthlyDistance))
	}
	if len(out.SuggestedActions) == 0 {
		t.Error("expected suggested actions")
	}
}

func TestAnalyzeActivities_NoData(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.analyzeActivities(context.Background(), nil, AnalyzeInput{StartDate: "2023-01-01", EndDate: "2023-01-31"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Summary.NoData || out.Summary.Message == "" {
		t.Errorf("expected no-data summary, got %+v", out.Summary)
	}
	if out.Summary.Range == nil || out.Summary.Range.Days != 31 {
		t.Errorf("expected the requested range to be echoed, got %+v", out.Summary.Range)
	}
	if len(out.Insights) != 0 {
		t.Errorf("expected no insights, got %v", out.Insights)
	}
}

func TestAnalyzeActivities_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input AnalyzeInput
		code  ErrorCode
	}{
		{"bad start", AnalyzeInput{StartDate: "2024/01/01"}, ErrInvalidInput},
		{"reversed", AnalyzeInput{StartDate: "2024-03-10", EndDate: "2024-03-01"}, ErrInvalidInput},
		{"bad units", AnalyzeInput{Units: "furlongs"}, ErrInvalidInput},
		{"too large", AnalyzeInput{StartDate: "1700-01-01", EndDate: "2024-01-01"}, ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newTestServer(t, testActivities())
			_, _, err := srv.analyzeActivities(context.Background(), nil, tc.input)
			requireToolError(t, err, tc.code)
		})
	}
}

func TestAnalyzeActivities_DatabaseError(t *testing.T) {
	t.Parallel()

	srv, mock := newTestServer(t, nil)
	mock.listErr = errors.New("disk I/O error")

	_, _, err := srv.analyzeActivities(context.Background(), nil, AnalyzeInput{})
	requireToolError(t, err, ErrDatabaseError)
}

func TestGetStreaks(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.getStreaks(context.Background(), nil, StreaksInput{StartDate: "2024-03-01", EndDate: "2024-03-12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Range == nil || out.Range.Days != 12 {
		t.Fatalf("expected a 12 day range, got %+v", out.Range)
	}
	run := out.Running
	if run == nil {
		t.Fatal("expected running streak")
	}
	if run.CurrentStreakDays != 0 {
		t.Errorf("expected broken streak, got %d", run.CurrentStreakDays)
	}
	if run.LongestStreakDays != 3 {
		t.Errorf("expected longest streak 3, got %d", run.LongestStreakDays)
	}
	if run.DaysSinceLastActive == nil || *run.DaysSinceLastActive != 2 {
		t.Errorf("expected 2 days since last run, got %v", run.DaysSinceLastActive)
	}
	if run.LastActiveDate != "2024-03-10" {
		t.Errorf("expected last active 2024-03-10, got %q", run.LastActiveDate)
	}
	if n := len(run.Gaps); n == 0 || !run.Gaps[n-1].Open || run.Gaps[n-1].Start != "2024-03-11" {
		t.Errorf("expected trailing open gap from 2024-03-11, got %+v", run.Gaps)
	}
	if run.NextMilestone == nil || *run.NextMilestone != 7 {
		t.Errorf("expected next milestone 7, got %v", run.NextMilestone)
	}
	if len(out.Milestones) != len(analytics.DefaultMilestones) {
		t.Errorf("expected default milestones, got %v", out.Milestones)
	}
}

func TestGetStreaks_Milestone(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.getStreaks(context.Background(), nil, StreaksInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := out.Running
	if run == nil || run.CurrentStreakDays != 3 {
		t.Fatalf("expected current streak 3, got %+v", run)
	}
	if run.DaysToNextMilestone == nil || *run.DaysToNextMilestone != 4 {
		t.Errorf("expected 4 days to milestone, got %v", run.DaysToNextMilestone)
	}
	if run.NextMilestoneDate != "2024-03-14" {
		t.Errorf("expected milestone on 2024-03-14, got %q", run.NextMilestoneDate)
	}
	if len(out.Insights) == 0 {
		t.Error("expected streak insights")
	}
}

func TestGetStreaks_NoData(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	_, out, err := srv.getStreaks(context.Background(), nil, StreaksInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Message == "" {
		t.Error("expected no-data message")
	}
	if out.Running != nil || out.AllActivities != nil {
		t.Error("expected no streak states")
	}
}

func TestGetTrends(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())

	t.Run("daily run distance", func(t *testing.T) {
		_, out, err := srv.getTrends(context.Background(), nil, TrendsInput{Granularity: "daily"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Metric != "distance" || out.Granularity != "daily" || out.ActivityType != "Run" {
			t.Errorf("unexpected header %+v", out)
		}
		if len(out.Points) != 10 {
			t.Fatalf("expected one point per day, got %d", len(out.Points))
		}
		if out.Points[0].Value != 0 {
			t.Errorf("expected the ride day to carry no run distance, got %v", out.Points[0].Value)
		}
		if out.Points[8].Value != 10 || out.Points[8].Start != "2024-03-09" {
			t.Errorf("unexpected point %+v", out.Points[8])
		}
	})

	t.Run("all activity duration", func(t *testing.T) {
		_, out, err := srv.getTrends(context.Background(), nil, TrendsInput{
			Metric:       "duration",
			Granularity:  "daily",
			ActivityType: "all",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ActivityType != "all" {
			t.Errorf("expected all activity types, got %q", out.ActivityType)
		}
		if len(out.Points) == 0 || out.Points[0].Value != 3600 {
			t.Errorf("expected ride duration on the first day, got %+v", out.Points)
		}
	})

	t.Run("pace ignores activity type", func(t *testing.T) {
		_, out, err := srv.getTrends(context.Background(), nil, TrendsInput{Metric: "pace", ActivityType: "all"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ActivityType != "Run" {
			t.Errorf("expected pace to use runs, got %q", out.ActivityType)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		_, out, err := srv.getTrends(context.Background(), nil, TrendsInput{StartDate: "2023-01-01", EndDate: "2023-01-31"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Message == "" || len(out.Points) != 0 {
			t.Errorf("expected empty series with message, got %+v", out)
		}
	})
}

func TestGetTrends_InvalidInput(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	inputs := []TrendsInput{
		{Metric: "calories"},
		{Granularity: "yearly"},
		{ActivityType: "Swim"},
		{EndDate: "yesterday"},
	}
	for _, input := range inputs {
		_, _, err := srv.getTrends(context.Background(), nil, input)
		requireToolError(t, err, ErrInvalidInput)
	}
}

func TestGetTrends_NoActivities(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	_, out, err := srv.getTrends(context.Background(), nil, TrendsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Message == "" || out.Points == nil {
		t.Errorf("expected message and empty points, got %+v", out)
	}
}

func TestGetPersonalRecords(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.getPersonalRecords(context.Background(), nil, RecordsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Records) != 4 {
		t.Fatalf("expected 4 records, got %d: %+v", len(out.Records), out.Records)
	}
	want := []struct {
		category string
		id       int64
		text     string
	}{
		{analytics.RecordBestPace, 4, "4:00/km"},
		{analytics.RecordFastestReference, 3, "50m 0s"},
		{analytics.RecordLongestActivity, 3, "10 km"},
		{analytics.RecordPeakElevation, 4, "80 m"},
	}
	for i, w := range want {
		got := out.Records[i]
		if got.Category != w.category || got.ActivityID != w.id || got.Formatted != w.text {
			t.Errorf("record %d: expected %s/%d/%q, got %s/%d/%q", i, w.category, w.id, w.text, got.Category, got.ActivityID, got.Formatted)
		}
	}
	if len(out.Insights) == 0 {
		t.Error("expected insights for recent records")
	}
}

func TestGetPersonalRecords_Miles(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testActivities())
	_, out, err := srv.getPersonalRecords(context.Background(), nil, RecordsInput{Units: "mi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Unit != "mi" {
		t.Errorf("expected miles, got %q", out.Unit)
	}
}

func TestGetPersonalRecords_NoRuns(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, []db.Activity{
		createTestActivity(1, "Ride", "2024-03-01T09:00", 20000, 3600),
	})
	_, out, err := srv.getPersonalRecords(context.Background(), nil, RecordsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Records) != 0 || out.Message == "" {
		t.Errorf("expected no records with a message, got %+v", out)
	}
}
