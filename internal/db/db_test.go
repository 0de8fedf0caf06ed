package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB opens a migrated database in a temp dir
func setupTestDB(t *testing.T) *Queries {
	t.Helper()

	sqlDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(context.Background(), sqlDB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return New(sqlDB)
}

func testActivity(id int64, localStart string, distance float64, movingTime int64) CreateActivityParams {
	local, err := time.Parse(time.RFC3339, localStart)
	if err != nil {
		panic(err)
	}
	return CreateActivityParams{
		ID:             id,
		Name:           "Morning Run",
		Distance:       sql.NullFloat64{Float64: distance, Valid: distance != 0},
		MovingTime:     sql.NullInt64{Int64: movingTime, Valid: movingTime != 0},
		Type:           sql.NullString{String: "Run", Valid: true},
		StartDate:      sql.NullTime{Time: local.Add(5 * time.Hour), Valid: true},
		StartDateLocal: sql.NullTime{Time: local, Valid: true},
		Timezone:       sql.NullString{String: "(GMT-05:00) America/New_York", Valid: true},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	sqlDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	if err := Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCreateAndGetActivity(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	params := testActivity(42, "2024-03-05T07:15:00Z", 5012.3, 1520)
	params.TotalElevationGain = sql.NullFloat64{Float64: 35.2, Valid: true}
	if err := q.CreateActivity(ctx, params); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}

	got, err := q.GetActivity(ctx, 42)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if got.Name != "Morning Run" {
		t.Errorf("expected name Morning Run, got %s", got.Name)
	}
	if got.Distance.Float64 != 5012.3 {
		t.Errorf("expected distance 5012.3, got %v", got.Distance.Float64)
	}
	if got.MovingTime.Int64 != 1520 {
		t.Errorf("expected moving time 1520, got %d", got.MovingTime.Int64)
	}
	if !got.StartDateLocal.Valid || !got.StartDateLocal.Time.Equal(params.StartDateLocal.Time) {
		t.Errorf("expected local start %v, got %v", params.StartDateLocal.Time, got.StartDateLocal)
	}
	if got.StartDateLocal.Time.Location() != time.UTC {
		t.Errorf("expected local start in UTC, got %v", got.StartDateLocal.Time.Location())
	}
	if got.ElapsedTime.Valid {
		t.Error("expected elapsed time to be NULL")
	}
}

func TestCreateActivity_Upsert(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	params := testActivity(1, "2024-03-05T07:15:00Z", 5000, 1500)
	if err := q.CreateActivity(ctx, params); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	params.Name = "Renamed"
	params.Distance = sql.NullFloat64{Float64: 5100, Valid: true}
	if err := q.CreateActivity(ctx, params); err != nil {
		t.Fatalf("CreateActivity update: %v", err)
	}

	count, err := q.CountActivities(ctx)
	if err != nil {
		t.Fatalf("CountActivities: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 activity, got %d", count)
	}

	got, err := q.GetActivity(ctx, 1)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if got.Name != "Renamed" || got.Distance.Float64 != 5100 {
		t.Errorf("expected updated row, got %s %v", got.Name, got.Distance.Float64)
	}
}

func TestGetActivity_NotFound(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	_, err := q.GetActivity(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListActivitiesInRange(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	for _, p := range []CreateActivityParams{
		testActivity(3, "2024-03-10T23:30:00Z", 3000, 900),
		testActivity(1, "2024-03-01T06:00:00Z", 5000, 1500),
		testActivity(2, "2024-03-05T07:00:00Z", 8000, 2400),
		testActivity(4, "2024-03-11T00:10:00Z", 4000, 1200),
	} {
		if err := q.CreateActivity(ctx, p); err != nil {
			t.Fatalf("CreateActivity: %v", err)
		}
	}

	tests := []struct {
		name    string
		from    string
		to      string
		wantIDs []int64
	}{
		{"open range", "", "", []int64{1, 2, 3, 4}},
		{"from only", "2024-03-05", "", []int64{2, 3, 4}},
		{"to is exclusive", "", "2024-03-11", []int64{1, 2, 3}},
		{"single day", "2024-03-10", "2024-03-11", []int64{3}},
		{"empty", "2024-04-01", "2024-04-30", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var arg ListActivitiesInRangeParams
			if tt.from != "" {
				from, _ := time.Parse("2006-01-02", tt.from)
				arg.From = sql.NullTime{Time: from, Valid: true}
			}
			if tt.to != "" {
				to, _ := time.Parse("2006-01-02", tt.to)
				arg.To = sql.NullTime{Time: to, Valid: true}
			}

			got, err := q.ListActivitiesInRange(ctx, arg)
			if err != nil {
				t.Fatalf("ListActivitiesInRange: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d activities, got %d", len(tt.wantIDs), len(got))
			}
			for i, a := range got {
				if a.ID != tt.wantIDs[i] {
					t.Errorf("position %d: expected id %d, got %d", i, tt.wantIDs[i], a.ID)
				}
			}
		})
	}
}

func TestListActivitiesInRange_FallsBackToStartDate(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	p := testActivity(7, "2024-03-05T07:00:00Z", 5000, 1500)
	p.StartDateLocal = sql.NullTime{}
	if err := q.CreateActivity(ctx, p); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}

	from, _ := time.Parse("2006-01-02", "2024-03-05")
	got, err := q.ListActivitiesInRange(ctx, ListActivitiesInRangeParams{
		From: sql.NullTime{Time: from, Valid: true},
	})
	if err != nil {
		t.Fatalf("ListActivitiesInRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(got))
	}
}

func TestRecentAndDateBounds(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	latest, err := q.GetLatestActivityDate(ctx)
	if err != nil {
		t.Fatalf("GetLatestActivityDate on empty table: %v", err)
	}
	if latest.Valid {
		t.Error("expected no latest date on empty table")
	}

	for _, p := range []CreateActivityParams{
		testActivity(1, "2024-03-01T06:00:00Z", 5000, 1500),
		testActivity(2, "2024-03-05T07:00:00Z", 8000, 2400),
		testActivity(3, "2024-03-03T07:00:00Z", 3000, 900),
	} {
		if err := q.CreateActivity(ctx, p); err != nil {
			t.Fatalf("CreateActivity: %v", err)
		}
	}

	recent, err := q.GetRecentActivities(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecentActivities: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != 2 || recent[1].ID != 3 {
		t.Errorf("expected ids [2 3], got %v", idsOf(recent))
	}

	latest, err = q.GetLatestActivityDate(ctx)
	if err != nil {
		t.Fatalf("GetLatestActivityDate: %v", err)
	}
	oldest, err := q.GetOldestActivityDate(ctx)
	if err != nil {
		t.Fatalf("GetOldestActivityDate: %v", err)
	}
	if got := latest.Time.Format(time.RFC3339); got != "2024-03-05T12:00:00Z" {
		t.Errorf("expected latest 2024-03-05T12:00:00Z, got %s", got)
	}
	if got := oldest.Time.Format(time.RFC3339); got != "2024-03-01T11:00:00Z" {
		t.Errorf("expected oldest 2024-03-01T11:00:00Z, got %s", got)
	}
}

func TestAuthConfig(t *testing.T) {
	t.Parallel()

	q := setupTestDB(t)
	ctx := context.Background()

	if _, err := q.GetAuthConfig(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows before save, got %v", err)
	}

	err := q.SaveAuthConfig(ctx, SaveAuthConfigParams{ClientID: "123", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("SaveAuthConfig: %v", err)
	}

	err = q.UpdateTokens(ctx, UpdateTokensParams{
		AccessToken:  sql.NullString{String: "access", Valid: true},
		RefreshToken: sql.NullString{String: "refresh", Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: 1700000000, Valid: true},
	})
	if err != nil {
		t.Fatalf("UpdateTokens: %v", err)
	}

	cfg, err := q.GetAuthConfig(ctx)
	if err != nil {
		t.Fatalf("GetAuthConfig: %v", err)
	}
	if cfg.ClientID != "123" || cfg.AccessToken.String != "access" || cfg.ExpiresAt.Int64 != 1700000000 {
		t.Errorf("unexpected auth config: %+v", cfg)
	}

	if err := q.DeleteAuthConfig(ctx); err != nil {
		t.Fatalf("DeleteAuthConfig: %v", err)
	}
	if _, err := q.GetAuthConfig(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}

func idsOf(activities []Activity) []int64 {
	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	return ids
}
