package db

import (
	"context"
	"database/sql"
	"time"
)

const activityColumns = `id, name, distance, moving_time, elapsed_time, total_elevation_gain,
	type, sport_type, start_date, start_date_local, timezone, average_speed, max_speed,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (Activity, error) {
	var (
		a                         Activity
		startDate, startDateLocal sql.NullInt64
		createdAt, updatedAt      int64
	)
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Distance,
		&a.MovingTime,
		&a.ElapsedTime,
		&a.TotalElevationGain,
		&a.Type,
		&a.SportType,
		&startDate,
		&startDateLocal,
		&a.Timezone,
		&a.AverageSpeed,
		&a.MaxSpeed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Activity{}, err
	}
	a.StartDate = fromUnix(startDate)
	a.StartDateLocal = fromUnix(startDateLocal)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return a, nil
}

func (q *Queries) listActivities(ctx context.Context, query string, args ...interface{}) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createActivity = `
INSERT INTO activities (
	id, name, distance, moving_time, elapsed_time, total_elevation_gain,
	type, sport_type, start_date, start_date_local, timezone, average_speed, max_speed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	distance = excluded.distance,
	moving_time = excluded.moving_time,
	elapsed_time = excluded.elapsed_time,
	total_elevation_gain = excluded.total_elevation_gain,
	type = excluded.type,
	sport_type = excluded.sport_type,
	start_date = excluded.start_date,
	start_date_local = excluded.start_date_local,
	timezone = excluded.timezone,
	average_speed = excluded.average_speed,
	max_speed = excluded.max_speed,
	updated_at = unixepoch()
`

// CreateActivityParams are the columns written by CreateActivity
type CreateActivityParams struct {
	ID                 int64
	Name               string
	Distance           sql.NullFloat64
	MovingTime         sql.NullInt64
	ElapsedTime        sql.NullInt64
	TotalElevationGain sql.NullFloat64
	Type               sql.NullString
	SportType          sql.NullString
	StartDate          sql.NullTime
	StartDateLocal     sql.NullTime
	Timezone           sql.NullString
	AverageSpeed       sql.NullFloat64
	MaxSpeed           sql.NullFloat64
}

// CreateActivity inserts an activity or updates it when the id already exists
func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) error {
	_, err := q.db.ExecContext(ctx, createActivity,
		arg.ID,
		arg.Name,
		arg.Distance,
		arg.MovingTime,
		arg.ElapsedTime,
		arg.TotalElevationGain,
		arg.Type,
		arg.SportType,
		unixOrNil(arg.StartDate),
		unixOrNil(arg.StartDateLocal),
		arg.Timezone,
		arg.AverageSpeed,
		arg.MaxSpeed,
	)
	return err
}

const getActivity = `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

func (q *Queries) GetActivity(ctx context.Context, id int64) (Activity, error) {
	return scanActivity(q.db.QueryRowContext(ctx, getActivity, id))
}

// Rows without a local start fall back to the UTC start for ordering and filtering
const listActivitiesInRange = `SELECT ` + activityColumns + ` FROM activities
WHERE (? IS NULL OR COALESCE(start_date_local, start_date) >= ?)
  AND (? IS NULL OR COALESCE(start_date_local, start_date) < ?)
ORDER BY COALESCE(start_date_local, start_date), id`

// ListActivitiesInRangeParams bounds the local start time. From is inclusive,
// To exclusive; an invalid bound is open.
type ListActivitiesInRangeParams struct {
	From sql.NullTime
	To   sql.NullTime
}

// ListActivitiesInRange returns activities ordered by local start time
func (q *Queries) ListActivitiesInRange(ctx context.Context, arg ListActivitiesInRangeParams) ([]Activity, error) {
	from := unixOrNil(arg.From)
	to := unixOrNil(arg.To)
	return q.listActivities(ctx, listActivitiesInRange, from, from, to, to)
}

const getRecentActivities = `SELECT ` + activityColumns + ` FROM activities
ORDER BY start_date DESC, id DESC
LIMIT ?`

func (q *Queries) GetRecentActivities(ctx context.Context, limit int64) ([]Activity, error) {
	return q.listActivities(ctx, getRecentActivities, limit)
}

const countActivities = `SELECT COUNT(*) FROM activities`

func (q *Queries) CountActivities(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActivities).Scan(&count)
	return count, err
}

const getLatestActivityDate = `SELECT MAX(start_date) FROM activities`

// GetLatestActivityDate returns the newest UTC start time, invalid when the table is empty
func (q *Queries) GetLatestActivityDate(ctx context.Context) (sql.NullTime, error) {
	var v sql.NullInt64
	if err := q.db.QueryRowContext(ctx, getLatestActivityDate).Scan(&v); err != nil {
		return sql.NullTime{}, err
	}
	return fromUnix(v), nil
}

const getOldestActivityDate = `SELECT MIN(start_date) FROM activities`

// GetOldestActivityDate returns the oldest UTC start time, invalid when the table is empty
func (q *Queries) GetOldestActivityDate(ctx context.Context) (sql.NullTime, error) {
	var v sql.NullInt64
	if err := q.db.QueryRowContext(ctx, getOldestActivityDate).Scan(&v); err != nil {
		return sql.NullTime{}, err
	}
	return fromUnix(v), nil
}
