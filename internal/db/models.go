package db

import (
	"database/sql"
	"time"
)

// Activity is a synced Strava activity
type Activity struct {
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
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AuthConfig is the single row of Strava client credentials and tokens
type AuthConfig struct {
	ID           int64
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Times are stored as unix seconds. Local start times keep Strava's
// convention of wall-clock time encoded as UTC.

func unixOrNil(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.Unix()
}

func fromUnix(v sql.NullInt64) sql.NullTime {
	if !v.Valid {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Unix(v.Int64, 0).UTC(), Valid: true}
}
