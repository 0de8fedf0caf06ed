package server

import (
	"context"
	"database/sql"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/db"
)

// RecordQuerier lists stored activities by local start time
type RecordQuerier interface {
	ListActivitiesInRange(ctx context.Context, arg db.ListActivitiesInRangeParams) ([]db.Activity, error)
}

// ToRecord converts a stored activity into an analysis record. The local
// start time is preferred so the record lands on the athlete's calendar day.
func ToRecord(a db.Activity) analytics.ActivityRecord {
	r := analytics.ActivityRecord{ID: a.ID}

	switch {
	case a.Type.Valid && a.Type.String != "":
		r.ActivityType = a.Type.String
	case a.SportType.Valid:
		r.ActivityType = a.SportType.String
	}

	switch {
	case a.StartDateLocal.Valid:
		r.StartTimestamp = a.StartDateLocal.Time
	case a.StartDate.Valid:
		r.StartTimestamp = a.StartDate.Time
	}

	if a.Distance.Valid && a.Distance.Float64 > 0 {
		r.DistanceMeters = a.Distance.Float64
	}
	if a.MovingTime.Valid && a.MovingTime.Int64 > 0 {
		r.MovingTimeSeconds = a.MovingTime.Int64
	}
	if a.TotalElevationGain.Valid && a.TotalElevationGain.Float64 > 0 {
		r.ElevationGainMeters = a.TotalElevationGain.Float64
	}
	return r
}

// ToRecords converts stored activities, dropping any without a start time
func ToRecords(activities []db.Activity) []analytics.ActivityRecord {
	out := make([]analytics.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if !a.StartDateLocal.Valid && !a.StartDate.Valid {
			continue
		}
		out = append(out, ToRecord(a))
	}
	return out
}

// Window is a requested analysis period. Either side may be open.
type Window struct {
	Start *analytics.Date
	End   *analytics.Date
}

// ParseWindow parses optional YYYY-MM-DD bounds
func ParseWindow(startDate, endDate string) (Window, error) {
	var w Window
	if startDate != "" {
		d, err := analytics.ParseDate(startDate)
		if err != nil {
			return w, NewInvalidInputErrorWithDetails("start_date must be YYYY-MM-DD", err.Error())
		}
		w.Start = &d
	}
	if endDate != "" {
		d, err := analytics.ParseDate(endDate)
		if err != nil {
			return w, NewInvalidInputErrorWithDetails("end_date must be YYYY-MM-DD", err.Error())
		}
		w.End = &d
	}
	if w.Start != nil && w.End != nil && w.Start.After(*w.End) {
		return w, NewInvalidInputErrorWithDetails("start_date must not be after end_date",
			w.Start.String()+" > "+w.End.String())
	}
	return w, nil
}

// IsOpen reports whether neither bound was given
func (w Window) IsOpen() bool {
	return w.Start == nil && w.End == nil
}

// LoadRecords fetches the records inside w and resolves w to a concrete range.
// An open window yields a nil range, meaning the span of the records. A
// missing end is today; a missing start is the first record's day.
func LoadRecords(ctx context.Context, q RecordQuerier, w Window, today analytics.Date) ([]analytics.ActivityRecord, *analytics.DateRange, error) {
	var params db.ListActivitiesInRangeParams
	if w.Start != nil {
		params.From = sql.NullTime{Time: w.Start.Time, Valid: true}
	}
	end := today
	if w.End != nil {
		end = *w.End
	}
	if !w.IsOpen() {
		params.To = sql.NullTime{Time: end.AddDays(1).Time, Valid: true}
	}

	activities, err := q.ListActivitiesInRange(ctx, params)
	if err != nil {
		return nil, nil, NewDatabaseErrorWithContext("activity listing", err)
	}
	records := ToRecords(activities)

	if w.IsOpen() {
		return records, nil, nil
	}

	rng := analytics.DateRange{End: end}
	switch {
	case w.Start != nil:
		rng.Start = *w.Start
	default:
		if span, ok := analytics.RecordRange(records); ok {
			rng.Start = span.Start
		} else {
			rng.Start = end
		}
	}
	return records, &rng, nil
}
