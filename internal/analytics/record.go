package analytics

import (
	"fmt"
	"strings"
	"time"
)

const (
	metersPerMile      = 1609.34
	metersPerKilometer = 1000.0
	feetPerMeter       = 3.28084
)

// Well-known normalized activity types
const (
	TypeRun            = "Run"
	TypeRide           = "Ride"
	TypeWeightTraining = "WeightTraining"
)

// typeSynonyms collapses source activity types onto the type used for analysis
var typeSynonyms = map[string]string{
	"Workout":     TypeWeightTraining,
	"VirtualRun":  TypeRun,
	"VirtualRide": TypeRide,
}

// NormalizeType maps a raw activity type onto its normalized type
func NormalizeType(activityType string) string {
	if normalized, ok := typeSynonyms[activityType]; ok {
		return normalized
	}
	return activityType
}

// ActivityRecord is one fetched activity. Numeric fields use zero for absent.
type ActivityRecord struct {
	ID                  int64     `json:"id"`
	ActivityType        string    `json:"activity_type"`
	StartTimestamp      time.Time `json:"start_timestamp"`
	DistanceMeters      float64   `json:"distance_meters"`
	MovingTimeSeconds   int64     `json:"moving_time_seconds"`
	ElevationGainMeters float64   `json:"elevation_gain_meters"`
}

// Type returns the normalized activity type
func (r ActivityRecord) Type() string {
	return NormalizeType(r.ActivityType)
}

// Day returns the calendar day the activity started on
func (r ActivityRecord) Day() Date {
	return DateOf(r.StartTimestamp)
}

// IsRun reports whether the record normalizes to a run
func (r ActivityRecord) IsRun() bool {
	return r.Type() == TypeRun
}

// FilterRecords returns the records for which keep returns true
func FilterRecords(records []ActivityRecord, keep func(ActivityRecord) bool) []ActivityRecord {
	out := make([]ActivityRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Unit is the distance unit pace and distance values are expressed in
type Unit string

const (
	Miles      Unit = "mi"
	Kilometers Unit = "km"
)

// ParseUnit accepts "mi"/"miles" and "km"/"kilometers"; empty means miles
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mi", "mile", "miles":
		return Miles, nil
	case "km", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	default:
		return "", fmt.Errorf("unknown distance unit %q", s)
	}
}

// Meters returns the number of meters in one unit
func (u Unit) Meters() float64 {
	if u == Kilometers {
		return metersPerKilometer
	}
	return metersPerMile
}

// FromMeters converts a distance in meters to the unit
func (u Unit) FromMeters(meters float64) float64 {
	return meters / u.Meters()
}

// Measure extracts the quantity aggregated for a record
type Measure func(ActivityRecord) float64

// DistanceMeasure measures distance in the given unit
func DistanceMeasure(unit Unit) Measure {
	return func(r ActivityRecord) float64 {
		return unit.FromMeters(r.DistanceMeters)
	}
}

// DurationMeasure measures moving time in seconds
func DurationMeasure(r ActivityRecord) float64 {
	return float64(r.MovingTimeSeconds)
}
