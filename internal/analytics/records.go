package analytics

import (
	"fmt"
	"sort"
)

// Record categories
const (
	RecordBestPace          = "best_pace"
	RecordFastestReference  = "fastest_reference_distance"
	RecordLongestActivity   = "longest_activity"
	RecordPeakElevation     = "peak_elevation"
	DefaultReferenceMeters  = 10000.0
	distanceHistogramBins   = 10
	distanceHistogramOpenAt = 10.0
)

// ActivityRef identifies the activity behind a record
type ActivityRef struct {
	ID                  int64   `json:"id"`
	Date                Date    `json:"date"`
	Type                string  `json:"type"`
	Distance            float64 `json:"distance"`
	MovingTimeSeconds   int64   `json:"moving_time_seconds"`
	ElevationGainMeters float64 `json:"elevation_gain_meters"`
}

func refOf(r ActivityRecord, unit Unit) ActivityRef {
	return ActivityRef{
		ID:                  r.ID,
		Date:                r.Day(),
		Type:                r.Type(),
		Distance:            unit.FromMeters(r.DistanceMeters),
		MovingTimeSeconds:   r.MovingTimeSeconds,
		ElevationGainMeters: r.ElevationGainMeters,
	}
}

// PersonalRecord is the best value in one category
type PersonalRecord struct {
	Category string      `json:"category"`
	Value    float64     `json:"value"`
	Activity ActivityRef `json:"activity"`
}

// PersonalRecords holds the best activity per category; nil means no candidate.
//
// FastestReferenceDistance is the shortest moving time among activities at or
// beyond the reference distance. For longer activities this is the whole-activity
// time, an approximation rather than a split over the reference distance.
type PersonalRecords struct {
	BestPace                 *PersonalRecord `json:"best_pace"`
	FastestReferenceDistance *PersonalRecord `json:"fastest_reference_distance"`
	LongestActivity          *PersonalRecord `json:"longest_activity"`
	PeakElevation            *PersonalRecord `json:"peak_elevation"`
}

// ExtractRecords finds personal records. Records with missing values never
// become candidates for the category that needs them. Ties go to the earliest activity.
func ExtractRecords(records []ActivityRecord, unit Unit, referenceMeters float64) PersonalRecords {
	if referenceMeters <= 0 {
		referenceMeters = DefaultReferenceMeters
	}
	ordered := sortedByStart(records)

	var out PersonalRecords
	for _, r := range ordered {
		if pace, ok := PerActivityPace(r, unit); ok {
			if out.BestPace == nil || pace < out.BestPace.Value {
				out.BestPace = newRecord(RecordBestPace, pace, r, unit)
			}
		}
		if r.DistanceMeters >= referenceMeters && r.MovingTimeSeconds > 0 {
			secs := float64(r.MovingTimeSeconds)
			if out.FastestReferenceDistance == nil || secs < out.FastestReferenceDistance.Value {
				out.FastestReferenceDistance = newRecord(RecordFastestReference, secs, r, unit)
			}
		}
		if r.DistanceMeters > 0 {
			dist := unit.FromMeters(r.DistanceMeters)
			if out.LongestActivity == nil || dist > out.LongestActivity.Value {
				out.LongestActivity = newRecord(RecordLongestActivity, dist, r, unit)
			}
		}
		if r.ElevationGainMeters > 0 {
			if out.PeakElevation == nil || r.ElevationGainMeters > out.PeakElevation.Value {
				out.PeakElevation = newRecord(RecordPeakElevation, r.ElevationGainMeters, r, unit)
			}
		}
	}
	return out
}

func newRecord(category string, value float64, r ActivityRecord, unit Unit) *PersonalRecord {
	return &PersonalRecord{Category: category, Value: value, Activity: refOf(r, unit)}
}

func sortedByStart(records []ActivityRecord) []ActivityRecord {
	ordered := make([]ActivityRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].StartTimestamp.Equal(ordered[j].StartTimestamp) {
			return ordered[i].StartTimestamp.Before(ordered[j].StartTimestamp)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// DistanceBin counts activities with Min <= distance < Max. Max is zero for the open final bin.
type DistanceBin struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max,omitempty"`
	Count int     `json:"count"`
}

// DistanceHistogram bins distances into 0-1, 1-2, ... 9-10 and 10+ units
func DistanceHistogram(records []ActivityRecord, unit Unit) []DistanceBin {
	bins := make([]DistanceBin, distanceHistogramBins+1)
	for i := 0; i < distanceHistogramBins; i++ {
		bins[i] = DistanceBin{
			Label: fmt.Sprintf("%d-%d", i, i+1),
			Min:   float64(i),
			Max:   float64(i + 1),
		}
	}
	bins[distanceHistogramBins] = DistanceBin{
		Label: fmt.Sprintf("%d+", distanceHistogramBins),
		Min:   distanceHistogramOpenAt,
	}

	for _, r := range records {
		d := unit.FromMeters(r.DistanceMeters)
		i := int(d)
		if d >= distanceHistogramOpenAt || i >= distanceHistogramBins {
			i = distanceHistogramBins
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins
}

// TypeCount is the number of activities of one normalized type
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TypeDuration is the total moving time of one normalized type
type TypeDuration struct {
	Type              string  `json:"type"`
	MovingTimeSeconds int64   `json:"moving_time_seconds"`
	Hours             float64 `json:"hours"`
}

// TypeHistogram counts activities per normalized type, most frequent first
func TypeHistogram(records []ActivityRecord) []TypeCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Type()]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// DurationByType sums moving time per normalized type, longest first
func DurationByType(records []ActivityRecord) []TypeDuration {
	totals := make(map[string]int64)
	for _, r := range records {
		totals[r.Type()] += r.MovingTimeSeconds
	}
	out := make([]TypeDuration, 0, len(totals))
	for t, secs := range totals {
		out = append(out, TypeDuration{Type: t, MovingTimeSeconds: secs, Hours: float64(secs) / 3600})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MovingTimeSeconds != out[j].MovingTimeSeconds {
			return out[i].MovingTimeSeconds > out[j].MovingTimeSeconds
		}
		return out[i].Type < out[j].Type
	})
	return out
}
