package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustIndex(t *testing.T, start, end string) CalendarIndex {
	t.Helper()
	idx, err := NewIndex(DateRange{Start: day(t, start), End: day(t, end)}, 0)
	require.NoError(t, err)
	return idx
}

func run(id int64, start string, meters float64, seconds int64) ActivityRecord {
	ts, err := time.Parse("2006-01-02T15:04", start)
	if err != nil {
		panic(err)
	}
	return ActivityRecord{
		ID:                id,
		ActivityType:      TypeRun,
		StartTimestamp:    ts,
		DistanceMeters:    meters,
		MovingTimeSeconds: seconds,
	}
}

func ofType(r ActivityRecord, activityType string) ActivityRecord {
	r.ActivityType = activityType
	return r
}

func flagsOf(bits string) []bool {
	out := make([]bool, len(bits))
	for i, c := range bits {
		out[i] = c == '1'
	}
	return out
}
