package analytics

import (
	"fmt"
	"strings"
)

// Metric is the quantity a trend tracks
type Metric string

const (
	MetricDistance Metric = "distance"
	MetricDuration Metric = "duration"
	MetricPace     Metric = "pace"
)

// ParseMetric accepts distance, duration or pace; empty means distance
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricDistance:
		return MetricDistance, nil
	case MetricDuration:
		return MetricDuration, nil
	case MetricPace:
		return MetricPace, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Trend computes one metric at one granularity over index
func Trend(records []ActivityRecord, index CalendarIndex, unit Unit, metric Metric, g Granularity) TrendSeries {
	switch metric {
	case MetricPace:
		return PeriodPace(records, index, unit, g)
	case MetricDuration:
		return Aggregate(AggregateDaily(records, index, DurationMeasure), g)
	default:
		return Aggregate(AggregateDaily(records, index, DistanceMeasure(unit)), g)
	}
}

// TrendSet is a metric at all three granularities
type TrendSet struct {
	Daily   TrendSeries `json:"daily"`
	Weekly  TrendSeries `json:"weekly"`
	Monthly TrendSeries `json:"monthly"`
}

// NewTrendSet computes daily, weekly and monthly series for metric
func NewTrendSet(records []ActivityRecord, index CalendarIndex, unit Unit, metric Metric) *TrendSet {
	if metric == MetricPace {
		return &TrendSet{
			Daily:   PeriodPace(records, index, unit, Daily),
			Weekly:  PeriodPace(records, index, unit, Weekly),
			Monthly: PeriodPace(records, index, unit, Monthly),
		}
	}
	measure := DurationMeasure
	if metric == MetricDistance {
		measure = DistanceMeasure(unit)
	}
	daily := AggregateDaily(records, index, measure)
	return &TrendSet{
		Daily:   daily.Points(),
		Weekly:  AggregateWeekly(daily),
		Monthly: AggregateMonthly(daily),
	}
}
