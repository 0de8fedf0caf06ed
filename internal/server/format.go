package server

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/joshdurbin/strava-trends/internal/analytics"
)

// formatDistance renders a distance already expressed in unit, e.g. "1,204.5 mi"
func formatDistance(value float64, unit analytics.Unit) string {
	return fmt.Sprintf("%s %s", humanize.CommafWithDigits(value, 2), unit)
}

// formatDuration converts seconds to human-readable format
func formatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%sh %dm", humanize.Comma(hours), minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// formatPace renders seconds per unit as m:ss/unit
func formatPace(secondsPerUnit float64, unit analytics.Unit) string {
	if secondsPerUnit <= 0 || math.IsInf(secondsPerUnit, 0) || math.IsNaN(secondsPerUnit) {
		return ""
	}
	total := int64(math.Round(secondsPerUnit))
	return fmt.Sprintf("%d:%02d/%s", total/60, total%60, unit)
}

// formatElevation renders meters with thousands separators
func formatElevation(meters float64) string {
	return humanize.Comma(int64(math.Round(meters))) + " m"
}

// formatDays renders a day count, e.g. "1 day", "1,200 days"
func formatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return humanize.Comma(int64(n)) + " days"
}

// formatMetric renders a trend value for metric
func formatMetric(value float64, metric analytics.Metric, unit analytics.Unit) string {
	switch metric {
	case analytics.MetricPace:
		return formatPace(value, unit)
	case analytics.MetricDuration:
		return formatDuration(int64(math.Round(value)))
	default:
		return formatDistance(value, unit)
	}
}
