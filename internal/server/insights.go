package server

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/joshdurbin/strava-trends/internal/analytics"
)

// Insight represents a single AI-friendly insight about the data
type Insight struct {
	Type    string `json:"type"`    // e.g., "trend", "achievement", "warning", "suggestion"
	Message string `json:"message"` // Human-readable insight
}

// SuggestedAction represents a suggested next tool call
type SuggestedAction struct {
	Tool        string `json:"tool"`        // Tool name to call
	Description string `json:"description"` // Why this action is suggested
	Priority    string `json:"priority"`    // "high", "medium", "low"
}

// InsightGenerator provides methods for generating insights from data
type InsightGenerator struct{}

// NewInsightGenerator creates a new insight generator
func NewInsightGenerator() *InsightGenerator {
	return &InsightGenerator{}
}

// GenerateProgressInsights compares a current value against a previous one
func (g *InsightGenerator) GenerateProgressInsights(
	currentValue, previousValue float64,
	metric string,
	higherIsBetter bool,
) []Insight {
	var insights []Insight

	if previousValue == 0 {
		return insights
	}

	changePercent := ((currentValue - previousValue) / previousValue) * 100
	improving := (higherIsBetter && changePercent > 0) || (!higherIsBetter && changePercent < 0)

	absChange := math.Abs(changePercent)

	if absChange < 5 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Your %s is stable (%.1f%% change)", metric, changePercent),
		})
	} else if improving {
		intensity := "improving"
		if absChange > 20 {
			intensity = "significantly improving"
		}
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% better)", metric, intensity, absChange),
		})
	} else {
		intensity := "declining"
		if absChange > 20 {
			intensity = "significantly declining"
		}
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% worse)", metric, intensity, absChange),
		})
	}

	return insights
}

// GenerateStreakInsights describes a streak state. label names the kind of
// activity, e.g. "running" or "activity".
func (g *InsightGenerator) GenerateStreakInsights(s *analytics.StreakState, label string) []Insight {
	var insights []Insight
	if s == nil || s.TotalDays == 0 {
		return insights
	}

	switch {
	case s.CurrentStreakDays > 0 && s.CurrentStreakDays == s.LongestStreakDays:
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Your current %s streak of %s is your longest in this period", label, formatDays(s.CurrentStreakDays)),
		})
	case s.CurrentStreakDays > 0:
		insights = append(insights, Insight{
			Type: "trend",
			Message: fmt.Sprintf("Current %s streak: %s (longest: %s)",
				label, formatDays(s.CurrentStreakDays), formatDays(s.LongestStreakDays)),
		})
	case s.DaysSinceLastActive != nil:
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: fmt.Sprintf("No %s for %s. Tomorrow could start a new streak", label, formatDays(*s.DaysSinceLastActive)),
		})
	}

	if s.NextMilestone != nil && s.DaysToNextMilestone != nil && s.CurrentStreakDays > 0 {
		insights = append(insights, Insight{
			Type: "suggestion",
			Message: fmt.Sprintf("%s to go until a %s streak. Tomorrow would be your %s consecutive day",
				formatDays(*s.DaysToNextMilestone), formatDays(*s.NextMilestone), humanize.Ordinal(s.CurrentStreakDays+1)),
		})
	}

	if s.TotalDays >= 14 {
		consistency := float64(s.ActiveDays) / float64(s.TotalDays) * 100
		switch {
		case consistency >= 70:
			insights = append(insights, Insight{
				Type:    "achievement",
				Message: fmt.Sprintf("Very consistent: active on %.0f%% of days", consistency),
			})
		case consistency < 30:
			insights = append(insights, Insight{
				Type:    "suggestion",
				Message: fmt.Sprintf("Active on %.0f%% of days. Shorter, more frequent sessions build consistency", consistency),
			})
		}
	}

	if s.LongestGapDays >= 14 {
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Longest break in this period was %s", formatDays(s.LongestGapDays)),
		})
	}

	return insights
}

// GenerateTrendInsights compares the last two periods of a series
func (g *InsightGenerator) GenerateTrendInsights(series analytics.TrendSeries, metric analytics.Metric, granularity analytics.Granularity) []Insight {
	if len(series) < 2 {
		return []Insight{}
	}
	last := series[len(series)-1]
	prev := series[len(series)-2]

	period := map[analytics.Granularity]string{
		analytics.Daily:   "daily",
		analytics.Weekly:  "weekly",
		analytics.Monthly: "monthly",
	}[granularity]

	// Lower pace is faster
	higherIsBetter := metric != analytics.MetricPace
	insights := g.GenerateProgressInsights(last.Value, prev.Value, period+" "+string(metric), higherIsBetter)

	if metric != analytics.MetricPace && len(series) >= 3 {
		best := series[0]
		for _, p := range series[1:] {
			if p.Value > best.Value {
				best = p
			}
		}
		if best.Start.Equal(last.Start) && best.Value > 0 {
			insights = append(insights, Insight{
				Type:    "achievement",
				Message: fmt.Sprintf("%s is your biggest %s period for %s", last.Label, period, metric),
			})
		}
	}
	return insights
}

// GenerateRecordInsights highlights records set recently relative to asOf
func (g *InsightGenerator) GenerateRecordInsights(prs analytics.PersonalRecords, asOf analytics.Date) []Insight {
	var insights []Insight
	for _, pr := range []*analytics.PersonalRecord{prs.BestPace, prs.FastestReferenceDistance, prs.LongestActivity, prs.PeakElevation} {
		if pr == nil {
			continue
		}
		age := pr.Activity.Date.DaysUntil(asOf)
		if age >= 0 && age <= 30 {
			insights = append(insights, Insight{
				Type:    "achievement",
				Message: fmt.Sprintf("New %s set %s ago", humanCategory(pr.Category), formatDays(age)),
			})
		}
	}
	return insights
}

func humanCategory(category string) string {
	switch category {
	case analytics.RecordBestPace:
		return "best pace"
	case analytics.RecordFastestReference:
		return "fastest reference-distance run"
	case analytics.RecordLongestActivity:
		return "longest run"
	case analytics.RecordPeakElevation:
		return "biggest climb"
	}
	return category
}

// SuggestNextActions suggests logical next tool calls based on context
func SuggestNextActions(context string) []SuggestedAction {
	suggestions := make([]SuggestedAction, 0)

	switch context {
	case "summary":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_trends",
				Description: "Drill into a single metric at daily, weekly or monthly granularity",
				Priority:    "high",
			},
			SuggestedAction{
				Tool:        "get_streaks",
				Description: "See streaks, gaps and the next milestone",
				Priority:    "medium",
			},
		)
	case "streaks":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_trends",
				Description: "Check whether volume is rising alongside consistency",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "analyze_activities",
				Description: "Get the full report for the same period",
				Priority:    "low",
			},
		)
	case "trends":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_personal_records",
				Description: "See whether the trend produced new bests",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_streaks",
				Description: "Relate the trend to training consistency",
				Priority:    "low",
			},
		)
	case "records":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_trends",
				Description: "See if pace is trending toward a new PR",
				Priority:    "high",
			},
		)
	}

	return suggestions
}
