package server

import (
	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/db"
)

// Tool outputs use plain strings for calendar days so the inferred JSON
// schemas stay flat.

// RangeView is the analysed window
type RangeView struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Days      int    `json:"days"`
	Formatted string `json:"formatted"`
}

// GapView is one run of inactive days
type GapView struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	LengthDays int    `json:"length_days"`
	Open       bool   `json:"open,omitempty"`
}

// StreakView is a streak state with formatted dates
type StreakView struct {
	CurrentStreakDays   int       `json:"current_streak_days"`
	LongestStreakDays   int       `json:"longest_streak_days"`
	ActiveDays          int       `json:"active_days"`
	TotalDays           int       `json:"total_days"`
	LastActiveDate      string    `json:"last_active_date,omitempty"`
	DaysSinceLastActive *int      `json:"days_since_last_active,omitempty"`
	LongestGapDays      int       `json:"longest_gap_days"`
	Gaps                []GapView `json:"gaps"`
	NextMilestone       *int      `json:"next_milestone,omitempty"`
	DaysToNextMilestone *int      `json:"days_to_next_milestone,omitempty"`
	NextMilestoneDate   string    `json:"next_milestone_date,omitempty"`
}

// TrendPointView is one period of a trend series
type TrendPointView struct {
	Label     string  `json:"label"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	ISOWeek   int     `json:"iso_week,omitempty"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Count     int     `json:"count,omitempty"`
}

// RecordView is a personal record with the activity behind it
type RecordView struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Formatted  string  `json:"formatted"`
	ActivityID int64   `json:"activity_id"`
	Date       string  `json:"date"`
	Type       string  `json:"type"`
	Distance   string  `json:"distance,omitempty"`
	Duration   string  `json:"duration,omitempty"`
}

// RunningView summarizes running activities
type RunningView struct {
	TotalRuns              int                     `json:"total_runs"`
	TotalDistance          string                  `json:"total_distance"`
	AveragePace            string                  `json:"average_pace,omitempty"`
	AveragePaceSeconds     *float64                `json:"average_pace_seconds,omitempty"`
	ReferenceDistance      string                  `json:"reference_distance"`
	RunsAtOrAboveReference int                     `json:"runs_at_or_above_reference"`
	DistanceHistogram      []analytics.DistanceBin `json:"distance_histogram"`
}

// SummaryView is the full analysis report
type SummaryView struct {
	NoData  bool       `json:"no_data,omitempty"`
	Message string     `json:"message,omitempty"`
	Unit    string     `json:"unit"`
	Range   *RangeView `json:"range,omitempty"`

	TotalActivities  int                      `json:"total_activities"`
	ActivityTypes    []analytics.TypeCount    `json:"activity_types,omitempty"`
	DurationByType   []analytics.TypeDuration `json:"duration_by_type,omitempty"`
	TotalMovingTime  string                   `json:"total_moving_time,omitempty"`
	TotalElevation   string                   `json:"total_elevation,omitempty"`
	TotalElevationFt float64                  `json:"total_elevation_feet,omitempty"`

	Running         *RunningView     `json:"running,omitempty"`
	Records         []RecordView     `json:"personal_records,omitempty"`
	WeeklyDistance  []TrendPointView `json:"weekly_distance,omitempty"`
	MonthlyDistance []TrendPointView `json:"monthly_distance,omitempty"`
	WeeklyPace      []TrendPointView `json:"weekly_pace,omitempty"`
	MonthlyPace     []TrendPointView `json:"monthly_pace,omitempty"`
	RunningStreak   *StreakView      `json:"running_streak,omitempty"`
	ActivityStreak  *StreakView      `json:"activity_streak,omitempty"`

	Unavailable []analytics.Unavailable `json:"unavailable,omitempty"`
}

func rangeView(r *analytics.DateRange) *RangeView {
	if r == nil {
		return nil
	}
	return &RangeView{
		Start:     r.Start.String(),
		End:       r.End.String(),
		Days:      r.Days(),
		Formatted: r.Formatted(),
	}
}

func streakView(s *analytics.StreakState) *StreakView {
	if s == nil {
		return nil
	}
	v := &StreakView{
		CurrentStreakDays:   s.CurrentStreakDays,
		LongestStreakDays:   s.LongestStreakDays,
		ActiveDays:          s.ActiveDays,
		TotalDays:           s.TotalDays,
		DaysSinceLastActive: s.DaysSinceLastActive,
		LongestGapDays:      s.LongestGapDays,
		Gaps:                make([]GapView, len(s.GapSpans)),
		NextMilestone:       s.NextMilestone,
		DaysToNextMilestone: s.DaysToNextMilestone,
	}
	if s.LastActiveDate != nil {
		v.LastActiveDate = s.LastActiveDate.String()
	}
	if s.ETANextMilestoneDate != nil {
		v.NextMilestoneDate = s.ETANextMilestoneDate.String()
	}
	for i, g := range s.GapSpans {
		v.Gaps[i] = GapView{Start: g.Start.String(), End: g.End.String(), LengthDays: g.LengthDays, Open: g.Open}
	}
	return v
}

func trendView(series analytics.TrendSeries, metric analytics.Metric, unit analytics.Unit) []TrendPointView {
	out := make([]TrendPointView, len(series))
	for i, p := range series {
		out[i] = TrendPointView{
			Label:     p.Label,
			Start:     p.Start.String(),
			End:       p.End.String(),
			ISOWeek:   p.ISOWeek,
			Value:     p.Value,
			Formatted: formatMetric(p.Value, metric, unit),
			Count:     p.Count,
		}
	}
	return out
}

func recordViews(prs analytics.PersonalRecords, unit analytics.Unit) []RecordView {
	out := make([]RecordView, 0, 4)
	add := func(pr *analytics.PersonalRecord, formatted string) {
		if pr == nil {
			return
		}
		v := RecordView{
			Category:   pr.Category,
			Value:      pr.Value,
			Formatted:  formatted,
			ActivityID: pr.Activity.ID,
			Date:       pr.Activity.Date.String(),
			Type:       pr.Activity.Type,
		}
		if pr.Activity.Distance > 0 {
			v.Distance = formatDistance(pr.Activity.Distance, unit)
		}
		if pr.Activity.MovingTimeSeconds > 0 {
			v.Duration = formatDuration(pr.Activity.MovingTimeSeconds)
		}
		out = append(out, v)
	}
	if pr := prs.BestPace; pr != nil {
		add(pr, formatPace(pr.Value, unit))
	}
	if pr := prs.FastestReferenceDistance; pr != nil {
		add(pr, formatDuration(int64(pr.Value)))
	}
	if pr := prs.LongestActivity; pr != nil {
		add(pr, formatDistance(pr.Value, unit))
	}
	if pr := prs.PeakElevation; pr != nil {
		add(pr, formatElevation(pr.Value))
	}
	return out
}

func summaryView(s *analytics.Summary) SummaryView {
	unit := s.Unit
	v := SummaryView{
		NoData:          s.NoData,
		Message:         s.Message,
		Unit:            string(unit),
		Range:           rangeView(s.Range),
		TotalActivities: s.TotalActivities,
		Unavailable:     s.Unavailable,
	}
	if s.NoData {
		return v
	}

	v.ActivityTypes = s.ActivityTypes
	v.DurationByType = s.DurationByType
	v.TotalMovingTime = formatDuration(s.TotalMovingTimeSeconds)
	v.TotalElevation = formatElevation(s.TotalElevationMeters)
	v.TotalElevationFt = s.TotalElevationFeet

	run := s.Running
	v.Running = &RunningView{
		TotalRuns:              run.TotalRuns,
		TotalDistance:          formatDistance(run.TotalDistance, unit),
		AveragePaceSeconds:     run.AveragePaceSeconds,
		ReferenceDistance:      formatDistance(run.ReferenceDistance, unit),
		RunsAtOrAboveReference: run.RunsAtOrAboveReference,
		DistanceHistogram:      run.DistanceHistogram,
	}
	if run.AveragePaceSeconds != nil {
		v.Running.AveragePace = formatPace(*run.AveragePaceSeconds, unit)
	}

	v.Records = recordViews(s.Records, unit)
	if t := s.Trends.Distance; t != nil {
		v.WeeklyDistance = trendView(t.Weekly, analytics.MetricDistance, unit)
		v.MonthlyDistance = trendView(t.Monthly, analytics.MetricDistance, unit)
	}
	if t := s.Trends.Pace; t != nil {
		v.WeeklyPace = trendView(t.Weekly, analytics.MetricPace, unit)
		v.MonthlyPace = trendView(t.Monthly, analytics.MetricPace, unit)
	}
	v.RunningStreak = streakView(s.Streaks.Running)
	v.ActivityStreak = streakView(s.Streaks.AllActivities)
	return v
}

// ActivityView is a stored activity after conversion to an analysis record
type ActivityView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsRun         bool   `json:"is_run"`
	Date          string `json:"date"`
	Distance      string `json:"distance,omitempty"`
	MovingTime    string `json:"moving_time,omitempty"`
	Pace          string `json:"pace,omitempty"`
	ElevationGain string `json:"elevation_gain,omitempty"`
}

func activityView(a db.Activity, unit analytics.Unit) ActivityView {
	r := ToRecord(a)
	v := ActivityView{
		ID:    r.ID,
		Name:  a.Name,
		Type:  r.Type(),
		IsRun: r.IsRun(),
	}
	if !r.StartTimestamp.IsZero() {
		v.Date = r.Day().String()
	}
	if r.DistanceMeters > 0 {
		v.Distance = formatDistance(unit.FromMeters(r.DistanceMeters), unit)
	}
	if r.MovingTimeSeconds > 0 {
		v.MovingTime = formatDuration(r.MovingTimeSeconds)
	}
	if pace, ok := analytics.PerActivityPace(r, unit); ok {
		v.Pace = formatPace(pace, unit)
	}
	if r.ElevationGainMeters > 0 {
		v.ElevationGain = formatElevation(r.ElevationGainMeters)
	}
	return v
}
