package analytics

import "errors"

const noDataMessage = "No activities found in the specified date range."

// Options configures a Builder
type Options struct {
	Unit                    Unit
	Range                   *DateRange
	Milestones              []int
	ReferenceDistanceMeters float64
	MaxIndexDays            int
	IncludeTrends           bool
}

// DefaultOptions returns miles, the default milestones, a 10K reference and trends enabled
func DefaultOptions() Options {
	return Options{
		Unit:                    Miles,
		Milestones:              DefaultMilestones,
		ReferenceDistanceMeters: DefaultReferenceMeters,
		MaxIndexDays:            DefaultMaxIndexDays,
		IncludeTrends:           true,
	}
}

// RunningSummary covers activities that normalize to Run
type RunningSummary struct {
	TotalRuns              int           `json:"total_runs"`
	TotalDistance          float64       `json:"total_distance"`
	AveragePaceSeconds     *float64      `json:"average_pace_seconds"`
	ReferenceDistance      float64       `json:"reference_distance"`
	RunsAtOrAboveReference int           `json:"runs_at_or_above_reference"`
	DistanceHistogram      []DistanceBin `json:"distance_histogram"`
}

// Trends groups the running trend sets
type Trends struct {
	Distance *TrendSet `json:"distance,omitempty"`
	Pace     *TrendSet `json:"pace,omitempty"`
}

// Streaks holds running and any-activity continuity over the same calendar
type Streaks struct {
	Running       *StreakState `json:"running"`
	AllActivities *StreakState `json:"all_activities"`
}

// Summary is the full analytical report over a date range
type Summary struct {
	NoData  bool   `json:"no_data"`
	Message string `json:"message,omitempty"`
	Unit    Unit   `json:"unit"`

	Range          *DateRange `json:"range,omitempty"`
	RangeFormatted string     `json:"range_formatted,omitempty"`

	TotalActivities        int            `json:"total_activities"`
	ActivityTypes          []TypeCount    `json:"activity_types"`
	DurationByType         []TypeDuration `json:"duration_by_type"`
	TotalMovingTimeSeconds int64          `json:"total_moving_time_seconds"`
	TotalElevationMeters   float64        `json:"total_elevation_meters"`
	TotalElevationFeet     float64        `json:"total_elevation_feet"`

	Running     RunningSummary  `json:"running"`
	Records     PersonalRecords `json:"personal_records"`
	Trends      Trends          `json:"trends"`
	Streaks     Streaks         `json:"streaks"`
	Unavailable []Unavailable   `json:"unavailable,omitempty"`
}

// Builder assembles a Summary from activity records
type Builder struct {
	opts    Options
	streaks *StreakAnalyzer
}

// NewBuilder creates a builder, filling zero options with defaults
func NewBuilder(opts Options) *Builder {
	if opts.Unit == "" {
		opts.Unit = Miles
	}
	if opts.ReferenceDistanceMeters <= 0 {
		opts.ReferenceDistanceMeters = DefaultReferenceMeters
	}
	if opts.MaxIndexDays <= 0 {
		opts.MaxIndexDays = DefaultMaxIndexDays
	}
	return &Builder{
		opts:    opts,
		streaks: NewStreakAnalyzer(opts.Milestones...),
	}
}

// Options returns the effective options
func (b *Builder) Options() Options {
	return b.opts
}

// Build computes the summary. A malformed or oversized range is an error; an
// empty record set is a NoData summary.
func (b *Builder) Build(records []ActivityRecord) (*Summary, error) {
	unit := b.opts.Unit
	if b.opts.Range != nil {
		if _, err := NewIndex(*b.opts.Range, b.opts.MaxIndexDays); err != nil {
			return nil, err
		}
		rng := *b.opts.Range
		records = FilterRecords(records, func(r ActivityRecord) bool {
			return rng.Contains(r.Day())
		})
	}

	if len(records) == 0 {
		s := &Summary{NoData: true, Message: noDataMessage, Unit: unit, Range: b.opts.Range}
		if b.opts.Range != nil {
			s.RangeFormatted = b.opts.Range.Formatted()
		}
		return s, nil
	}

	index, err := BuildIndex(records, b.opts.Range, b.opts.MaxIndexDays)
	if err != nil {
		return nil, err
	}
	rng := index.Range()

	s := &Summary{
		Unit:            unit,
		Range:           &rng,
		RangeFormatted:  rng.Formatted(),
		TotalActivities: len(records),
		ActivityTypes:   TypeHistogram(records),
		DurationByType:  DurationByType(records),
	}
	for _, r := range records {
		s.TotalMovingTimeSeconds += r.MovingTimeSeconds
		s.TotalElevationMeters += r.ElevationGainMeters
	}
	s.TotalElevationFeet = s.TotalElevationMeters * feetPerMeter

	runs := FilterRecords(records, ActivityRecord.IsRun)
	s.Running = b.running(runs)
	s.Records = ExtractRecords(runs, unit, b.opts.ReferenceDistanceMeters)
	if len(runs) == 0 {
		s.unavailable("personal_records", "no running activities")
	}

	if b.opts.IncludeTrends {
		b.trends(s, runs, index)
	}

	s.Streaks.Running = b.streak(s, "running_streak", runs, index)
	s.Streaks.AllActivities = b.streak(s, "activity_streak", records, index)

	return s, nil
}

func (b *Builder) running(runs []ActivityRecord) RunningSummary {
	unit := b.opts.Unit
	out := RunningSummary{
		TotalRuns:         len(runs),
		ReferenceDistance: unit.FromMeters(b.opts.ReferenceDistanceMeters),
		DistanceHistogram: DistanceHistogram(runs, unit),
	}
	for _, r := range runs {
		out.TotalDistance += unit.FromMeters(r.DistanceMeters)
		if r.DistanceMeters >= b.opts.ReferenceDistanceMeters {
			out.RunsAtOrAboveReference++
		}
	}
	if pace, ok := AveragePace(runs, unit); ok {
		out.AveragePaceSeconds = &pace
	}
	return out
}

func (b *Builder) trends(s *Summary, runs []ActivityRecord, index CalendarIndex) {
	if len(runs) == 0 {
		s.unavailable("running_trends", "no running activities")
		return
	}
	s.Trends.Distance = NewTrendSet(runs, index, b.opts.Unit, MetricDistance)
	if _, ok := AveragePace(runs, b.opts.Unit); !ok {
		s.unavailable("pace_trends", "no running activity with both distance and moving time")
		return
	}
	s.Trends.Pace = NewTrendSet(runs, index, b.opts.Unit, MetricPace)
}

func (b *Builder) streak(s *Summary, metric string, records []ActivityRecord, index CalendarIndex) *StreakState {
	state, err := b.Streak(records, index)
	if err != nil {
		s.unavailable(metric, err.Error())
		return nil
	}
	return &state
}

// Streak analyzes records on index. A day is active when it has positive
// moving time or positive distance.
func (b *Builder) Streak(records []ActivityRecord, index CalendarIndex) (StreakState, error) {
	duration := AggregateDaily(records, index, DurationMeasure)
	distance := AggregateDaily(records, index, DistanceMeasure(Kilometers))
	flags, err := ActiveFlags(duration, distance)
	if err != nil {
		return StreakState{}, err
	}
	if flags == nil {
		flags = make([]bool, 0)
	}
	return b.streaks.Analyze(index, flags)
}

func (s *Summary) unavailable(metric, reason string) {
	s.Unavailable = append(s.Unavailable, Unavailable{Metric: metric, Reason: reason})
}

// IsRangeError reports whether err came from rejecting the requested range
func IsRangeError(err error) bool {
	return errors.Is(err, ErrMalformedRange) || errors.Is(err, ErrRangeTooLarge)
}
