package analytics

import (
	"fmt"
	"sort"
)

// DefaultMilestones are the streak lengths projected as motivational targets
var DefaultMilestones = []int{7, 14, 30, 60, 100, 150, 200, 365}

// GapSpan is a maximal run of inactive days. Open marks a gap that is still
// running on the last day of the index.
type GapSpan struct {
	Start      Date `json:"start"`
	End        Date `json:"end"`
	LengthDays int  `json:"length_days"`
	Open       bool `json:"open,omitempty"`
}

// StreakState summarizes continuity over an active-day series
type StreakState struct {
	CurrentStreakDays    int       `json:"current_streak_days"`
	LongestStreakDays    int       `json:"longest_streak_days"`
	ActiveDays           int       `json:"active_days"`
	TotalDays            int       `json:"total_days"`
	LastActiveDate       *Date     `json:"last_active_date"`
	DaysSinceLastActive  *int      `json:"days_since_last_active"`
	GapSpans             []GapSpan `json:"gap_spans"`
	LongestGapDays       int       `json:"longest_gap_days"`
	NextMilestone        *int      `json:"next_milestone,omitempty"`
	DaysToNextMilestone  *int      `json:"days_to_next_milestone,omitempty"`
	ETANextMilestoneDate *Date     `json:"eta_next_milestone_date,omitempty"`
}

// StreakAnalyzer derives StreakState from active-day flags
type StreakAnalyzer struct {
	milestones []int
}

// NewStreakAnalyzer creates an analyzer over the given milestone thresholds.
// Non-positive and duplicate thresholds are dropped; none means DefaultMilestones.
func NewStreakAnalyzer(milestones ...int) *StreakAnalyzer {
	seen := make(map[int]bool)
	clean := make([]int, 0, len(milestones))
	for _, m := range milestones {
		if m <= 0 || seen[m] {
			continue
		}
		seen[m] = true
		clean = append(clean, m)
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultMilestones...)
	}
	sort.Ints(clean)
	return &StreakAnalyzer{milestones: clean}
}

// Milestones returns the ascending thresholds in use
func (a *StreakAnalyzer) Milestones() []int {
	out := make([]int, len(a.milestones))
	copy(out, a.milestones)
	return out
}

// Analyze computes streaks and gaps. flags[i] tells whether index.Day(i) was active.
func (a *StreakAnalyzer) Analyze(index CalendarIndex, flags []bool) (StreakState, error) {
	if len(flags) != index.Len() {
		return StreakState{}, fmt.Errorf("%w: %d flags for %d days", ErrSeriesMismatch, len(flags), index.Len())
	}

	state := StreakState{
		TotalDays: index.Len(),
		GapSpans:  make([]GapSpan, 0),
	}
	if index.IsEmpty() {
		return state, nil
	}

	// Current streak: walk back from the last day
	for i := len(flags) - 1; i >= 0 && flags[i]; i-- {
		state.CurrentStreakDays++
	}

	// Longest streak, active-day count and gaps in one forward pass
	run := 0
	gapStart := -1
	lastActive := -1
	for i, active := range flags {
		if active {
			run++
			if run > state.LongestStreakDays {
				state.LongestStreakDays = run
			}
			state.ActiveDays++
			lastActive = i
			if gapStart >= 0 {
				state.GapSpans = append(state.GapSpans, newGap(index, gapStart, i-1, false))
				gapStart = -1
			}
			continue
		}
		run = 0
		if gapStart < 0 {
			gapStart = i
		}
	}
	if gapStart >= 0 {
		state.GapSpans = append(state.GapSpans, newGap(index, gapStart, len(flags)-1, true))
	}
	for _, g := range state.GapSpans {
		if g.LengthDays > state.LongestGapDays {
			state.LongestGapDays = g.LengthDays
		}
	}

	if lastActive >= 0 {
		day := index.Day(lastActive)
		since := day.DaysUntil(index.Last())
		state.LastActiveDate = &day
		state.DaysSinceLastActive = &since
	}

	if next, ok := a.nextMilestone(state.CurrentStreakDays); ok {
		remaining := next - state.CurrentStreakDays
		eta := index.Last().AddDays(remaining)
		state.NextMilestone = &next
		state.DaysToNextMilestone = &remaining
		state.ETANextMilestoneDate = &eta
	}

	return state, nil
}

// nextMilestone returns the smallest threshold strictly above streak
func (a *StreakAnalyzer) nextMilestone(streak int) (int, bool) {
	i := sort.SearchInts(a.milestones, streak+1)
	if i >= len(a.milestones) {
		return 0, false
	}
	return a.milestones[i], true
}

func newGap(index CalendarIndex, from, to int, open bool) GapSpan {
	return GapSpan{
		Start:      index.Day(from),
		End:        index.Day(to),
		LengthDays: to - from + 1,
		Open:       open,
	}
}
