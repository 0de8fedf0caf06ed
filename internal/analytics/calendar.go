package analytics

import "fmt"

// DefaultMaxIndexDays caps calendar length at roughly a century
const DefaultMaxIndexDays = 36525

// CalendarIndex is a contiguous ascending run of calendar days
type CalendarIndex struct {
	rng  DateRange
	days []Date
}

// NewIndex materializes every day of rng. maxDays <= 0 uses DefaultMaxIndexDays.
func NewIndex(rng DateRange, maxDays int) (CalendarIndex, error) {
	if err := rng.Validate(); err != nil {
		return CalendarIndex{}, err
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxIndexDays
	}
	n := rng.Days()
	if n > maxDays {
		return CalendarIndex{}, fmt.Errorf("%w: %d days exceeds limit of %d", ErrRangeTooLarge, n, maxDays)
	}

	days := make([]Date, n)
	for i := range days {
		days[i] = rng.Start.AddDays(i)
	}
	return CalendarIndex{rng: rng, days: days}, nil
}

// BuildIndex returns the calendar for records. An explicit override is used
// verbatim; otherwise the range spans the first through last record day.
func BuildIndex(records []ActivityRecord, override *DateRange, maxDays int) (CalendarIndex, error) {
	if override != nil {
		return NewIndex(*override, maxDays)
	}
	rng, ok := RecordRange(records)
	if !ok {
		return CalendarIndex{}, ErrEmptyInput
	}
	return NewIndex(rng, maxDays)
}

// RecordRange returns the span of days covered by records
func RecordRange(records []ActivityRecord) (DateRange, bool) {
	if len(records) == 0 {
		return DateRange{}, false
	}
	first := records[0].Day()
	rng := DateRange{Start: first, End: first}
	for _, r := range records[1:] {
		day := r.Day()
		if day.Before(rng.Start) {
			rng.Start = day
		}
		if day.After(rng.End) {
			rng.End = day
		}
	}
	return rng, true
}

// Len returns the number of days in the index
func (c CalendarIndex) Len() int {
	return len(c.days)
}

// IsEmpty reports whether the index has no days
func (c CalendarIndex) IsEmpty() bool {
	return len(c.days) == 0
}

// Range returns the inclusive span of the index
func (c CalendarIndex) Range() DateRange {
	return c.rng
}

// Days returns a copy of the indexed days
func (c CalendarIndex) Days() []Date {
	out := make([]Date, len(c.days))
	copy(out, c.days)
	return out
}

// Day returns the day at position i
func (c CalendarIndex) Day(i int) Date {
	return c.days[i]
}

// Last returns the final day of the index
func (c CalendarIndex) Last() Date {
	return c.days[len(c.days)-1]
}

// Position returns the offset of day in the index
func (c CalendarIndex) Position(day Date) (int, bool) {
	if c.IsEmpty() || !c.rng.Contains(day) {
		return 0, false
	}
	return c.rng.Start.DaysUntil(day), true
}
