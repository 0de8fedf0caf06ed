package analytics

import (
	"fmt"
	"strings"
)

// Granularity is the bucket size of a trend series
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity accepts daily, weekly or monthly; empty means weekly
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", Weekly:
		return Weekly, nil
	case Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// periodStart returns the first day of the period containing day
func (g Granularity) periodStart(day Date) Date {
	switch g {
	case Weekly:
		return day.WeekStart()
	case Monthly:
		return day.MonthStart()
	default:
		return day
	}
}

// periodEnd returns the last day of the period starting at start
func (g Granularity) periodEnd(start Date) Date {
	switch g {
	case Weekly:
		return start.AddDays(6)
	case Monthly:
		return NewDate(start.Year(), start.Month()+1, 1).AddDays(-1)
	default:
		return start
	}
}

func (g Granularity) label(start Date) string {
	switch g {
	case Weekly:
		return start.Format("Jan 02")
	case Monthly:
		return start.Format("Jan 2006")
	default:
		return start.String()
	}
}

func (g Granularity) newPoint(start Date) TrendPoint {
	p := TrendPoint{
		Label: g.label(start),
		Start: start,
		End:   g.periodEnd(start),
	}
	if g == Weekly {
		_, p.ISOWeek = start.ISOWeek()
	}
	return p
}

// TrendPoint is one period of a trend series
type TrendPoint struct {
	Label   string  `json:"label"`
	Start   Date    `json:"start"`
	End     Date    `json:"end"`
	ISOWeek int     `json:"iso_week,omitempty"`
	Value   float64 `json:"value"`
	Count   int     `json:"count,omitempty"`
}

// TrendSeries is an ordered sequence of period values
type TrendSeries []TrendPoint

// Sum returns the total of all point values
func (s TrendSeries) Sum() float64 {
	var total float64
	for _, p := range s {
		total += p.Value
	}
	return total
}

// DailySeries holds one value per day of its index, zero when nothing happened
type DailySeries struct {
	Index  CalendarIndex
	Values []float64
}

// Sum returns the total of all daily values
func (s DailySeries) Sum() float64 {
	var total float64
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Value returns the value recorded for day
func (s DailySeries) Value(day Date) (float64, bool) {
	i, ok := s.Index.Position(day)
	if !ok {
		return 0, false
	}
	return s.Values[i], true
}

// Points returns the daily trend with every indexed day present
func (s DailySeries) Points() TrendSeries {
	out := make(TrendSeries, len(s.Values))
	for i, v := range s.Values {
		p := Daily.newPoint(s.Index.Day(i))
		p.Value = v
		out[i] = p
	}
	return out
}

// AggregateDaily sums measure per indexed day. Records outside the index are ignored.
func AggregateDaily(records []ActivityRecord, index CalendarIndex, measure Measure) DailySeries {
	values := make([]float64, index.Len())
	for _, r := range records {
		i, ok := index.Position(r.Day())
		if !ok {
			continue
		}
		values[i] += measure(r)
	}
	return DailySeries{Index: index, Values: values}
}

// AggregateWeekly re-buckets daily values into Monday-aligned weeks, dropping empty weeks
func AggregateWeekly(daily DailySeries) TrendSeries {
	return rebucket(daily, Weekly)
}

// AggregateMonthly re-buckets daily values into calendar months, dropping empty months
func AggregateMonthly(daily DailySeries) TrendSeries {
	return rebucket(daily, Monthly)
}

// Aggregate returns the series at granularity g
func Aggregate(daily DailySeries, g Granularity) TrendSeries {
	if g == Daily {
		return daily.Points()
	}
	return rebucket(daily, g)
}

func rebucket(daily DailySeries, g Granularity) TrendSeries {
	out := make(TrendSeries, 0)
	var current *TrendPoint
	for i, v := range daily.Values {
		start := g.periodStart(daily.Index.Day(i))
		if current == nil || !current.Start.Equal(start) {
			if current != nil && current.Value != 0 {
				out = append(out, *current)
			}
			p := g.newPoint(start)
			current = &p
		}
		current.Value += v
	}
	if current != nil && current.Value != 0 {
		out = append(out, *current)
	}
	return out
}

// ActiveFlags projects daily series onto active-day flags. A day is active
// when any of the series is strictly positive on it.
func ActiveFlags(series ...DailySeries) ([]bool, error) {
	if len(series) == 0 {
		return nil, nil
	}
	n := len(series[0].Values)
	flags := make([]bool, n)
	for _, s := range series {
		if len(s.Values) != n {
			return nil, fmt.Errorf("%w: %d values, want %d", ErrSeriesMismatch, len(s.Values), n)
		}
		for i, v := range s.Values {
			if v > 0 {
				flags[i] = true
			}
		}
	}
	return flags, nil
}
