package analytics

// PerActivityPace returns moving seconds per unit of distance. The pace is
// undefined, and ok is false, unless both distance and moving time are positive.
func PerActivityPace(r ActivityRecord, unit Unit) (pace float64, ok bool) {
	distance := unit.FromMeters(r.DistanceMeters)
	if distance <= 0 || r.MovingTimeSeconds <= 0 {
		return 0, false
	}
	return float64(r.MovingTimeSeconds) / distance, true
}

// PaceSeries is the daily mean pace with the number of valid paces behind each day.
// A zero value with a zero count means no qualifying activity, never a fast day.
type PaceSeries struct {
	DailySeries
	Counts []int
}

// Points returns the daily trend including the zero sentinel days
func (s PaceSeries) Points() TrendSeries {
	out := s.DailySeries.Points()
	for i := range out {
		out[i].Count = s.Counts[i]
	}
	return out
}

// DailyPace averages per-activity paces per indexed day. Invalid paces are
// excluded from the mean rather than counted as zero.
func DailyPace(records []ActivityRecord, index CalendarIndex, unit Unit) PaceSeries {
	sums := make([]float64, index.Len())
	counts := make([]int, index.Len())
	for _, r := range records {
		i, ok := index.Position(r.Day())
		if !ok {
			continue
		}
		pace, ok := PerActivityPace(r, unit)
		if !ok {
			continue
		}
		sums[i] += pace
		counts[i]++
	}

	values := make([]float64, index.Len())
	for i := range values {
		if counts[i] > 0 {
			values[i] = sums[i] / float64(counts[i])
		}
	}
	return PaceSeries{
		DailySeries: DailySeries{Index: index, Values: values},
		Counts:      counts,
	}
}

// PeriodPace returns the mean per-activity pace per period. Weekly and monthly
// output omits periods without a valid pace; daily output keeps every day.
func PeriodPace(records []ActivityRecord, index CalendarIndex, unit Unit, g Granularity) TrendSeries {
	if g == Daily {
		return DailyPace(records, index, unit).Points()
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*bucket)
	for _, r := range records {
		day := r.Day()
		if _, ok := index.Position(day); !ok {
			continue
		}
		pace, ok := PerActivityPace(r, unit)
		if !ok {
			continue
		}
		start := g.periodStart(day)
		b, exists := buckets[start.Unix()]
		if !exists {
			b = &bucket{}
			buckets[start.Unix()] = b
		}
		b.sum += pace
		b.count++
	}

	out := make(TrendSeries, 0, len(buckets))
	if index.IsEmpty() {
		return out
	}
	last := g.periodStart(index.Last())
	for start := g.periodStart(index.Range().Start); !start.After(last); start = g.periodEnd(start).AddDays(1) {
		b, ok := buckets[start.Unix()]
		if !ok || b.count == 0 {
			continue
		}
		mean := b.sum / float64(b.count)
		if mean == 0 {
			continue
		}
		p := g.newPoint(start)
		p.Value = mean
		p.Count = b.count
		out = append(out, p)
	}
	return out
}

// AveragePace returns total moving time over total distance for records with
// a valid pace. This is the distance-weighted headline figure, not a mean of paces.
func AveragePace(records []ActivityRecord, unit Unit) (float64, bool) {
	var seconds, distance float64
	for _, r := range records {
		if _, ok := PerActivityPace(r, unit); !ok {
			continue
		}
		seconds += float64(r.MovingTimeSeconds)
		distance += unit.FromMeters(r.DistanceMeters)
	}
	if distance <= 0 {
		return 0, false
	}
	return seconds / distance, true
}
