// Package wxstats is the streaming statistics core of the station daemon.
// It maintains per-observation running state (latest value, daily extremes,
// bounded history windows, accumulator sums), a snapshot cache that fills
// in sparse packets, and trend calculation against historical records.
//
// The package is deliberately free of clocks, locks and I/O: every
// operation takes its timestamp explicitly, and the single-writer
// discipline is the caller's responsibility (the engine confines all
// mutation to one goroutine).
package wxstats

import "github.com/afroash/wx-monitor/internal/models"

// MaxAge is the default history retention window in seconds.
const MaxAge = 600

// ScalarSeries tracks running statistics for one ordinary numeric
// observation. Which facilities are active (hi/lo, history, sums) is fixed
// at construction from the observation manifests.
type ScalarSeries struct {
	last   *models.ObsValue
	dayMin *models.ObsValue
	dayMax *models.ObsValue

	trackHiLo bool
	trackHist bool
	trackSum  bool

	// The three sums always advance together on Add; they differ only in
	// which reset clears them.
	daySum      float64
	fixedSum    float64
	intervalSum float64

	history     []models.ObsValue
	historyFull bool
	maxAge      int64
}

// NewScalarSeries creates a series with the given tracking facilities.
func NewScalarSeries(hiLo, hist, sum bool) *ScalarSeries {
	return &ScalarSeries{
		trackHiLo: hiLo,
		trackHist: hist,
		trackSum:  sum,
		maxAge:    MaxAge,
	}
}

// Add feeds one observed value into the series. Out-of-order samples still
// count toward extremes, history and sums, but only advance the latest
// value when their timestamp is not older than the current one.
func (s *ScalarSeries) Add(val float64, ts int64) {
	if s.last == nil || ts >= s.last.TS {
		s.last = &models.ObsValue{Value: val, TS: ts}
	}
	if s.trackHiLo {
		if s.dayMin == nil || val < s.dayMin.Value {
			s.dayMin = &models.ObsValue{Value: val, TS: ts}
		}
		if s.dayMax == nil || val > s.dayMax.Value {
			s.dayMax = &models.ObsValue{Value: val, TS: ts}
		}
	}
	if s.trackHist {
		s.history = append(s.history, models.ObsValue{Value: val, TS: ts})
		s.trimHistory(ts)
	}
	if s.trackSum {
		s.daySum += val
		s.fixedSum += val
		s.intervalSum += val
	}
}

// Seed primes the daily extremes and day sum from an external day summary,
// so a restart does not lose the day's statistics so far.
func (s *ScalarSeries) Seed(min, max *models.ObsValue, sum float64, hasSum bool) {
	if s.trackHiLo {
		if min != nil {
			v := *min
			s.dayMin = &v
		}
		if max != nil {
			v := *max
			s.dayMax = &v
		}
	}
	if s.trackSum && hasSum {
		s.daySum = sum
	}
}

// DayReset clears the daily extremes and the day sum. History and the
// other sums are left alone: the history window may span the day boundary
// and the fixed-time/interval sums have their own reset cadences.
func (s *ScalarSeries) DayReset() {
	s.dayMin = nil
	s.dayMax = nil
	if s.trackSum {
		s.daySum = 0
	}
}

// FixedTimeReset clears only the fixed-time-of-day sum.
func (s *ScalarSeries) FixedTimeReset() {
	if s.trackSum {
		s.fixedSum = 0
	}
}

// IntervalReset clears only the accumulation-interval sum.
func (s *ScalarSeries) IntervalReset() {
	if s.trackSum {
		s.intervalSum = 0
	}
}

// Last returns the most recent value.
func (s *ScalarSeries) Last() (models.ObsValue, bool) {
	if s.last == nil {
		return models.ObsValue{}, false
	}
	return *s.last, true
}

// DayMin returns the minimum since the last day reset.
func (s *ScalarSeries) DayMin() (models.ObsValue, bool) {
	if s.dayMin == nil {
		return models.ObsValue{}, false
	}
	return *s.dayMin, true
}

// DayMax returns the maximum since the last day reset.
func (s *ScalarSeries) DayMax() (models.ObsValue, bool) {
	if s.dayMax == nil {
		return models.ObsValue{}, false
	}
	return *s.dayMax, true
}

// DaySum returns the running day sum.
func (s *ScalarSeries) DaySum() (float64, bool) {
	return s.daySum, s.trackSum
}

// FixedSum returns the running sum since the last fixed-time reset.
func (s *ScalarSeries) FixedSum() (float64, bool) {
	return s.fixedSum, s.trackSum
}

// IntervalSum returns the running sum since the last interval reset.
func (s *ScalarSeries) IntervalSum() (float64, bool) {
	return s.intervalSum, s.trackSum
}

// HistoryMax returns the maximum value, with its timestamp, among history
// entries in [asOf-age, asOf]. The second return is false when the window
// holds no samples.
func (s *ScalarSeries) HistoryMax(asOf, age int64) (models.ObsValue, bool) {
	born := asOf - age
	var max models.ObsValue
	found := false
	for _, h := range s.history {
		if h.TS < born || h.TS > asOf {
			continue
		}
		if !found || h.Value > max.Value {
			max = h
			found = true
		}
	}
	return max, found
}

// HistoryAvg returns the unweighted arithmetic mean of history entries in
// [asOf-age, asOf]. Samples are not time-weighted, so the result tracks
// the arrival rate; callers accept that as part of the contract.
func (s *ScalarSeries) HistoryAvg(asOf, age int64) (float64, bool) {
	born := asOf - age
	var sum float64
	n := 0
	for _, h := range s.history {
		if h.TS < born || h.TS > asOf {
			continue
		}
		sum += h.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// HistoryFull reports whether the retained history spans the whole
// retention window, i.e. whether windowed results cover a full MaxAge.
func (s *ScalarSeries) HistoryFull() bool {
	return s.historyFull
}

func (s *ScalarSeries) trimHistory(ts int64) {
	oldest := ts - s.maxAge
	full := false
	kept := s.history[:0]
	for _, h := range s.history {
		if h.TS <= oldest {
			full = true
			continue
		}
		kept = append(kept, h)
	}
	s.historyFull = full
	s.history = kept
}
