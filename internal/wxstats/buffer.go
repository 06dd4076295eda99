package wxstats

import (
	"fmt"

	"github.com/afroash/wx-monitor/internal/models"
)

// SeriesSeed carries externally computed day statistics for one
// observation, used to prime a freshly constructed buffer.
type SeriesSeed struct {
	Min    *models.ObsValue
	Max    *models.ObsValue
	Sum    float64
	HasSum bool
}

// DaySummary is the seed for a whole buffer: per-observation day stats
// plus the wind run accumulated so far today.
type DaySummary struct {
	Stats   map[models.Obs]SeriesSeed
	WindRun float64
}

// Buffer owns the per-observation series for the tracked manifest and
// routes incoming samples to them. Archive-based day statistics miss any
// extreme that occurs between archive records; buffering loop samples here
// closes that gap.
//
// The buffer is not safe for concurrent use. The engine confines all
// mutation to its processing goroutine.
type Buffer struct {
	units   models.UnitSystem
	scalars map[models.Obs]*ScalarSeries
	wind    *VectorSeries

	windRun    float64
	lastWindTS int64
	hasWindTS  bool
}

// NewBuffer creates a buffer holding samples in the given unit system,
// optionally seeded from a day summary so a restart keeps today's
// extremes.
func NewBuffer(units models.UnitSystem, seed *DaySummary) *Buffer {
	b := &Buffer{
		units:   units,
		scalars: make(map[models.Obs]*ScalarSeries),
	}
	if seed != nil {
		for obs, s := range seed.Stats {
			if !models.InManifest(obs) {
				continue
			}
			b.scalar(obs).Seed(s.Min, s.Max, s.Sum, s.HasSum)
		}
		b.windRun = seed.WindRun
	}
	return b
}

// Units returns the unit system the buffer holds its values in.
func (b *Buffer) Units() models.UnitSystem { return b.units }

// AddSample routes every tracked observation present in the sample to its
// series. Samples must already be expressed in the buffer's unit system;
// mixing unit systems silently would corrupt every running statistic, so
// a mismatch is rejected.
func (b *Buffer) AddSample(s models.Sample) error {
	if !s.IsValid() {
		return fmt.Errorf("sample has no timestamp")
	}
	if s.Units != b.units {
		return fmt.Errorf("sample unit system %s does not match buffer %s", s.Units, b.units)
	}
	for _, obs := range models.Manifest {
		v, ok := s.Fields[obs]
		if !ok {
			continue
		}
		if obs == models.WindSpeed {
			dir, hasDir := s.Fields[models.WindDir]
			b.addWind(v, dir, hasDir, s.TS)
			continue
		}
		b.scalar(obs).Add(v, s.TS)
	}
	return nil
}

// addWind updates the wind speed scalar, the wind vector series and the
// wind run accumulator.
func (b *Buffer) addWind(speed, dir float64, hasDir bool, ts int64) {
	b.scalar(models.WindSpeed).Add(speed, ts)

	// The vector series needs a direction; speed-only samples still count
	// toward the scalar stats and wind run above/below.
	if hasDir {
		if b.wind == nil {
			b.wind = NewVectorSeries(false, true, true)
		}
		b.wind.Add(speed, dir, ts)
	}

	// Wind run integrates speed over the elapsed time since the previous
	// wind sample. The first sample has nothing to diff against and
	// contributes zero distance.
	if b.hasWindTS && ts > b.lastWindTS {
		b.windRun += distanceKm(speed, ts-b.lastWindTS, b.units)
	}
	b.lastWindTS = ts
	b.hasWindTS = true
}

// distanceKm converts speed held for elapsed seconds into kilometres.
func distanceKm(speed float64, elapsed int64, units models.UnitSystem) float64 {
	switch units {
	case models.UnitUS:
		// mph -> km
		return speed * 1.609344 * float64(elapsed) / 3600.0
	case models.UnitMetric:
		// km/h -> km
		return speed * float64(elapsed) / 3600.0
	default:
		// m/s -> km
		return speed * float64(elapsed) / 1000.0
	}
}

// scalar returns the series for obs, creating it lazily with the tracking
// facilities the manifests call for.
func (b *Buffer) scalar(obs models.Obs) *ScalarSeries {
	s, ok := b.scalars[obs]
	if !ok {
		s = NewScalarSeries(models.TrackHiLo(obs), models.TrackHistory(obs), models.TrackSum(obs))
		b.scalars[obs] = s
	}
	return s
}

// DayReset broadcasts the start-of-day reset to every series and clears
// the wind run.
func (b *Buffer) DayReset() {
	for _, s := range b.scalars {
		s.DayReset()
	}
	if b.wind != nil {
		b.wind.DayReset()
	}
	b.windRun = 0
}

// FixedTimeReset broadcasts the fixed-time-of-day reset (e.g. the 09:00
// rain total) to every series.
func (b *Buffer) FixedTimeReset() {
	for _, s := range b.scalars {
		s.FixedTimeReset()
	}
	if b.wind != nil {
		b.wind.FixedTimeReset()
	}
}

// IntervalReset broadcasts the accumulation-interval reset to every
// series.
func (b *Buffer) IntervalReset() {
	for _, s := range b.scalars {
		s.IntervalReset()
	}
	if b.wind != nil {
		b.wind.IntervalReset()
	}
}

// Last returns the latest value for obs. Absence of the series means no
// data has been seen, which is a normal outcome, not a fault.
func (b *Buffer) Last(obs models.Obs) (models.ObsValue, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.Last()
	}
	return models.ObsValue{}, false
}

// DayMin returns the daily minimum for obs.
func (b *Buffer) DayMin(obs models.Obs) (models.ObsValue, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.DayMin()
	}
	return models.ObsValue{}, false
}

// DayMax returns the daily maximum for obs.
func (b *Buffer) DayMax(obs models.Obs) (models.ObsValue, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.DayMax()
	}
	return models.ObsValue{}, false
}

// DaySum returns the running day sum for obs.
func (b *Buffer) DaySum(obs models.Obs) (float64, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.DaySum()
	}
	return 0, false
}

// FixedSum returns the running fixed-time sum for obs.
func (b *Buffer) FixedSum(obs models.Obs) (float64, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.FixedSum()
	}
	return 0, false
}

// IntervalSum returns the running interval sum for obs.
func (b *Buffer) IntervalSum(obs models.Obs) (float64, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.IntervalSum()
	}
	return 0, false
}

// HistoryMax returns the windowed maximum for obs.
func (b *Buffer) HistoryMax(obs models.Obs, asOf, age int64) (models.ObsValue, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.HistoryMax(asOf, age)
	}
	return models.ObsValue{}, false
}

// HistoryAvg returns the windowed average for obs.
func (b *Buffer) HistoryAvg(obs models.Obs, asOf, age int64) (float64, bool) {
	if s, ok := b.scalars[obs]; ok {
		return s.HistoryAvg(asOf, age)
	}
	return 0, false
}

// WindVectorAvgDir returns the day's vector-averaged wind direction.
func (b *Buffer) WindVectorAvgDir() (float64, bool) {
	if b.wind == nil {
		return 0, false
	}
	return b.wind.VectorAvgDir()
}

// WindHistoryVecAvg returns the windowed vector-averaged wind.
func (b *Buffer) WindHistoryVecAvg(asOf, age int64) (speed, dir float64, ok bool) {
	if b.wind == nil {
		return 0, 0, false
	}
	return b.wind.HistoryVecAvg(asOf, age)
}

// WindRun returns the accumulated wind run distance in kilometres since
// the last day reset.
func (b *Buffer) WindRun() float64 { return b.windRun }
