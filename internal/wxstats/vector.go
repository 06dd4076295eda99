package wxstats

import (
	"math"

	"github.com/afroash/wx-monitor/internal/models"
)

// vectorSample is one wind history entry. The Cartesian components are
// unit projections of the meteorological bearing (0 = north, clockwise),
// stored alongside the speed so windowed vector averages can be summed
// without revisiting the trigonometry.
type vectorSample struct {
	speed float64
	x     float64
	y     float64
	ts    int64
}

// VectorSeries tracks running statistics for a speed+direction pair. The
// speed magnitude gets the full ScalarSeries treatment; on top of that the
// series keeps Cartesian history entries and cumulative daily vector sums
// so direction averages are computed the circular way rather than as a
// naive mean of bearings.
type VectorSeries struct {
	mag *ScalarSeries

	trackHist bool
	trackSum  bool

	// Cumulative over the day, cleared by DayReset. Each sample adds its
	// speed-weighted projection; the pair is never overwritten per sample.
	daySumX float64
	daySumY float64

	history     []vectorSample
	historyFull bool
	maxAge      int64
}

// NewVectorSeries creates a vector series with the given tracking
// facilities applied to the speed magnitude.
func NewVectorSeries(hiLo, hist, sum bool) *VectorSeries {
	return &VectorSeries{
		// The magnitude series never keeps its own history; windowed wind
		// queries go through the Cartesian entries below.
		mag:       NewScalarSeries(hiLo, false, sum),
		trackHist: hist,
		trackSum:  sum,
		maxAge:    MaxAge,
	}
}

// Add feeds one speed/direction sample into the series. The direction is
// a meteorological bearing in degrees.
func (v *VectorSeries) Add(speed, dir float64, ts int64) {
	v.mag.Add(speed, ts)
	rad := (90.0 - dir) * math.Pi / 180.0
	x := math.Cos(rad)
	y := math.Sin(rad)
	if v.trackHist {
		v.history = append(v.history, vectorSample{speed: speed, x: x, y: y, ts: ts})
		v.trimHistory(ts)
	}
	if v.trackSum {
		v.daySumX += speed * x
		v.daySumY += speed * y
	}
}

// Magnitude exposes the scalar series tracking the speed.
func (v *VectorSeries) Magnitude() *ScalarSeries { return v.mag }

// DayReset clears the daily extremes, day sum and vector sums. History
// survives, as for scalar series.
func (v *VectorSeries) DayReset() {
	v.mag.DayReset()
	v.daySumX = 0
	v.daySumY = 0
}

// FixedTimeReset clears only the fixed-time-of-day sum.
func (v *VectorSeries) FixedTimeReset() { v.mag.FixedTimeReset() }

// IntervalReset clears only the accumulation-interval sum.
func (v *VectorSeries) IntervalReset() { v.mag.IntervalReset() }

// VectorAvgDir returns the vector-averaged direction of all samples since
// the last day reset, as a bearing in [0, 360). With no wind recorded the
// zero vector has no direction and the second return is false.
func (v *VectorSeries) VectorAvgDir() (float64, bool) {
	if v.daySumX == 0 && v.daySumY == 0 {
		return 0, false
	}
	return bearingFromComponents(v.daySumX, v.daySumY), true
}

// HistoryMax returns the highest speed, with its timestamp, among history
// entries in [asOf-age, asOf].
func (v *VectorSeries) HistoryMax(asOf, age int64) (models.ObsValue, bool) {
	born := asOf - age
	var max models.ObsValue
	found := false
	for _, h := range v.history {
		if h.ts < born || h.ts > asOf {
			continue
		}
		if !found || h.speed > max.Value {
			max = models.ObsValue{Value: h.speed, TS: h.ts}
			found = true
		}
	}
	return max, found
}

// HistoryAvg returns the unweighted mean speed over the window.
func (v *VectorSeries) HistoryAvg(asOf, age int64) (float64, bool) {
	born := asOf - age
	var sum float64
	n := 0
	for _, h := range v.history {
		if h.ts < born || h.ts > asOf {
			continue
		}
		sum += h.speed
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// HistoryVecAvg sums the speed-weighted Cartesian components over the
// window and reconstructs a (magnitude, direction) pair from the resultant
// vector. An empty window returns ok=false.
func (v *VectorSeries) HistoryVecAvg(asOf, age int64) (speed, dir float64, ok bool) {
	born := asOf - age
	var x, y float64
	n := 0
	for _, h := range v.history {
		if h.ts < born || h.ts > asOf {
			continue
		}
		x += h.speed * h.x
		y += h.speed * h.y
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return math.Sqrt(x*x+y*y) / float64(n), bearingFromComponents(x, y), true
}

// HistoryFull reports whether the retained history spans the whole
// retention window.
func (v *VectorSeries) HistoryFull() bool { return v.historyFull }

func (v *VectorSeries) trimHistory(ts int64) {
	oldest := ts - v.maxAge
	full := false
	kept := v.history[:0]
	for _, h := range v.history {
		if h.ts <= oldest {
			full = true
			continue
		}
		kept = append(kept, h)
	}
	v.historyFull = full
	v.history = kept
}

// bearingFromComponents converts Cartesian components back into a
// meteorological bearing in [0, 360).
func bearingFromComponents(x, y float64) float64 {
	dir := 90.0 - math.Atan2(y, x)*180.0/math.Pi
	for dir < 0 {
		dir += 360.0
	}
	for dir >= 360.0 {
		dir -= 360.0
	}
	return dir
}
