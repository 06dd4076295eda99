package wxstats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVectorSeries_AvgDirSingleSample(t *testing.T) {
	for _, dir := range []float64{0, 90, 180, 270, 359} {
		v := NewVectorSeries(false, true, true)
		v.Add(5.0, dir, 1000)

		got, ok := v.VectorAvgDir()
		if !ok {
			t.Fatalf("dir %v: VectorAvgDir returned no result", dir)
		}
		if !almostEqual(got, dir) {
			t.Errorf("dir %v: VectorAvgDir = %v", dir, got)
		}
	}
}

func TestVectorSeries_AvgDirResolvesUnequalOpposites(t *testing.T) {
	v := NewVectorSeries(false, false, true)
	v.Add(10.0, 0, 1000)
	v.Add(5.0, 180, 1100)

	got, ok := v.VectorAvgDir()
	if !ok {
		t.Fatal("VectorAvgDir returned no result")
	}
	// The stronger northerly component wins.
	if !almostEqual(got, 0) {
		t.Errorf("VectorAvgDir = %v, want 0", got)
	}
}

func TestVectorSeries_AvgDirZeroVectorHasNoDirection(t *testing.T) {
	v := NewVectorSeries(false, false, true)
	v.Add(10.0, 0, 1000)
	v.Add(10.0, 180, 1100)

	if dir, ok := v.VectorAvgDir(); ok {
		t.Errorf("VectorAvgDir = %v for perfectly opposing winds, want no result", dir)
	}
}

func TestVectorSeries_AvgDirNormalized(t *testing.T) {
	v := NewVectorSeries(false, false, true)
	v.Add(10.0, 350, 1000)
	v.Add(10.0, 10, 1100)

	got, ok := v.VectorAvgDir()
	if !ok {
		t.Fatal("VectorAvgDir returned no result")
	}
	if got < 0 || got >= 360 {
		t.Fatalf("VectorAvgDir = %v, outside [0,360)", got)
	}
	// Winds straddling north average to north, not 180.
	if !almostEqual(got, 0) && !almostEqual(got, 360) {
		t.Errorf("VectorAvgDir = %v, want 0", got)
	}
}

func TestVectorSeries_DayResetClearsVectorSums(t *testing.T) {
	v := NewVectorSeries(true, false, true)
	v.Add(10.0, 90, 1000)

	v.DayReset()

	if _, ok := v.VectorAvgDir(); ok {
		t.Error("VectorAvgDir still set after DayReset")
	}
	if _, ok := v.Magnitude().DayMax(); ok {
		t.Error("speed DayMax still set after DayReset")
	}
}

func TestVectorSeries_HistoryMaxAndAvg(t *testing.T) {
	v := NewVectorSeries(false, true, false)
	v.Add(4.0, 90, 1000)
	v.Add(10.0, 90, 1100)
	v.Add(6.0, 90, 1200)

	max, ok := v.HistoryMax(1200, 600)
	if !ok {
		t.Fatal("HistoryMax returned no result")
	}
	if max.Value != 10.0 || max.TS != 1100 {
		t.Errorf("HistoryMax = %v@%v, want 10.0@1100", max.Value, max.TS)
	}

	avg, ok := v.HistoryAvg(1200, 600)
	if !ok {
		t.Fatal("HistoryAvg returned no result")
	}
	if !almostEqual(avg, 20.0/3.0) {
		t.Errorf("HistoryAvg = %v, want %v", avg, 20.0/3.0)
	}
}

func TestVectorSeries_HistoryVecAvg(t *testing.T) {
	v := NewVectorSeries(false, true, false)
	v.Add(10.0, 90, 1000)
	v.Add(10.0, 90, 1100)

	speed, dir, ok := v.HistoryVecAvg(1100, 600)
	if !ok {
		t.Fatal("HistoryVecAvg returned no result")
	}
	if !almostEqual(speed, 10.0) {
		t.Errorf("HistoryVecAvg speed = %v, want 10.0", speed)
	}
	if !almostEqual(dir, 90.0) {
		t.Errorf("HistoryVecAvg dir = %v, want 90.0", dir)
	}

	if _, _, ok := v.HistoryVecAvg(5000, 100); ok {
		t.Error("HistoryVecAvg over empty window returned a result")
	}
}
