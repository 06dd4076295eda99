package wxstats

import (
	"testing"

	"github.com/afroash/wx-monitor/internal/models"
)

func TestScalarSeries_FirstValueIsMinAndMax(t *testing.T) {
	s := NewScalarSeries(true, false, false)
	s.Add(12.5, 1000)

	min, ok := s.DayMin()
	if !ok {
		t.Fatal("DayMin not set after first value")
	}
	max, ok := s.DayMax()
	if !ok {
		t.Fatal("DayMax not set after first value")
	}
	if min.Value != 12.5 || min.TS != 1000 {
		t.Errorf("DayMin = %v@%v, want 12.5@1000", min.Value, min.TS)
	}
	if max.Value != 12.5 || max.TS != 1000 {
		t.Errorf("DayMax = %v@%v, want 12.5@1000", max.Value, max.TS)
	}
}

func TestScalarSeries_HiLoTracksExtremes(t *testing.T) {
	s := NewScalarSeries(true, false, false)
	s.Add(10.0, 1000)
	s.Add(15.0, 1100)
	s.Add(5.0, 1200)

	min, _ := s.DayMin()
	max, _ := s.DayMax()
	last, _ := s.Last()

	if max.Value != 15.0 || max.TS != 1100 {
		t.Errorf("DayMax = %v@%v, want 15.0@1100", max.Value, max.TS)
	}
	if min.Value != 5.0 || min.TS != 1200 {
		t.Errorf("DayMin = %v@%v, want 5.0@1200", min.Value, min.TS)
	}
	if last.Value != 5.0 {
		t.Errorf("Last = %v, want 5.0", last.Value)
	}
}

func TestScalarSeries_OutOfOrderKeepsNewestLast(t *testing.T) {
	s := NewScalarSeries(true, false, false)
	s.Add(10.0, 1100)
	s.Add(20.0, 1000) // older sample arriving late

	last, _ := s.Last()
	if last.Value != 10.0 || last.TS != 1100 {
		t.Errorf("Last = %v@%v, want 10.0@1100 (older sample must not win)", last.Value, last.TS)
	}

	// The late sample still counts toward extremes.
	max, _ := s.DayMax()
	if max.Value != 20.0 {
		t.Errorf("DayMax = %v, want 20.0", max.Value)
	}
}

func TestScalarSeries_SumsAdvanceTogether(t *testing.T) {
	s := NewScalarSeries(false, false, true)
	s.Add(1.0, 1000)
	s.Add(2.5, 1100)

	day, _ := s.DaySum()
	fixed, _ := s.FixedSum()
	interval, _ := s.IntervalSum()

	if day != 3.5 || fixed != 3.5 || interval != 3.5 {
		t.Errorf("sums = %v/%v/%v, want 3.5 each", day, fixed, interval)
	}
}

func TestScalarSeries_ResetsAreIndependent(t *testing.T) {
	s := NewScalarSeries(true, true, true)
	s.Add(4.0, 1000)

	s.IntervalReset()
	if v, _ := s.IntervalSum(); v != 0 {
		t.Errorf("IntervalSum after IntervalReset = %v, want 0", v)
	}
	if v, _ := s.DaySum(); v != 4.0 {
		t.Errorf("DaySum after IntervalReset = %v, want 4.0 (untouched)", v)
	}
	if v, _ := s.FixedSum(); v != 4.0 {
		t.Errorf("FixedSum after IntervalReset = %v, want 4.0 (untouched)", v)
	}

	s.FixedTimeReset()
	if v, _ := s.FixedSum(); v != 0 {
		t.Errorf("FixedSum after FixedTimeReset = %v, want 0", v)
	}
	if v, _ := s.DaySum(); v != 4.0 {
		t.Errorf("DaySum after FixedTimeReset = %v, want 4.0 (untouched)", v)
	}
}

func TestScalarSeries_DayResetClearsHiLoKeepsHistory(t *testing.T) {
	s := NewScalarSeries(true, true, true)
	s.Add(10.0, 1000)
	s.Add(20.0, 1100)

	s.DayReset()

	if _, ok := s.DayMin(); ok {
		t.Error("DayMin still set after DayReset")
	}
	if _, ok := s.DayMax(); ok {
		t.Error("DayMax still set after DayReset")
	}
	if v, _ := s.DaySum(); v != 0 {
		t.Errorf("DaySum after DayReset = %v, want 0", v)
	}

	// History survives the reset so windowed queries can span it.
	if _, ok := s.HistoryMax(1100, 600); !ok {
		t.Error("history lost on DayReset")
	}
	// Interval/fixed sums keep their own cadence.
	if v, _ := s.IntervalSum(); v != 30.0 {
		t.Errorf("IntervalSum after DayReset = %v, want 30.0", v)
	}
}

func TestScalarSeries_HistoryMaxWindow(t *testing.T) {
	s := NewScalarSeries(false, true, false)
	s.Add(5.0, 1000)
	s.Add(9.0, 1100)
	s.Add(7.0, 1200)

	max, ok := s.HistoryMax(1200, 600)
	if !ok {
		t.Fatal("HistoryMax returned no result")
	}
	if max.Value != 9.0 || max.TS != 1100 {
		t.Errorf("HistoryMax = %v@%v, want 9.0@1100", max.Value, max.TS)
	}

	// Narrow window excludes the 9.0 sample.
	max, ok = s.HistoryMax(1200, 50)
	if !ok {
		t.Fatal("HistoryMax returned no result for narrow window")
	}
	if max.Value != 7.0 {
		t.Errorf("HistoryMax(50s) = %v, want 7.0", max.Value)
	}
}

func TestScalarSeries_HistoryAvgWindow(t *testing.T) {
	s := NewScalarSeries(false, true, false)
	s.Add(4.0, 1000)
	s.Add(8.0, 1100)

	avg, ok := s.HistoryAvg(1100, 600)
	if !ok {
		t.Fatal("HistoryAvg returned no result")
	}
	if avg != 6.0 {
		t.Errorf("HistoryAvg = %v, want 6.0", avg)
	}

	if _, ok := s.HistoryAvg(5000, 100); ok {
		t.Error("HistoryAvg over empty window returned a result")
	}
}

func TestScalarSeries_HistorySelfTrims(t *testing.T) {
	s := NewScalarSeries(false, true, false)
	s.Add(1.0, 1000)
	s.Add(2.0, 1200)
	s.Add(3.0, 1700) // 1000 is now older than MaxAge (600s)

	if max, _ := s.HistoryMax(1700, 10000); max.Value != 3.0 {
		t.Errorf("trimmed entry still reachable, HistoryMax = %v", max.Value)
	}
	// The 1200 entry is exactly at the cutoff edge: 1700-600=1100 < 1200,
	// so it must survive.
	avg, _ := s.HistoryAvg(1700, 600)
	if avg != 2.5 {
		t.Errorf("HistoryAvg after trim = %v, want 2.5", avg)
	}
	if !s.HistoryFull() {
		t.Error("HistoryFull = false after trimming an aged entry")
	}
}

func TestScalarSeries_OldSampleDoesNotChangeWindowResult(t *testing.T) {
	s := NewScalarSeries(false, true, false)
	s.Add(5.0, 1000)
	s.Add(6.0, 1100)

	before, _ := s.HistoryMax(1100, 60)

	// A sample older than the queried window must not affect the result.
	s.Add(100.0, 900)
	after, ok := s.HistoryMax(1100, 60)
	if !ok {
		t.Fatal("HistoryMax returned no result")
	}
	if after != before {
		t.Errorf("HistoryMax changed from %v to %v after out-of-window add", before, after)
	}
}

func TestScalarSeries_SeedPrimesDayStats(t *testing.T) {
	s := NewScalarSeries(true, false, true)
	s.Seed(
		&models.ObsValue{Value: 2.0, TS: 900},
		&models.ObsValue{Value: 11.0, TS: 950},
		4.5, true,
	)

	if min, ok := s.DayMin(); !ok || min.Value != 2.0 || min.TS != 900 {
		t.Errorf("seeded DayMin = %v,%v, want 2.0@900", min, ok)
	}
	if max, ok := s.DayMax(); !ok || max.Value != 11.0 {
		t.Errorf("seeded DayMax = %v,%v, want 11.0", max, ok)
	}
	if v, _ := s.DaySum(); v != 4.5 {
		t.Errorf("seeded DaySum = %v, want 4.5", v)
	}

	// Live samples keep extending the seeded stats.
	s.Add(1.0, 1000)
	if min, _ := s.DayMin(); min.Value != 1.0 {
		t.Errorf("DayMin after live sample = %v, want 1.0", min.Value)
	}
	if v, _ := s.DaySum(); v != 5.5 {
		t.Errorf("DaySum after live sample = %v, want 5.5", v)
	}
}
