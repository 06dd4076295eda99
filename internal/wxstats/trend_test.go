package wxstats

import (
	"testing"

	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/units"
)

func lookupReturning(s models.Sample) RecordLookup {
	return func(ts, grace int64) (models.Sample, bool) { return s, true }
}

func lookupMiss(ts, grace int64) (models.Sample, bool) {
	return models.Sample{}, false
}

func TestTrend_PositiveChange(t *testing.T) {
	then := models.NewSample(3400, models.UnitMetricWX)
	then.Set(models.Barometer, 1010.0)

	now := &units.Value{V: 1012.0, Unit: units.HPa}
	got, ok := Trend(models.Barometer, now, lookupReturning(then), 3400, 300)
	if !ok {
		t.Fatal("Trend returned no result")
	}
	if !almostEqual(got, 2.0) {
		t.Errorf("Trend = %v, want 2.0", got)
	}
}

func TestTrend_LookupMissIsUnknown(t *testing.T) {
	now := &units.Value{V: 1012.0, Unit: units.HPa}
	if v, ok := Trend(models.Barometer, now, lookupMiss, 3400, 300); ok {
		t.Errorf("Trend = %v with no historical record, want unknown", v)
	}
}

func TestTrend_UnknownCurrentIsUnknown(t *testing.T) {
	then := models.NewSample(3400, models.UnitMetricWX)
	then.Set(models.Barometer, 1010.0)

	if v, ok := Trend(models.Barometer, nil, lookupReturning(then), 3400, 300); ok {
		t.Errorf("Trend = %v with unknown current value, want unknown", v)
	}
}

func TestTrend_AbsentObservationIsUnknown(t *testing.T) {
	then := models.NewSample(3400, models.UnitMetricWX)
	then.Set(models.OutTemp, 10.0) // record exists but lacks barometer

	now := &units.Value{V: 1012.0, Unit: units.HPa}
	if v, ok := Trend(models.Barometer, now, lookupReturning(then), 3400, 300); ok {
		t.Errorf("Trend = %v when record lacks the observation, want unknown", v)
	}
}

func TestTrend_ConvertsHistoricalUnits(t *testing.T) {
	// Historical record in US units: 29.0 inHg.
	then := models.NewSample(3400, models.UnitUS)
	then.Set(models.Barometer, 29.0)

	now := &units.Value{V: 1012.0, Unit: units.HPa}
	got, ok := Trend(models.Barometer, now, lookupReturning(then), 3400, 300)
	if !ok {
		t.Fatal("Trend returned no result")
	}
	want := 1012.0 - 29.0*33.8639
	if !almostEqual(got, want) {
		t.Errorf("Trend = %v, want %v", got, want)
	}
}

func TestTrend_UntaggedRecordIsUnknown(t *testing.T) {
	then := models.NewSample(3400, models.UnitNone)
	then.Set(models.Barometer, 1010.0)

	now := &units.Value{V: 1012.0, Unit: units.HPa}
	if v, ok := Trend(models.Barometer, now, lookupReturning(then), 3400, 300); ok {
		t.Errorf("Trend = %v for record with no unit system, want unknown", v)
	}
}
