package wxstats

import (
	"math"
	"testing"
)

func TestDewpoint(t *testing.T) {
	td, ok := Dewpoint(20.0, 100.0)
	if !ok {
		t.Fatal("Dewpoint returned no result")
	}
	// At saturation the dew point equals the air temperature.
	if math.Abs(td-20.0) > 0.01 {
		t.Errorf("Dewpoint(20, 100%%) = %v, want ~20", td)
	}

	td, ok = Dewpoint(20.0, 50.0)
	if !ok {
		t.Fatal("Dewpoint returned no result")
	}
	if td >= 20.0 || td < 5.0 {
		t.Errorf("Dewpoint(20, 50%%) = %v, outside plausible range", td)
	}

	if _, ok := Dewpoint(20.0, 0.0); ok {
		t.Error("Dewpoint accepted zero humidity")
	}
}

func TestWetBulb(t *testing.T) {
	wb, ok := WetBulb(25.0, 60.0, 1013.0)
	if !ok {
		t.Fatal("WetBulb returned no result")
	}
	// Wet bulb sits between the dew point and the dry bulb.
	td, _ := Dewpoint(25.0, 60.0)
	if wb >= 25.0 || wb <= td-1.0 {
		t.Errorf("WetBulb = %v, want between dewpoint %v and 25", wb, td)
	}

	if _, ok := WetBulb(25.0, 60.0, 0); ok {
		t.Error("WetBulb accepted zero pressure")
	}
}

func TestHumidexNeverBelowTemperature(t *testing.T) {
	h, ok := HumidexC(10.0, 30.0)
	if !ok {
		t.Fatal("HumidexC returned no result")
	}
	if h < 10.0 {
		t.Errorf("HumidexC = %v, below air temperature", h)
	}

	h, ok = HumidexC(30.0, 80.0)
	if !ok {
		t.Fatal("HumidexC returned no result")
	}
	if h <= 30.0 {
		t.Errorf("HumidexC(30, 80%%) = %v, want above 30", h)
	}
}

func TestApparentTempWindCools(t *testing.T) {
	calm, ok := ApparentTempC(25.0, 50.0, 0.0)
	if !ok {
		t.Fatal("ApparentTempC returned no result")
	}
	windy, _ := ApparentTempC(25.0, 50.0, 10.0)
	if windy >= calm {
		t.Errorf("apparent temp in wind %v >= calm %v", windy, calm)
	}
}

func TestCloudbase(t *testing.T) {
	// Saturated air puts the cloud base at station altitude.
	cb, ok := CloudbaseMeters(15.0, 100.0, 200.0)
	if !ok {
		t.Fatal("CloudbaseMeters returned no result")
	}
	if math.Abs(cb-200.0) > 1.0 {
		t.Errorf("CloudbaseMeters at saturation = %v, want ~200", cb)
	}

	dry, _ := CloudbaseMeters(15.0, 40.0, 200.0)
	if dry <= cb {
		t.Errorf("drier air cloud base %v not above saturated %v", dry, cb)
	}
}

func TestSolarPercent(t *testing.T) {
	if v, ok := SolarPercent(450.0, 900.0); !ok || v != 50.0 {
		t.Errorf("SolarPercent = %v,%v, want 50.0", v, ok)
	}
	if _, ok := SolarPercent(450.0, 0.0); ok {
		t.Error("SolarPercent accepted zero clear-sky maximum")
	}
}

func TestMaxWithAbsent(t *testing.T) {
	a, b := 3.0, 7.0

	if v, ok := MaxWithAbsent(&a, &b); !ok || v != 7.0 {
		t.Errorf("MaxWithAbsent(3,7) = %v,%v", v, ok)
	}
	if v, ok := MaxWithAbsent(nil, &b); !ok || v != 7.0 {
		t.Errorf("MaxWithAbsent(nil,7) = %v,%v", v, ok)
	}
	if v, ok := MaxWithAbsent(&a, nil); !ok || v != 3.0 {
		t.Errorf("MaxWithAbsent(3,nil) = %v,%v", v, ok)
	}
	if _, ok := MaxWithAbsent(nil, nil); ok {
		t.Error("MaxWithAbsent(nil,nil) returned a result")
	}
}
