package wxstats

import "math"

// Derived quantities used by the clientraw generator when a station does
// not report them directly. All functions work in metric units (degree C,
// hPa, percent, m/s) and return ok=false when an input is out of the
// formula's domain.

// Dewpoint approximates the dew point via the Magnus formula.
func Dewpoint(tempC, humidityPct float64) (float64, bool) {
	if humidityPct <= 0 || humidityPct > 100 {
		return 0, false
	}
	const a, b = 17.625, 243.04
	gamma := math.Log(humidityPct/100.0) + a*tempC/(b+tempC)
	return b * gamma / (a - gamma), true
}

// WetBulb computes the wet bulb temperature from air temperature,
// relative humidity and station pressure.
func WetBulb(tempC, humidityPct, pressureHPa float64) (float64, bool) {
	if humidityPct <= 0 || humidityPct > 100 || pressureHPa <= 0 {
		return 0, false
	}
	rh := 1.0 - 0.01*humidityPct
	tdc := tempC -
		(14.55+0.114*tempC)*rh -
		math.Pow((2.5+0.007*tempC)*rh, 3) -
		(15.9+0.117*tempC)*math.Pow(rh, 14)
	e := 6.11 * math.Pow(10, 7.5*tdc/(237.7+tdc))
	num := 0.00066*pressureHPa*tempC + (4098*e)/math.Pow(tdc+237.7, 2)*tdc
	den := 0.00066*pressureHPa + (4098*e)/math.Pow(tdc+237.7, 2)
	return num / den, true
}

// HumidexC computes the humidex apparent temperature.
func HumidexC(tempC, humidityPct float64) (float64, bool) {
	td, ok := Dewpoint(tempC, humidityPct)
	if !ok {
		return 0, false
	}
	e := 6.11 * math.Exp(5417.753*(1.0/273.16-1.0/(td+273.15)))
	h := tempC + 5.0/9.0*(e-10.0)
	if h < tempC {
		h = tempC
	}
	return h, true
}

// ApparentTempC computes the Australian apparent temperature (Steadman)
// from temperature, humidity and wind speed in m/s.
func ApparentTempC(tempC, humidityPct, windMS float64) (float64, bool) {
	if humidityPct < 0 || humidityPct > 100 {
		return 0, false
	}
	e := humidityPct / 100.0 * 6.105 * math.Exp(17.27*tempC/(237.7+tempC))
	return tempC + 0.33*e - 0.70*windMS - 4.00, true
}

// CloudbaseMeters estimates the lifted condensation level above sea level
// from the temperature/dewpoint spread at the station.
func CloudbaseMeters(tempC, humidityPct, altitudeM float64) (float64, bool) {
	td, ok := Dewpoint(tempC, humidityPct)
	if !ok {
		return 0, false
	}
	spread := tempC - td
	if spread < 0 {
		spread = 0
	}
	return altitudeM + spread*125.0, true
}

// SolarPercent expresses the measured solar radiation as a percentage of
// the theoretical clear-sky maximum.
func SolarPercent(radiation, maxSolarRad float64) (float64, bool) {
	if maxSolarRad <= 0 {
		return 0, false
	}
	return 100.0 * radiation / maxSolarRad, true
}

// MaxWithAbsent returns the larger of two possibly-absent values, absent
// when both are.
func MaxWithAbsent(a *float64, b *float64) (float64, bool) {
	switch {
	case a == nil && b == nil:
		return 0, false
	case a == nil:
		return *b, true
	case b == nil:
		return *a, true
	case *a > *b:
		return *a, true
	default:
		return *b, true
	}
}
