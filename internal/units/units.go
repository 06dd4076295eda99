// Package units provides pure unit conversions for observation values.
// It is the conversion collaborator the stats engine and the clientraw
// generator depend on; it holds no state and never fails for values
// already tagged with a known unit.
package units

import (
	"fmt"

	"github.com/afroash/wx-monitor/internal/models"
)

// Group classifies observations that share a unit.
type Group int

const (
	GroupNone Group = iota
	GroupTemperature
	GroupPressure
	GroupPercent
	GroupRain
	GroupRainRate
	GroupSpeed
	GroupDirection
	GroupDistance
	GroupAltitude
	GroupRadiation
	GroupUV
)

// Unit names follow the weewx vocabulary so archive records written by
// other tooling stay interoperable.
type Unit string

const (
	DegreeC     Unit = "degree_C"
	DegreeF     Unit = "degree_F"
	HPa         Unit = "hPa"
	InHg        Unit = "inHg"
	Percent     Unit = "percent"
	MM          Unit = "mm"
	CM          Unit = "cm"
	Inch        Unit = "inch"
	MMPerHour   Unit = "mm_per_hour"
	CMPerHour   Unit = "cm_per_hour"
	InchPerHour Unit = "inch_per_hour"
	MeterPerSec Unit = "meter_per_second"
	KmPerHour   Unit = "km_per_hour"
	MilePerHour Unit = "mile_per_hour"
	Knot        Unit = "knot"
	Degree      Unit = "degree_compass"
	Km          Unit = "km"
	Mile        Unit = "mile"
	Meter       Unit = "meter"
	Foot        Unit = "foot"
	WattPerM2   Unit = "watt_per_meter_squared"
	UVIndex     Unit = "uv_index"
)

// Value is an observation value tagged with its unit.
type Value struct {
	V    float64
	Unit Unit
}

// GroupOf returns the unit group for an observation type.
func GroupOf(obs models.Obs) Group {
	switch obs {
	case models.OutTemp, models.InTemp, models.Dewpoint, models.WindChill,
		models.HeatIndex, models.Humidex, models.AppTemp:
		return GroupTemperature
	case models.Barometer:
		return GroupPressure
	case models.OutHumidity, models.InHumidity:
		return GroupPercent
	case models.Rain:
		return GroupRain
	case models.RainRate:
		return GroupRainRate
	case models.WindSpeed, models.WindGust:
		return GroupSpeed
	case models.WindDir:
		return GroupDirection
	case models.WindRun:
		return GroupDistance
	case models.Radiation, models.MaxSolarRad:
		return GroupRadiation
	case models.UV:
		return GroupUV
	case models.Cloudbase:
		return GroupAltitude
	}
	return GroupNone
}

// StandardUnit returns the unit a group is expressed in under the given
// unit system.
func StandardUnit(sys models.UnitSystem, g Group) Unit {
	switch g {
	case GroupTemperature:
		if sys == models.UnitUS {
			return DegreeF
		}
		return DegreeC
	case GroupPressure:
		if sys == models.UnitUS {
			return InHg
		}
		return HPa
	case GroupPercent:
		return Percent
	case GroupRain:
		switch sys {
		case models.UnitUS:
			return Inch
		case models.UnitMetric:
			return CM
		default:
			return MM
		}
	case GroupRainRate:
		switch sys {
		case models.UnitUS:
			return InchPerHour
		case models.UnitMetric:
			return CMPerHour
		default:
			return MMPerHour
		}
	case GroupSpeed:
		switch sys {
		case models.UnitUS:
			return MilePerHour
		case models.UnitMetric:
			return KmPerHour
		default:
			return MeterPerSec
		}
	case GroupDirection:
		return Degree
	case GroupDistance:
		if sys == models.UnitUS {
			return Mile
		}
		return Km
	case GroupAltitude:
		if sys == models.UnitUS {
			return Foot
		}
		return Meter
	case GroupRadiation:
		return WattPerM2
	case GroupUV:
		return UVIndex
	}
	return ""
}

// toBase converts a value to the group's base unit (degree_C, hPa, mm,
// mm/h, m/s, km, meter).
var toBase = map[Unit]func(float64) float64{
	DegreeC:     identity,
	DegreeF:     func(v float64) float64 { return (v - 32.0) * 5.0 / 9.0 },
	HPa:         identity,
	InHg:        func(v float64) float64 { return v * 33.8639 },
	Percent:     identity,
	MM:          identity,
	CM:          func(v float64) float64 { return v * 10.0 },
	Inch:        func(v float64) float64 { return v * 25.4 },
	MMPerHour:   identity,
	CMPerHour:   func(v float64) float64 { return v * 10.0 },
	InchPerHour: func(v float64) float64 { return v * 25.4 },
	MeterPerSec: identity,
	KmPerHour:   func(v float64) float64 { return v / 3.6 },
	MilePerHour: func(v float64) float64 { return v * 0.44704 },
	Knot:        func(v float64) float64 { return v * 0.514444 },
	Degree:      identity,
	Km:          identity,
	Mile:        func(v float64) float64 { return v * 1.609344 },
	Meter:       identity,
	Foot:        func(v float64) float64 { return v * 0.3048 },
	WattPerM2:   identity,
	UVIndex:     identity,
}

// fromBase converts a value in the group's base unit to the target unit.
var fromBase = map[Unit]func(float64) float64{
	DegreeC:     identity,
	DegreeF:     func(v float64) float64 { return v*9.0/5.0 + 32.0 },
	HPa:         identity,
	InHg:        func(v float64) float64 { return v / 33.8639 },
	Percent:     identity,
	MM:          identity,
	CM:          func(v float64) float64 { return v / 10.0 },
	Inch:        func(v float64) float64 { return v / 25.4 },
	MMPerHour:   identity,
	CMPerHour:   func(v float64) float64 { return v / 10.0 },
	InchPerHour: func(v float64) float64 { return v / 25.4 },
	MeterPerSec: identity,
	KmPerHour:   func(v float64) float64 { return v * 3.6 },
	MilePerHour: func(v float64) float64 { return v / 0.44704 },
	Knot:        func(v float64) float64 { return v / 0.514444 },
	Degree:      identity,
	Km:          identity,
	Mile:        func(v float64) float64 { return v / 1.609344 },
	Meter:       identity,
	Foot:        func(v float64) float64 { return v / 0.3048 },
	WattPerM2:   identity,
	UVIndex:     identity,
}

// compatible maps each unit to its group so cross-group conversions can be
// rejected.
var unitGroup = map[Unit]Group{
	DegreeC: GroupTemperature, DegreeF: GroupTemperature,
	HPa: GroupPressure, InHg: GroupPressure,
	Percent: GroupPercent,
	MM:      GroupRain, CM: GroupRain, Inch: GroupRain,
	MMPerHour: GroupRainRate, CMPerHour: GroupRainRate, InchPerHour: GroupRainRate,
	MeterPerSec: GroupSpeed, KmPerHour: GroupSpeed, MilePerHour: GroupSpeed, Knot: GroupSpeed,
	Degree: GroupDirection,
	Km:     GroupDistance, Mile: GroupDistance,
	Meter: GroupAltitude, Foot: GroupAltitude,
	WattPerM2: GroupRadiation,
	UVIndex:   GroupUV,
}

func identity(v float64) float64 { return v }

// Convert converts a tagged value to the target unit. Converting between
// units of different groups is a caller bug and returns an error.
func Convert(v Value, to Unit) (Value, error) {
	if v.Unit == to {
		return v, nil
	}
	gFrom, okFrom := unitGroup[v.Unit]
	gTo, okTo := unitGroup[to]
	if !okFrom || !okTo {
		return Value{}, fmt.Errorf("unknown unit in conversion %q -> %q", v.Unit, to)
	}
	if gFrom != gTo {
		return Value{}, fmt.Errorf("cannot convert %q to %q: different unit groups", v.Unit, to)
	}
	base := toBase[v.Unit](v.V)
	return Value{V: fromBase[to](base), Unit: to}, nil
}

// MustConvert is Convert for unit pairs known at compile time.
func MustConvert(v Value, to Unit) float64 {
	out, err := Convert(v, to)
	if err != nil {
		panic(err)
	}
	return out.V
}

// ConvertSample converts every field of a sample to the target unit
// system. Fields in dimensionless groups pass through unchanged. Samples
// with no established unit system cannot be converted.
func ConvertSample(s models.Sample, to models.UnitSystem) (models.Sample, error) {
	if s.Units == to {
		return s, nil
	}
	if s.Units == models.UnitNone {
		return models.Sample{}, fmt.Errorf("sample has no unit system")
	}
	out := models.NewSample(s.TS, to)
	for obs, v := range s.Fields {
		g := GroupOf(obs)
		if g == GroupNone {
			out.Fields[obs] = v
			continue
		}
		from := StandardUnit(s.Units, g)
		target := StandardUnit(to, g)
		cv, err := Convert(Value{V: v, Unit: from}, target)
		if err != nil {
			return models.Sample{}, fmt.Errorf("convert %s: %w", obs, err)
		}
		out.Fields[obs] = cv.V
	}
	return out, nil
}
