package models

// Obs identifies a single observation type carried in station packets.
// The set of names is closed; packets may carry any subset of them.
type Obs string

const (
	OutTemp     Obs = "outTemp"
	InTemp      Obs = "inTemp"
	OutHumidity Obs = "outHumidity"
	InHumidity  Obs = "inHumidity"
	Barometer   Obs = "barometer"
	WindSpeed   Obs = "windSpeed"
	WindDir     Obs = "windDir"
	WindGust    Obs = "windGust"
	Rain        Obs = "rain"
	RainRate    Obs = "rainRate"
	Dewpoint    Obs = "dewpoint"
	WindChill   Obs = "windchill"
	HeatIndex   Obs = "heatindex"
	Humidex     Obs = "humidex"
	AppTemp     Obs = "appTemp"
	Radiation   Obs = "radiation"
	MaxSolarRad Obs = "maxSolarRad"
	UV          Obs = "UV"
	Cloudbase   Obs = "cloudbase"
	WindRun     Obs = "windrun"
)

// Manifest lists the observations the stats buffer tracks.
var Manifest = []Obs{
	OutTemp, Barometer, OutHumidity, Rain, RainRate,
	Humidex, WindChill, HeatIndex, WindSpeed, InTemp,
	AppTemp, Dewpoint, WindDir,
}

// HiLoManifest lists the observations for which daily min/max are kept.
var HiLoManifest = []Obs{
	OutTemp, Barometer, OutHumidity, Humidex, WindChill,
	HeatIndex, WindSpeed, InTemp, AppTemp, Dewpoint,
}

// HistManifest lists the observations for which a bounded history window
// is kept.
var HistManifest = []Obs{WindSpeed, WindDir}

// SumManifest lists the accumulator observations.
var SumManifest = []Obs{Rain}

// CacheManifest lists the fields that must be present in every snapshot
// read from the packet cache, stale or not. Downstream fixed-layout
// formatting depends on this key set being stable.
var CacheManifest = []Obs{
	Cloudbase, WindDir, WindRun, InHumidity, OutHumidity,
	Barometer, Radiation, Rain, RainRate, WindSpeed,
	AppTemp, Dewpoint, HeatIndex, Humidex, InTemp,
	OutTemp, WindChill, UV,
}

// InManifest reports whether obs is tracked by the stats buffer.
func InManifest(obs Obs) bool {
	for _, o := range Manifest {
		if o == obs {
			return true
		}
	}
	return false
}

// TrackHiLo reports whether daily min/max are kept for obs.
func TrackHiLo(obs Obs) bool {
	for _, o := range HiLoManifest {
		if o == obs {
			return true
		}
	}
	return false
}

// TrackHistory reports whether a history window is kept for obs.
func TrackHistory(obs Obs) bool {
	for _, o := range HistManifest {
		if o == obs {
			return true
		}
	}
	return false
}

// TrackSum reports whether running sums are kept for obs.
func TrackSum(obs Obs) bool {
	for _, o := range SumManifest {
		if o == obs {
			return true
		}
	}
	return false
}
