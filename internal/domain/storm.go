package domain

import "fmt"

// GeoPoint is a WGS-84 latitude/longitude pair.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// StormInfo is a single storm record extracted from pressure-chart prose
// (C5) or inferred for a named region. ID format: "{region}_{YYYYMMDD}_{seq}".
type StormInfo struct {
	StormID           string
	Location          GeoPoint
	WindSpeedKt       float64
	CentralPressureMb *float64
	FetchNM           *float64
	DurationHours     *float64
	DetectionTime     string
	Source            string
	Confidence        float64
}

// NewStormID builds the canonical storm ID from region, detection date
// (YYYYMMDD), and a per-day sequence number.
func NewStormID(region, yyyymmdd string, seq int) string {
	return fmt.Sprintf("%s_%s_%d", region, yyyymmdd, seq)
}

// StormConfidence computes the confidence formula from spec §3:
//
//	0.5 + 0.2*[has coords] + 0.15*[has pressure] + 0.10*[has fetch] + 0.05*[has duration]
func StormConfidence(hasCoords, hasPressure, hasFetch, hasDuration bool) float64 {
	c := 0.5
	if hasCoords {
		c += 0.2
	}
	if hasPressure {
		c += 0.15
	}
	if hasFetch {
		c += 0.10
	}
	if hasDuration {
		c += 0.05
	}
	return c
}

// Validate checks the geographic and confidence bounds from spec §8.
func (s *StormInfo) Validate() error {
	if s.Location.Lat < -90 || s.Location.Lat > 90 {
		return fmt.Errorf("storm %s: latitude %.4f out of range", s.StormID, s.Location.Lat)
	}
	if s.Location.Lon < -180 || s.Location.Lon > 180 {
		return fmt.Errorf("storm %s: longitude %.4f out of range", s.StormID, s.Location.Lon)
	}
	if s.WindSpeedKt <= 0 {
		return fmt.Errorf("storm %s: wind speed %.1fkt must be positive", s.StormID, s.WindSpeedKt)
	}
	if s.CentralPressureMb != nil && (*s.CentralPressureMb < 900 || *s.CentralPressureMb > 1100) {
		return fmt.Errorf("storm %s: central pressure %.1fmb out of range", s.StormID, *s.CentralPressureMb)
	}
	if s.Confidence < 0.5 || s.Confidence > 1.0 {
		return fmt.Errorf("storm %s: confidence %.3f out of [0.5,1.0]", s.StormID, s.Confidence)
	}
	return nil
}

// Arrival is the output of the swell-propagation calculation (C6): when a
// storm's generated swell reaches the destination, how big, and how
// confident the estimate is.
type Arrival struct {
	StormID         string
	ArrivalTime     string
	TravelTimeH     float64
	DistanceNM      float64
	PeriodS         float64
	HeightFt        float64
	GroupVelocityKt float64
	Confidence      float64
}
