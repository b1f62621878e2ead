package fusion

import (
	"fmt"

	"github.com/stonezone/surfcastai/internal/domain"
	"github.com/stonezone/surfcastai/internal/propagation"
)

// BuoyReading is one buoy's latest scalar observation, optionally paired
// with a spectral decomposition when its .spec file parsed successfully.
type BuoyReading struct {
	StationID    string
	Timestamp    string
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
	Spectral     *domain.SpectralAnalysisResult
}

// BuildBuoyEvent produces one SwellEvent per spec §4.7: prefer the
// spectral decomposition (dominant peak primary, remaining peaks
// secondary) when available, else synthesize a single primary
// component from the buoy's scalar reading.
func BuildBuoyEvent(r BuoyReading) (domain.SwellEvent, error) {
	event := domain.SwellEvent{
		EventID:   fmt.Sprintf("buoy_%s_%s", r.StationID, r.Timestamp),
		StartTime: r.Timestamp,
		PeakTime:  r.Timestamp,
		Source:    domain.SourceBuoy,
		Metadata:  map[string]any{"station_id": r.StationID},
	}

	if r.Spectral != nil && len(r.Spectral.Peaks) > 0 {
		event.Source = domain.SourceBuoySpectral
		event.PrimaryComponents = []domain.SwellComponent{r.Spectral.Peaks[0].SwellComponent}
		for _, p := range r.Spectral.Peaks[1:] {
			event.SecondaryComponents = append(event.SecondaryComponents, p.SwellComponent)
		}
	} else {
		comp, err := domain.NewSwellComponent(r.HeightM, r.PeriodS, r.DirectionDeg, 0.75, domain.SourceBuoy)
		if err != nil {
			return domain.SwellEvent{}, fmt.Errorf("buoy event %s: %w", r.StationID, err)
		}
		event.PrimaryComponents = []domain.SwellComponent{comp}
	}

	dominant := event.DominantPrimary()
	event.PrimaryDirection = dominant.DirectionDeg
	event.Significance = dominant.HeightM

	if err := event.Validate(); err != nil {
		return domain.SwellEvent{}, err
	}
	return event, nil
}

// ModelGridSample is one wave-model grid-time aggregate (the output of
// internal/agents' ERDDAP grid aggregation).
type ModelGridSample struct {
	Timestamp    string
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
}

// BuildModelEvent produces one SwellEvent per model grid time.
func BuildModelEvent(s ModelGridSample) (domain.SwellEvent, error) {
	comp, err := domain.NewSwellComponent(s.HeightM, s.PeriodS, s.DirectionDeg, 0.7, domain.SourceModel)
	if err != nil {
		return domain.SwellEvent{}, fmt.Errorf("model event %s: %w", s.Timestamp, err)
	}

	event := domain.SwellEvent{
		EventID:           fmt.Sprintf("model_%s", s.Timestamp),
		StartTime:         s.Timestamp,
		PeakTime:          s.Timestamp,
		PrimaryDirection:  comp.DirectionDeg,
		Significance:      comp.HeightM,
		Source:            domain.SourceModel,
		PrimaryComponents: []domain.SwellComponent{comp},
	}
	return event, event.Validate()
}

// MarineForecastSample is one named-location, per-hour prediction from a
// marine-forecast API.
type MarineForecastSample struct {
	Location     string
	Timestamp    string
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
}

// BuildMarineForecastEvent produces one SwellEvent per location/time.
func BuildMarineForecastEvent(s MarineForecastSample) (domain.SwellEvent, error) {
	comp, err := domain.NewSwellComponent(s.HeightM, s.PeriodS, s.DirectionDeg, 0.6, domain.SourceMarineForecast)
	if err != nil {
		return domain.SwellEvent{}, fmt.Errorf("marine forecast event %s/%s: %w", s.Location, s.Timestamp, err)
	}

	event := domain.SwellEvent{
		EventID:           fmt.Sprintf("marine_%s_%s", s.Location, s.Timestamp),
		StartTime:         s.Timestamp,
		PeakTime:          s.Timestamp,
		PrimaryDirection:  comp.DirectionDeg,
		Significance:      comp.HeightM,
		Source:            domain.SourceMarineForecast,
		PrimaryComponents: []domain.SwellComponent{comp},
		Metadata:          map[string]any{"location": s.Location},
	}
	return event, event.Validate()
}

// BuildStormArrivalEvent produces a future-dated SwellEvent from a
// storm's propagated arrival, source=pressure_chart. Direction is the
// bearing from the destination back to the storm's origin (the
// meteorological "coming from" convention).
func BuildStormArrivalEvent(arrival domain.Arrival, storm domain.StormInfo, destination domain.GeoPoint) (domain.SwellEvent, error) {
	directionDeg := propagation.BearingDeg(destination, storm.Location)
	heightM := arrival.HeightFt / metersToFeet

	comp, err := domain.NewSwellComponent(heightM, arrival.PeriodS, directionDeg, arrival.Confidence, domain.SourcePressureChart)
	if err != nil {
		return domain.SwellEvent{}, fmt.Errorf("storm arrival event %s: %w", arrival.StormID, err)
	}

	event := domain.SwellEvent{
		EventID:           fmt.Sprintf("arrival_%s", arrival.StormID),
		StartTime:         arrival.ArrivalTime,
		PeakTime:          arrival.ArrivalTime,
		PrimaryDirection:  comp.DirectionDeg,
		Significance:      comp.HeightM,
		Source:            domain.SourcePressureChart,
		PrimaryComponents: []domain.SwellComponent{comp},
		Metadata: map[string]any{
			"storm_id":          arrival.StormID,
			"distance_nm":       arrival.DistanceNM,
			"travel_time_h":     arrival.TravelTimeH,
			"group_velocity_kt": arrival.GroupVelocityKt,
		},
	}
	return event, event.Validate()
}
