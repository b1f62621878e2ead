package domain

import "fmt"

// Component type tags used on SpectralPeak and as SwellEvent.Source values.
const (
	ComponentSwell    = "swell"
	ComponentWindWave = "wind_wave"

	SourceBuoy           = "buoy"
	SourceBuoySpectral   = "buoy_spectral"
	SourceModel          = "model"
	SourcePressureChart  = "pressure_chart"
	SourceMarineForecast = "marine_forecast"
)

// SwellComponent is a single scalar wave train: a height/period/direction
// triple with an associated confidence and provenance tag. Periods must
// lie in [4, 30] seconds (out-of-range values are rejected, not clamped)
// and directions are normalized on construction; heights must be
// non-negative.
type SwellComponent struct {
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
	Confidence   float64
	SourceTag    string
	Metadata     map[string]any
}

// NewSwellComponent validates and normalizes a SwellComponent. Returns an
// error if height is negative or period falls outside [4, 30]s.
func NewSwellComponent(heightM, periodS, directionDeg, confidence float64, sourceTag string) (SwellComponent, error) {
	if heightM < 0 {
		return SwellComponent{}, fmt.Errorf("swell component: height %.3fm is negative", heightM)
	}
	if periodS < 4 || periodS > 30 {
		return SwellComponent{}, fmt.Errorf("swell component: period %.2fs outside [4,30]", periodS)
	}
	return SwellComponent{
		HeightM:      heightM,
		PeriodS:      periodS,
		DirectionDeg: NormalizeDirection(directionDeg),
		Confidence:   confidence,
		SourceTag:    sourceTag,
	}, nil
}

// SpectralPeak extends SwellComponent with the spectral-analysis fields
// produced by the NDBC .spec parser: the frequency the peak was detected
// at, its estimated energy density, directional spread, and whether it's
// classified as swell or wind-wave energy.
type SpectralPeak struct {
	SwellComponent
	FrequencyHz        float64
	EnergyDensity      float64
	DirectionalSpread  float64
	ComponentType      string // ComponentSwell or ComponentWindWave
}

// SpectralAnalysisResult is the output of the spectral analyzer (C4) for
// one buoy at one timestamp: peaks ordered by descending energy, bounded
// by max_components, with separation criteria already enforced between
// consecutive kept peaks.
type SpectralAnalysisResult struct {
	BuoyID       string
	Timestamp    string // ISO-8601 UTC
	Peaks        []SpectralPeak
	TotalEnergy  float64
	DominantPeak *SpectralPeak
	Metadata     map[string]any
}

// Validate checks the invariants from spec §3/§8: DominantPeak equals
// Peaks[0] when non-empty, and Peaks are strictly ordered by descending
// energy.
func (r *SpectralAnalysisResult) Validate() error {
	if len(r.Peaks) == 0 {
		return nil
	}
	if r.DominantPeak == nil || r.DominantPeak.EnergyDensity != r.Peaks[0].EnergyDensity {
		return fmt.Errorf("spectral result: dominant peak does not match peaks[0]")
	}
	for i := 1; i < len(r.Peaks); i++ {
		if r.Peaks[i].EnergyDensity >= r.Peaks[i-1].EnergyDensity {
			return fmt.Errorf("spectral result: peak %d does not have lower energy than peak %d", i, i-1)
		}
	}
	return nil
}

// SwellEvent is a merged, time-anchored wave event used by the fusion
// layer: either a direct buoy reading, a spectral decomposition with
// secondary components, a model grid point, or a storm-propagation
// arrival.
type SwellEvent struct {
	EventID             string
	StartTime           string
	PeakTime            string
	PrimaryDirection    float64
	Significance        float64
	HawaiiScaleHeightFt float64
	Source              string // one of the Source* constants
	PrimaryComponents   []SwellComponent
	SecondaryComponents []SwellComponent
	Metadata            map[string]any
}

// Validate checks only that PrimaryComponents is non-empty; it does not
// check PrimaryDirection against the components. The event builders set
// PrimaryDirection from DominantPrimary (the highest primary component by
// height, since raw buoy events carry no energy density — only spectral
// peaks do).
func (e *SwellEvent) Validate() error {
	if len(e.PrimaryComponents) == 0 {
		return fmt.Errorf("swell event %s: primary_components is empty", e.EventID)
	}
	return nil
}

// DominantPrimary returns the highest-height primary component, which
// PrimaryDirection is derived from.
func (e *SwellEvent) DominantPrimary() SwellComponent {
	best := e.PrimaryComponents[0]
	for _, c := range e.PrimaryComponents[1:] {
		if c.HeightM > best.HeightM {
			best = c
		}
	}
	return best
}
