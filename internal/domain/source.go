package domain

import "fmt"

// SourceTier is the 5-tier reliability classification from spec §4.8.
type SourceTier int

const (
	Tier1 SourceTier = 1 // NDBC, NWS, OPC, NHC
	Tier2 SourceTier = 2 // PacIOOS, CDIP, SWAN, WW3
	Tier3 SourceTier = 3 // ECMWF, BOM, UKMO, JMA
	Tier4 SourceTier = 4 // commercial marine-forecast APIs
	Tier5 SourceTier = 5 // surf sites / unverified
)

// TierScore maps a tier to its fixed weight.
func TierScore(t SourceTier) float64 {
	switch t {
	case Tier1:
		return 1.0
	case Tier2:
		return 0.9
	case Tier3:
		return 0.7
	case Tier4:
		return 0.5
	case Tier5:
		return 0.3
	default:
		return 0.3
	}
}

// SourceScoreWeights are the default weighting factors from spec §3.
type SourceScoreWeights struct {
	Tier         float64
	Freshness    float64
	Completeness float64
	Accuracy     float64
}

// DefaultSourceScoreWeights returns the spec defaults: 0.50/0.20/0.20/0.10.
func DefaultSourceScoreWeights() SourceScoreWeights {
	return SourceScoreWeights{Tier: 0.50, Freshness: 0.20, Completeness: 0.20, Accuracy: 0.10}
}

// SourceScore is the reliability score attached to a data source and
// propagated onto the data items it produced.
type SourceScore struct {
	SourceID          string
	Tier              SourceTier
	TierScoreValue    float64
	FreshnessScore    float64
	CompletenessScore float64
	AccuracyScore     float64
	OverallScore      float64
	Timestamp         string
}

// NewSourceScore computes OverallScore from the component scores using the
// given weights and validates the result lies in [0,1].
func NewSourceScore(sourceID string, tier SourceTier, freshness, completeness, accuracy float64, w SourceScoreWeights) (SourceScore, error) {
	tierScore := TierScore(tier)
	overall := w.Tier*tierScore + w.Freshness*freshness + w.Completeness*completeness + w.Accuracy*accuracy
	if overall < 0 || overall > 1 {
		return SourceScore{}, fmt.Errorf("source score %s: overall %.4f out of [0,1]", sourceID, overall)
	}
	return SourceScore{
		SourceID:          sourceID,
		Tier:              tier,
		TierScoreValue:    tierScore,
		FreshnessScore:    freshness,
		CompletenessScore: completeness,
		AccuracyScore:     accuracy,
		OverallScore:      overall,
		Timestamp:         clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// ConfidenceCategory buckets an overall confidence score per spec §3.
type ConfidenceCategory string

const (
	ConfidenceHigh   ConfidenceCategory = "high"
	ConfidenceMedium ConfidenceCategory = "medium"
	ConfidenceLow    ConfidenceCategory = "low"
)

// CategoryFor returns the category for an overall confidence value:
// high >= 0.7, medium in [0.4, 0.7), low < 0.4.
func CategoryFor(overall float64) ConfidenceCategory {
	switch {
	case overall >= 0.7:
		return ConfidenceHigh
	case overall >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceFactors are the five weighted inputs to the overall score (C9).
type ConfidenceFactors struct {
	ModelConsensus     float64
	SourceReliability  float64
	DataCompleteness   float64
	ForecastHorizon    float64
	HistoricalAccuracy float64
}

// ConfidenceBreakdown reports per-data-stream confidence alongside the
// overall weighted score.
type ConfidenceBreakdown struct {
	BuoyConfidence     float64
	PressureConfidence float64
	ModelConfidence    float64
}

// ConfidenceReport is the full confidence output attached to a
// FusedForecast.
type ConfidenceReport struct {
	Overall   float64
	Category  ConfidenceCategory
	Factors   ConfidenceFactors
	Breakdown ConfidenceBreakdown
	Warnings  []string
}

// ComputeOverall applies the weighted-sum formula from spec §3:
// 0.30*consensus + 0.25*reliability + 0.20*completeness + 0.15*horizon + 0.10*accuracy
func ComputeOverall(f ConfidenceFactors) float64 {
	return 0.30*f.ModelConsensus + 0.25*f.SourceReliability + 0.20*f.DataCompleteness +
		0.15*f.ForecastHorizon + 0.10*f.HistoricalAccuracy
}
