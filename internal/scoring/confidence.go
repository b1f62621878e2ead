package scoring

import (
	"math"

	"github.com/stonezone/surfcastai/internal/domain"
)

// ModelConsensus computes 1 minus the normalized standard deviation of
// primary-component heights across model sources, per spec §4.9: a
// single source defaults to 0.7, zero sources to 0.5.
func ModelConsensus(heightsM []float64) float64 {
	switch len(heightsM) {
	case 0:
		return 0.5
	case 1:
		return 0.7
	}

	mean := 0.0
	for _, h := range heightsM {
		mean += h
	}
	mean /= float64(len(heightsM))

	if mean == 0 {
		return 0.5
	}

	var sumSq float64
	for _, h := range heightsM {
		d := h - mean
		sumSq += d * d
	}
	stdev := math.Sqrt(sumSq / float64(len(heightsM)))
	normalized := stdev / mean

	consensus := 1 - normalized
	return math.Max(0, math.Min(1, consensus))
}

// SourceReliability is the mean of OverallScore across all sources.
func SourceReliability(scores map[string]domain.SourceScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.OverallScore
	}
	return sum / float64(len(scores))
}

// DataCompleteness is the fraction of expected source types present
// among the ones observed in this run.
func DataCompleteness(expectedTypes, presentTypes []string) float64 {
	if len(expectedTypes) == 0 {
		return 1
	}
	present := make(map[string]bool, len(presentTypes))
	for _, t := range presentTypes {
		present[t] = true
	}
	count := 0
	for _, t := range expectedTypes {
		if present[t] {
			count++
		}
	}
	return float64(count) / float64(len(expectedTypes))
}

// ForecastHorizonScore implements max(0.5, 1.0 - horizon_days*0.1).
func ForecastHorizonScore(horizonDays float64) float64 {
	return math.Max(0.5, 1.0-horizonDays*0.1)
}

// ExpectedSourceTypes is the canonical set DataCompleteness checks
// against, per spec §4.9.
var ExpectedSourceTypes = []string{"buoy", "model", "pressure", "altimetry"}

// BuildConfidenceReport assembles a domain.ConfidenceReport from the
// fusion run's inputs: per-model primary-component heights, all source
// scores, the observed source types, the forecast horizon in days, and
// the buoy/pressure/model confidence breakdown.
func BuildConfidenceReport(modelHeightsM []float64, sourceScores map[string]domain.SourceScore, presentSourceTypes []string, horizonDays float64, historicalAccuracy float64, breakdown domain.ConfidenceBreakdown, buoyCount int) domain.ConfidenceReport {
	factors := domain.ConfidenceFactors{
		ModelConsensus:     ModelConsensus(modelHeightsM),
		SourceReliability:  SourceReliability(sourceScores),
		DataCompleteness:   DataCompleteness(ExpectedSourceTypes, presentSourceTypes),
		ForecastHorizon:    ForecastHorizonScore(horizonDays),
		HistoricalAccuracy: historicalAccuracy,
	}
	overall := domain.ComputeOverall(factors)

	return domain.ConfidenceReport{
		Overall:   overall,
		Category:  domain.CategoryFor(overall),
		Factors:   factors,
		Breakdown: breakdown,
		Warnings:  confidenceWarnings(overall, factors, horizonDays, buoyCount),
	}
}

// confidenceWarnings applies spec §4.9's deterministic warning rules.
// All matching rules fire; there is no early return.
func confidenceWarnings(overall float64, factors domain.ConfidenceFactors, horizonDays float64, buoyCount int) []string {
	var warnings []string

	if overall < 0.4 {
		warnings = append(warnings, "very low confidence")
	}
	if factors.DataCompleteness < 0.5 {
		warnings = append(warnings, "limited data sources")
	}
	if factors.ModelConsensus < 0.5 {
		warnings = append(warnings, "significant disagreement between models")
	}
	if buoyCount == 0 {
		warnings = append(warnings, "no buoy data")
	}
	if horizonDays > 5 {
		warnings = append(warnings, "long forecast horizon")
	}

	return warnings
}
