package fusion

import (
	"fmt"
	"sort"

	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/domain"
)

// Inputs collects everything one fusion run needs: all SwellEvents
// already built by BuildBuoyEvent/BuildModelEvent/BuildMarineForecastEvent/
// BuildStormArrivalEvent, per-shore Hawaiian-scale factors, per-source
// reliability scores, and the already-computed confidence report (C9).
type Inputs struct {
	BundleID          string
	GeneratedAt       string
	Events            []domain.SwellEvent
	ShoreScales       map[domain.Shore]config.ShoreScale
	SourceScores      map[string]domain.SourceScore
	ConflictThreshold float64
	ConfidenceReport  domain.ConfidenceReport
	StormArrivals     []domain.Arrival
}

// Fuse assembles a FusedForecast per spec §4.7: shore mapping by
// direction band, Hawaiian-scale conversion, conflict-flagged blending
// of disagreeing same-time buoy/model events, and trend computation
// across each shore's timeline.
func Fuse(in Inputs) domain.FusedForecast {
	threshold := in.ConflictThreshold
	if threshold <= 0 {
		threshold = DefaultConflictThresholdFt
	}

	shoreForecasts := make(map[domain.Shore]domain.ShoreForecast, len(domain.AllShores))
	conflicts := make([]map[string]any, 0)

	for _, shore := range domain.AllShores {
		scale := in.ShoreScales[shore]
		candidates := eventsForShore(in.Events, shore)
		predictions, shoreConflicts := buildPredictions(candidates, scale, in.SourceScores, threshold)
		ApplyTrends(predictions)

		shoreForecasts[shore] = domain.ShoreForecast{Shore: shore, Predictions: predictions}
		conflicts = append(conflicts, shoreConflicts...)
	}

	metadata := map[string]any{"source_scores": in.SourceScores}
	if len(conflicts) > 0 {
		metadata["conflicts"] = conflicts
	}

	return domain.FusedForecast{
		ForecastID:       fmt.Sprintf("forecast_%s", in.BundleID),
		GeneratedAt:      in.GeneratedAt,
		BundleID:         in.BundleID,
		SwellEvents:      in.Events,
		ShoreForecasts:   shoreForecasts,
		StormArrivals:    in.StormArrivals,
		ConfidenceReport: in.ConfidenceReport,
		SourceScores:     in.SourceScores,
		Metadata:         metadata,
	}
}

// eventsForShore filters events whose primary direction falls in the
// shore's accepted band. Events matching no shore are still present in
// Inputs.Events (and thus FusedForecast.SwellEvents) but excluded here.
func eventsForShore(events []domain.SwellEvent, shore domain.Shore) []domain.SwellEvent {
	var matched []domain.SwellEvent
	for _, e := range events {
		for _, s := range ShoresAccepting(e.PrimaryDirection) {
			if s == shore {
				matched = append(matched, e)
				break
			}
		}
	}
	return matched
}

// buildPredictions groups a shore's candidate events by start time,
// resolving buoy/model conflicts within each time bucket, and converts
// each to a Hawaiian-scale ShorePrediction ordered chronologically.
func buildPredictions(events []domain.SwellEvent, scale config.ShoreScale, scores map[string]domain.SourceScore, threshold float64) ([]domain.ShorePrediction, []map[string]any) {
	byTime := make(map[string][]domain.SwellEvent)
	var times []string
	for _, e := range events {
		if _, seen := byTime[e.StartTime]; !seen {
			times = append(times, e.StartTime)
		}
		byTime[e.StartTime] = append(byTime[e.StartTime], e)
	}
	sort.Strings(times)

	var predictions []domain.ShorePrediction
	var conflicts []map[string]any

	for _, t := range times {
		bucket := byTime[t]
		dominant := bucket[0].DominantPrimary()
		heightM := dominant.HeightM

		buoy, model, hasBoth := buoyAndModel(bucket)
		if hasBoth {
			buoyFt := buoy.DominantPrimary().HeightM * metersToFeet
			modelFt := model.DominantPrimary().HeightM * metersToFeet
			resolution := ResolveConflict(buoyFt, modelFt, scores[buoy.Source], scores[model.Source], threshold)
			heightM = resolution.ResolvedFt / metersToFeet
			if resolution.Conflicted {
				conflicts = append(conflicts, map[string]any{
					"time":            t,
					"disagreement_ft": resolution.DisagreementFt,
					"buoy_weight":     resolution.BuoyWeight,
					"model_weight":    resolution.ModelWeight,
				})
			}
		}

		h13, h110 := FaceHeightFt(heightM, dominant.PeriodS, scale)
		predictions = append(predictions, domain.ShorePrediction{
			ValidTimeWindow:  t,
			FaceHeightFtH13:  h13,
			FaceHeightFtH110: h110,
			PrimaryDirection: dominant.DirectionDeg,
			PrimaryPeriodS:   dominant.PeriodS,
		})
	}

	return predictions, conflicts
}

// buoyAndModel finds one buoy-sourced and one model-sourced event in a
// time bucket, if both are present.
func buoyAndModel(bucket []domain.SwellEvent) (buoy, model domain.SwellEvent, hasBoth bool) {
	var foundBuoy, foundModel bool
	for _, e := range bucket {
		switch e.Source {
		case domain.SourceBuoy, domain.SourceBuoySpectral:
			if !foundBuoy {
				buoy, foundBuoy = e, true
			}
		case domain.SourceModel:
			if !foundModel {
				model, foundModel = e, true
			}
		}
	}
	return buoy, model, foundBuoy && foundModel
}
