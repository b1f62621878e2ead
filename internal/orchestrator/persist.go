package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/stonezone/surfcastai/internal/domain"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

// categoryForHeightFt buckets a Hawaiian-scale face height into the
// informal surf-condition vocabulary the narrative parser (C11) already
// recognizes. fusion.Fuse itself has no notion of category — it deals
// only in continuous heights — so the orchestrator assigns one at
// persistence time, purely so validation can compare a prediction's
// bucket against an actual's.
func categoryForHeightFt(heightFt float64) string {
	switch {
	case heightFt < 1:
		return "flat"
	case heightFt < 3:
		return "small"
	case heightFt < 5:
		return "fun"
	case heightFt < 8:
		return "good"
	case heightFt < 12:
		return "epic"
	default:
		return "dangerous"
	}
}

// persistForecast writes one FusedForecast and all of its per-shore
// predictions inside a single BEGIN IMMEDIATE transaction (C10), so a
// reader never observes a forecast row without its predictions.
func persistForecast(ctx context.Context, s *store.Store, forecast domain.FusedForecast) error {
	crJSON, err := json.Marshal(forecast.ConfidenceReport)
	if err != nil {
		return fmt.Errorf("marshal confidence report: %w", err)
	}

	f := store.Forecast{
		ForecastID:       forecast.ForecastID,
		CreatedAt:        forecast.GeneratedAt,
		BundleID:         forecast.BundleID,
		Status:           "complete",
		ConfidenceReport: string(crJSON),
	}

	shores := make([]domain.Shore, 0, len(forecast.ShoreForecasts))
	for shore := range forecast.ShoreForecasts {
		shores = append(shores, shore)
	}
	sort.Slice(shores, func(i, j int) bool { return shores[i] < shores[j] })

	var predictions []store.Prediction
	for _, shore := range shores {
		sf := forecast.ShoreForecasts[shore]
		for _, p := range sf.Predictions {
			predictions = append(predictions, store.Prediction{
				ForecastID:         forecast.ForecastID,
				Shore:              string(shore),
				ForecastTime:       forecast.GeneratedAt,
				ValidTime:          p.ValidTimeWindow,
				PredictedHeight:    p.FaceHeightFtH13,
				PredictedPeriod:    p.PrimaryPeriodS,
				PredictedDirection: p.PrimaryDirection,
				PredictedCategory:  categoryForHeightFt(p.FaceHeightFtH13),
				Confidence:         forecast.ConfidenceReport.Overall,
			})
		}
	}

	return s.PersistForecastRun(ctx, f, predictions)
}
