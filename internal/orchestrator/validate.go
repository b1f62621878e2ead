package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stonezone/surfcastai/internal/validation/analyzer"
	"github.com/stonezone/surfcastai/internal/validation/buoyfetch"
	"github.com/stonezone/surfcastai/internal/validation/feedback"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

// matchToleranceSeconds bounds how far a prediction's valid_time and an
// actual's observation_time may drift apart and still be considered the
// same event. Validations are created asynchronously as actuals arrive
// (spec §4.12), and the spec does not name an exact matching rule; one
// hour is this implementation's documented choice, wide enough to absorb
// NDBC's reporting cadence without pairing a prediction against the
// wrong forecast cycle.
const matchToleranceSeconds = 3600

// categoryErrorToleranceFt is how far a prediction's height can be from
// an actual before its surf-condition category is considered a miss.
const categoryErrorToleranceFt = 1.5

// runValidate fetches fresh NDBC actuals for every configured buoy
// station, persists them, matches any unvalidated prediction/actual pairs
// within tolerance, and re-runs the performance analyzer.
func runValidate(ctx context.Context, d Deps, opts Options) (Result, error) {
	if err := requireStore(d); err != nil {
		return Result{}, err
	}
	if err := requireFetcher(d); err != nil {
		return Result{}, err
	}
	logger := logAt(d.Logger)

	now := nowUTC(d)
	since := now.AddDate(0, 0, -d.Config.LookbackDays)

	client := buoyfetch.NewClient(d.Fetcher, d.Config.FetchTimeout)

	var actuals []store.Actual
	for _, stationID := range d.Config.DataSources["buoy"].Stations {
		readings, err := client.FetchStation(ctx, stationID, since, now)
		if err != nil {
			logger.Warn("validation fetch failed", "station", stationID, "error", err)
			continue
		}
		for _, r := range readings {
			actuals = append(actuals, store.Actual{
				BuoyID:          r.BuoyID,
				ObservationTime: r.ObservationTime,
				WaveHeight:      r.WaveHeightFt,
				DominantPeriod:  r.DominantPeriodS,
				Direction:       r.DirectionDeg,
				Source:          r.Source,
			})
		}
	}

	if len(actuals) > 0 {
		if err := d.Store.PersistActuals(ctx, actuals); err != nil {
			return Result{}, err
		}
	}

	if err := matchActualsToPredictions(ctx, d.Store, now); err != nil {
		return Result{}, err
	}

	report, err := analyzer.Analyze(ctx, d.Store.DB(), now, analyzer.DefaultOptions())
	if err != nil {
		return Result{}, err
	}

	return Result{Report: &report, Guidance: feedback.Build(report)}, nil
}

// matchActualsToPredictions pairs every prediction with any actual whose
// observation_time falls within matchToleranceSeconds, for pairs that
// haven't already been validated, and persists one validations row per
// match.
func matchActualsToPredictions(ctx context.Context, s *store.Store, now time.Time) error {
	db := s.DB()

	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.forecast_id, p.predicted_height, p.predicted_period, p.predicted_direction,
		       a.id, a.wave_height, a.dominant_period, a.direction
		FROM predictions p
		JOIN actuals a
		  ON ABS(CAST(strftime('%s', p.valid_time) AS INTEGER) - CAST(strftime('%s', a.observation_time) AS INTEGER)) <= ?
		WHERE NOT EXISTS (
			SELECT 1 FROM validations v WHERE v.prediction_id = p.id AND v.actual_id = a.id
		)`, matchToleranceSeconds)
	if err != nil {
		return fmt.Errorf("match actuals to predictions: %w", err)
	}

	type match struct {
		predictionID                                   int64
		forecastID                                     string
		predictedHeight, predictedPeriod, predictedDir float64
		actualID                                        int64
		actualHeight, actualPeriod, actualDir           float64
	}
	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(
			&m.predictionID, &m.forecastID, &m.predictedHeight, &m.predictedPeriod, &m.predictedDir,
			&m.actualID, &m.actualHeight, &m.actualPeriod, &m.actualDir,
		); err != nil {
			rows.Close()
			return fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, m := range matches {
		heightErr := m.predictedHeight - m.actualHeight
		periodErr := m.predictedPeriod - m.actualPeriod
		directionErr := angularDiffDeg(m.predictedDir, m.actualDir)
		mae := math.Abs(heightErr)
		rmse := math.Sqrt(heightErr * heightErr)

		_, err := s.PersistValidation(ctx, store.Validation{
			ForecastID:     m.forecastID,
			PredictionID:   m.predictionID,
			ActualID:       m.actualID,
			ValidatedAt:    now.Format(time.RFC3339),
			HeightError:    heightErr,
			PeriodError:    periodErr,
			DirectionError: directionErr,
			CategoryMatch:  mae <= categoryErrorToleranceFt,
			MAE:            mae,
			RMSE:           rmse,
		})
		if err != nil {
			return fmt.Errorf("persist validation for prediction %d: %w", m.predictionID, err)
		}
	}

	return nil
}

// angularDiffDeg returns the smallest angle between two compass
// directions, in [0, 180] degrees.
func angularDiffDeg(a, b float64) float64 {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
