// Package analyzer implements the forecast-performance analyzer (spec
// §4.13, C13): time-windowed SQL aggregates over the validations/
// predictions join, with adaptive window widening when recent samples
// are too sparse to trust.
package analyzer

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Defaults per spec §4.13.
const (
	DefaultMinSamples         = 10
	DefaultOutlierThresholdFt = 10.0
	DefaultBiasMinSamples     = 3
	DefaultInitialWindowDays  = 14
	DefaultWindowCapDays      = 30

	overpredictBiasFt  = 1.0
	underpredictBiasFt = -1.0
)

// BiasClassification categorizes a shore's recent systematic error.
type BiasClassification string

const (
	Overpredicting  BiasClassification = "OVERPREDICTING"
	Underpredicting BiasClassification = "UNDERPREDICTING"
	Balanced        BiasClassification = "BALANCED"
)

// ShoreAggregate is one shore's windowed performance summary.
type ShoreAggregate struct {
	Shore                 string
	Count                 int
	AvgMAE                float64
	AvgRMSE               float64
	AvgBias               float64
	CategoricalAccuracy   float64
	Bias                  BiasClassification
	HasBiasClassification bool
}

// OverallAggregate is the same metrics collapsed across all shores.
type OverallAggregate struct {
	Count               int
	AvgMAE              float64
	AvgRMSE             float64
	AvgBias             float64
	CategoricalAccuracy float64
}

// Report is Analyze's full result, including whether the adaptive
// window search found enough data to be meaningful at all.
type Report struct {
	HasData    bool
	WindowDays int
	Overall    OverallAggregate
	PerShore   []ShoreAggregate
}

// Options configures Analyze, defaulting to spec §4.13's stated values.
type Options struct {
	MinSamples         int
	BiasMinSamples     int
	OutlierThresholdFt float64
	InitialWindowDays  int
	WindowCapDays      int
}

// DefaultOptions returns spec §4.13's stated defaults.
func DefaultOptions() Options {
	return Options{
		MinSamples:         DefaultMinSamples,
		BiasMinSamples:     DefaultBiasMinSamples,
		OutlierThresholdFt: DefaultOutlierThresholdFt,
		InitialWindowDays:  DefaultInitialWindowDays,
		WindowCapDays:      DefaultWindowCapDays,
	}
}

// Analyze runs the three time-windowed queries over db, widening the
// window (doubling, capped) when the overall sample count is below
// MinSamples and the current window hasn't exceeded 14 days, per spec
// §4.13's adaptive-window rule.
func Analyze(ctx context.Context, db *sql.DB, now time.Time, opts Options) (Report, error) {
	return analyzeWindow(ctx, db, now, opts.InitialWindowDays, opts)
}

func analyzeWindow(ctx context.Context, db *sql.DB, now time.Time, windowDays int, opts Options) (Report, error) {
	since := now.AddDate(0, 0, -windowDays).UTC().Format(time.RFC3339)

	overall, err := queryOverall(ctx, db, since, opts.OutlierThresholdFt)
	if err != nil {
		return Report{}, err
	}

	if overall.Count < opts.MinSamples && windowDays <= 14 {
		nextWindow := windowDays * 2
		if nextWindow > opts.WindowCapDays {
			nextWindow = opts.WindowCapDays
		}
		if nextWindow > windowDays {
			return analyzeWindow(ctx, db, now, nextWindow, opts)
		}
	}

	if overall.Count < opts.MinSamples {
		return Report{HasData: false, WindowDays: windowDays}, nil
	}

	perShore, err := queryPerShore(ctx, db, since, opts.OutlierThresholdFt)
	if err != nil {
		return Report{}, err
	}

	biasByShore, err := queryBias(ctx, db, since, opts.OutlierThresholdFt, opts.BiasMinSamples)
	if err != nil {
		return Report{}, err
	}
	for i := range perShore {
		if b, ok := biasByShore[perShore[i].Shore]; ok {
			perShore[i].Bias = b
			perShore[i].HasBiasClassification = true
		}
	}

	return Report{
		HasData:    true,
		WindowDays: windowDays,
		Overall:    overall,
		PerShore:   perShore,
	}, nil
}

const aggregateSelect = `
	COUNT(*), AVG(v.mae), AVG(v.rmse), AVG(v.height_error), AVG(v.category_match)
	FROM validations v
	JOIN predictions p ON v.prediction_id = p.id
	WHERE v.validated_at >= ? AND ABS(v.height_error) < ?`

func queryOverall(ctx context.Context, db *sql.DB, since string, outlierThresholdFt float64) (OverallAggregate, error) {
	row := db.QueryRowContext(ctx, "SELECT "+aggregateSelect, since, outlierThresholdFt)

	var agg OverallAggregate
	var mae, rmse, bias, catAcc sql.NullFloat64
	if err := row.Scan(&agg.Count, &mae, &rmse, &bias, &catAcc); err != nil {
		return OverallAggregate{}, fmt.Errorf("query overall aggregate: %w", err)
	}
	agg.AvgMAE, agg.AvgRMSE, agg.AvgBias, agg.CategoricalAccuracy = mae.Float64, rmse.Float64, bias.Float64, catAcc.Float64
	return agg, nil
}

func queryPerShore(ctx context.Context, db *sql.DB, since string, outlierThresholdFt float64) ([]ShoreAggregate, error) {
	query := "SELECT p.shore, " + aggregateSelect + " GROUP BY p.shore"
	rows, err := db.QueryContext(ctx, query, since, outlierThresholdFt)
	if err != nil {
		return nil, fmt.Errorf("query per-shore aggregate: %w", err)
	}
	defer rows.Close()

	var out []ShoreAggregate
	for rows.Next() {
		var agg ShoreAggregate
		var mae, rmse, bias, catAcc sql.NullFloat64
		if err := rows.Scan(&agg.Shore, &agg.Count, &mae, &rmse, &bias, &catAcc); err != nil {
			return nil, fmt.Errorf("scan per-shore aggregate: %w", err)
		}
		agg.AvgMAE, agg.AvgRMSE, agg.AvgBias, agg.CategoricalAccuracy = mae.Float64, rmse.Float64, bias.Float64, catAcc.Float64
		out = append(out, agg)
	}
	return out, rows.Err()
}

func queryBias(ctx context.Context, db *sql.DB, since string, outlierThresholdFt float64, biasMinSamples int) (map[string]BiasClassification, error) {
	query := `
		SELECT p.shore, AVG(v.height_error) AS avg_bias
		FROM validations v
		JOIN predictions p ON v.prediction_id = p.id
		WHERE v.validated_at >= ? AND ABS(v.height_error) < ?
		GROUP BY p.shore
		HAVING COUNT(*) >= ?`

	rows, err := db.QueryContext(ctx, query, since, outlierThresholdFt, biasMinSamples)
	if err != nil {
		return nil, fmt.Errorf("query bias classification: %w", err)
	}
	defer rows.Close()

	out := make(map[string]BiasClassification)
	for rows.Next() {
		var shore string
		var avgBias float64
		if err := rows.Scan(&shore, &avgBias); err != nil {
			return nil, fmt.Errorf("scan bias classification: %w", err)
		}
		out[shore] = classifyBias(avgBias)
	}
	return out, rows.Err()
}

func classifyBias(avgBias float64) BiasClassification {
	switch {
	case avgBias > overpredictBiasFt:
		return Overpredicting
	case avgBias < underpredictBiasFt:
		return Underpredicting
	default:
		return Balanced
	}
}

// Cache adapts a Report into scoring.AccuracyCache, keyed by shore name
// as a practical proxy for source identity: spec §4.13 classifies
// performance per shore, while scoring's historical-accuracy factor is
// keyed per data source, so a caller using shore names as its source
// identifiers gets a direct accuracy signal from recent validations.
type Cache struct {
	report Report
}

// NewCache wraps a Report for use as a scoring.AccuracyCache.
func NewCache(report Report) Cache {
	return Cache{report: report}
}

// AccuracyFor returns an accuracy estimate derived from recent MAE,
// normalized against the outlier threshold so 0 MAE maps to 1.0
// accuracy and MAE at the threshold maps to 0.
func (c Cache) AccuracyFor(sourceID string) (float64, bool) {
	if !c.report.HasData {
		return 0, false
	}
	for _, s := range c.report.PerShore {
		if s.Shore == sourceID {
			accuracy := 1 - (absFloat(s.AvgMAE) / DefaultOutlierThresholdFt)
			if accuracy < 0 {
				accuracy = 0
			}
			if accuracy > 1 {
				accuracy = 1
			}
			return accuracy, true
		}
	}
	return 0, false
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
