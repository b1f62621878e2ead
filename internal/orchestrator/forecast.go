package orchestrator

import (
	"context"

	"github.com/stonezone/surfcastai/internal/scoring"
	"github.com/stonezone/surfcastai/internal/validation/analyzer"
)

// runForecast chains collect (unless SkipCollection) → process → fuse →
// persist. The persist step writes inside one BEGIN IMMEDIATE transaction,
// matching spec §5's "totally ordered" guarantee: a forecast row is never
// visible without its predictions, and vice versa.
func runForecast(ctx context.Context, d Deps, opts Options) (Result, error) {
	var bundleID string

	if opts.SkipCollection {
		b, err := loadBundle(d.Bundles, opts.BundleID)
		if err != nil {
			return Result{}, err
		}
		bundleID = b.ID
	} else {
		collected, err := runCollect(ctx, d)
		if err != nil {
			return Result{}, err
		}
		bundleID = collected.BundleID
	}

	b, err := loadBundle(d.Bundles, bundleID)
	if err != nil {
		return Result{}, err
	}

	cache := accuracyCacheFromStore(ctx, d)

	forecast, err := buildForecast(d, b.Root, b.ID, nowUTC(d), horizonDaysOrDefault(opts), cache)
	if err != nil {
		return Result{}, err
	}

	if d.Store != nil {
		if err := persistForecast(ctx, d.Store, forecast); err != nil {
			return Result{}, err
		}
	}

	return Result{BundleID: b.ID, Forecast: &forecast}, nil
}

// accuracyCacheFromStore runs C13's analyzer against the current store,
// if one is configured, and wraps the result as a scoring.AccuracyCache.
// Returns a literal nil (not a typed nil wrapped in the interface) when
// there's no store or not enough validation history yet, so
// ScoreSource/HistoricalAccuracy's own nil check falls back to the
// default correctly.
func accuracyCacheFromStore(ctx context.Context, d Deps) scoring.AccuracyCache {
	if d.Store == nil {
		return nil
	}
	report, err := analyzer.Analyze(ctx, d.Store.DB(), nowUTC(d), analyzer.DefaultOptions())
	if err != nil || !report.HasData {
		return nil
	}
	return analyzer.NewCache(report)
}
