// Package scoring implements the source scorer (C8) and confidence
// scorer (C9): per-source reliability scores and the fused forecast's
// overall confidence report.
package scoring

import (
	"log/slog"
	"math"
	"time"

	"github.com/stonezone/surfcastai/internal/domain"
)

// DataType selects which required-field template completeness is scored
// against, per spec §4.8.
type DataType string

const (
	DataTypeBuoy    DataType = "buoy"
	DataTypeModel   DataType = "model"
	DataTypeWeather DataType = "weather"
)

// requiredFields lists the fields each data type must carry for full
// completeness credit.
var requiredFields = map[DataType][]string{
	DataTypeBuoy:    {"wave_height", "period", "direction", "timestamp"},
	DataTypeModel:   {"height", "period", "direction"},
	DataTypeWeather: {"wind_speed", "wind_direction"},
}

// Completeness returns the fraction of a data type's required fields
// present in presentFields (a set, values ignored).
func Completeness(dataType DataType, presentFields map[string]bool) float64 {
	required := requiredFields[dataType]
	if len(required) == 0 {
		return 0
	}
	count := 0
	for _, f := range required {
		if presentFields[f] {
			count++
		}
	}
	return float64(count) / float64(len(required))
}

// Freshness returns max(0, 1 - age_hours/24) for a payload whose most
// recent timestamp is mostRecent, evaluated at now.
func Freshness(now, mostRecent time.Time) float64 {
	ageHours := now.Sub(mostRecent).Hours()
	f := 1 - ageHours/24
	return math.Max(0, f)
}

// DefaultHistoricalAccuracy is used when C13 has not yet cached a value
// for a source.
const DefaultHistoricalAccuracy = 0.70

// AccuracyCache supplies a source's cached historical-accuracy value.
// internal/validation/analyzer (C13) implements this against the SQLite
// store; tests and call sites with no cache available can pass nil.
type AccuracyCache interface {
	AccuracyFor(sourceID string) (float64, bool)
}

// HistoricalAccuracy looks up a source's cached accuracy, falling back
// to DefaultHistoricalAccuracy when the cache is nil or has no entry.
func HistoricalAccuracy(cache AccuracyCache, sourceID string) float64 {
	if cache == nil {
		return DefaultHistoricalAccuracy
	}
	if v, ok := cache.AccuracyFor(sourceID); ok {
		return v
	}
	return DefaultHistoricalAccuracy
}

// ScoreSource builds one source's SourceScore: tier by registry lookup,
// freshness from its most recent payload timestamp, completeness from
// its present-field set, and historical accuracy from cache-or-default.
func ScoreSource(logger *slog.Logger, sourceID string, dataType DataType, now, mostRecent time.Time, presentFields map[string]bool, cache AccuracyCache, w domain.SourceScoreWeights) (domain.SourceScore, error) {
	tier := TierFor(logger, sourceID)
	freshness := Freshness(now, mostRecent)
	completeness := Completeness(dataType, presentFields)
	accuracy := HistoricalAccuracy(cache, sourceID)

	return domain.NewSourceScore(sourceID, tier, freshness, completeness, accuracy, w)
}
