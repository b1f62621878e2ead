package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stonezone/surfcastai/internal/domain"
)

func TestModelConsensus(t *testing.T) {
	assert.Equal(t, 0.5, ModelConsensus(nil))
	assert.Equal(t, 0.7, ModelConsensus([]float64{2.0}))

	agreeing := ModelConsensus([]float64{2.0, 2.1, 1.9})
	disagreeing := ModelConsensus([]float64{1.0, 3.0, 5.0})
	assert.Greater(t, agreeing, disagreeing)
	assert.GreaterOrEqual(t, disagreeing, 0.0)
	assert.LessOrEqual(t, agreeing, 1.0)
}

func TestSourceReliability(t *testing.T) {
	assert.Equal(t, 0.0, SourceReliability(nil))

	scores := map[string]domain.SourceScore{
		"a": {OverallScore: 0.8},
		"b": {OverallScore: 0.6},
	}
	assert.InDelta(t, 0.7, SourceReliability(scores), 1e-9)
}

func TestDataCompleteness(t *testing.T) {
	assert.Equal(t, 1.0, DataCompleteness(nil, []string{"buoy"}))
	assert.InDelta(t, 0.5, DataCompleteness([]string{"buoy", "model"}, []string{"buoy"}), 1e-9)
	assert.Equal(t, 1.0, DataCompleteness([]string{"buoy", "model"}, []string{"buoy", "model", "pressure"}))
}

func TestForecastHorizonScore(t *testing.T) {
	assert.InDelta(t, 1.0, ForecastHorizonScore(0), 1e-9)
	assert.InDelta(t, 0.7, ForecastHorizonScore(3), 1e-9)
	assert.Equal(t, 0.5, ForecastHorizonScore(10)) // floor at 0.5
}

func TestCompleteness(t *testing.T) {
	fields := map[string]bool{"wave_height": true, "period": true}
	assert.InDelta(t, 0.5, Completeness(DataTypeBuoy, fields), 1e-9)
	assert.Equal(t, 0.0, Completeness(DataType("unknown"), fields))
}

func TestBuildConfidenceReport_WarningsFireOnMatchingConditions(t *testing.T) {
	report := BuildConfidenceReport(
		nil,                                 // no model sources -> consensus 0.5 < 0.5? equal not less, no warning from that alone
		map[string]domain.SourceScore{},      // no sources -> reliability 0
		[]string{},                          // no source types present -> completeness 0
		6,                                    // horizon > 5
		DefaultHistoricalAccuracy,
		domain.ConfidenceBreakdown{},
		0, // no buoys
	)

	assert.Contains(t, report.Warnings, "limited data sources")
	assert.Contains(t, report.Warnings, "no buoy data")
	assert.Contains(t, report.Warnings, "long forecast horizon")
	assert.Less(t, report.Overall, 0.4)
	assert.Contains(t, report.Warnings, "very low confidence")
	assert.Equal(t, domain.ConfidenceLow, report.Category)
}

func TestBuildConfidenceReport_HealthyInputsProduceNoWarnings(t *testing.T) {
	scores := map[string]domain.SourceScore{
		"ndbc-51201": {OverallScore: 0.9},
		"pacioos":    {OverallScore: 0.85},
	}
	report := BuildConfidenceReport(
		[]float64{2.0, 2.1, 1.95},
		scores,
		[]string{"buoy", "model", "pressure", "altimetry"},
		2,
		0.8,
		domain.ConfidenceBreakdown{BuoyConfidence: 0.9, ModelConfidence: 0.85},
		3,
	)

	assert.Empty(t, report.Warnings)
	assert.Equal(t, domain.ConfidenceHigh, report.Category)
}
