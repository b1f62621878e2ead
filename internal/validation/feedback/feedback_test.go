package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stonezone/surfcastai/internal/validation/analyzer"
)

func TestBuild_NoDataReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", Build(analyzer.Report{HasData: false}))
}

func TestBuild_BelowMinSamplesReturnsEmpty(t *testing.T) {
	report := analyzer.Report{HasData: true, Overall: analyzer.OverallAggregate{Count: 5, AvgMAE: 3.0}}
	assert.Equal(t, "", Build(report))
}

func TestBuild_ElevatedOverallMAE(t *testing.T) {
	report := analyzer.Report{HasData: true, Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 3.0, CategoricalAccuracy: 0.9}}
	assert.Contains(t, Build(report), "Overall MAE elevated; be conservative.")
}

func TestBuild_PerShoreOverpredicting(t *testing.T) {
	report := analyzer.Report{
		HasData: true,
		Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 1.0, CategoricalAccuracy: 0.9},
		PerShore: []analyzer.ShoreAggregate{
			{Shore: "north", AvgBias: 1.2, AvgMAE: 1.0},
		},
	}
	result := Build(report)
	assert.Contains(t, result, "North recently overpredicting by 1.2 ft; bias down.")
}

func TestBuild_PerShoreUnderpredicting(t *testing.T) {
	report := analyzer.Report{
		HasData: true,
		Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 1.0, CategoricalAccuracy: 0.9},
		PerShore: []analyzer.ShoreAggregate{
			{Shore: "south", AvgBias: -0.8, AvgMAE: 1.0},
		},
	}
	assert.Contains(t, Build(report), "South recently underpredicting; bias up.")
}

func TestBuild_PerShoreWellCalibrated(t *testing.T) {
	report := analyzer.Report{
		HasData: true,
		Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 1.0, CategoricalAccuracy: 0.9},
		PerShore: []analyzer.ShoreAggregate{
			{Shore: "east", AvgBias: 0.1, AvgMAE: 1.0},
		},
	}
	assert.Contains(t, Build(report), "East well-calibrated; maintain.")
}

func TestBuild_LowCategoricalAccuracy(t *testing.T) {
	report := analyzer.Report{HasData: true, Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 1.0, CategoricalAccuracy: 0.5}}
	assert.Contains(t, Build(report), "Categorical accuracy low; reassess thresholds.")
}

func TestBuild_AllConditionsCanFireTogether(t *testing.T) {
	report := analyzer.Report{
		HasData: true,
		Overall: analyzer.OverallAggregate{Count: 30, AvgMAE: 3.0, CategoricalAccuracy: 0.4},
		PerShore: []analyzer.ShoreAggregate{
			{Shore: "north", AvgBias: 1.5, AvgMAE: 1.0},
			{Shore: "south", AvgBias: -0.9, AvgMAE: 1.0},
			{Shore: "west", AvgBias: 0.2, AvgMAE: 1.0},
		},
	}
	result := Build(report)
	assert.Contains(t, result, "Overall MAE elevated")
	assert.Contains(t, result, "North recently overpredicting")
	assert.Contains(t, result, "South recently underpredicting")
	assert.Contains(t, result, "West well-calibrated")
	assert.Contains(t, result, "Categorical accuracy low")
}

func TestBuild_HealthyReportProducesNoGuidance(t *testing.T) {
	report := analyzer.Report{
		HasData: true,
		Overall: analyzer.OverallAggregate{Count: 20, AvgMAE: 1.0, CategoricalAccuracy: 0.9},
		PerShore: []analyzer.ShoreAggregate{
			{Shore: "north", AvgBias: 0.4, AvgMAE: 1.2},
		},
	}
	assert.Equal(t, "", Build(report))
}
