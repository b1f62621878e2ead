package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stonezone/surfcastai/internal/domain"
)

func TestApplyTrends_RisingFallingSteadyPeak(t *testing.T) {
	predictions := []domain.ShorePrediction{
		{FaceHeightFtH13: 4.0},
		{FaceHeightFtH13: 6.0}, // rising from 4.0
		{FaceHeightFtH13: 8.0}, // rising from 6.0, but peaks since next drops
		{FaceHeightFtH13: 5.0}, // falling from 8.0
		{FaceHeightFtH13: 5.1}, // steady vs 5.0
	}

	ApplyTrends(predictions)

	assert.Equal(t, domain.TrendSteady, predictions[0].Trend) // no prior
	assert.Equal(t, domain.TrendRising, predictions[1].Trend)
	assert.Equal(t, domain.TrendPeak, predictions[2].Trend)
	assert.Equal(t, domain.TrendFalling, predictions[3].Trend)
	assert.Equal(t, domain.TrendSteady, predictions[4].Trend)
}

func TestComputeTrend_FirstPredictionIsSteady(t *testing.T) {
	curr := domain.ShorePrediction{FaceHeightFtH13: 5.0}
	assert.Equal(t, domain.TrendSteady, ComputeTrend(nil, &curr, nil))
}
