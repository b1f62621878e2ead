package fusion

import "github.com/stonezone/surfcastai/internal/domain"

// trendHeightEpsilonFt is the minimum height delta treated as meaningful
// movement; deltas smaller than this are "steady" rather than noise
// being labeled rising/falling.
const trendHeightEpsilonFt = 0.3

// ComputeTrend labels how a shore's forecast is evolving between two
// successive predictions by comparing height deltas, with "peak"
// reserved for a local maximum (rising into this one, falling out of it).
func ComputeTrend(prev, curr, next *domain.ShorePrediction) domain.Trend {
	if prev == nil {
		return domain.TrendSteady
	}

	delta := curr.FaceHeightFtH13 - prev.FaceHeightFtH13
	if next != nil {
		nextDelta := next.FaceHeightFtH13 - curr.FaceHeightFtH13
		if delta > trendHeightEpsilonFt && nextDelta < -trendHeightEpsilonFt {
			return domain.TrendPeak
		}
	}

	switch {
	case delta > trendHeightEpsilonFt:
		return domain.TrendRising
	case delta < -trendHeightEpsilonFt:
		return domain.TrendFalling
	default:
		return domain.TrendSteady
	}
}

// ApplyTrends fills in Trend on every prediction in a shore's timeline,
// given the timeline is already ordered chronologically.
func ApplyTrends(predictions []domain.ShorePrediction) {
	for i := range predictions {
		var prev, next *domain.ShorePrediction
		if i > 0 {
			prev = &predictions[i-1]
		}
		if i < len(predictions)-1 {
			next = &predictions[i+1]
		}
		predictions[i].Trend = ComputeTrend(prev, &predictions[i], next)
	}
}
