package fusion

import (
	"math"

	"github.com/stonezone/surfcastai/internal/config"
)

const metersToFeet = 3.28084

// faceH110Factor approximates H1/10 (the average of the highest tenth of
// waves) from H1/3 (significant height) per spec §4.7.
const faceH110Factor = 1.5

// FaceHeightFt converts an open-ocean significant height in meters to
// Hawaiian-scale face feet for one shore, applying the shore's
// multiplier and long-period period bonus. Returns (h13, h110) in feet.
func FaceHeightFt(heightM, periodS float64, scale config.ShoreScale) (h13Ft, h110Ft float64) {
	heightFt := heightM * metersToFeet
	bonus := scale.PeriodBonus * math.Max(0, periodS-scale.PeriodBonusRef)
	h13 := heightFt*scale.Multiplier + bonus
	return h13, h13 * faceH110Factor
}

// legacyBackHeightFactor is the retained backward-compatibility scale:
// a flat ×0.75 applied on top of the standard meters→feet conversion.
// Not used for current face-height output; spec §4.7 keeps it only for
// callers still reading the old "back height" field.
const legacyBackHeightFactor = 0.75

// LegacyBackHeightFt computes the deprecated Hawaiian "back height"
// figure: heightM converted to feet, then scaled by 0.75.
func LegacyBackHeightFt(heightM float64) float64 {
	return heightM * metersToFeet * legacyBackHeightFactor
}
