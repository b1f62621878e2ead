package fusion

import "github.com/stonezone/surfcastai/internal/domain"

// DefaultConflictThresholdFt is τ_conflict from spec §4.7: buoy/model
// height disagreement beyond this triggers a recorded, attributed blend
// rather than silently picking one source.
const DefaultConflictThresholdFt = 2.0

// ConflictResolution is the outcome of comparing two sources' height
// estimates for overlapping coverage.
type ConflictResolution struct {
	Conflicted     bool
	ResolvedFt     float64
	BuoyWeight     float64
	ModelWeight    float64
	DisagreementFt float64
}

// ResolveConflict compares a buoy and model height estimate for the same
// shore/time. When they disagree by more than thresholdFt, it blends
// them weighted by each source's overall reliability score rather than
// picking one, and flags the disagreement for fusion metadata.
func ResolveConflict(buoyHeightFt, modelHeightFt float64, buoyScore, modelScore domain.SourceScore, thresholdFt float64) ConflictResolution {
	disagreement := buoyHeightFt - modelHeightFt
	if disagreement < 0 {
		disagreement = -disagreement
	}

	if disagreement <= thresholdFt {
		// No meaningful conflict: still blend, but evenly, since both
		// sources are in close agreement.
		return ConflictResolution{
			Conflicted:     false,
			ResolvedFt:     (buoyHeightFt + modelHeightFt) / 2,
			BuoyWeight:     0.5,
			ModelWeight:    0.5,
			DisagreementFt: disagreement,
		}
	}

	totalWeight := buoyScore.OverallScore + modelScore.OverallScore
	buoyWeight, modelWeight := 0.5, 0.5
	if totalWeight > 0 {
		buoyWeight = buoyScore.OverallScore / totalWeight
		modelWeight = modelScore.OverallScore / totalWeight
	}

	return ConflictResolution{
		Conflicted:     true,
		ResolvedFt:     buoyHeightFt*buoyWeight + modelHeightFt*modelWeight,
		BuoyWeight:     buoyWeight,
		ModelWeight:    modelWeight,
		DisagreementFt: disagreement,
	}
}
