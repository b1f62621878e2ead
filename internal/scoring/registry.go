package scoring

import (
	"log/slog"
	"strings"

	"github.com/stonezone/surfcastai/internal/domain"
)

// tierSubstrings maps case-insensitive substrings found in a source ID to
// the tier they identify, per spec §4.8's curated registry.
var tierSubstrings = map[string]domain.SourceTier{
	"ndbc": domain.Tier1,
	"nws":  domain.Tier1,
	"opc":  domain.Tier1,
	"nhc":  domain.Tier1,

	"pacioos": domain.Tier2,
	"cdip":    domain.Tier2,
	"swan":    domain.Tier2,
	"ww3":     domain.Tier2,

	"ecmwf": domain.Tier3,
	"bom":   domain.Tier3,
	"ukmo":  domain.Tier3,
	"jma":   domain.Tier3,

	"weather.com":       domain.Tier4,
	"surfline_api":      domain.Tier4,
	"commercial_marine": domain.Tier4,

	"surfline":     domain.Tier5,
	"magicseaweed": domain.Tier5,
	"surfsite":     domain.Tier5,
}

// defaultUnknownTier is the fallback tier for source IDs matching nothing
// in the registry; TierFor logs a warning whenever it applies.
const defaultUnknownTier = domain.Tier5

// TierFor classifies a source ID by substring match against the curated
// registry. Matches are checked in ascending tier order so an ID
// matching multiple substrings (e.g. containing both "ndbc" and
// "surfline") resolves to its most reliable tier. Unknown sources fall
// back to Tier5 (score 0.3) with a logged warning.
func TierFor(logger *slog.Logger, sourceID string) domain.SourceTier {
	lower := strings.ToLower(sourceID)

	for _, tier := range []domain.SourceTier{domain.Tier1, domain.Tier2, domain.Tier3, domain.Tier4, domain.Tier5} {
		for substr, t := range tierSubstrings {
			if t != tier {
				continue
			}
			if strings.Contains(lower, substr) {
				return tier
			}
		}
	}

	if logger != nil {
		logger.Warn("unrecognized data source, defaulting to lowest tier", "source_id", sourceID)
	}
	return defaultUnknownTier
}
