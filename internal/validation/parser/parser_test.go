package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonezone/surfcastai/internal/domain"
)

const sampleNarrative = `
# Weekly Outlook

## North Shore Forecast

Day 1: 6-8 ft faces, 14-16 sec period, NW swell. Fun conditions.
Day 2: 4 ft, 12 sec, NW. Small.

## South Shore Forecast

Day 1: 2-3 ft, SSW. Flat.
`

func TestParse_SplitsByShoreAndDay(t *testing.T) {
	predictions := Parse(sampleNarrative)
	require.Len(t, predictions, 3)

	north := filterShore(predictions, domain.ShoreNorth)
	require.Len(t, north, 2)
	assert.Equal(t, "Day 1", north[0].Day)
	assert.InDelta(t, 6.0, north[0].HeightMinFt, 1e-9)
	assert.InDelta(t, 8.0, north[0].HeightMaxFt, 1e-9)
	assert.InDelta(t, 15.0, north[0].PeriodS, 1e-9)
	assert.Equal(t, "NW", north[0].Direction)
	assert.Equal(t, "fun", north[0].Category)

	south := filterShore(predictions, domain.ShoreSouth)
	require.Len(t, south, 1)
	assert.Equal(t, "SSW", south[0].Direction)
}

func TestParse_ConfidenceReflectsFieldsPresent(t *testing.T) {
	predictions := Parse(sampleNarrative)
	north := filterShore(predictions, domain.ShoreNorth)
	require.NotEmpty(t, north)
	// height + period + direction + category all present: 0.5+0.2+0.15+0.10+0.05
	assert.InDelta(t, 1.0, north[0].Confidence, 1e-9)
}

func TestParse_DeduplicatesByShoreDayHeightRange(t *testing.T) {
	narrative := `
## North Shore Forecast

Day 1: 6-8 ft, 14 sec, NW.
Day 1: 6-8 ft, 14 sec, NW.
`
	predictions := Parse(narrative)
	assert.Len(t, predictions, 1)
}

func TestParse_NoShoreHeadersReturnsEmpty(t *testing.T) {
	predictions := Parse("just some prose with no headers")
	assert.Empty(t, predictions)
}

func TestParse_MissingOptionalFieldsLowerConfidence(t *testing.T) {
	narrative := `
## East Shore Forecast

Day 1: small and junky, no real numbers here.
`
	predictions := Parse(narrative)
	require.Len(t, predictions, 1)
	assert.False(t, predictions[0].HasHeight)
	assert.True(t, predictions[0].HasCategory)
	assert.InDelta(t, 0.55, predictions[0].Confidence, 1e-9)
}

func TestParse_DateStyleDayMarker(t *testing.T) {
	narrative := `
## West Shore Forecast

Oct 5: 3-4 ft, 10 sec, WNW.
`
	predictions := Parse(narrative)
	require.Len(t, predictions, 1)
	assert.Equal(t, "Oct 5", predictions[0].Day)
}

func filterShore(predictions []ForecastPrediction, shore domain.Shore) []ForecastPrediction {
	var out []ForecastPrediction
	for _, p := range predictions {
		if p.Shore == shore {
			out = append(out, p)
		}
	}
	return out
}
