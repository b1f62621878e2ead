package storm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_ExplicitCoordinatesWindAndPressure(t *testing.T) {
	text := "A deep low near 42.5°N 165.0°E with winds of 65 knots and central pressure 955 mb."

	storms := Detect(text, "2026-07-31T00:00:00Z", map[string]int{})
	require.Len(t, storms, 1)

	s := storms[0]
	require.NoError(t, s.Validate())
	assert.InDelta(t, 42.5, s.Location.Lat, 0.001)
	assert.InDelta(t, 165.0, s.Location.Lon, 0.001)
	assert.Equal(t, 65.0, s.WindSpeedKt)
	require.NotNil(t, s.CentralPressureMb)
	assert.Equal(t, 955.0, *s.CentralPressureMb)

	// fetch/duration were not stated explicitly; both should be inferred.
	require.NotNil(t, s.FetchNM)
	assert.Equal(t, fetchHighWindNM, *s.FetchNM)
	require.NotNil(t, s.DurationHours)
	assert.Equal(t, durationDeepLowH, *s.DurationHours)
}

func TestDetect_NamedRegionFallback(t *testing.T) {
	text := "A storm is developing near the Gulf of Alaska with gale-force winds."

	storms := Detect(text, "2026-07-31T00:00:00Z", map[string]int{})
	require.Len(t, storms, 1)

	s := storms[0]
	assert.InDelta(t, 58.0, s.Location.Lat, 0.001)
	assert.InDelta(t, -145.0, s.Location.Lon, 0.001)
	assert.Equal(t, galeForceWindKt, s.WindSpeedKt)
	assert.Contains(t, s.StormID, "gulf of alaska")
}

func TestDetect_NoCoordsNoRegion_Discarded(t *testing.T) {
	text := "Winds of 40 knots reported offshore with no further detail."

	storms := Detect(text, "2026-07-31T00:00:00Z", map[string]int{})
	assert.Empty(t, storms)
}

func TestDetect_FetchInferredByWindTier(t *testing.T) {
	tests := []struct {
		name      string
		paragraph string
		wantFetch float64
	}{
		{"storm force", "Kamchatka storm-force winds observed, no fetch given.", fetchHighWindNM},
		{"gale force", "Kuril gale-force winds observed, no fetch given.", fetchMidWindNM},
		{"light wind", "Aleutian winds of 25 knots observed, no fetch given.", fetchLowWindNM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storms := Detect(tt.paragraph, "2026-07-31T00:00:00Z", map[string]int{})
			require.Len(t, storms, 1)
			require.NotNil(t, storms[0].FetchNM)
			assert.Equal(t, tt.wantFetch, *storms[0].FetchNM)
		})
	}
}

func TestDetect_DurationInferredByPressureTier(t *testing.T) {
	tests := []struct {
		name         string
		paragraph    string
		wantDuration float64
	}{
		{"deep low", "Tasman storm-force winds, central pressure 960 mb.", durationDeepLowH},
		{"mid low", "New Zealand storm-force winds, central pressure 980 mb.", durationMidLowH},
		{"shallow low", "Southern Ocean storm-force winds, central pressure 1000 mb.", durationHighLowH},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storms := Detect(tt.paragraph, "2026-07-31T00:00:00Z", map[string]int{})
			require.Len(t, storms, 1)
			require.NotNil(t, storms[0].DurationHours)
			assert.Equal(t, tt.wantDuration, *storms[0].DurationHours)
		})
	}
}

func TestDetect_ExplicitFetchAndDurationOverrideInference(t *testing.T) {
	text := "Kamchatka storm-force winds, central pressure 950 mb, fetch of 500 nm, duration of 20 hours."

	storms := Detect(text, "2026-07-31T00:00:00Z", map[string]int{})
	require.Len(t, storms, 1)
	assert.Equal(t, 500.0, *storms[0].FetchNM)
	assert.Equal(t, 20.0, *storms[0].DurationHours)
}

func TestDetect_SequenceNumbersIncrementPerRegion(t *testing.T) {
	text := "Kamchatka storm-force winds reported.\n\nKamchatka gale-force winds also reported elsewhere."

	seq := map[string]int{}
	storms := Detect(text, "2026-07-31T00:00:00Z", seq)
	require.Len(t, storms, 2)
	assert.Contains(t, storms[0].StormID, "_1")
	assert.Contains(t, storms[1].StormID, "_2")
}

func TestDetect_ConfidenceReflectsAvailableFields(t *testing.T) {
	full := "Kamchatka storm-force winds, central pressure 950 mb, fetch of 500 nm, duration of 20 hours."
	partial := "Kamchatka storm-force winds only."

	fullStorms := Detect(full, "2026-07-31T00:00:00Z", map[string]int{})
	partialStorms := Detect(partial, "2026-07-31T00:00:00Z", map[string]int{})
	require.Len(t, fullStorms, 1)
	require.Len(t, partialStorms, 1)
	assert.Greater(t, fullStorms[0].Confidence, partialStorms[0].Confidence)
	assert.Equal(t, 1.0, fullStorms[0].Confidence)
}

func TestDetect_DecimalCoordinatePair(t *testing.T) {
	text := "Low pressure center at 45.2, -170.3 with winds of 55 knots."

	storms := Detect(text, "2026-07-31T00:00:00Z", map[string]int{})
	require.Len(t, storms, 1)
	assert.InDelta(t, 45.2, storms[0].Location.Lat, 0.001)
	assert.InDelta(t, -170.3, storms[0].Location.Lon, 0.001)
}

func TestCompactDate(t *testing.T) {
	assert.Equal(t, "20260731", compactDate("2026-07-31T00:00:00Z"))
}
