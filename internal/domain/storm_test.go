package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStormID(t *testing.T) {
	assert.Equal(t, "kamchatka_20260115_1", NewStormID("kamchatka", "20260115", 1))
}

func TestStormConfidence(t *testing.T) {
	tests := []struct {
		name                                           string
		hasCoords, hasPressure, hasFetch, hasDuration bool
		expected                                       float64
	}{
		{"nothing but base", false, false, false, false, 0.5},
		{"coords only", true, false, false, false, 0.7},
		{"pressure only", false, true, false, false, 0.65},
		{"fetch only", false, false, true, false, 0.6},
		{"duration only", false, false, false, true, 0.55},
		{"everything", true, true, true, true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StormConfidence(tt.hasCoords, tt.hasPressure, tt.hasFetch, tt.hasDuration)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.5)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func pfloat(v float64) *float64 { return &v }

func TestStormInfoValidate(t *testing.T) {
	valid := func() StormInfo {
		return StormInfo{
			StormID:     "kamchatka_20260115_1",
			Location:    GeoPoint{Lat: 52.0, Lon: 160.0},
			WindSpeedKt: 55,
			Confidence:  0.85,
		}
	}

	t.Run("valid storm passes", func(t *testing.T) {
		s := valid()
		assert.NoError(t, s.Validate())
	})

	t.Run("latitude out of range fails", func(t *testing.T) {
		s := valid()
		s.Location.Lat = 95
		require.Error(t, s.Validate())
	})

	t.Run("longitude out of range fails", func(t *testing.T) {
		s := valid()
		s.Location.Lon = -200
		require.Error(t, s.Validate())
	})

	t.Run("non-positive wind speed fails", func(t *testing.T) {
		s := valid()
		s.WindSpeedKt = 0
		require.Error(t, s.Validate())
	})

	t.Run("pressure out of range fails", func(t *testing.T) {
		s := valid()
		s.CentralPressureMb = pfloat(850)
		require.Error(t, s.Validate())
	})

	t.Run("pressure in range passes", func(t *testing.T) {
		s := valid()
		s.CentralPressureMb = pfloat(970)
		assert.NoError(t, s.Validate())
	})

	t.Run("confidence below 0.5 fails", func(t *testing.T) {
		s := valid()
		s.Confidence = 0.3
		require.Error(t, s.Validate())
	})

	t.Run("confidence above 1.0 fails", func(t *testing.T) {
		s := valid()
		s.Confidence = 1.2
		require.Error(t, s.Validate())
	})
}
