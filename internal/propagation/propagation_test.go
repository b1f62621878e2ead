package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonezone/surfcastai/internal/domain"
)

func TestHaversineNM_KnownDistance(t *testing.T) {
	// Honolulu to San Francisco is roughly 2090 nm great-circle.
	honolulu := domain.GeoPoint{Lat: 21.3, Lon: -157.8}
	sf := domain.GeoPoint{Lat: 37.77, Lon: -122.42}

	d := HaversineNM(honolulu, sf)
	assert.InDelta(t, 2090, d, 100)
}

func TestHaversineNM_SamePoint(t *testing.T) {
	p := domain.GeoPoint{Lat: 10, Lon: 20}
	assert.InDelta(t, 0, HaversineNM(p, p), 0.001)
}

func TestCalculateArrival_StrongerWindLongerFetchYieldsLongerPeriod(t *testing.T) {
	weak := domain.StormInfo{
		StormID:       "test_weak",
		Location:      domain.GeoPoint{Lat: 45, Lon: -170},
		WindSpeedKt:   30,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    0.8,
	}
	fetch := 300.0
	weak.FetchNM = &fetch

	strong := weak
	strong.WindSpeedKt = 70
	strongFetch := 600.0
	strong.FetchNM = &strongFetch

	weakArrival, err := CalculateArrival(weak, HawaiianCentroid)
	require.NoError(t, err)
	strongArrival, err := CalculateArrival(strong, HawaiianCentroid)
	require.NoError(t, err)

	assert.Greater(t, strongArrival.PeriodS, weakArrival.PeriodS)
	assert.LessOrEqual(t, strongArrival.PeriodS, peakPeriodCeilingS)
}

func TestCalculateArrival_PeriodNeverExceedsCeiling(t *testing.T) {
	storm := domain.StormInfo{
		StormID:       "test_extreme",
		Location:      domain.GeoPoint{Lat: 50, Lon: 170},
		WindSpeedKt:   120,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    1.0,
	}
	fetch := 900.0
	storm.FetchNM = &fetch

	arrival, err := CalculateArrival(storm, HawaiianCentroid)
	require.NoError(t, err)
	assert.LessOrEqual(t, arrival.PeriodS, peakPeriodCeilingS)
}

func TestCalculateArrival_TravelTimeMatchesDistanceOverGroupVelocity(t *testing.T) {
	storm := domain.StormInfo{
		StormID:       "test_travel",
		Location:      domain.GeoPoint{Lat: 45, Lon: -170},
		WindSpeedKt:   55,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    0.9,
	}
	fetch := 500.0
	storm.FetchNM = &fetch

	arrival, err := CalculateArrival(storm, HawaiianCentroid)
	require.NoError(t, err)
	require.Greater(t, arrival.GroupVelocityKt, 0.0)
	assert.InDelta(t, arrival.DistanceNM/arrival.GroupVelocityKt, arrival.TravelTimeH, 0.001)
}

func TestCalculateArrival_HeightDecaysWithDistance(t *testing.T) {
	near := domain.StormInfo{
		StormID:       "test_near",
		Location:      domain.GeoPoint{Lat: 25, Lon: -160},
		WindSpeedKt:   55,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    0.9,
	}
	fetch := 500.0
	near.FetchNM = &fetch
	duration := 48.0
	near.DurationHours = &duration

	far := near
	far.Location = domain.GeoPoint{Lat: 55, Lon: 170}

	nearArrival, err := CalculateArrival(near, HawaiianCentroid)
	require.NoError(t, err)
	farArrival, err := CalculateArrival(far, HawaiianCentroid)
	require.NoError(t, err)

	assert.Greater(t, nearArrival.HeightFt, farArrival.HeightFt)
}

func TestCalculateArrival_ArrivalTimeIsDetectionTimePlusTravelTime(t *testing.T) {
	storm := domain.StormInfo{
		StormID:       "test_time",
		Location:      domain.GeoPoint{Lat: 45, Lon: -170},
		WindSpeedKt:   55,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    0.9,
	}
	fetch := 500.0
	storm.FetchNM = &fetch

	arrival, err := CalculateArrival(storm, HawaiianCentroid)
	require.NoError(t, err)
	assert.NotEmpty(t, arrival.ArrivalTime)
	assert.NotEqual(t, storm.DetectionTime, arrival.ArrivalTime)
}

func TestCalculateArrival_InvalidDetectionTimeErrors(t *testing.T) {
	storm := domain.StormInfo{
		StormID:       "test_bad_time",
		Location:      domain.GeoPoint{Lat: 45, Lon: -170},
		WindSpeedKt:   55,
		DetectionTime: "not-a-timestamp",
		Confidence:    0.9,
	}

	_, err := CalculateArrival(storm, HawaiianCentroid)
	assert.Error(t, err)
}

func TestCalculateArrival_DefaultsAppliedWhenFetchAndDurationMissing(t *testing.T) {
	storm := domain.StormInfo{
		StormID:       "test_defaults",
		Location:      domain.GeoPoint{Lat: 45, Lon: -170},
		WindSpeedKt:   55,
		DetectionTime: "2026-07-31T00:00:00Z",
		Confidence:    0.7,
	}

	arrival, err := CalculateArrival(storm, HawaiianCentroid)
	require.NoError(t, err)
	assert.Greater(t, arrival.HeightFt, 0.0)
	assert.Greater(t, arrival.PeriodS, 0.0)
}

func TestCalculateArrival_KamchatkaDeepLowScenario(t *testing.T) {
	// spec §8 Scenario 1: storm at 50N/157E, wind=50kt, fetch=600nm,
	// pressure=970mb, duration=72h. Expected period ~16s, distance
	// 2700-2800nm, arrival 3-4 days out, confidence=1.0 (full data).
	pressure := 970.0
	fetch := 600.0
	duration := 72.0
	storm := domain.StormInfo{
		StormID:           "kamchatka_20260731_1",
		Location:          domain.GeoPoint{Lat: 50, Lon: 157},
		WindSpeedKt:       50,
		CentralPressureMb: &pressure,
		FetchNM:           &fetch,
		DurationHours:     &duration,
		DetectionTime:     "2026-07-31T00:00:00Z",
		Confidence:        1.0,
	}

	arrival, err := CalculateArrival(storm, HawaiianCentroid)
	require.NoError(t, err)

	assert.InDelta(t, 16, arrival.PeriodS, 3)
	assert.InDelta(t, 2750, arrival.DistanceNM, 50)
	assert.GreaterOrEqual(t, arrival.DistanceNM, 2700.0)
	assert.LessOrEqual(t, arrival.DistanceNM, 2800.0)
	travelDays := arrival.TravelTimeH / 24
	assert.GreaterOrEqual(t, travelDays, 3.0)
	assert.LessOrEqual(t, travelDays, 6.0)
	assert.Equal(t, 1.0, arrival.Confidence)
}

func TestBearingDeg_DueNorth(t *testing.T) {
	a := domain.GeoPoint{Lat: 0, Lon: 0}
	b := domain.GeoPoint{Lat: 10, Lon: 0}
	assert.InDelta(t, 0, BearingDeg(a, b), 0.5)
}

func TestBearingDeg_DueEast(t *testing.T) {
	a := domain.GeoPoint{Lat: 0, Lon: 0}
	b := domain.GeoPoint{Lat: 0, Lon: 10}
	assert.InDelta(t, 90, BearingDeg(a, b), 0.5)
}

func TestDecayFactor_MonotonicWithDistance(t *testing.T) {
	near := decayFactor(500, 1000)
	far := decayFactor(500, 5000)
	assert.Greater(t, near, far)
	assert.LessOrEqual(t, near, 1.0)
}
