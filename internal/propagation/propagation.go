// Package propagation implements swell-propagation physics (spec §4.6,
// C6): given a detected storm, estimate when its generated swell reaches
// Hawaii, how big, and how confident the estimate is.
package propagation

import (
	"math"
	"time"

	"github.com/stonezone/surfcastai/internal/domain"
)

const (
	earthRadiusNM = 3440.065
	gravityMPS2   = 9.81

	mpsToKt = 1.943844
	mToFt   = 3.28084
	nmToM   = 1852.0

	// peakPeriodCeilingS is the empirical ceiling on windsea peak period
	// noted in spec §4.6; open-ocean ground swell rarely exceeds it.
	peakPeriodCeilingS = 20.0
)

// HawaiianCentroid is the fixed destination point used for all arrival
// calculations, configured at init per spec §4.6.
var HawaiianCentroid = domain.GeoPoint{Lat: 21.3, Lon: -157.8}

// HaversineNM returns the great-circle distance between two points in
// nautical miles.
func HaversineNM(a, b domain.GeoPoint) float64 {
	lat1, lon1 := radians(a.Lat), radians(a.Lon)
	lat2, lon2 := radians(b.Lat), radians(b.Lon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusNM * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// BearingDeg returns the initial great-circle bearing from a to b, in
// degrees 0-360 measured clockwise from true north. Used to derive the
// meteorological "coming from" direction of a storm's swell as observed
// at the destination: BearingDeg(destination, storm.Location).
func BearingDeg(a, b domain.GeoPoint) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)

	return domain.NormalizeDirection(theta * 180 / math.Pi)
}

// peakPeriodS estimates the windsea spectral peak period from fetch and
// wind speed using the CERC/SMB fetch-limited growth relation, capped at
// the empirical ceiling.
func peakPeriodS(windKt, fetchNM float64) float64 {
	windMps := windKt * 0.514444
	if windMps <= 0 {
		return 0
	}
	fetchM := fetchNM * nmToM
	psi := gravityMPS2 * fetchM / (windMps * windMps)

	t := 7.54 * (windMps / gravityMPS2) * math.Tanh(0.077*math.Pow(psi, 0.25))
	if t > peakPeriodCeilingS {
		t = peakPeriodCeilingS
	}
	return t
}

// initialSeasHeightM estimates fetch-limited significant wave height at
// the storm using the same SMB growth relation, then applies a
// duration-limited cap: a storm that hasn't blown long enough to reach
// its fetch-limited state produces a smaller sea.
func initialSeasHeightM(windKt, fetchNM, durationH float64) float64 {
	windMps := windKt * 0.514444
	if windMps <= 0 {
		return 0
	}
	fetchM := fetchNM * nmToM
	psi := gravityMPS2 * fetchM / (windMps * windMps)

	fetchLimitedM := 0.283 * (windMps * windMps / gravityMPS2) * math.Tanh(0.0125*math.Pow(psi, 0.42))

	if durationH <= 0 {
		return fetchLimitedM
	}

	// Duration-limited growth approaches the fetch-limited value
	// asymptotically; treat 24h as the nominal time-to-develop for a
	// typical North Pacific fetch and scale below that.
	const nominalDevelopHours = 24.0
	growthFraction := math.Sqrt(math.Min(durationH/nominalDevelopHours, 1.0))
	return fetchLimitedM * growthFraction
}

// decayFactor models geometric spreading loss of swell energy with
// distance traveled from its generation region: height falls off as the
// square root of the ratio of the generation radius (fetch) to the
// total distance covered.
func decayFactor(fetchNM, distanceNM float64) float64 {
	if fetchNM <= 0 {
		fetchNM = 1
	}
	return math.Sqrt(fetchNM / (fetchNM + distanceNM))
}

// CalculateArrival implements calculate_arrival from spec §4.6: distance,
// travel time, arrival period/height, and confidence for one storm's
// swell reaching the Hawaiian centroid. detectionTime must be an
// RFC3339 UTC timestamp; arrival time is computed by adding travel time
// to it.
func CalculateArrival(storm domain.StormInfo, destination domain.GeoPoint) (domain.Arrival, error) {
	distanceNM := HaversineNM(storm.Location, destination)

	fetchNM := 300.0
	if storm.FetchNM != nil {
		fetchNM = *storm.FetchNM
	}
	durationH := 24.0
	if storm.DurationHours != nil {
		durationH = *storm.DurationHours
	}

	periodS := peakPeriodS(storm.WindSpeedKt, fetchNM)
	groupVelocityMps := gravityMPS2 * periodS / (4 * math.Pi)
	groupVelocityKt := groupVelocityMps * mpsToKt

	var travelTimeH float64
	if groupVelocityKt > 0 {
		travelTimeH = distanceNM / groupVelocityKt
	}

	initialHeightM := initialSeasHeightM(storm.WindSpeedKt, fetchNM, durationH)
	arrivalHeightM := initialHeightM * decayFactor(fetchNM, distanceNM)
	heightFt := arrivalHeightM * mToFt

	arrivalTime, err := addHours(storm.DetectionTime, travelTimeH)
	if err != nil {
		return domain.Arrival{}, err
	}

	return domain.Arrival{
		StormID:         storm.StormID,
		ArrivalTime:     arrivalTime,
		TravelTimeH:     travelTimeH,
		DistanceNM:      distanceNM,
		PeriodS:         periodS,
		HeightFt:        heightFt,
		GroupVelocityKt: groupVelocityKt,
		Confidence:      storm.Confidence,
	}, nil
}

func addHours(rfc3339 string, hours float64) (string, error) {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return "", err
	}
	return t.Add(time.Duration(hours * float64(time.Hour))).UTC().Format(time.RFC3339), nil
}
