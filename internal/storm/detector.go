// Package storm implements the pressure-chart storm detector (spec §4.5,
// C5): layered regex extraction over free-form analysis text, with
// named-region inference when explicit coordinates are absent.
package storm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stonezone/surfcastai/internal/domain"
)

var (
	// coordDegRe matches "NN°N MMM°E" / "NN.NN°S MMM.MM°W" style coordinates.
	coordDegRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?\s*([NS])\D{0,5}(\d+(?:\.\d+)?)\s*°?\s*([EW])`)

	// coordDecimalRe matches "NN.NN, MMM.MM" bare decimal pairs.
	coordDecimalRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)

	// coordWordsRe matches "latitude NN longitude MMM".
	coordWordsRe = regexp.MustCompile(`(?i)latitude\s+(-?\d+(?:\.\d+)?)\s+longitude\s+(-?\d+(?:\.\d+)?)`)

	windKtRe        = regexp.MustCompile(`(?i)winds?\s+of\s+(\d+)\s*k(?:no)?ts?`)
	windKtSuffixRe  = regexp.MustCompile(`(?i)(\d+)\s*kt\s+winds?`)
	stormForceRe    = regexp.MustCompile(`(?i)storm[- ]force`)
	galeForceRe     = regexp.MustCompile(`(?i)gale[- ]force`)
	pressureRe      = regexp.MustCompile(`(?i)central\s+pressure\s+(?:of\s+)?(\d+(?:\.\d+)?)\s*mb`)
	fetchNMRe       = regexp.MustCompile(`(?i)fetch\s+(?:of\s+)?(\d+(?:\.\d+)?)\s*(?:nm|nautical\s+miles?)`)
	durationHoursRe = regexp.MustCompile(`(?i)duration\s+(?:of\s+)?(\d+(?:\.\d+)?)\s*h(?:ours?)?`)
)

// Missing-parameter inference constants from spec §4.5.
const (
	fetchHighWindNM  = 600.0
	fetchMidWindNM   = 400.0
	fetchLowWindNM   = 250.0
	durationDeepLowH = 72.0
	durationMidLowH  = 48.0
	durationHighLowH = 36.0

	stormForceWindKt = 50.0
	galeForceWindKt  = 40.0
)

// namedRegions maps region names recognizable in prose (spec §4.5) to a
// canonical lat/lon used when no explicit coordinates are present.
var namedRegions = map[string]domain.GeoPoint{
	"kamchatka":      {Lat: 56.0, Lon: 160.0},
	"kuril":          {Lat: 46.0, Lon: 152.0},
	"aleutian":       {Lat: 52.0, Lon: 176.0},
	"gulf of alaska": {Lat: 58.0, Lon: -145.0},
	"tasman":         {Lat: -40.0, Lon: 160.0},
	"southern ocean": {Lat: -55.0, Lon: 160.0},
	"new zealand":    {Lat: -41.0, Lon: 174.0},
}

// Detect extracts zero or more StormInfo records from free-form
// pressure-chart analysis text. detectionTime is an ISO-8601 UTC
// timestamp attached to every extracted record. Records with neither
// explicit coordinates nor a recognizable named region are discarded.
func Detect(text, detectionTime string, regionSeq map[string]int) []domain.StormInfo {
	var storms []domain.StormInfo

	for _, para := range splitParagraphs(text) {
		loc, region, ok := extractLocation(para)
		if !ok {
			continue
		}

		windKt, hasWind := extractWind(para)
		pressure, hasPressure := extractPressure(para)
		fetch, hasFetch := extractFetch(para, windKt, hasWind)
		duration, hasDuration := extractDuration(para, pressure, hasPressure)

		confidence := domain.StormConfidence(true, hasPressure, hasFetch, hasDuration)

		seq := regionSeq[region] + 1
		regionSeq[region] = seq

		storm := domain.StormInfo{
			StormID:       domain.NewStormID(region, compactDate(detectionTime), seq),
			Location:      loc,
			WindSpeedKt:   windKt,
			DetectionTime: detectionTime,
			Source:        "pressure_chart",
			Confidence:    confidence,
		}
		if hasPressure {
			p := pressure
			storm.CentralPressureMb = &p
		}
		if hasFetch {
			f := fetch
			storm.FetchNM = &f
		}
		if hasDuration {
			d := duration
			storm.DurationHours = &d
		}

		storms = append(storms, storm)
	}

	return storms
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

// extractLocation tries each coordinate format in turn, falling back to
// named-region inference. Returns ok=false when nothing matched.
func extractLocation(text string) (domain.GeoPoint, string, bool) {
	if m := coordDegRe.FindStringSubmatch(text); m != nil {
		lat := mustFloat(m[1])
		if m[2] == "S" {
			lat = -lat
		}
		lon := mustFloat(m[3])
		if m[4] == "W" {
			lon = -lon
		}
		return domain.GeoPoint{Lat: lat, Lon: lon}, regionFromPoint(lat, lon), true
	}

	if m := coordWordsRe.FindStringSubmatch(text); m != nil {
		lat, lon := mustFloat(m[1]), mustFloat(m[2])
		return domain.GeoPoint{Lat: lat, Lon: lon}, regionFromPoint(lat, lon), true
	}

	if m := coordDecimalRe.FindStringSubmatch(text); m != nil {
		lat, lon := mustFloat(m[1]), mustFloat(m[2])
		if lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			return domain.GeoPoint{Lat: lat, Lon: lon}, regionFromPoint(lat, lon), true
		}
	}

	lower := strings.ToLower(text)
	for region, pt := range namedRegions {
		if strings.Contains(lower, region) {
			return pt, region, true
		}
	}

	return domain.GeoPoint{}, "", false
}

// regionFromPoint gives an explicit-coordinate storm a region tag for ID
// construction; it need not be a named region, just stable and readable.
func regionFromPoint(lat, lon float64) string {
	return "storm_" + strconv.Itoa(int(lat)) + "_" + strconv.Itoa(int(lon))
}

func extractWind(text string) (float64, bool) {
	if m := windKtRe.FindStringSubmatch(text); m != nil {
		return mustFloat(m[1]), true
	}
	if m := windKtSuffixRe.FindStringSubmatch(text); m != nil {
		return mustFloat(m[1]), true
	}
	if stormForceRe.MatchString(text) {
		return stormForceWindKt, true
	}
	if galeForceRe.MatchString(text) {
		return galeForceWindKt, true
	}
	return 0, false
}

func extractPressure(text string) (float64, bool) {
	if m := pressureRe.FindStringSubmatch(text); m != nil {
		return mustFloat(m[1]), true
	}
	return 0, false
}

// extractFetch reads an explicit fetch distance if present, otherwise
// infers it from wind speed per spec §4.5.
func extractFetch(text string, windKt float64, hasWind bool) (float64, bool) {
	if m := fetchNMRe.FindStringSubmatch(text); m != nil {
		return mustFloat(m[1]), true
	}
	if !hasWind {
		return 0, false
	}
	switch {
	case windKt >= 50:
		return fetchHighWindNM, true
	case windKt >= 40:
		return fetchMidWindNM, true
	default:
		return fetchLowWindNM, true
	}
}

// extractDuration reads an explicit duration if present, otherwise infers
// it from central pressure per spec §4.5.
func extractDuration(text string, pressureMb float64, hasPressure bool) (float64, bool) {
	if m := durationHoursRe.FindStringSubmatch(text); m != nil {
		return mustFloat(m[1]), true
	}
	if !hasPressure {
		return 0, false
	}
	switch {
	case pressureMb < 970:
		return durationDeepLowH, true
	case pressureMb <= 990:
		return durationMidLowH, true
	default:
		return durationHighLowH, true
	}
}

func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// compactDate normalizes an ISO-8601 timestamp (e.g. "2026-07-31T00:00:00Z")
// to the YYYYMMDD form NewStormID expects.
func compactDate(isoTimestamp string) string {
	datePart := isoTimestamp
	if i := strings.IndexByte(isoTimestamp, 'T'); i >= 0 {
		datePart = isoTimestamp[:i]
	}
	return strings.ReplaceAll(datePart, "-", "")
}
