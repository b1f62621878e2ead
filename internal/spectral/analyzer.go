// Package spectral implements the NDBC .spec summary parser (spec §4.4,
// C4): each row yields up to two candidate peaks — one swell, one
// wind-wave — filtered, energy-ranked, and separation-checked before
// being kept.
package spectral

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stonezone/surfcastai/internal/domain"
)

// Defaults per spec §4.4.
const (
	DefaultMaxComponents         = 5
	DefaultMinSeparationPeriodS  = 3.0
	DefaultMinSeparationAngleDeg = 30.0
	deltaFreqHz                  = 0.03

	swellConfidence    = 0.85
	windWaveConfidence = 0.75
	swellSpreadDeg     = 30.0
	windWaveSpreadDeg  = 60.0
)

// missingTokens are NDBC's documented null markers; they are preserved
// as "no value" rather than coerced to zero.
var missingTokens = map[string]bool{"MM": true, "99.0": true, "999.0": true, "999": true}

// Options configures peak selection thresholds, overridable from the
// spec's defaults for testing or tuning.
type Options struct {
	MaxComponents         int
	MinSeparationPeriodS  float64
	MinSeparationAngleDeg float64
}

// DefaultOptions returns spec §4.4's stated defaults.
func DefaultOptions() Options {
	return Options{
		MaxComponents:         DefaultMaxComponents,
		MinSeparationPeriodS:  DefaultMinSeparationPeriodS,
		MinSeparationAngleDeg: DefaultMinSeparationAngleDeg,
	}
}

// row is one parsed .spec data line, pre-filter.
type row struct {
	timestamp string
	wvhtM     float64
	swhM      float64
	swpS      float64
	wwhM      float64
	wwpS      float64
	swdDeg    float64
	wwdDeg    float64
	hasSwd    bool
	hasWwd    bool
}

// AnalyzeFile reads an NDBC .spec file at path and returns its
// SpectralAnalysisResult, or nil if the file cannot be opened or Analyze
// returns nil. A file whose rows are all filtered out yields a result
// with an empty Peaks slice, not nil.
func AnalyzeFile(path string, buoyID string, opts Options) *domain.SpectralAnalysisResult {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	return Analyze(f, buoyID, opts)
}

// Analyze parses an NDBC .spec stream. Returns nil only when the stream
// cannot be read or has no "#" header line; when no data row parses, or
// none survives filtering, the result has an empty Peaks slice, per spec
// §4.4's failure-mode note.
func Analyze(r io.Reader, buoyID string, opts Options) *domain.SpectralAnalysisResult {
	scanner := bufio.NewScanner(r)

	var header []string
	var dataRows []row
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if header == nil {
				header = strings.Fields(strings.TrimPrefix(line, "#"))
			}
			continue
		}
		rw, ok := parseRow(line, header)
		if !ok {
			continue
		}
		dataRows = append(dataRows, rw)
	}
	if err := scanner.Err(); err != nil {
		return nil
	}
	if header == nil {
		return nil
	}

	var allPeaks []domain.SpectralPeak
	var latestTimestamp string
	for _, rw := range dataRows {
		allPeaks = append(allPeaks, peaksFromRow(rw)...)
		if rw.timestamp != "" {
			latestTimestamp = rw.timestamp
		}
	}

	kept := selectPeaks(allPeaks, opts)

	result := &domain.SpectralAnalysisResult{
		BuoyID:    buoyID,
		Timestamp: latestTimestamp,
		Peaks:     kept,
	}
	for _, p := range kept {
		result.TotalEnergy += p.EnergyDensity
	}
	if len(kept) > 0 {
		result.DominantPeak = &kept[0]
	}
	return result
}

// columnIndex finds the 0-based index of a named column in the header
// fields, or -1 if absent.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func parseRow(line string, header []string) (row, bool) {
	fields := strings.Fields(line)
	if len(fields) < len(header) {
		return row{}, false
	}

	get := func(name string) (string, bool) {
		idx := columnIndex(header, name)
		if idx < 0 || idx >= len(fields) {
			return "", false
		}
		return fields[idx], true
	}

	timestamp := timestampFromFields(fields, header)

	rw := row{timestamp: timestamp}
	var ok bool

	if rw.wvhtM, ok = parseFloatField(get, "WVHT"); !ok {
		return row{}, false
	}
	rw.swhM, _ = parseFloatField(get, "SwH")
	rw.swpS, _ = parseFloatField(get, "SwP")
	rw.wwhM, _ = parseFloatField(get, "WWH")
	rw.wwpS, _ = parseFloatField(get, "WWP")

	if v, present := get("SwD"); present && !missingTokens[v] {
		if deg, ok := domain.CompassToDirection(v); ok {
			rw.swdDeg, rw.hasSwd = deg, true
		}
	}
	if v, present := get("WWD"); present && !missingTokens[v] {
		if deg, ok := domain.CompassToDirection(v); ok {
			rw.wwdDeg, rw.hasWwd = deg, true
		}
	}

	return rw, true
}

func timestampFromFields(fields, header []string) string {
	cols := []string{"YY", "MM", "DD", "hh", "mm"}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		idx := columnIndex(header, c)
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		parts = append(parts, fields[idx])
	}
	if len(parts) != 5 {
		return ""
	}
	year := parts[0]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s-%s-%sT%s:%s:00Z", year, parts[1], parts[2], parts[3], parts[4])
}

func parseFloatField(get func(string) (string, bool), name string) (float64, bool) {
	v, present := get(name)
	if !present || missingTokens[v] {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// peaksFromRow builds up to two candidate peaks (swell, wind-wave) from
// one .spec row, per spec §4.4's energy-density and spread formulas.
func peaksFromRow(rw row) []domain.SpectralPeak {
	var peaks []domain.SpectralPeak

	if rw.swhM > 0 && rw.swpS > 0 {
		comp, err := domain.NewSwellComponent(rw.swhM, rw.swpS, rw.swdDeg, swellConfidence, domain.SourceBuoySpectral)
		if err == nil {
			peaks = append(peaks, domain.SpectralPeak{
				SwellComponent:    comp,
				FrequencyHz:       1.0 / rw.swpS,
				EnergyDensity:     energyDensity(rw.swhM),
				DirectionalSpread: swellSpreadDeg,
				ComponentType:     domain.ComponentSwell,
			})
		}
	}

	if rw.wwhM > 0 && rw.wwpS > 0 {
		comp, err := domain.NewSwellComponent(rw.wwhM, rw.wwpS, rw.wwdDeg, windWaveConfidence, domain.SourceBuoySpectral)
		if err == nil {
			peaks = append(peaks, domain.SpectralPeak{
				SwellComponent:    comp,
				FrequencyHz:       1.0 / rw.wwpS,
				EnergyDensity:     energyDensity(rw.wwhM),
				DirectionalSpread: windWaveSpreadDeg,
				ComponentType:     domain.ComponentWindWave,
			})
		}
	}

	return peaks
}

// energyDensity estimates E ≈ H_s² / (16·Δf), Δf ≈ 0.03 Hz.
func energyDensity(heightM float64) float64 {
	return (heightM * heightM) / (16 * deltaFreqHz)
}

// selectPeaks sorts candidates by descending energy and greedily keeps
// peaks satisfying the separation invariant against every already-kept
// peak, bounded by MaxComponents.
func selectPeaks(candidates []domain.SpectralPeak, opts Options) []domain.SpectralPeak {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]domain.SpectralPeak, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EnergyDensity > sorted[j].EnergyDensity
	})

	var kept []domain.SpectralPeak
	for _, cand := range sorted {
		if len(kept) >= opts.MaxComponents {
			break
		}
		if separatedFromAll(cand, kept, opts) {
			kept = append(kept, cand)
		}
	}
	return kept
}

func separatedFromAll(cand domain.SpectralPeak, kept []domain.SpectralPeak, opts Options) bool {
	for _, k := range kept {
		periodDiff := math.Abs(cand.PeriodS - k.PeriodS)
		angleDiff := domain.AngularDifference(cand.DirectionDeg, k.DirectionDeg)
		if periodDiff < opts.MinSeparationPeriodS && angleDiff < opts.MinSeparationAngleDeg {
			return false
		}
	}
	return true
}
