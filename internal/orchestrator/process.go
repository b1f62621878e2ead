package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/domain"
	"github.com/stonezone/surfcastai/internal/fusion"
	"github.com/stonezone/surfcastai/internal/propagation"
	"github.com/stonezone/surfcastai/internal/scoring"
	"github.com/stonezone/surfcastai/internal/spectral"
	"github.com/stonezone/surfcastai/internal/storm"
	"github.com/stonezone/surfcastai/internal/validation/buoyfetch"
)

// wavemodelSummaryRe extracts the key=value fields WaveModelAgent writes
// to its "*_summary.txt" files (see internal/agents.gridAggregate.String).
var wavemodelSummaryRe = regexp.MustCompile(`mean_height_m=(\S+)\s+max_height_m=(\S+)\s+min_height_m=(\S+)\s+mean_period_s=(\S+)\s+mean_direction_deg=(\S+)\s+n=(\d+)`)

func runProcessCommand(ctx context.Context, d Deps, opts Options) (Result, error) {
	b, err := loadBundle(d.Bundles, opts.BundleID)
	if err != nil {
		return Result{}, err
	}
	forecast, err := buildForecast(d, b.Root, b.ID, nowUTC(d), horizonDaysOrDefault(opts), nil)
	if err != nil {
		return Result{}, err
	}
	return Result{BundleID: b.ID, Forecast: &forecast}, nil
}

// sourceSample accumulates what ScoreSource needs for one data type:
// the set of fields actually present and the most recent timestamp seen.
type sourceSample struct {
	present    map[string]bool
	mostRecent time.Time
	hasAny     bool
}

func newSourceSample() *sourceSample {
	return &sourceSample{present: map[string]bool{}}
}

func (s *sourceSample) observe(fields []string, ts time.Time) {
	s.hasAny = true
	for _, f := range fields {
		s.present[f] = true
	}
	if ts.After(s.mostRecent) {
		s.mostRecent = ts
	}
}

// buildForecast reads bundleRoot's agent subdirectories, builds every
// swell/storm/arrival record it can, scores each present source, builds
// the confidence report, and fuses everything into one FusedForecast.
func buildForecast(d Deps, bundleRoot, bundleID string, now time.Time, horizonDays float64, cache scoring.AccuracyCache) (domain.FusedForecast, error) {
	logger := logAt(d.Logger)

	var events []domain.SwellEvent
	var arrivals []domain.Arrival

	buoySample := newSourceSample()
	modelSample := newSourceSample()
	weatherSample := newSourceSample()

	buoyConfidenceSum, buoyConfidenceN := 0.0, 0
	modelConfidenceSum, modelConfidenceN := 0.0, 0
	stormConfidenceSum, stormConfidenceN := 0.0, 0

	buoyEvents, buoyCount := processBuoyDir(logger, filepath.Join(bundleRoot, "buoy"), buoySample, now)
	events = append(events, buoyEvents...)
	for _, e := range buoyEvents {
		buoyConfidenceSum += e.DominantPrimary().Confidence
		buoyConfidenceN++
	}

	modelEvents := processWaveModelDir(logger, filepath.Join(bundleRoot, "wavemodel"), modelSample, now)
	events = append(events, modelEvents...)
	for _, e := range modelEvents {
		modelConfidenceSum += e.DominantPrimary().Confidence
		modelConfidenceN++
	}

	for _, dir := range []string{"weather", "tides", "climatology"} {
		observeRawTextPresence(filepath.Join(bundleRoot, dir), weatherSample, now)
	}

	regionSeq := map[string]int{}
	var storms []domain.StormInfo
	for _, dir := range []string{"chart", "tropical"} {
		storms = append(storms, detectStormsInDir(filepath.Join(bundleRoot, dir), now, regionSeq)...)
	}

	for _, st := range storms {
		stormConfidenceSum += st.Confidence
		stormConfidenceN++

		dest := propagation.HawaiianCentroid
		arrival, err := propagation.CalculateArrival(st, dest)
		if err != nil {
			logger.Warn("propagation failed", "storm_id", st.StormID, "error", err)
			continue
		}
		arrivals = append(arrivals, arrival)
		event, err := fusion.BuildStormArrivalEvent(arrival, st, dest)
		if err != nil {
			logger.Warn("storm arrival event invalid", "storm_id", st.StormID, "error", err)
			continue
		}
		events = append(events, event)
	}

	sourceScores, presentTypes := scoreSources(logger, now, buoySample, modelSample, weatherSample, cache)

	modelHeightsM := make([]float64, 0, len(modelEvents))
	for _, e := range modelEvents {
		modelHeightsM = append(modelHeightsM, e.DominantPrimary().HeightM)
	}

	breakdown := domain.ConfidenceBreakdown{
		BuoyConfidence:     safeAvg(buoyConfidenceSum, buoyConfidenceN),
		PressureConfidence: safeAvg(stormConfidenceSum, stormConfidenceN),
		ModelConfidence:    safeAvg(modelConfidenceSum, modelConfidenceN),
	}

	confidenceReport := scoring.BuildConfidenceReport(
		modelHeightsM, sourceScores, presentTypes, horizonDays, scoring.DefaultHistoricalAccuracy, breakdown, buoyCount)

	inputs := fusion.Inputs{
		BundleID:          bundleID,
		GeneratedAt:       now.Format(time.RFC3339),
		Events:            events,
		ShoreScales:       shoreScalesFromConfig(d.Config.ShoreScales),
		SourceScores:      sourceScores,
		ConflictThreshold: fusion.DefaultConflictThresholdFt,
		ConfidenceReport:  confidenceReport,
		StormArrivals:     arrivals,
	}

	return fusion.Fuse(inputs), nil
}

func safeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func shoreScalesFromConfig(in map[string]config.ShoreScale) map[domain.Shore]config.ShoreScale {
	out := make(map[domain.Shore]config.ShoreScale, len(in))
	for k, v := range in {
		out[domain.Shore(k)] = v
	}
	return out
}

// processBuoyDir reads every file written by BuoyAgent: .spec/.data_spec
// files go through the spectral analyzer for a full decomposition;
// plain .txt realtime2 files fall back to a scalar reading via C12's
// already-tested parser. Returns the built events and how many distinct
// buoy stations contributed at least one event.
func processBuoyDir(logger *slog.Logger, dir string, sample *sourceSample, now time.Time) ([]domain.SwellEvent, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0
	}

	var events []domain.SwellEvent
	stations := map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		stationID := stationIDFromFilename(name)

		switch {
		case strings.HasSuffix(name, ".spec") || strings.HasSuffix(name, ".data_spec"):
			result := spectral.AnalyzeFile(path, stationID, spectral.DefaultOptions())
			if result == nil || len(result.Peaks) == 0 {
				continue
			}
			ts, err := time.Parse(time.RFC3339, result.Timestamp)
			if err != nil {
				ts = now
			}
			event, err := fusion.BuildBuoyEvent(fusion.BuoyReading{
				StationID: stationID,
				Timestamp: result.Timestamp,
				Spectral:  result,
			})
			if err != nil {
				logger.Warn("buoy spectral event invalid", "station", stationID, "error", err)
				continue
			}
			events = append(events, event)
			stations[stationID] = true
			sample.observe([]string{"wave_height", "period", "direction", "timestamp"}, ts)

		case strings.HasSuffix(name, ".txt"):
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			readings := buoyfetch.ParseReadings(stationID, data)
			if len(readings) == 0 {
				continue
			}
			latest := readings[len(readings)-1]
			ts, err := time.Parse(time.RFC3339, latest.ObservationTime)
			if err != nil {
				ts = now
			}
			event, err := fusion.BuildBuoyEvent(fusion.BuoyReading{
				StationID:    stationID,
				Timestamp:    latest.ObservationTime,
				HeightM:      latest.WaveHeightFt / metersToFeetLocal,
				PeriodS:      clampPeriodS(latest.DominantPeriodS),
				DirectionDeg: latest.DirectionDeg,
			})
			if err != nil {
				logger.Warn("buoy scalar event invalid", "station", stationID, "error", err)
				continue
			}
			events = append(events, event)
			stations[stationID] = true
			fields := []string{"wave_height", "timestamp"}
			if latest.DominantPeriodS > 0 {
				fields = append(fields, "period")
			}
			if latest.HasDirection {
				fields = append(fields, "direction")
			}
			sample.observe(fields, ts)
		}
	}

	return events, len(stations)
}

const metersToFeetLocal = 3.28084

// clampPeriodS guards against a zero/missing period, which
// NewSwellComponent rejects outright (periods must fall in [4, 30]s).
func clampPeriodS(periodS float64) float64 {
	if periodS < 4 {
		return 4
	}
	if periodS > 30 {
		return 30
	}
	return periodS
}

func stationIDFromFilename(name string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(name, ".data_spec"), ".spec"), ".txt")
	return base
}

// processWaveModelDir reads WaveModelAgent's "*_summary.txt" aggregate
// files. The raw gridded CSVs are also in this directory, but their
// per-cell parsing is C6's own internal concern; the summary line is the
// stable, already-serialized handoff contract between collection and
// processing.
func processWaveModelDir(logger *slog.Logger, dir string, sample *sourceSample, now time.Time) []domain.SwellEvent {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var events []domain.SwellEvent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_summary.txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		m := wavemodelSummaryRe.FindStringSubmatch(string(data))
		if m == nil {
			continue
		}
		heightM := mustParseFloat(m[1])
		periodS := clampPeriodS(mustParseFloat(m[4]))
		directionDeg := mustParseFloat(m[5])

		event, err := fusion.BuildModelEvent(fusion.ModelGridSample{
			Timestamp:    now.Format(time.RFC3339),
			HeightM:      heightM,
			PeriodS:      periodS,
			DirectionDeg: directionDeg,
		})
		if err != nil {
			logger.Warn("model event invalid", "file", entry.Name(), "error", err)
			continue
		}
		events = append(events, event)
		sample.observe([]string{"height", "period", "direction"}, now)
	}
	return events
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// observeRawTextPresence marks a weather-like source as present if its
// agent directory has any fetched file, used only to feed
// scoring.Completeness/ForecastHorizonScore's presence signal; these
// sources don't contribute SwellEvents of their own.
func observeRawTextPresence(dir string, sample *sourceSample, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return
	}
	sample.observe([]string{"wind_speed", "wind_direction"}, now)
}

// detectStormsInDir runs the storm detector over every raw text file in
// dir (chart/tropical agent output is always plain text: GIFs go through
// upperair, which storm detection does not consume).
func detectStormsInDir(dir string, now time.Time, regionSeq map[string]int) []domain.StormInfo {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var storms []domain.StormInfo
	detectionTime := now.Format(time.RFC3339)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".gif") || strings.HasSuffix(entry.Name(), ".png") || strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		storms = append(storms, storm.Detect(string(data), detectionTime, regionSeq)...)
	}
	return storms
}

// scoreSources builds one SourceScore per data type that actually
// contributed data this run, plus the list of ExpectedSourceTypes present
// (used by DataCompleteness).
func scoreSources(logger *slog.Logger, now time.Time, buoy, model, weather *sourceSample, cache scoring.AccuracyCache) (map[string]domain.SourceScore, []string) {
	scores := map[string]domain.SourceScore{}
	var present []string
	weights := domain.DefaultSourceScoreWeights()

	if buoy.hasAny {
		s, err := scoring.ScoreSource(logger, "buoy", scoring.DataTypeBuoy, now, buoy.mostRecent, buoy.present, cache, weights)
		if err == nil {
			scores["buoy"] = s
			present = append(present, "buoy")
		}
	}
	if model.hasAny {
		s, err := scoring.ScoreSource(logger, "wavemodel", scoring.DataTypeModel, now, model.mostRecent, model.present, cache, weights)
		if err == nil {
			scores["wavemodel"] = s
			present = append(present, "model")
		}
	}
	if weather.hasAny {
		s, err := scoring.ScoreSource(logger, "weather", scoring.DataTypeWeather, now, weather.mostRecent, weather.present, cache, weights)
		if err == nil {
			scores["weather"] = s
		}
	}

	sort.Strings(present)
	return scores, present
}
