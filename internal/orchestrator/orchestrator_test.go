package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, maxWait time.Duration) ([]byte, error) {
	return f.body, f.err
}

func newTestDeps(t *testing.T) (Deps, *bundle.Manager) {
	t.Helper()
	mgr := bundle.NewManager(t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	return Deps{
		Config:  cfg,
		Bundles: mgr,
		Fetcher: &fakeFetcher{body: []byte("ok")},
		Clock:   clock,
	}, mgr
}

func TestRunCollect_RecordsStatusPerAgent(t *testing.T) {
	d, mgr := newTestDeps(t)

	res, err := Run(context.Background(), d, CommandCollect, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.BundleID)

	ids, err := mgr.List()
	require.NoError(t, err)
	require.Contains(t, ids, res.BundleID)

	statusPath := filepath.Join(mgr.DataRoot, res.BundleID, "metadata.json")
	_, err = os.Stat(statusPath)
	assert.NoError(t, err)

	data, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	var meta bundle.Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	roster := buildAgents(d.Config, d.Fetcher, d.Metrics, d.Config.FetchTimeout)
	require.NotEmpty(t, roster)
	for _, a := range roster {
		assert.NotEmpty(t, meta.Agents[a.Name()], "agent %s has no recorded status", a.Name())
	}
}

func TestRunCollect_RequiresFetcher(t *testing.T) {
	d, _ := newTestDeps(t)
	d.Fetcher = nil

	_, err := Run(context.Background(), d, CommandCollect, Options{})
	assert.Error(t, err)
}

const specHeader = "#YY MM DD hh mm WVHT SwH SwP WWH WWP SwD WWD STEEPNESS APD MWD"

func writeBundleFixture(t *testing.T, root string) {
	t.Helper()
	buoyDir := filepath.Join(root, "buoy")
	require.NoError(t, os.MkdirAll(buoyDir, 0o755))
	specData := specHeader + "\n" +
		"26 07 31 00 00 3.0 2.5 14.0 1.0 7.0 NNW ENE STEEP 10.0 330\n"
	require.NoError(t, os.WriteFile(filepath.Join(buoyDir, "51201.spec"), []byte(specData), 0o644))

	wavemodelDir := filepath.Join(root, "wavemodel")
	require.NoError(t, os.MkdirAll(wavemodelDir, 0o755))
	summary := "mean_height_m=2.10 max_height_m=2.80 min_height_m=1.50 mean_period_s=12.50 mean_direction_deg=315.0 n=9\n"
	require.NoError(t, os.WriteFile(filepath.Join(wavemodelDir, "grid_summary.txt"), []byte(summary), 0o644))

	weatherDir := filepath.Join(root, "weather")
	require.NoError(t, os.MkdirAll(weatherDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(weatherDir, "forecast.txt"), []byte("wind 15kt NE"), 0o644))

	chartDir := filepath.Join(root, "chart")
	require.NoError(t, os.MkdirAll(chartDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chartDir, "chart.txt"),
		[]byte("A deep low near 42.5N 165.0E with winds of 65 knots and central pressure 955 mb."), 0o644))
}

func TestBuildForecast_ParsesBundleIntoFusedForecast(t *testing.T) {
	d, mgr := newTestDeps(t)
	b, err := mgr.NewBundle()
	require.NoError(t, err)
	writeBundleFixture(t, b.Root)

	forecast, err := buildForecast(d, b.Root, b.ID, nowUTC(d), DefaultHorizonDays, nil)
	require.NoError(t, err)

	assert.Equal(t, b.ID, forecast.BundleID)
	assert.NotEmpty(t, forecast.ShoreForecasts)
}

func TestRunProcessCommand_UsesMostRecentBundleWhenIDOmitted(t *testing.T) {
	d, mgr := newTestDeps(t)
	b, err := mgr.NewBundle()
	require.NoError(t, err)
	writeBundleFixture(t, b.Root)

	res, err := Run(context.Background(), d, CommandProcess, Options{})
	require.NoError(t, err)
	assert.Equal(t, b.ID, res.BundleID)
	require.NotNil(t, res.Forecast)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "surfcast.db"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunForecast_PersistsForecastAndPredictions(t *testing.T) {
	d, mgr := newTestDeps(t)
	d.Store = newTestStore(t)

	b, err := mgr.NewBundle()
	require.NoError(t, err)
	writeBundleFixture(t, b.Root)

	res, err := Run(context.Background(), d, CommandForecast, Options{SkipCollection: true, BundleID: b.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Forecast)

	var count int
	err = d.Store.DB().QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM forecasts WHERE forecast_id = ?", res.Forecast.ForecastID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = d.Store.DB().QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM predictions WHERE forecast_id = ?", res.Forecast.ForecastID).Scan(&count)
	require.NoError(t, err)
	assert.True(t, count > 0)
}

func TestAngularDiffDeg(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 350, 10},
		{10, 20, 10},
		{350, 10, 20},
		{0, 180, 180},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, angularDiffDeg(tt.a, tt.b), 0.001)
	}
}

func TestMatchActualsToPredictions_CreatesValidationWithinTolerance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PersistForecastRun(ctx, store.Forecast{
		ForecastID: "fc-1",
		CreatedAt:  now.Format(time.RFC3339),
		BundleID:   "bundle-1",
		Status:     "complete",
	}, []store.Prediction{
		{Shore: "north", ForecastTime: now.Format(time.RFC3339), ValidTime: now.Format(time.RFC3339), PredictedHeight: 5.0, PredictedPeriod: 14.0, PredictedDirection: 320},
	}))

	require.NoError(t, s.PersistActuals(ctx, []store.Actual{
		{BuoyID: "51201", ObservationTime: now.Add(10 * time.Minute).Format(time.RFC3339), WaveHeight: 5.5, DominantPeriod: 13.5, Direction: 325, Source: "NDBC"},
	}))

	require.NoError(t, matchActualsToPredictions(ctx, s, now))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM validations").Scan(&count))
	assert.Equal(t, 1, count)

	var heightErr float64
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT height_error FROM validations LIMIT 1").Scan(&heightErr))
	assert.InDelta(t, -0.5, heightErr, 0.001)
}

func TestMatchActualsToPredictions_SkipsPairsOutsideTolerance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PersistForecastRun(ctx, store.Forecast{
		ForecastID: "fc-1",
		CreatedAt:  now.Format(time.RFC3339),
		BundleID:   "bundle-1",
		Status:     "complete",
	}, []store.Prediction{
		{Shore: "north", ForecastTime: now.Format(time.RFC3339), ValidTime: now.Format(time.RFC3339), PredictedHeight: 5.0},
	}))

	require.NoError(t, s.PersistActuals(ctx, []store.Actual{
		{BuoyID: "51201", ObservationTime: now.Add(5 * time.Hour).Format(time.RFC3339), WaveHeight: 5.5, Source: "NDBC"},
	}))

	require.NoError(t, matchActualsToPredictions(ctx, s, now))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM validations").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestCategoryForHeightFt(t *testing.T) {
	tests := []struct {
		heightFt float64
		want     string
	}{
		{0.5, "flat"},
		{2, "small"},
		{4, "fun"},
		{7, "good"},
		{10, "epic"},
		{15, "dangerous"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryForHeightFt(tt.heightFt))
	}
}

func TestClampPeriodS(t *testing.T) {
	assert.Equal(t, 4.0, clampPeriodS(0))
	assert.Equal(t, 30.0, clampPeriodS(45))
	assert.Equal(t, 12.0, clampPeriodS(12))
}

func TestStationIDFromFilename(t *testing.T) {
	assert.Equal(t, "51201", stationIDFromFilename("51201.spec"))
	assert.Equal(t, "51201", stationIDFromFilename("51201.data_spec"))
	assert.Equal(t, "51201", stationIDFromFilename("51201.txt"))
}
