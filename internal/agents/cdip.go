package agents

import (
	"context"
	"fmt"
	"os"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// cdipToNDBC maps CDIP nearshore station numbers to the NDBC realtime2
// station that best approximates the same swell window, used when the
// THREDDS NetCDF endpoint is unavailable or times out.
var cdipToNDBC = map[string]string{
	"098": "51201",
	"106": "51202",
	"165": "51207",
	"225": "51208",
}

// CdipAgent fetches CDIP nearshore buoy data. Primary source is THREDDS
// NetCDF; large files (30-75 MB) can exceed the fetch budget, in which
// case falling back to plain NDBC text is the documented, expected
// behavior rather than a hard failure.
type CdipAgent struct {
	cfg  config.DataSourceConfig
	deps deps
}

// NewCdipAgent builds a CdipAgent.
func NewCdipAgent(cfg config.DataSourceConfig, d Deps) *CdipAgent {
	return &CdipAgent{cfg: cfg, deps: d.internal()}
}

func (a *CdipAgent) Name() string { return "cdip" }

func (a *CdipAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.Name()}

	for _, station := range a.cfg.Stations {
		if err := a.collectStation(ctx, b, station, &res); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("station %s: %v", station, err))
		}
	}

	return res, nil
}

func (a *CdipAgent) collectStation(ctx context.Context, b *bundle.Bundle, station string, res *Result) error {
	for _, tmpl := range a.cfg.URLTemplates {
		url := expandTemplate(tmpl, map[string]string{"station": station})

		raw, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
		if err != nil {
			// Timeout or transient fetch failure on the NetCDF endpoint
			// is the documented trigger for falling back to NDBC text.
			return a.fallbackToNDBC(ctx, b, station, res)
		}

		summary, err := parseCdipNetCDF(raw)
		if err != nil {
			return a.fallbackToNDBC(ctx, b, station, res)
		}

		path, err := writeFile(b, a.Name(), station+"p1_rt.nc", raw)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, path)

		summaryPath, err := writeFile(b, a.Name(), station+"_summary.txt", []byte(summary))
		if err != nil {
			return err
		}
		res.Files = append(res.Files, summaryPath)
		return nil
	}
	return fmt.Errorf("no url templates configured for station %s", station)
}

func (a *CdipAgent) fallbackToNDBC(ctx context.Context, b *bundle.Bundle, cdipStation string, res *Result) error {
	ndbcStation, ok := cdipToNDBC[cdipStation]
	if !ok {
		return fmt.Errorf("no NDBC fallback mapping for CDIP station %s", cdipStation)
	}

	url := fmt.Sprintf("https://www.ndbc.noaa.gov/data/realtime2/%s.txt", ndbcStation)
	data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
	if err != nil {
		return fmt.Errorf("ndbc fallback for %s: %w", cdipStation, err)
	}

	path, err := writeFile(b, a.Name(), cdipStation+"_fallback_"+ndbcStation+".txt", data)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	res.FallbackUsed = true
	return nil
}

// parseCdipNetCDF opens the fetched NetCDF payload (written to a temp
// file, since go-netcdf's cgo binding reads from a path) and reads the
// variables spec §6 documents: waveHs, waveTp, waveTa, waveDp, time. It
// returns a short human-readable summary of the latest sample.
func parseCdipNetCDF(raw []byte) (string, error) {
	tmp, err := os.CreateTemp("", "cdip-*.nc")
	if err != nil {
		return "", fmt.Errorf("create temp netcdf file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(raw); err != nil {
		return "", fmt.Errorf("write temp netcdf file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp netcdf file: %w", err)
	}

	ds, err := netcdf.OpenFile(tmp.Name(), netcdf.NOWRITE)
	if err != nil {
		return "", fmt.Errorf("open netcdf dataset: %w", err)
	}
	defer ds.Close()

	hs, err := lastScalar(ds, "waveHs")
	if err != nil {
		return "", err
	}
	tp, err := lastScalar(ds, "waveTp")
	if err != nil {
		return "", err
	}
	dp, err := lastScalar(ds, "waveDp")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("waveHs=%.2f waveTp=%.2f waveDp=%.1f\n", hs, tp, dp), nil
}

// lastScalar reads a 1-D netCDF variable and returns its final (most
// recent) value.
func lastScalar(ds netcdf.Dataset, name string) (float64, error) {
	v, err := ds.Var(name)
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", name, err)
	}

	dims, err := v.Dims()
	if err != nil {
		return 0, fmt.Errorf("dims for %s: %w", name, err)
	}
	if len(dims) == 0 {
		return 0, fmt.Errorf("variable %s has no dimensions", name)
	}

	n, err := dims[0].Len()
	if err != nil {
		return 0, fmt.Errorf("length for %s: %w", name, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("variable %s is empty", name)
	}

	vals := make([]float64, n)
	if err := v.ReadFloat64s(vals); err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}

	return vals[n-1], nil
}
