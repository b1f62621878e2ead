package agents

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// SimpleAgent covers the sources spec §4.3 says "follow the same shape"
// as the bespoke agents but need no special parsing at collection time:
// weather, tides, tropical, chart, satellite, climatology. It fetches
// every configured endpoint (expanded per station, if any are
// configured) and stores the raw response unmodified.
type SimpleAgent struct {
	name string
	cfg  config.DataSourceConfig
	deps deps

	// Coords, if set, are substituted for {lat}/{lon} placeholders
	// (used by the weather agent, which has no station list).
	Coords []LatLon
}

// LatLon is a fixed point used by agents with no station identifier of
// their own (e.g. marine weather grid points).
type LatLon struct {
	Lat, Lon float64
}

// NewSimpleAgent builds a SimpleAgent for the given source name.
func NewSimpleAgent(name string, cfg config.DataSourceConfig, d Deps) *SimpleAgent {
	return &SimpleAgent{name: name, cfg: cfg, deps: d.internal()}
}

func (a *SimpleAgent) Name() string { return a.name }

func (a *SimpleAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.name}

	targets := a.cfg.Stations
	if len(targets) == 0 {
		targets = []string{""}
	}

	for _, target := range targets {
		for ei, tmpl := range a.cfg.URLTemplates {
			url := a.expand(tmpl, target)
			data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", url, err))
				continue
			}

			filename := a.filename(target, ei)
			path, err := writeFile(b, a.name, filename, data)
			if err != nil {
				return res, err
			}
			res.Files = append(res.Files, path)
		}
	}

	return res, nil
}

func (a *SimpleAgent) expand(tmpl, station string) string {
	values := map[string]string{"station": station}
	if len(a.Coords) > 0 {
		values["lat"] = strconv.FormatFloat(a.Coords[0].Lat, 'f', 4, 64)
		values["lon"] = strconv.FormatFloat(a.Coords[0].Lon, 'f', 4, 64)
	}
	return expandTemplate(tmpl, values)
}

func (a *SimpleAgent) filename(station string, endpointIdx int) string {
	if station == "" {
		return fmt.Sprintf("endpoint_%d.dat", endpointIdx)
	}
	return filepath.Base(fmt.Sprintf("%s_%d.dat", station, endpointIdx))
}
