package agents

import (
	"context"
	"fmt"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// BuoyAgent pulls NDBC realtime2 text per station, plus the optional
// .spec and .data_spec directional-spectra files. Missing-data tokens
// (MM, 99.0, 999.0) are left untouched in the raw text; BuoyAgent does
// not parse them — that is C4's job — it only fetches and stores.
type BuoyAgent struct {
	cfg  config.DataSourceConfig
	deps deps
}

// NewBuoyAgent builds a BuoyAgent from its data-source config and shared
// dependencies.
func NewBuoyAgent(cfg config.DataSourceConfig, d Deps) *BuoyAgent {
	return &BuoyAgent{cfg: cfg, deps: d.internal()}
}

func (a *BuoyAgent) Name() string { return "buoy" }

func (a *BuoyAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.Name()}

	for _, station := range a.cfg.Stations {
		for _, tmpl := range a.cfg.URLTemplates {
			url := expandTemplate(tmpl, map[string]string{"station": station})
			data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
			if err != nil {
				// Spectra files (.spec/.data_spec) are optional for
				// stations that don't report them; a missing .txt file
				// is more notable but still non-fatal to the run.
				res.Warnings = append(res.Warnings, fmt.Sprintf("station %s: %v", station, err))
				continue
			}

			filename := filenameFromURL(url, station)
			path, err := writeFile(b, a.Name(), filename, data)
			if err != nil {
				return res, err
			}
			res.Files = append(res.Files, path)
		}
	}

	return res, nil
}

func filenameFromURL(url, station string) string {
	for _, ext := range []string{".data_spec", ".spec", ".txt"} {
		if len(url) >= len(ext) && url[len(url)-len(ext):] == ext {
			return station + ext
		}
	}
	return station + ".dat"
}
