package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// AltimetryAgent fetches satellite altimetry wave-height data. Modern
// ERDDAP `.graph?` URLs return a PNG directly with no post-processing;
// legacy endpoints return a ZIP/NetCDF payload that must be extracted.
// A dual-mirror fallback covers the legacy endpoint being unavailable.
type AltimetryAgent struct {
	cfg  config.DataSourceConfig
	deps deps
}

// NewAltimetryAgent builds an AltimetryAgent.
func NewAltimetryAgent(cfg config.DataSourceConfig, d Deps) *AltimetryAgent {
	return &AltimetryAgent{cfg: cfg, deps: d.internal()}
}

func (a *AltimetryAgent) Name() string { return "altimetry" }

func (a *AltimetryAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.Name()}

	for i, url := range a.cfg.URLTemplates {
		data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("mirror %d: %v", i, err))
			continue
		}

		filename := altimetryFilename(url, i)
		path, err := writeFile(b, a.Name(), filename, data)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)

		if i > 0 {
			res.FallbackUsed = true
		}
		return res, nil
	}

	return res, fmt.Errorf("all altimetry mirrors failed")
}

// isGraphPNG reports whether url is a direct-PNG ERDDAP graph endpoint
// (".graph?") rather than a legacy ZIP/NetCDF payload.
func isGraphPNG(url string) bool {
	return strings.Contains(url, ".graph?")
}

func altimetryFilename(url string, index int) string {
	if isGraphPNG(url) {
		return fmt.Sprintf("altimetry_%d.png", index)
	}
	return fmt.Sprintf("altimetry_%d.zip", index)
}
