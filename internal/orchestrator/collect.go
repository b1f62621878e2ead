package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/stonezone/surfcastai/internal/agents"
	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/fetch"
	"github.com/stonezone/surfcastai/internal/observability"
)

// simpleAgentNames lists the sources spec §4.3 says follow SimpleAgent's
// fetch-and-store shape with no bespoke parsing.
var simpleAgentNames = []string{"weather", "tides", "tropical", "chart", "satellite", "climatology"}

// buildAgents instantiates one Agent per configured data source, in a
// stable order so bundle metadata and logs read the same way across runs.
func buildAgents(cfg *config.Config, fetcher agents.Fetcher, metrics *observability.Metrics, maxWait time.Duration) []agents.Agent {
	d := agents.Deps{Fetcher: fetcher, Metrics: metrics, MaxWait: maxWait}
	var out []agents.Agent

	if src, ok := cfg.DataSources["buoy"]; ok {
		out = append(out, agents.NewBuoyAgent(src, d))
	}
	if src, ok := cfg.DataSources["cdip"]; ok {
		out = append(out, agents.NewCdipAgent(src, d))
	}
	if src, ok := cfg.DataSources["wavemodel"]; ok {
		out = append(out, agents.NewWaveModelAgent(src, d))
	}
	if src, ok := cfg.DataSources["altimetry"]; ok {
		out = append(out, agents.NewAltimetryAgent(src, d))
	}
	if src, ok := cfg.DataSources["upperair"]; ok {
		out = append(out, agents.NewUpperAirAgent(src, d))
	}
	for _, name := range simpleAgentNames {
		if src, ok := cfg.DataSources[name]; ok {
			out = append(out, agents.NewSimpleAgent(name, src, d))
		}
	}
	return out
}

// runCollect creates a new bundle and runs every configured agent against
// it, bounded by the shared pool (spec §5's max_concurrent). One agent's
// failure is recorded on the bundle and logged, but never aborts the rest
// of the run: a partial bundle is still useful to process.
func runCollect(ctx context.Context, d Deps) (Result, error) {
	if err := requireFetcher(d); err != nil {
		return Result{}, err
	}
	logger := logAt(d.Logger)

	b, err := d.Bundles.NewBundle()
	if err != nil {
		return Result{}, err
	}

	roster := buildAgents(d.Config, d.Fetcher, d.Metrics, d.Config.FetchTimeout)
	pool := fetch.NewPool(d.Config.MaxConcurrent)

	var mu sync.Mutex
	tasks := make([]func(context.Context) error, 0, len(roster))
	for _, a := range roster {
		a := a
		tasks = append(tasks, func(ctx context.Context) error {
			res, collectErr := a.Collect(ctx, b)

			status := "ok"
			switch {
			case collectErr != nil:
				status = "error: " + collectErr.Error()
			case res.FallbackUsed:
				status = "fallback"
			case len(res.Warnings) > 0:
				status = "partial"
			}

			mu.Lock()
			recErr := b.RecordAgentStatus(a.Name(), status)
			mu.Unlock()
			if recErr != nil {
				logger.Error("record agent status", "agent", a.Name(), "error", recErr)
			}

			if collectErr != nil {
				logger.Warn("agent collection failed", "agent", a.Name(), "error", collectErr)
			}
			for _, w := range res.Warnings {
				logger.Warn("agent collection warning", "agent", a.Name(), "warning", w)
			}
			// A single source's failure degrades the bundle, not the run:
			// returning nil here keeps the pool draining the rest.
			return nil
		})
	}

	if err := pool.Run(ctx, tasks); err != nil {
		return Result{}, err
	}

	return Result{BundleID: b.ID}, nil
}

// loadBundle resolves opts.BundleID to a *bundle.Bundle, defaulting to the
// most recently created one when BundleID is empty.
func loadBundle(m *bundle.Manager, bundleID string) (*bundle.Bundle, error) {
	if bundleID == "" {
		ids, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("orchestrator: no bundles available under %s", m.DataRoot)
		}
		bundleID = ids[0]
	}
	return &bundle.Bundle{ID: bundleID, Root: filepath.Join(m.DataRoot, bundleID)}, nil
}
