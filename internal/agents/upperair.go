package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// UpperAirAgent fetches SPC 250mb/500mb upper-air analysis GIFs for the
// 00Z cycle only. SPC publishes the 00Z map with a production delay, so
// the resolved date rolls back to the previous day until that delay has
// passed (see spcUpperAirDate).
type UpperAirAgent struct {
	cfg  config.DataSourceConfig
	deps deps
	now  func() time.Time
}

// NewUpperAirAgent builds an UpperAirAgent.
func NewUpperAirAgent(cfg config.DataSourceConfig, d Deps) *UpperAirAgent {
	return &UpperAirAgent{cfg: cfg, deps: d.internal(), now: time.Now}
}

func (a *UpperAirAgent) Name() string { return "upperair" }

func (a *UpperAirAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.Name()}
	date := spcUpperAirDate(a.now())

	for _, tmpl := range a.cfg.URLTemplates {
		url := expandTemplate(tmpl, map[string]string{"date": date})
		data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", url, err))
			continue
		}

		level := levelFromTemplate(tmpl)
		path, err := writeFile(b, a.Name(), fmt.Sprintf("%s_%s_00z.gif", level, date), data)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
	}

	return res, nil
}

func levelFromTemplate(tmpl string) string {
	switch {
	case strings.Contains(tmpl, "250_"):
		return "250mb"
	case strings.Contains(tmpl, "500_"):
		return "500mb"
	default:
		return "unknown"
	}
}
