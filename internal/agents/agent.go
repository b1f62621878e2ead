// Package agents implements the per-source collection agents (spec §4.3):
// one file per source type that needs bespoke parsing, and a generic
// SimpleAgent for sources that merely fetch and store an endpoint list.
package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/observability"
)

// Result summarizes one agent's collection run.
type Result struct {
	Agent        string
	Files        []string
	FallbackUsed bool
	Warnings     []string
}

// Agent collects one source type's data into a bundle.
type Agent interface {
	Name() string
	Collect(ctx context.Context, b *bundle.Bundle) (Result, error)
}

// Fetcher is the subset of *fetch.Fetcher every agent needs. Declaring it
// as an interface here, rather than depending on the concrete type,
// lets tests substitute a fake that never makes a real HTTP call.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxWait time.Duration) ([]byte, error)
}

// deps bundles what every agent needs from the rest of the system, so
// concrete agent constructors take one small struct instead of a long
// parameter list.
type deps struct {
	fetcher Fetcher
	metrics *observability.Metrics
	maxWait time.Duration
}

// Deps is the public constructor form of deps.
type Deps struct {
	Fetcher Fetcher
	Metrics *observability.Metrics
	MaxWait time.Duration
}

func (d Deps) internal() deps {
	return deps{fetcher: d.Fetcher, metrics: d.Metrics, maxWait: d.MaxWait}
}

// expandTemplate replaces {station}, {date}, {hour}, {lat}, {lon}
// placeholders in a URL template with the given values. Unused
// placeholders are left as-is (callers only pass the ones relevant to
// their endpoint).
func expandTemplate(tmpl string, values map[string]string) string {
	out := tmpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// writeFile saves fetched bytes under the agent's bundle directory and
// returns the path written.
func writeFile(b *bundle.Bundle, agent, filename string, data []byte) (string, error) {
	dir, err := b.AgentDir(agent)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// spcUpperAirDate resolves the SPC 00Z analysis date: SPC publishes the
// 00Z map with a several-hour production delay, so requests made before
// ~06:00 UTC fall back to the previous day's 00Z map, which is the
// latest one guaranteed to exist yet.
func spcUpperAirDate(now time.Time) string {
	now = now.UTC()
	const publicationDelay = 6 * time.Hour
	if now.Hour() < int(publicationDelay.Hours()) {
		now = now.AddDate(0, 0, -1)
	}
	return now.Format("060102")
}
