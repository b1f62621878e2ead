// Package orchestrator implements the top-level run loop (spec §5, C15):
// collect fans out every configured agent through a bounded pool, process
// turns one bundle's raw files into swell events/storms/arrivals, forecast
// chains collect→process→fuse→persist, writing the forecast and its
// predictions inside one ordered transaction, and
// validate pulls fresh NDBC actuals, matches them against past predictions,
// and re-runs the performance analyzer.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stonezone/surfcastai/internal/agents"
	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/domain"
	"github.com/stonezone/surfcastai/internal/observability"
	"github.com/stonezone/surfcastai/internal/scoring"
	"github.com/stonezone/surfcastai/internal/validation/analyzer"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

// Command names one of the four orchestrated runs.
type Command string

const (
	CommandCollect  Command = "collect"
	CommandProcess  Command = "process"
	CommandForecast Command = "forecast"
	CommandValidate Command = "validate"
)

// DefaultHorizonDays is used when Options.HorizonDays is unset. It equals
// spec §4.9's "long forecast horizon" warning threshold of 5 days; the
// warning fires only above that, so a default run doesn't trigger it.
const DefaultHorizonDays = 5.0

// Deps wires the orchestrator to the rest of the system. Fetcher and
// Store may be nil for commands that don't need them (process doesn't
// fetch; collect doesn't persist), but Run returns an error if a command
// needs a dependency that's missing.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Bundles *bundle.Manager
	Fetcher agents.Fetcher
	Store   *store.Store
	Clock   clockwork.Clock
}

// Options configures one Run call. Not every field applies to every
// command; unused fields are ignored.
type Options struct {
	BundleID       string
	SkipCollection bool
	HorizonDays    float64
}

// Result is the union of everything a command might hand back. Only the
// fields relevant to the command that produced it are populated.
type Result struct {
	BundleID string
	Forecast *domain.FusedForecast
	Report   *analyzer.Report
	Guidance string
}

// Run dispatches to the named command.
func Run(ctx context.Context, d Deps, cmd Command, opts Options) (Result, error) {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	switch cmd {
	case CommandCollect:
		return runCollect(ctx, d)
	case CommandProcess:
		return runProcessCommand(ctx, d, opts)
	case CommandForecast:
		return runForecast(ctx, d, opts)
	case CommandValidate:
		return runValidate(ctx, d, opts)
	default:
		return Result{}, fmt.Errorf("orchestrator: unknown command %q", cmd)
	}
}

func horizonDaysOrDefault(opts Options) float64 {
	if opts.HorizonDays > 0 {
		return opts.HorizonDays
	}
	return DefaultHorizonDays
}

func requireFetcher(d Deps) error {
	if d.Fetcher == nil {
		return fmt.Errorf("orchestrator: a fetcher is required for this command")
	}
	return nil
}

func requireStore(d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("orchestrator: a store is required for this command")
	}
	return nil
}

func logAt(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func nowUTC(d Deps) time.Time {
	return d.Clock.Now().UTC()
}
