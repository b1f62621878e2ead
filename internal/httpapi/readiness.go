package httpapi

import (
	"context"
	"fmt"
	"os"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/validation/store"
)

// StoreReadiness is the production ReadinessChecker: the process is ready
// once its validation database answers a ping and its bundle data root is
// a writable directory. Either check failing means a forecast run would
// fail partway through, so the process should not yet receive traffic.
type StoreReadiness struct {
	Store   *store.Store
	Bundles *bundle.Manager
}

// CheckReadiness pings the store (if configured) and stats the bundle
// data root. A nil Store is treated as "not a dependency" rather than a
// failure, so commands like collect-only deployments that never open a
// store still report ready.
func (r StoreReadiness) CheckReadiness(ctx context.Context) error {
	if r.Store != nil {
		if err := r.Store.DB().PingContext(ctx); err != nil {
			return fmt.Errorf("validation store unreachable: %w", err)
		}
	}
	if r.Bundles != nil {
		info, err := os.Stat(r.Bundles.DataRoot)
		if err != nil {
			return fmt.Errorf("bundle data root unavailable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("bundle data root %s is not a directory", r.Bundles.DataRoot)
		}
	}
	return nil
}
