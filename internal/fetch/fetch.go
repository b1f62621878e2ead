// Package fetch implements the rate-limited, SSRF-checked HTTP fetcher
// described in spec §5 (C1): one token bucket per host, bounded global
// concurrency, and typed error classification so callers can tell a
// transient network failure from a security violation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/stonezone/surfcastai/internal/config"
	"github.com/stonezone/surfcastai/internal/observability"
	"github.com/stonezone/surfcastai/internal/security"
)

// TransientNetworkError wraps a retryable failure: timeout, connection
// reset, 5xx, 429, or DNS flake.
type TransientNetworkError struct {
	URL string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient fetch error for %s: %v", e.URL, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// MaxRetries bounds the exponential-backoff retry loop per spec §7.
const MaxRetries = 3

// RateLimit is a per-host token-bucket budget, shared with the config
// package so a loaded Config's RateLimits map can be passed straight to
// NewHostLimiter without conversion.
type RateLimit = config.RateLimit

// HostLimiter owns one *rate.Limiter per host, created lazily.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	configs  map[string]RateLimit
	fallback RateLimit
}

// NewHostLimiter builds a HostLimiter from per-host configs and a fallback
// applied to any host without an explicit entry.
func NewHostLimiter(configs map[string]RateLimit, fallback RateLimit) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		configs:  configs,
		fallback: fallback,
	}
}

// Wait blocks until the host's bucket has a token, a context deadline is
// hit, or maxWait elapses (whichever comes first). maxWait of zero means
// no fail-fast bound beyond the context.
func (h *HostLimiter) Wait(ctx context.Context, host string, maxWait time.Duration) error {
	limiter := h.limiterFor(host)

	if maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	return limiter.Wait(ctx)
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.limiters[host]; ok {
		return l
	}

	cfg, ok := h.configs[host]
	if !ok {
		cfg = h.fallback
	}
	l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)
	h.limiters[host] = l
	return l
}

// Fetcher performs SSRF-validated, rate-limited, retried HTTP GETs.
type Fetcher struct {
	client    *http.Client
	validator *security.Validator
	limiter   *HostLimiter
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New builds a Fetcher. The http.Client's CheckRedirect is overridden so
// every redirect hop is revalidated against the SSRF validator.
func New(validator *security.Validator, limiter *HostLimiter, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	f := &Fetcher{
		validator: validator,
		limiter:   limiter,
		logger:    logger,
		metrics:   metrics,
	}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if err := validator.ValidateRedirectChain(req.Context(), req.URL.String(), len(via)); err != nil {
				return err
			}
			return nil
		},
	}
	return f
}

// Fetch performs one SSRF-validated, rate-limited, retried GET and returns
// the response body. maxWait bounds the rate-limiter wait; zero means no
// additional bound beyond ctx.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxWait time.Duration) ([]byte, error) {
	if err := f.validator.ValidateURL(ctx, rawURL); err != nil {
		f.observe(rawURL, "security_error")
		return nil, err
	}

	host := hostOf(rawURL)

	waitStart := time.Now()
	if err := f.limiter.Wait(ctx, host, maxWait); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	if f.metrics != nil {
		f.metrics.RateLimiterWaitTime.Observe(time.Since(waitStart).Seconds())
	}

	var body []byte
	start := time.Now()

	op := func() error {
		b, err := f.doOnce(ctx, rawURL)
		if err != nil {
			var secErr *security.SecurityError
			if errors.As(err, &secErr) {
				f.logf("fetch rejected by ssrf validator", "url", rawURL, "reason", secErr.Reason)
				return backoff.Permanent(err)
			}
			var transientErr *TransientNetworkError
			if errors.As(err, &transientErr) {
				f.logf("fetch retrying after transient error", "url", rawURL, "err", err)
				if f.metrics != nil {
					f.metrics.FetchRetries.Inc()
				}
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries)
	err := backoff.Retry(op, backoff.WithContext(bo, ctx))

	duration := time.Since(start).Seconds()
	if f.metrics != nil {
		f.metrics.FetchDuration.WithLabelValues(host).Observe(duration)
	}

	if err != nil {
		var secErr *security.SecurityError
		if errors.As(err, &secErr) {
			f.observe(host, "security_error")
		} else {
			f.observe(host, "transient_error")
			f.logf("fetch failed after retries", "url", rawURL, "err", err)
		}
		return nil, err
	}

	f.observe(host, "success")
	return body, nil
}

// logf logs at debug level if a logger was configured; it is a no-op
// otherwise so Fetcher remains usable without observability wired in.
func (f *Fetcher) logf(msg string, args ...any) {
	if f.logger == nil {
		return
	}
	f.logger.Debug(msg, args...)
}

func (f *Fetcher) doOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var secErr *security.SecurityError
		if errors.As(err, &secErr) {
			return nil, secErr
		}
		return nil, &TransientNetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &TransientNetworkError{URL: rawURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientNetworkError{URL: rawURL, Err: err}
	}
	return data, nil
}

func (f *Fetcher) observe(host, outcome string) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetchRequests.WithLabelValues(host, outcome).Inc()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Hostname()
}
