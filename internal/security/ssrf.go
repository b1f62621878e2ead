// Package security implements the SSRF defenses and safe-archive-extraction
// guards described in spec §7 (SecurityError class): every outbound fetch
// target is validated before any socket is opened, and every archive member
// is validated before any byte is written.
package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// SecurityError is fatal to the specific operation it attaches to: it is
// never retried and always propagated, per spec §7.
type SecurityError struct {
	Op     string
	Target string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s %s: %s", e.Op, e.Target, e.Reason)
}

// MaxRedirects bounds how deep ValidateRedirectChain will revalidate.
const MaxRedirects = 5

// Resolver resolves a hostname to its candidate IPs. Abstracted so tests
// can inject deterministic DNS answers without a real resolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator checks candidate fetch URLs for SSRF risk: disallowed schemes,
// hostnames that resolve to private/loopback/link-local ranges, and an
// optional domain allow-list.
type Validator struct {
	resolver       Resolver
	allowedDomains []string
	verdicts       *verdictCache
}

// NewValidator builds a Validator. allowedDomains, if non-empty, restricts
// fetches to hosts matching one of the given suffixes (security.allowed_data_domains).
func NewValidator(resolver Resolver, allowedDomains []string) *Validator {
	return &Validator{
		resolver:       resolver,
		allowedDomains: allowedDomains,
		verdicts:       newVerdictCache(256),
	}
}

// ValidateURL checks scheme, host allow-list membership, and resolved-IP
// safety for a single URL. Returns a *SecurityError on any violation.
func (v *Validator) ValidateURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &SecurityError{Op: "parse_url", Target: rawURL, Reason: err.Error()}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return &SecurityError{Op: "validate_url", Target: rawURL, Reason: "scheme must be http or https"}
	}

	host := u.Hostname()
	if host == "" {
		return &SecurityError{Op: "validate_url", Target: rawURL, Reason: "empty host"}
	}

	if len(v.allowedDomains) > 0 && !hostAllowed(host, v.allowedDomains) {
		return &SecurityError{Op: "validate_url", Target: rawURL, Reason: "host not in allowed_data_domains"}
	}

	if cached, ok := v.verdicts.get(host); ok {
		if !cached {
			return &SecurityError{Op: "validate_url", Target: rawURL, Reason: "host resolves to a disallowed IP range"}
		}
		return nil
	}

	safe, err := v.hostIsSafe(ctx, host)
	if err != nil {
		return &SecurityError{Op: "validate_url", Target: rawURL, Reason: err.Error()}
	}
	v.verdicts.put(host, safe)
	if !safe {
		return &SecurityError{Op: "validate_url", Target: rawURL, Reason: "host resolves to a disallowed IP range"}
	}
	return nil
}

// ValidateRedirectChain revalidates a new Location header target reached
// via HTTP redirect, bounding recursion so a malicious server cannot tie
// up a fetch indefinitely.
func (v *Validator) ValidateRedirectChain(ctx context.Context, rawURL string, depth int) error {
	if depth > MaxRedirects {
		return &SecurityError{Op: "validate_redirect", Target: rawURL, Reason: "too many redirects"}
	}
	return v.ValidateURL(ctx, rawURL)
}

func (v *Validator) hostIsSafe(ctx context.Context, host string) (bool, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ipIsSafe(ip), nil
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return false, fmt.Errorf("resolve host: %w", err)
	}
	if len(addrs) == 0 {
		return false, fmt.Errorf("host resolved to no addresses")
	}
	for _, a := range addrs {
		if !ipIsSafe(a.IP) {
			return false, nil
		}
	}
	return true, nil
}

// ipIsSafe rejects loopback, private (RFC1918/unique-local), link-local,
// and unspecified addresses for both IPv4 and IPv6.
func ipIsSafe(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast() {
		return false
	}
	return true
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
