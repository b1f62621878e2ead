package security

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	answers map[string][]net.IPAddr
	err     error
}

func (f *fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if f.err != nil {
		return nil, f.err
	}
	addrs, ok := f.answers[host]
	if !ok {
		return nil, nil
	}
	return addrs, nil
}

func ipAddrs(ips ...string) []net.IPAddr {
	out := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out
}

func TestValidator_ValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		rawURL    string
		resolver  *fakeResolver
		allowlist []string
		wantErr   bool
	}{
		{
			name:     "public host passes",
			rawURL:   "https://www.ndbc.noaa.gov/data/realtime2/51201.txt",
			resolver: &fakeResolver{answers: map[string][]net.IPAddr{"www.ndbc.noaa.gov": ipAddrs("140.90.100.1")}},
			wantErr:  false,
		},
		{
			name:     "loopback IP literal rejected",
			rawURL:   "http://127.0.0.1/admin",
			resolver: &fakeResolver{},
			wantErr:  true,
		},
		{
			name:     "private RFC1918 resolution rejected",
			rawURL:   "http://internal.example/data",
			resolver: &fakeResolver{answers: map[string][]net.IPAddr{"internal.example": ipAddrs("10.0.0.5")}},
			wantErr:  true,
		},
		{
			name:     "link-local resolution rejected",
			rawURL:   "http://metadata.example/latest",
			resolver: &fakeResolver{answers: map[string][]net.IPAddr{"metadata.example": ipAddrs("169.254.169.254")}},
			wantErr:  true,
		},
		{
			name:     "ftp scheme rejected",
			rawURL:   "ftp://ndbc.noaa.gov/data",
			resolver: &fakeResolver{},
			wantErr:  true,
		},
		{
			name:      "allowlist blocks host not in list",
			rawURL:    "https://surfline.com/forecast",
			resolver:  &fakeResolver{answers: map[string][]net.IPAddr{"surfline.com": ipAddrs("8.8.8.8")}},
			allowlist: []string{"ndbc.noaa.gov"},
			wantErr:   true,
		},
		{
			name:      "allowlist allows matching suffix",
			rawURL:    "https://www.ndbc.noaa.gov/data",
			resolver:  &fakeResolver{answers: map[string][]net.IPAddr{"www.ndbc.noaa.gov": ipAddrs("140.90.100.1")}},
			allowlist: []string{"ndbc.noaa.gov"},
			wantErr:   false,
		},
		{
			name:     "host with mixed safe and unsafe IPs rejected",
			rawURL:   "https://mixed.example/data",
			resolver: &fakeResolver{answers: map[string][]net.IPAddr{"mixed.example": ipAddrs("8.8.8.8", "192.168.1.1")}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.resolver, tt.allowlist)
			err := v.ValidateURL(context.Background(), tt.rawURL)
			if tt.wantErr {
				require.Error(t, err)
				var secErr *SecurityError
				assert.ErrorAs(t, err, &secErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateURL_CachesVerdict(t *testing.T) {
	resolver := &fakeResolver{answers: map[string][]net.IPAddr{"www.ndbc.noaa.gov": ipAddrs("140.90.100.1")}}
	v := NewValidator(resolver, nil)

	require.NoError(t, v.ValidateURL(context.Background(), "https://www.ndbc.noaa.gov/a"))
	// Remove the DNS answer; a cached verdict should still let this through.
	resolver.answers = nil
	require.NoError(t, v.ValidateURL(context.Background(), "https://www.ndbc.noaa.gov/b"))
}

func TestValidator_ValidateRedirectChain(t *testing.T) {
	resolver := &fakeResolver{answers: map[string][]net.IPAddr{"www.ndbc.noaa.gov": ipAddrs("140.90.100.1")}}
	v := NewValidator(resolver, nil)

	t.Run("within bound passes", func(t *testing.T) {
		err := v.ValidateRedirectChain(context.Background(), "https://www.ndbc.noaa.gov/a", MaxRedirects)
		assert.NoError(t, err)
	})

	t.Run("exceeds bound fails", func(t *testing.T) {
		err := v.ValidateRedirectChain(context.Background(), "https://www.ndbc.noaa.gov/a", MaxRedirects+1)
		require.Error(t, err)
	})
}

func TestIPIsSafe(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		safe bool
	}{
		{"public ipv4", "8.8.8.8", true},
		{"loopback ipv4", "127.0.0.1", false},
		{"private class A", "10.1.2.3", false},
		{"private class C", "192.168.1.1", false},
		{"link-local", "169.254.1.1", false},
		{"unspecified", "0.0.0.0", false},
		{"multicast", "224.0.0.1", false},
		{"ipv6 loopback", "::1", false},
		{"ipv6 unique-local", "fc00::1", false},
		{"ipv6 public", "2001:4860:4860::8888", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.safe, ipIsSafe(net.ParseIP(tt.ip)))
		})
	}
}
