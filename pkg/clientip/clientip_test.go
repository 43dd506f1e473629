package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "remote addr without port", remoteAddr: "10.0.0.2", want: "10.0.0.2"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "mapped ipv4 is unmapped", remoteAddr: "[::ffff:192.0.2.7]:80", want: "192.0.2.7"},
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "203.0.113.5", "X-Forwarded-For": "198.51.100.1"},
			remoteAddr: "10.0.0.1:1",
			want:       "203.0.113.5",
		},
		{
			name:       "first valid forwarded entry",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.2, 198.51.100.3"},
			remoteAddr: "10.0.0.1:1",
			want:       "198.51.100.2",
		},
		{
			name:       "invalid headers fall back to remote addr",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			remoteAddr: "10.0.0.9:1",
			want:       "10.0.0.9",
		},
		{name: "nothing valid", remoteAddr: "bogus", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}

func TestResolverIgnoresUntrustedHeaders(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	assert.Equal(t, "10.0.0.1", clientip.NewResolver().GetIP(r))
	assert.Equal(t, "198.51.100.1", clientip.NewResolver("X-Forwarded-For").GetIP(r))
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, clientip.FromContext(context.Background()))

	ctx := clientip.WithIP(context.Background(), "192.0.2.1")
	assert.Equal(t, "192.0.2.1", clientip.FromContext(ctx))
}
