package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders are consulted in order before falling back to RemoteAddr.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Resolver extracts client addresses using a fixed list of proxy headers.
// Only list headers that your own proxies set; anything else is client
// controlled and lets callers pick their own gate key.
type Resolver struct {
	headers []string
}

// NewResolver returns a Resolver trusting headers in the given order.
// With no headers, only RemoteAddr is used.
func NewResolver(headers ...string) *Resolver {
	return &Resolver{headers: headers}
}

var defaultResolver = NewResolver(DefaultHeaders...)

// GetIP resolves the client address of r with DefaultHeaders.
func GetIP(r *http.Request) string {
	return defaultResolver.GetIP(r)
}

// GetIP returns the first valid address found in the trusted headers or
// RemoteAddr, normalized. It returns "" when none is valid.
func (res *Resolver) GetIP(r *http.Request) string {
	for _, name := range res.headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		// X-Forwarded-For style lists carry the client first.
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
