// Package clientip resolves the originating client address of an HTTP
// request behind reverse proxies.
//
// A Resolver checks a trusted list of proxy headers in order, taking the
// first valid address (the leftmost entry of comma-separated lists), and
// falls back to the TCP peer in RemoteAddr. Addresses are normalized:
// IPv4-mapped IPv6 is unmapped and zones are stripped, so one client maps
// to one gate key.
//
//	ip := clientip.GetIP(r)
//
//	internal := clientip.NewResolver("X-Real-IP")
//	ip = internal.GetIP(r)
//
// WithIP and FromContext carry a resolved address through a context.
package clientip
