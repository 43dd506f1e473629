package gate

import (
	"errors"
	"hash/fnv"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

// maxKeyLength bounds composite keys; longer ones are hashed.
const maxKeyLength = 64

// KeyFunc derives the bucket key from a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by the resolved client address.
func ClientIP(r *http.Request) string {
	return clientip.GetIP(r)
}

// Header keys requests by the value of the named header.
func Header(name string) KeyFunc {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// Composite joins the non-empty keys of keyFuncs with ":".
// Results longer than 64 bytes are replaced by a base36 FNV-1a hash.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}

		h := fnv.New64a()
		h.Write([]byte(combined))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

// ErrorResponder writes the response for a request the gate refused.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	respond ErrorResponder
	size    func(r *http.Request) float64
	skip    func(r *http.Request) bool
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorResponder replaces the default plain-text error responses.
func WithErrorResponder(fn ErrorResponder) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.respond = fn
		}
	}
}

// WithSize sets a per-request token cost. Zero falls back to the policy's
// request size.
func WithSize(fn func(r *http.Request) float64) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.size = fn
	}
}

// WithSkip bypasses the gate for requests matching fn.
func WithSkip(fn func(r *http.Request) bool) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skip = fn
	}
}

// Middleware admits every request through p before calling next. Admitted
// requests run with their context bounded by the policy timeout; the handler
// is expected to observe it.
//
// By default, insufficient tokens answer 429 with Retry-After, other
// rejections answer 500, and caller cancellation writes nothing.
func Middleware(p *Policy, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{respond: DefaultErrorResponder}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip != nil && cfg.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			scope := Scope{Key: keyFunc(r)}
			if cfg.size != nil {
				scope.Size = cfg.size(r)
			}

			ctx := r.Context()
			ex := newExecution(scope, p.cfg.RequestSize)
			if err := p.admit(ctx, ex); err != nil {
				if ctx.Err() != nil && !errors.Is(err, ErrRejected) {
					return
				}
				cfg.respond(w, r, err)
				return
			}

			runCtx, cancel := p.boundContext(ctx)
			defer cancel()
			runCtx = withExecutionID(runCtx, ex.id)
			next.ServeHTTP(w, r.WithContext(runCtx))
		})
	}
}

// DefaultErrorResponder maps gate errors to status codes.
func DefaultErrorResponder(w http.ResponseWriter, _ *http.Request, err error) {
	var rej *RejectedError
	if errors.As(err, &rej) && rej.Reason == ReasonInsufficientTokens {
		if rej.RetryAfter > 0 {
			secs := int64(math.Ceil(rej.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
