package gate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/bucket"
)

// Config defines a gate. Field tags allow loading it with pkg/config, e.g.
// config.Load[gate.Config](config.WithPrefix("GATE_")).
type Config struct {
	Capacity float64  `env:"CAPACITY" envDefault:"100"`        // Maximum tokens (burst size)
	FillRate float64  `env:"FILL_RATE" envDefault:"10"`        // Tokens added per second
	Strategy Strategy `env:"STRATEGY" envDefault:"optimistic"` // Timeout enforcement strategy
	// Timeout bounds admitted executions. Zero means unbounded.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s"`
	// RequestSize is the token cost of a Scope with zero Size. Zero means 1.
	RequestSize float64 `env:"REQUEST_SIZE" envDefault:"1"`
	// SweepInterval is how often idle full buckets are dropped during
	// admission. Zero disables sweeping.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	if err := (Limits{Capacity: c.Capacity, FillRate: c.FillRate}).Validate(); err != nil {
		return err
	}
	if c.Strategy != Optimistic && c.Strategy != Pessimistic {
		return fmt.Errorf("%w: unknown strategy %d", ErrConfiguration, uint8(c.Strategy))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %v", ErrConfiguration, c.Timeout)
	}
	if c.RequestSize < 0 || c.RequestSize > c.Capacity {
		return fmt.Errorf("%w: request size must be within (0, capacity], got %g", ErrConfiguration, c.RequestSize)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%w: sweep interval must not be negative, got %v", ErrConfiguration, c.SweepInterval)
	}
	return nil
}

// Option configures a Policy.
type Option func(*Policy)

// WithProvider resolves limits per execution instead of using the Config
// capacity and fill rate for every key.
func WithProvider(p Provider) Option {
	return func(pol *Policy) {
		if p != nil {
			pol.provider = p
		}
	}
}

// WithOnRejected registers a hook called synchronously for every rejection,
// before the rejected call returns.
func WithOnRejected(fn RejectedFunc) Option {
	return func(pol *Policy) {
		if fn != nil {
			pol.onRejected = append(pol.onRejected, fn)
		}
	}
}

// WithLogger sets the logger. Admissions log at debug, rejections at warn.
func WithLogger(l *slog.Logger) Option {
	return func(pol *Policy) {
		if l != nil {
			pol.logger = l
		}
	}
}

// WithClock replaces the monotonic system clock, mainly for tests.
func WithClock(c bucket.Clock) Option {
	return func(pol *Policy) {
		if c != nil {
			pol.clock = c
		}
	}
}
