package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/gatekeeper/pkg/gate"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

const (
	defaultKeyPrefix = "gatekeeper:rejections:"
	defaultTimeout   = 250 * time.Millisecond
)

// RejectionCounter keeps per-key rejection counts in Redis hashes, one field
// per reason. Bucket state stays in process; only the counts are shared, so
// several instances can report a combined view.
type RejectionCounter struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	ttl     time.Duration
	logger  *slog.Logger

	// failures throttles error logs while Redis is down.
	failures rate.Sometimes
}

// CounterOption configures a RejectionCounter.
type CounterOption func(*RejectionCounter)

// WithKeyPrefix sets the prefix of the hash keys.
func WithKeyPrefix(prefix string) CounterOption {
	return func(c *RejectionCounter) {
		c.prefix = prefix
	}
}

// WithTimeout bounds each Redis call made from the hook.
func WithTimeout(d time.Duration) CounterOption {
	return func(c *RejectionCounter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTTL expires a key's counters after d without rejections.
func WithTTL(d time.Duration) CounterOption {
	return func(c *RejectionCounter) {
		c.ttl = d
	}
}

// WithLogger sets the logger used for failed writes.
func WithLogger(l *slog.Logger) CounterOption {
	return func(c *RejectionCounter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRejectionCounter returns a counter writing through client.
func NewRejectionCounter(client redis.UniversalClient, opts ...CounterOption) *RejectionCounter {
	c := &RejectionCounter{
		client:   client,
		prefix:   defaultKeyPrefix,
		timeout:  defaultTimeout,
		logger:   logger.Discard(),
		failures: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("redis.rejection_counter"))
	return c
}

// Hook returns a gate.RejectedFunc to register with gate.WithOnRejected.
// Write failures never reach the rejected caller; they are logged at most
// once per 10 seconds.
func (c *RejectionCounter) Hook() gate.RejectedFunc {
	return func(ctx context.Context, ev gate.RejectionEvent) {
		err := c.Record(ctx, ev.Scope.Key, ev.Reason)
		if err == nil {
			return
		}
		c.failures.Do(func() {
			c.logger.ErrorContext(ctx, "failed to record rejection",
				logger.ExecutionID(ev.ExecutionID),
				logger.Key(ev.Scope.Key),
				logger.Reason(ev.Reason.String()),
				logger.Error(err),
			)
		})
	}
}

// Record increments the counter for key and reason. The write outlives
// cancellation of ctx but not the counter's timeout.
func (c *RejectionCounter) Record(ctx context.Context, key string, reason gate.Reason) error {
	if key == "" {
		return ErrEmptyKey
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	hash := c.hashKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, hash, reason.String(), 1)
		if c.ttl > 0 {
			pipe.Expire(ctx, hash, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record rejection for %q: %w", key, err)
	}
	return nil
}

// Counts returns the rejection counts for key, by reason name.
func (c *RejectionCounter) Counts(ctx context.Context, key string) (map[string]int64, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	raw, err := c.client.HGetAll(ctx, c.hashKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("read rejections for %q: %w", key, err)
	}

	counts := make(map[string]int64, len(raw))
	for reason, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read rejections for %q: field %s: %w", key, reason, err)
		}
		counts[reason] = n
	}
	return counts, nil
}

// Reset deletes the counters of key.
func (c *RejectionCounter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return c.client.Del(ctx, c.hashKey(key)).Err()
}

func (c *RejectionCounter) hashKey(key string) string {
	return c.prefix + key
}
