// Package redis connects to Redis and shares gate rejection counts through it.
//
// Connect retries until the server answers, and Healthcheck adapts a client
// into a readiness probe. RejectionCounter is a gate hook that increments a
// hash per gate key with one field per rejection reason:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	counter := redis.NewRejectionCounter(client, redis.WithTTL(24*time.Hour))
//	policy, err := gate.New(gateCfg, gate.WithOnRejected(counter.Hook()))
//
//	counts, err := counter.Counts(ctx, "tenant:acme")
//	// counts["insufficient_tokens"], counts["timed_out"], ...
//
// Only counts live in Redis. Token buckets stay in the process.
package redis
