// Command gatedemo serves a small HTTP API behind a token-bucket gate.
//
// Every request under /api is admitted per client (API key, then IP).
// Report builds additionally run through gate.Execute with a heavier cost
// and the configured timeout strategy. Configuration comes from the
// environment or a .env file; see the Config structs of pkg/gate,
// pkg/httpserver and pkg/redis.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrymomot/gatekeeper/pkg/config"
	"github.com/dmitrymomot/gatekeeper/pkg/gate"
	"github.com/dmitrymomot/gatekeeper/pkg/httpserver"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/redis"
	"github.com/dmitrymomot/gatekeeper/pkg/requestid"
)

type appConfig struct {
	LimitsFile string `env:"GATE_LIMITS_FILE"`
	UseRedis   bool   `env:"REDIS_ENABLED" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := config.Load[appConfig]()
	if err != nil {
		return err
	}
	gateCfg, err := config.Load[gate.Config](config.WithPrefix("GATE_"))
	if err != nil {
		return err
	}
	httpCfg, err := config.Load[httpserver.Config](config.WithPrefix("HTTP_"))
	if err != nil {
		return err
	}

	logCfg, err := config.Load[logger.Config](config.WithPrefix("LOG_"))
	if err != nil {
		return err
	}

	log, err := logger.FromConfig(logCfg,
		logger.WithContextExtractors(requestid.LogAttr, gate.LogAttr),
	)
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	opts := []gate.Option{gate.WithLogger(log)}

	if app.LimitsFile != "" {
		provider, err := loadLimits(app.LimitsFile)
		if err != nil {
			return err
		}
		opts = append(opts, gate.WithProvider(provider))
	}

	var (
		counter *redis.RejectionCounter
		checks  []func(context.Context) error
	)
	if app.UseRedis {
		redisCfg, err := config.Load[redis.Config](config.WithPrefix("REDIS_"))
		if err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()

		counter = redis.NewRejectionCounter(client, redis.WithLogger(log))
		opts = append(opts, gate.WithOnRejected(counter.Hook()))
		checks = append(checks, redis.Healthcheck(client))
	}

	policy, err := gate.New(gateCfg, opts...)
	if err != nil {
		return err
	}
	log.Info("gate configured",
		slog.Float64("capacity", gateCfg.Capacity),
		slog.Float64("fill_rate", gateCfg.FillRate),
		logger.Strategy(gateCfg.Strategy),
		logger.Duration(gateCfg.Timeout),
	)

	router := newRouter(&api{policy: policy, counter: counter, log: log}, checks...)
	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}

func loadLimits(path string) (*gate.KeyedProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open limits file: %w", err)
	}
	defer f.Close()
	return gate.LoadKeyedProvider(f)
}
