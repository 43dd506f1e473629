package redis

import "time"

// Config describes the connection. Load it with pkg/config, typically with
// the "REDIS_" prefix.
type Config struct {
	ConnectionURL  string        `env:"URL" envDefault:"redis://localhost:6379/0"` // redis://:password@host:6379/0
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`
}
