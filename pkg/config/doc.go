// Package config provides a type-safe, generic way to load application
// configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11` to
// deliver a small API that:
//
//   - Reads values from one or more `.env` files (falling back to an optional
//     `.env` in the current working directory).
//   - Parses the merged environment into any Go struct using field tags.
//   - Supports a per-call variable prefix, so several instances of the same
//     struct can be configured side by side (e.g. two gates).
//   - Never mutates the process environment and never caches, so tests can
//     load the same type repeatedly with different inputs.
//
// # Usage
//
//	type GateConfig struct {
//	    Capacity float64       `env:"CAPACITY" envDefault:"100"`
//	    FillRate float64       `env:"FILL_RATE" envDefault:"10"`
//	    Timeout  time.Duration `env:"TIMEOUT" envDefault:"2s"`
//	}
//
//	cfg, err := config.Load[GateConfig](config.WithPrefix("GATE_"))
//	if err != nil {
//	    return err
//	}
//
// For configuration required at startup use MustLoad, which panics on failure:
//
//	cfg := config.MustLoad[GateConfig](config.WithPrefix("GATE_"))
//
// # Precedence
//
// Env files are read first; the process environment overrides them; variables
// passed with WithEnvironment override both.
//
// # Error Handling
//
//	if errors.Is(err, config.ErrParsingConfig) { /* bad or missing value */ }
//	if errors.Is(err, config.ErrEnvFile)       { /* listed file unreadable */ }
package config
