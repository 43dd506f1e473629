package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultEnvFile is read when no WithEnvFile option is given. A missing file is not an error.
const defaultEnvFile = ".env"

type options struct {
	prefix      string
	files       []string
	explicit    bool
	environment map[string]string
}

// Option configures a single Load call.
type Option func(*options)

// WithPrefix prepends prefix to every env tag, e.g. "BILLING_" turns
// `env:"CAPACITY"` into BILLING_CAPACITY.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvFile replaces the default .env lookup with the given files. Unlike the
// default lookup, a listed file that cannot be read fails the load.
func WithEnvFile(paths ...string) Option {
	return func(o *options) {
		o.files = append(o.files, paths...)
		o.explicit = true
	}
}

// WithEnvironment adds variables that take precedence over both the process
// environment and env files. Handy in tests, since nothing is written to the
// process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) {
		if o.environment == nil {
			o.environment = make(map[string]string, len(vars))
		}
		for k, v := range vars {
			o.environment[k] = v
		}
	}
}

// Load parses environment variables into a new value of T based on its field tags.
//
// Values are resolved in this order, later sources winning:
// env files, the process environment, WithEnvironment variables.
// Env files never override variables already set in the process, matching
// godotenv.Load semantics, but Load does not modify the process environment.
//
// Example:
//
//	type LimitsConfig struct {
//		Capacity float64 `env:"GATE_CAPACITY" envDefault:"100"`
//		FillRate float64 `env:"GATE_FILL_RATE,required"`
//	}
//
//	cfg, err := config.Load[LimitsConfig]()
//	if err != nil {
//		// Handle error
//	}
func Load[T any](opts ...Option) (T, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	vars, err := o.resolve()
	if err != nil {
		var zero T
		return zero, err
	}

	cfg, err := env.ParseAsWithOptions[T](env.Options{
		Prefix:      o.prefix,
		Environment: vars,
	})
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// This is useful for configurations that are required for the application to start.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return cfg
}

func (o *options) resolve() (map[string]string, error) {
	vars := make(map[string]string)

	files := o.files
	if !o.explicit {
		files = []string{defaultEnvFile}
	}
	for _, path := range files {
		fileVars, err := godotenv.Read(path)
		if err != nil {
			if !o.explicit && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.Join(ErrEnvFile, fmt.Errorf("%s: %w", path, err))
		}
		for k, v := range fileVars {
			if _, seen := vars[k]; !seen {
				vars[k] = v
			}
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	for k, v := range o.environment {
		vars[k] = v
	}
	return vars, nil
}
