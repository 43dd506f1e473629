package gate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Provider resolves the bucket limits for an execution. It is consulted on
// every admission, so implementations should be cheap and safe for
// concurrent use.
type Provider interface {
	Limits(ctx context.Context, scope Scope) (Limits, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, scope Scope) (Limits, error)

func (f ProviderFunc) Limits(ctx context.Context, scope Scope) (Limits, error) {
	return f(ctx, scope)
}

type staticProvider struct {
	limits Limits
}

// StaticProvider returns the same limits for every scope.
func StaticProvider(limits Limits) Provider {
	return staticProvider{limits: limits}
}

func (p staticProvider) Limits(context.Context, Scope) (Limits, error) {
	return p.limits, nil
}

// KeyedProvider looks limits up by Scope.Key, falling back to Default.
// A zero Default makes unknown keys a configuration error.
// It must not be modified once in use.
type KeyedProvider struct {
	Default Limits            `yaml:"default"`
	Keys    map[string]Limits `yaml:"keys"`
}

func (p *KeyedProvider) Limits(_ context.Context, scope Scope) (Limits, error) {
	if l, ok := p.Keys[scope.Key]; ok {
		return l, nil
	}
	if p.Default == (Limits{}) {
		return Limits{}, fmt.Errorf("%w: no limits for key %q", ErrConfiguration, scope.Key)
	}
	return p.Default, nil
}

// Validate checks the default (when set) and every keyed entry.
func (p *KeyedProvider) Validate() error {
	var errs []error
	if p.Default != (Limits{}) {
		if err := p.Default.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("default: %w", err))
		}
	}
	for key, l := range p.Keys {
		if err := l.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("key %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// LoadKeyedProvider decodes a YAML limits table and validates it:
//
//	default:
//	  capacity: 100
//	  fill_rate: 10
//	keys:
//	  "tenant:acme":
//	    capacity: 1000
//	    fill_rate: 50
func LoadKeyedProvider(r io.Reader) (*KeyedProvider, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p KeyedProvider
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode limits table: %w", ErrConfiguration, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
