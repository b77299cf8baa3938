package connect

import (
	"context"
	"fmt"
)

// ExchangeStrategy converts an authorization code into a token response for
// one platform. Strategies only differ in wire shape (form vs JSON vs query
// params, Basic header vs body credentials); everything else about the
// callback flow is platform-agnostic and lives in the Broker.
type ExchangeStrategy interface {
	// Platform returns the platform this strategy serves.
	Platform() Platform

	// AuthCodeURL builds the provider authorize URL for the given encoded
	// state and resolved client configuration.
	AuthCodeURL(state string, cfg PlatformConfig) string

	// Exchange trades the authorization code for tokens. Codes are
	// single-use and short-lived, so failures are surfaced immediately and
	// never retried.
	Exchange(ctx context.Context, code string, cfg PlatformConfig) (*TokenResponse, error)
}

// ExchangeRegistry maps each platform to its exchange strategy. Dispatch
// happens purely on Platform; nothing outside the strategies branches on
// provider specifics.
type ExchangeRegistry struct {
	strategies map[Platform]ExchangeStrategy
}

// NewExchangeRegistry builds a registry from the given strategies, rejecting
// duplicates and strategies for unsupported platforms.
func NewExchangeRegistry(strategies ...ExchangeStrategy) (*ExchangeRegistry, error) {
	reg := &ExchangeRegistry{
		strategies: make(map[Platform]ExchangeStrategy, len(strategies)),
	}

	for _, s := range strategies {
		if s == nil {
			continue
		}
		p := s.Platform()
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
		}
		if _, dup := reg.strategies[p]; dup {
			return nil, fmt.Errorf("duplicate exchange strategy for platform %q", p)
		}
		reg.strategies[p] = s
	}

	return reg, nil
}

// Strategy returns the strategy registered for p.
func (r *ExchangeRegistry) Strategy(p Platform) (ExchangeStrategy, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.strategies[p]
	return s, ok
}

// Complete verifies that every supported platform has a strategy. Call it at
// startup so a newly added Platform value cannot ship without an exchange
// implementation.
func (r *ExchangeRegistry) Complete() error {
	for _, p := range Platforms() {
		if _, ok := r.Strategy(p); !ok {
			return fmt.Errorf("no exchange strategy registered for platform %q", p)
		}
	}
	return nil
}
