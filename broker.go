package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Broker composes the state codec, config resolver, exchange registry, and
// token store into the authorize and callback flows. All collaborators are
// injected at construction and shared read-only for the process lifetime.
type Broker struct {
	configs  ConfigResolver
	tokens   TokenStore
	registry *ExchangeRegistry
	codec    StateCodec
	config   BrokerConfig
	logger   Logger
	now      func() time.Time
}

// BrokerConfig holds the environment-level settings the broker reads once at
// startup.
type BrokerConfig struct {
	// FrontendBaseURL is the base of the frontend callback page every
	// callback outcome redirects to, e.g. "https://app.example.com".
	FrontendBaseURL string
}

// BrokerOption configures optional broker collaborators.
type BrokerOption func(*Broker)

// WithStateCodec overrides the default opaque state codec.
func WithStateCodec(codec StateCodec) BrokerOption {
	return func(b *Broker) {
		if codec != nil {
			b.codec = codec
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(logger Logger) BrokerOption {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source, used by tests for expiry math.
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBroker creates a broker. The registry should be Complete(); a platform
// without a strategy surfaces as a callback error rather than a panic.
func NewBroker(
	configs ConfigResolver,
	tokens TokenStore,
	registry *ExchangeRegistry,
	config BrokerConfig,
	opts ...BrokerOption,
) *Broker {
	b := &Broker{
		configs:  configs,
		tokens:   tokens,
		registry: registry,
		codec:    OpaqueStateCodec{},
		config:   config,
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Tokens exposes the injected token store to transport layers that need the
// authenticated-path contract (status checks, disconnects).
func (b *Broker) Tokens() TokenStore {
	return b.tokens
}

// AuthRedirect is the outcome of Authorize.
type AuthRedirect struct {
	URL      string
	State    string
	Platform Platform
}

// Authorize resolves the platform's client config, binds the user into the
// state parameter, and returns the provider authorize URL.
func (b *Broker) Authorize(ctx context.Context, userID string, platform Platform) (*AuthRedirect, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidState)
	}
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	strategy, ok := b.registry.Strategy(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no exchange strategy", ErrUnknownPlatform, platform)
	}

	cfg, err := b.configs.Resolve(ctx, platform)
	if err != nil {
		return nil, err
	}

	state, err := b.codec.Encode(&CallbackState{UserID: userID, Platform: platform})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	return &AuthRedirect{
		URL:      strategy.AuthCodeURL(state, *cfg),
		State:    state,
		Platform: platform,
	}, nil
}

// CallbackRequest carries the provider redirect parameters into the broker.
type CallbackRequest struct {
	Platform      Platform
	Code          string
	State         string
	ProviderError string
	ProviderDesc  string
}

// CallbackResult is always a redirect decision. Err records why an error
// redirect was chosen; transports log it but never surface it as a response
// body, because the caller is a browser mid-redirect.
type CallbackResult struct {
	RedirectURL string
	Connected   bool
	Platform    Platform
	Err         error
}

// HandleCallback runs the callback state machine. Every terminal state
// redirects to the frontend callback page for the platform, either with
// success=true or with an error message.
func (b *Broker) HandleCallback(ctx context.Context, req CallbackRequest) *CallbackResult {
	platform := req.Platform

	if req.ProviderError != "" {
		b.logger.Info("provider returned error for %s: %s %s", platform, req.ProviderError, req.ProviderDesc)
		return b.errorResult(platform, req.ProviderError, fmt.Errorf("provider error: %s", req.ProviderError))
	}

	if req.Code == "" || req.State == "" {
		return b.errorResult(platform, "missing_parameters", errors.New("missing code or state"))
	}

	state, err := b.codec.Decode(req.State)
	if err != nil {
		b.logger.Info("failed to decode state for %s: %v", platform, err)
		return b.errorResult(platform, "invalid_state", err)
	}

	// A mismatch means the state was issued for a different platform than
	// the callback URL claims: tampering or a misconfigured client. Abort
	// before any exchange or write.
	if state.Platform != platform {
		err := fmt.Errorf("%w: state %q, callback %q", ErrPlatformMismatch, state.Platform, platform)
		b.logger.Error("platform mismatch on callback: %v", err)
		return b.errorResult(platform, "platform_mismatch", err)
	}

	cfg, err := b.configs.Resolve(ctx, platform)
	if err != nil {
		b.logger.Error("config resolution failed for %s: %v", platform, err)
		return b.errorResult(platform, fmt.Sprintf("%s is not configured", platform), err)
	}

	strategy, ok := b.registry.Strategy(platform)
	if !ok {
		err := fmt.Errorf("%w: %q has no exchange strategy", ErrUnknownPlatform, platform)
		return b.errorResult(platform, "unsupported_platform", err)
	}

	resp, err := strategy.Exchange(ctx, req.Code, *cfg)
	if err != nil {
		b.logger.Error("code exchange failed for %s: %v", platform, err)
		return b.errorResult(platform, exchangeMessage(err), wrapExchangeError(ErrExchangeFailedBase, platform, "exchange", err))
	}

	token := b.grantFromResponse(state.UserID, platform, resp)
	if err := b.tokens.Upsert(ctx, token); err != nil {
		b.logger.Error("failed to persist token for %s/%s: %v", state.UserID, platform, err)
		return b.errorResult(platform, "failed to store connection", err)
	}

	b.logger.Info("connected %s for user %s", platform, state.UserID)
	return &CallbackResult{
		RedirectURL: b.successRedirect(platform),
		Connected:   true,
		Platform:    platform,
	}
}

func (b *Broker) grantFromResponse(userID string, platform Platform, resp *TokenResponse) *GrantedToken {
	token := &GrantedToken{
		UserID:          userID,
		Platform:        platform,
		AccessToken:     resp.AccessToken,
		RefreshToken:    resp.RefreshToken,
		TokenType:       resp.TokenType,
		Scope:           resp.Scope,
		ProviderPayload: resp.Raw,
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if resp.ExpiresIn > 0 {
		expiresAt := b.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		token.ExpiresAt = &expiresAt
	}
	return token
}

func (b *Broker) errorResult(platform Platform, message string, err error) *CallbackResult {
	return &CallbackResult{
		RedirectURL: b.errorRedirect(platform, message),
		Platform:    platform,
		Err:         err,
	}
}

func (b *Broker) successRedirect(platform Platform) string {
	return b.frontendCallback(platform, url.Values{
		"connected": {string(platform)},
		"success":   {"true"},
	})
}

func (b *Broker) errorRedirect(platform Platform, message string) string {
	return b.frontendCallback(platform, url.Values{
		"error": {message},
	})
}

func (b *Broker) frontendCallback(platform Platform, query url.Values) string {
	base := strings.TrimRight(b.config.FrontendBaseURL, "/")
	return fmt.Sprintf("%s/auth/callback/%s?%s", base, platform, query.Encode())
}

func exchangeMessage(err error) string {
	var xerr *ExchangeError
	if errors.As(err, &xerr) {
		return xerr.Message()
	}
	return "token_exchange_failed"
}
