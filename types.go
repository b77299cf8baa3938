package connect

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// PlatformConfig is the resolved OAuth client configuration for one platform.
type PlatformConfig struct {
	Platform     Platform `json:"platform"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"`
	RedirectURI  string   `json:"redirect_uri"`
	Scopes       []string `json:"scopes,omitempty"`
	APIEndpoint  string   `json:"api_endpoint,omitempty"`
	Enabled      bool     `json:"enabled"`
}

// Validate checks that the config is usable for an authorization flow. A
// config that fails validation is treated the same as a missing one: the
// platform is simply not connectable.
func (c PlatformConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.RedirectURI, validation.Required, is.URL),
	)
}

// ScopeString joins the configured scopes the way providers expect them in
// authorize URLs.
func (c PlatformConfig) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// ConfigResolver resolves a platform's client configuration. A miss is
// ErrNotConfigured; a transport failure talking to the config source is
// ErrConfigSourceUnavailable. Both are recoverable from the caller's point of
// view.
type ConfigResolver interface {
	Resolve(ctx context.Context, platform Platform) (*PlatformConfig, error)
}

// TokenResponse is the normalized result of a code exchange, independent of
// the provider's wire shape.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	Raw          map[string]any
}

// GrantedToken is a persisted OAuth grant. At most one logically current
// grant exists per (UserID, Platform); the store reconciles transient
// duplicates on read.
type GrantedToken struct {
	ID              uuid.UUID      `json:"id"`
	UserID          string         `json:"user_id"`
	Platform        Platform       `json:"platform"`
	AccessToken     string         `json:"-"`
	RefreshToken    string         `json:"-"`
	TokenType       string         `json:"token_type,omitempty"`
	Scope           string         `json:"scope,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	ProviderPayload map[string]any `json:"provider_payload,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Expired reports whether the grant's access token is past its expiry. Grants
// without an expiry never expire here; providers that hand out short-lived
// tokens always set one.
func (t *GrantedToken) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now)
}

// TokenStore owns grant persistence.
//
// FetchCurrent returns ErrNoToken both when no grant exists and when the
// newest grant is expired; no refresh path exists yet, so the caller's remedy
// is identical in both cases: send the user back through authorization.
// Transport failures are ErrStoreUnavailable, never masked as ErrNoToken.
type TokenStore interface {
	FetchCurrent(ctx context.Context, userID string, platform Platform) (*GrantedToken, error)
	Upsert(ctx context.Context, token *GrantedToken) error
	DeleteByUserAndPlatform(ctx context.Context, userID string, platform Platform) error
}

// CallbackState is the payload carried opaquely through the provider
// redirect. Keys are kept short to stay within provider state length limits.
type CallbackState struct {
	UserID   string   `json:"u"`
	Platform Platform `json:"p"`
}

// StateCodec encodes and decodes the OAuth state parameter.
type StateCodec interface {
	Encode(state *CallbackState) (string, error)
	Decode(token string) (*CallbackState, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CONNECT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CONNECT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CONNECT "+newline(format), args...)
}

func newline(format string) string {
	if strings.HasSuffix(format, "\n") {
		return format
	}
	return format + "\n"
}
