package connect

import "github.com/goliatone/go-errors"

const (
	TextCodeUnknownPlatform   = "connect_unknown_platform"
	TextCodeInvalidState      = "connect_invalid_state"
	TextCodeStateExpired      = "connect_state_expired"
	TextCodePlatformMismatch  = "connect_platform_mismatch"
	TextCodeNotConfigured     = "connect_platform_not_configured"
	TextCodeConfigUnavailable = "connect_config_source_unavailable"
	TextCodeExchangeFailed    = "connect_token_exchange_failed"
	TextCodeStoreUnavailable  = "connect_token_store_unavailable"
	TextCodeNoToken           = "connect_no_token"
)

// ErrUnknownPlatform is returned when a path or query segment names a
// platform this broker does not support.
var ErrUnknownPlatform = errors.New("unknown platform", errors.CategoryBadInput).
	WithTextCode(TextCodeUnknownPlatform).
	WithCode(errors.CodeBadRequest)

// ErrInvalidState is returned when the OAuth state parameter cannot be
// decoded or is missing required fields.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned by the signed codec when the state TTL has
// passed. The default opaque codec never expires state.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrPlatformMismatch is returned when the platform embedded in the state
// differs from the platform segment of the callback URL. This aborts the
// callback before any exchange or write happens.
var ErrPlatformMismatch = errors.New("state platform does not match callback platform", errors.CategoryBadInput).
	WithTextCode(TextCodePlatformMismatch).
	WithCode(errors.CodeBadRequest)

// ErrNotConfigured is returned when neither config source has an enabled row
// for the platform. Callers decide whether that means unsupported (400) or
// temporarily unavailable (503).
var ErrNotConfigured = errors.New("platform not configured", errors.CategoryNotFound).
	WithTextCode(TextCodeNotConfigured).
	WithCode(errors.CodeNotFound)

// ErrConfigSourceUnavailable is returned on transport failures against the
// config source. Callers treat it the same as ErrNotConfigured (fail soft).
var ErrConfigSourceUnavailable = errors.New("config source unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeConfigUnavailable).
	WithCode(errors.CodeInternal)

// ErrExchangeFailedBase wraps provider exchange failures; the detailed
// *ExchangeError rides along as the source.
var ErrExchangeFailedBase = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeExchangeFailed).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable is returned on transport failures against the token
// store. It implies retry, not reconnect, so it is never collapsed into
// ErrNoToken.
var ErrStoreUnavailable = errors.New("token store unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrNoToken is returned when no grant exists for (user, platform) or the
// stored grant is expired. Both cases require the user to reconnect.
var ErrNoToken = errors.New("no valid token for platform", errors.CategoryAuth).
	WithTextCode(TextCodeNoToken).
	WithCode(errors.CodeUnauthorized)
