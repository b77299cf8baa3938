package connect

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OpaqueStateCodec is the default codec: compact JSON wrapped in URL-safe
// base64. The payload is neither signed nor encrypted, so a client that can
// reach the callback URL can fabricate state for any user. That matches the
// contract existing frontends rely on (state survives being stored and
// replayed verbatim by third parties); use SignedStateCodec where both ends
// can be upgraded together.
type OpaqueStateCodec struct{}

// Encode implements StateCodec.
func (OpaqueStateCodec) Encode(state *CallbackState) (string, error) {
	if state == nil || state.UserID == "" || !state.Platform.Valid() {
		return "", ErrInvalidState
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}

	return base64.URLEncoding.EncodeToString(payload), nil
}

// Decode implements StateCodec. Any parse failure or missing field is
// ErrInvalidState; callers treat it the same as missing callback parameters.
func (OpaqueStateCodec) Decode(token string) (*CallbackState, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	var state CallbackState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.UserID == "" || !state.Platform.Valid() {
		return nil, ErrInvalidState
	}

	return &state, nil
}

// SignedStateCodec carries the same payload inside an HS256 JWT with an
// optional TTL. Tampered or expired state is rejected, which is a contract
// change from OpaqueStateCodec: only adopt it when no stored authorize URLs
// with opaque state are still in flight.
type SignedStateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSignedStateCodec creates a signed codec. A zero ttl means state never
// expires.
func NewSignedStateCodec(key []byte, ttl time.Duration) *SignedStateCodec {
	return &SignedStateCodec{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// Encode implements StateCodec.
func (c *SignedStateCodec) Encode(state *CallbackState) (string, error) {
	if state == nil || state.UserID == "" || !state.Platform.Valid() {
		return "", ErrInvalidState
	}

	now := c.now()
	claims := jwt.MapClaims{
		"u":   state.UserID,
		"p":   string(state.Platform),
		"iat": now.Unix(),
	}
	if c.ttl > 0 {
		claims["exp"] = now.Add(c.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return signed, nil
}

// Decode implements StateCodec.
func (c *SignedStateCodec) Decode(token string) (*CallbackState, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidState
	}

	userID, _ := claims["u"].(string)
	platformRaw, _ := claims["p"].(string)

	platform, perr := ParsePlatform(platformRaw)
	if userID == "" || perr != nil {
		return nil, ErrInvalidState
	}

	return &CallbackState{UserID: userID, Platform: platform}, nil
}
