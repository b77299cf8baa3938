package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/creatorpulse/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() connect.PlatformConfig {
	return connect.PlatformConfig{
		Platform:     connect.PlatformSpotify,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://example.com/auth/callback/spotify",
		Scopes:       []string{"user-read-email", "user-read-private"},
		Enabled:      true,
	}
}

func TestStrategyAuthCodeURL(t *testing.T) {
	strategy := New(Options{})

	authURL := strategy.AuthCodeURL("state-token", testConfig())

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "https://example.com/auth/callback/spotify", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "user-read-email user-read-private", query.Get("scope"))
}

func TestStrategyExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		values, err := url.ParseQuery(string(body))
		assert.NoError(t, err)
		assert.Equal(t, "authorization_code", values.Get("grant_type"))
		assert.Equal(t, "auth-code", values.Get("code"))
		assert.Equal(t, "https://example.com/auth/callback/spotify", values.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"token_type":    "Bearer",
			"scope":         "user-read-email",
			"expires_in":    3600,
			"refresh_token": "refresh-token",
		})
	}))
	defer server.Close()

	strategy := New(Options{TokenURL: server.URL})

	resp, err := strategy.Exchange(context.Background(), "auth-code", testConfig())
	require.NoError(t, err)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "access-token", resp.Raw["access_token"])
}

func TestStrategyExchangeErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "Invalid authorization code",
		})
	}))
	defer server.Close()

	strategy := New(Options{TokenURL: server.URL})

	_, err := strategy.Exchange(context.Background(), "bad-code", testConfig())
	require.Error(t, err)

	var xerr *connect.ExchangeError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, connect.PlatformSpotify, xerr.Platform)
	assert.Equal(t, "exchange", xerr.Operation)
	assert.Equal(t, http.StatusBadRequest, xerr.Status)
	assert.Equal(t, "invalid_grant", xerr.Code)
	assert.Equal(t, "Invalid authorization code", xerr.Description)
}

func TestStrategyExchangeMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"token_type": "Bearer"})
	}))
	defer server.Close()

	strategy := New(Options{TokenURL: server.URL})

	_, err := strategy.Exchange(context.Background(), "auth-code", testConfig())
	require.Error(t, err)

	var xerr *connect.ExchangeError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "missing_access_token", xerr.Code)
}
