// Package google implements the code exchange for Google-hosted platforms:
// YouTube and Google Analytics share one identity surface and differ only in
// the scopes carried by their platform configuration.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorpulse/connect"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Options override the provider endpoints, mainly for tests.
type Options struct {
	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
}

// Strategy posts a JSON body with the client credentials inline.
type Strategy struct {
	platform   connect.Platform
	opts       Options
	httpClient *http.Client
}

// New creates a Google exchange strategy for the given platform. The
// platform must be connect.PlatformYouTube or
// connect.PlatformGoogleAnalytics; the registry enforces that pairing.
func New(platform connect.Platform, opts Options) *Strategy {
	if opts.AuthURL == "" {
		opts.AuthURL = defaultAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = defaultTokenURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Strategy{
		platform:   platform,
		opts:       opts,
		httpClient: client,
	}
}

// Platform implements connect.ExchangeStrategy.
func (s *Strategy) Platform() connect.Platform {
	return s.platform
}

// AuthCodeURL implements connect.ExchangeStrategy. access_type=offline plus
// prompt=consent makes Google hand back a refresh token on re-authorization.
func (s *Strategy) AuthCodeURL(state string, cfg connect.PlatformConfig) string {
	params := url.Values{
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {cfg.RedirectURI},
		"response_type": {"code"},
		"state":         {state},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	if scope := cfg.ScopeString(); scope != "" {
		params.Set("scope", scope)
	}

	return s.opts.AuthURL + "?" + params.Encode()
}

// Exchange implements connect.ExchangeStrategy.
func (s *Strategy) Exchange(ctx context.Context, code string, cfg connect.PlatformConfig) (*connect.TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  cfg.RedirectURI,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, s.exchangeError(resp.StatusCode, "invalid_response", "failed to decode token response", err, nil)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return nil, s.exchangeError(resp.StatusCode, tokenResp.Error, tokenResp.ErrorDesc, nil, rawPayload(body))
	}
	if tokenResp.AccessToken == "" {
		return nil, s.exchangeError(resp.StatusCode, "missing_access_token", "missing access token", nil, nil)
	}

	return &connect.TokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
		ExpiresIn:    tokenResp.ExpiresIn,
		Raw:          rawPayload(body),
	}, nil
}

type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func rawPayload(body []byte) map[string]any {
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	return raw
}

func (s *Strategy) exchangeError(status int, code, description string, err error, raw map[string]any) *connect.ExchangeError {
	return &connect.ExchangeError{
		Platform:    s.platform,
		Operation:   "exchange",
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
