// Package meta implements the code exchange for Meta-hosted platforms:
// Facebook and Instagram both exchange through the Graph API, which takes the
// authorization code and both client credentials as plain query parameters on
// a GET.
package meta

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorpulse/connect"
)

const (
	defaultAuthURL  = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultTokenURL = "https://graph.facebook.com/v18.0/oauth/access_token"
)

// Options override the provider endpoints, mainly for tests.
type Options struct {
	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
}

type Strategy struct {
	platform   connect.Platform
	opts       Options
	httpClient *http.Client
}

// New creates a Meta exchange strategy for the given platform. The platform
// must be connect.PlatformFacebook or connect.PlatformInstagram; the registry
// enforces that pairing.
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

// AuthCodeURL implements connect.ExchangeStrategy.
func (s *Strategy) AuthCodeURL(state string, cfg connect.PlatformConfig) string {
	params := url.Values{
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {cfg.RedirectURI},
		"response_type": {"code"},
		"state":         {state},
	}
	if scope := cfg.ScopeString(); scope != "" {
		params.Set("scope", scope)
	}

	return s.opts.AuthURL + "?" + params.Encode()
}

// Exchange implements connect.ExchangeStrategy. The client secret travels in
// the query string; that is the Graph API's published token-endpoint
// contract, not a shortcut.
func (s *Strategy) Exchange(ctx context.Context, code string, cfg connect.PlatformConfig) (*connect.TokenResponse, error) {
	params := url.Values{
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"redirect_uri":  {cfg.RedirectURI},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp metaTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, s.exchangeError(resp.StatusCode, "invalid_response", "failed to decode token response", err, nil)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != nil {
		code, desc := tokenResp.errorParts()
		return nil, s.exchangeError(resp.StatusCode, code, desc, nil, rawPayload(body))
	}
	if tokenResp.AccessToken == "" {
		return nil, s.exchangeError(resp.StatusCode, "missing_access_token", "missing access token", nil, nil)
	}

	return &connect.TokenResponse{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		ExpiresIn:   tokenResp.ExpiresIn,
		Raw:         rawPayload(body),
	}, nil
}

type metaTokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	Error       *metaGraphError `json:"error"`
}

// metaGraphError is the Graph API's nested error envelope.
type metaGraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (r metaTokenResponse) errorParts() (string, string) {
	if r.Error == nil {
		return "", ""
	}
	return r.Error.Type, r.Error.Message
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
