package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creatorpulse/connect"
)

const (
	defaultAuthURL  = "https://www.tiktok.com/v2/auth/authorize/"
	defaultTokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
)

// Options override the provider endpoints, mainly for tests.
type Options struct {
	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
}

// Strategy implements connect.ExchangeStrategy for TikTok. TikTok takes a
// JSON body and names the client id field client_key.
type Strategy struct {
	opts       Options
	httpClient *http.Client
}

// New creates a TikTok exchange strategy.
func New(opts Options) *Strategy {
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
		opts:       opts,
		httpClient: client,
	}
}

// Platform implements connect.ExchangeStrategy.
func (s *Strategy) Platform() connect.Platform {
	return connect.PlatformTikTok
}

// AuthCodeURL implements connect.ExchangeStrategy. TikTok separates scopes
// with commas, not spaces.
func (s *Strategy) AuthCodeURL(state string, cfg connect.PlatformConfig) string {
	params := url.Values{
		"client_key":    {cfg.ClientID},
		"redirect_uri":  {cfg.RedirectURI},
		"response_type": {"code"},
		"state":         {state},
	}
	if len(cfg.Scopes) > 0 {
		params.Set("scope", strings.Join(cfg.Scopes, ","))
	}

	return s.opts.AuthURL + "?" + params.Encode()
}

// Exchange implements connect.ExchangeStrategy.
func (s *Strategy) Exchange(ctx context.Context, code string, cfg connect.PlatformConfig) (*connect.TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_key":    cfg.ClientID,
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

	var tokenResp tiktokTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, exchangeError(resp.StatusCode, "invalid_response", "failed to decode token response", err, nil)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return nil, exchangeError(resp.StatusCode, tokenResp.Error, tokenResp.ErrorDesc, nil, rawPayload(body))
	}
	if tokenResp.AccessToken == "" {
		return nil, exchangeError(resp.StatusCode, "missing_access_token", "missing access token", nil, nil)
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

type tiktokTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	OpenID       string `json:"open_id"`
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

func exchangeError(status int, code, description string, err error, raw map[string]any) *connect.ExchangeError {
	return &connect.ExchangeError{
		Platform:    connect.PlatformTikTok,
		Operation:   "exchange",
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
