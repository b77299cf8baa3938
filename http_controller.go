package connect

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the broker over HTTP.
type HTTPController struct {
	broker *Broker
	config HTTPConfig
	logger Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth")
	PathPrefix string

	// UserIDQueryParam names the query parameter carrying the requesting
	// user's id on non-callback routes (default: "user_id"). The callback
	// itself takes the user from the state parameter.
	UserIDQueryParam string

	// Debug dumps callback results to stdout.
	Debug bool

	// Logger overrides the default logger.
	Logger Logger
}

// NewHTTPController creates the controller.
func NewHTTPController(broker *Broker, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth"
	}
	if cfg.UserIDQueryParam == "" {
		cfg.UserIDQueryParam = "user_id"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &HTTPController{
		broker: broker,
		config: cfg,
		logger: logger,
	}
}

// RegisterRoutes registers the broker routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	prefix := c.config.PathPrefix
	group.Get(prefix+"/connect/:platform", c.Connect)
	group.Get(prefix+"/callback/:platform", c.Callback)
	group.Get(prefix+"/status/:platform", c.Status)
	group.Delete(prefix+"/:platform", c.Disconnect)
}

// Connect starts the authorization flow: resolves config, encodes state, and
// redirects the browser to the provider authorize URL.
func (c *HTTPController) Connect(ctx router.Context) error {
	platform, err := ParsePlatform(ctx.Param("platform"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "unsupported platform",
			"code":  TextCodeUnknownPlatform,
		})
	}

	userID := ctx.Query(c.config.UserIDQueryParam)
	if userID == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing " + c.config.UserIDQueryParam,
		})
	}

	redirect, err := c.broker.Authorize(ctx.Context(), userID, platform)
	if err != nil {
		return c.authorizeError(ctx, platform, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the provider redirect. It always answers with a redirect
// to the frontend callback page; failures ride along as an error query
// parameter.
func (c *HTTPController) Callback(ctx router.Context) error {
	platform, err := ParsePlatform(ctx.Param("platform"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "unsupported platform",
			"code":  TextCodeUnknownPlatform,
		})
	}

	result := c.broker.HandleCallback(ctx.Context(), CallbackRequest{
		Platform:      platform,
		Code:          ctx.Query("code"),
		State:         ctx.Query("state"),
		ProviderError: ctx.Query("error"),
		ProviderDesc:  ctx.Query("error_description"),
	})

	if c.config.Debug {
		fmt.Println(print.MaybePrettyJSON(result))
	}

	return ctx.Redirect(result.RedirectURL, http.StatusTemporaryRedirect)
}

// Status reports whether the user holds a live grant for the platform. A
// missing or expired grant is a reconnect signal (401); a store failure is a
// retry signal (500), never conflated with the former.
func (c *HTTPController) Status(ctx router.Context) error {
	platform, err := ParsePlatform(ctx.Param("platform"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "unsupported platform",
			"code":  TextCodeUnknownPlatform,
		})
	}

	userID := ctx.Query(c.config.UserIDQueryParam)
	if userID == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing " + c.config.UserIDQueryParam,
		})
	}

	token, err := c.broker.Tokens().FetchCurrent(ctx.Context(), userID, platform)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return ctx.JSON(router.StatusUnauthorized, map[string]any{
				"connected": false,
				"platform":  string(platform),
				"code":      TextCodeNoToken,
				"error":     "reconnect required",
			})
		}
		c.logger.Error("status check failed for %s/%s: %v", userID, platform, err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "token store unavailable",
			"code":  TextCodeStoreUnavailable,
		})
	}

	payload := map[string]any{
		"connected": true,
		"platform":  string(platform),
	}
	if token.ExpiresAt != nil {
		payload["expires_at"] = token.ExpiresAt
	}

	return ctx.JSON(router.StatusOK, payload)
}

// Disconnect removes the stored grant for (user, platform).
func (c *HTTPController) Disconnect(ctx router.Context) error {
	platform, err := ParsePlatform(ctx.Param("platform"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "unsupported platform",
			"code":  TextCodeUnknownPlatform,
		})
	}

	userID := ctx.Query(c.config.UserIDQueryParam)
	if userID == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing " + c.config.UserIDQueryParam,
		})
	}

	handler := NewDisconnectPlatformHandler(c.broker.Tokens())
	if err := handler.Execute(ctx.Context(), DisconnectPlatformMessage{
		UserID:   userID,
		Platform: platform,
	}); err != nil {
		c.logger.Error("disconnect failed for %s/%s: %v", userID, platform, err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "failed to disconnect platform",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status":   "disconnected",
		"platform": string(platform),
	})
}

func (c *HTTPController) authorizeError(ctx router.Context, platform Platform, err error) error {
	switch {
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrConfigSourceUnavailable):
		// Fail soft: the platform is simply not connectable right now.
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("%s is not available", platform),
			"code":  TextCodeNotConfigured,
		})
	case errors.Is(err, ErrUnknownPlatform):
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "unsupported platform",
			"code":  TextCodeUnknownPlatform,
		})
	default:
		c.logger.Error("authorize failed for %s: %v", platform, err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "failed to start authorization",
		})
	}
}
