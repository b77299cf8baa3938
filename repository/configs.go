package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creatorpulse/connect"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PlatformConfigModel is the Bun model for the primary config table.
type PlatformConfigModel struct {
	bun.BaseModel `bun:"table:platform_configs"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	PlatformID   string    `bun:"platform_id,notnull"`
	ClientID     string    `bun:"client_id"`
	ClientSecret string    `bun:"client_secret"`
	RedirectURI  string    `bun:"redirect_uri"`
	Scopes       []string  `bun:"scopes,type:jsonb"`
	APIEndpoint  string    `bun:"api_endpoint"`
	Enabled      bool      `bun:"enabled"`
	CreatedAt    time.Time `bun:"created_at,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,default:current_timestamp"`
}

// LegacyIntegrationModel is the Bun model for the legacy config table, kept
// for installations that predate platform_configs. Canonical fields may live
// in dedicated columns or inside the settings blob; columns win.
type LegacyIntegrationModel struct {
	bun.BaseModel `bun:"table:platform_integrations"`

	ID           uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	PlatformID   string         `bun:"platform_id,notnull"`
	ClientID     string         `bun:"client_id"`
	ClientSecret string         `bun:"client_secret"`
	RedirectURI  string         `bun:"redirect_uri"`
	Scopes       []string       `bun:"scopes,type:jsonb"`
	APIEndpoint  string         `bun:"api_endpoint"`
	Enabled      bool           `bun:"enabled"`
	Settings     map[string]any `bun:"settings,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at,default:current_timestamp"`
}

// ConfigRepository implements connect.ConfigResolver using Bun: the primary
// table first, then the legacy table. Pure read, no caching.
type ConfigRepository struct {
	db     *bun.DB
	logger connect.Logger
}

// ConfigRepositoryOption configures the repository.
type ConfigRepositoryOption func(*ConfigRepository)

// WithConfigLogger sets the repository logger.
func WithConfigLogger(logger connect.Logger) ConfigRepositoryOption {
	return func(r *ConfigRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewConfigRepository creates a new repository.
func NewConfigRepository(db *bun.DB, opts ...ConfigRepositoryOption) *ConfigRepository {
	r := &ConfigRepository{db: db}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve implements connect.ConfigResolver.
func (r *ConfigRepository) Resolve(ctx context.Context, platform connect.Platform) (*connect.PlatformConfig, error) {
	cfg, err := r.resolvePrimary(ctx, platform)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, connect.ErrNotConfigured) {
		return nil, err
	}

	return r.resolveLegacy(ctx, platform)
}

func (r *ConfigRepository) resolvePrimary(ctx context.Context, platform connect.Platform) (*connect.PlatformConfig, error) {
	var model PlatformConfigModel
	err := r.db.NewSelect().
		Model(&model).
		Where("platform_id = ? AND enabled = ?", string(platform), true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connect.ErrNotConfigured
		}
		if r.logger != nil {
			r.logger.Error("primary config lookup failed for %s: %v", platform, err)
		}
		return nil, fmt.Errorf("%w: %v", connect.ErrConfigSourceUnavailable, err)
	}

	cfg := &connect.PlatformConfig{
		Platform:     platform,
		ClientID:     model.ClientID,
		ClientSecret: model.ClientSecret,
		RedirectURI:  model.RedirectURI,
		Scopes:       model.Scopes,
		APIEndpoint:  model.APIEndpoint,
		Enabled:      model.Enabled,
	}

	return r.validated(platform, cfg)
}

func (r *ConfigRepository) resolveLegacy(ctx context.Context, platform connect.Platform) (*connect.PlatformConfig, error) {
	var model LegacyIntegrationModel
	err := r.db.NewSelect().
		Model(&model).
		Where("platform_id = ? AND enabled = ?", string(platform), true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connect.ErrNotConfigured
		}
		if r.logger != nil {
			r.logger.Error("legacy config lookup failed for %s: %v", platform, err)
		}
		return nil, fmt.Errorf("%w: %v", connect.ErrConfigSourceUnavailable, err)
	}

	cfg := &connect.PlatformConfig{
		Platform:     platform,
		ClientID:     fallback(model.ClientID, settingString(model.Settings, "client_id")),
		ClientSecret: fallback(model.ClientSecret, settingString(model.Settings, "client_secret")),
		RedirectURI:  fallback(model.RedirectURI, settingString(model.Settings, "redirect_uri")),
		Scopes:       fallbackScopes(model.Scopes, settingScopes(model.Settings)),
		APIEndpoint:  fallback(model.APIEndpoint, settingString(model.Settings, "api_endpoint")),
		Enabled:      model.Enabled,
	}

	return r.validated(platform, cfg)
}

// validated treats an incomplete config like a missing one: the platform is
// not connectable until someone fixes the row.
func (r *ConfigRepository) validated(platform connect.Platform, cfg *connect.PlatformConfig) (*connect.PlatformConfig, error) {
	if err := cfg.Validate(); err != nil {
		if r.logger != nil {
			r.logger.Error("config for %s failed validation: %v", platform, err)
		}
		return nil, fmt.Errorf("%w: %v", connect.ErrNotConfigured, err)
	}
	return cfg, nil
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}

func fallbackScopes(primary, secondary []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return secondary
}

func settingString(settings map[string]any, key string) string {
	if settings == nil {
		return ""
	}
	value, _ := settings[key].(string)
	return value
}

func settingScopes(settings map[string]any) []string {
	if settings == nil {
		return nil
	}

	switch v := settings["scopes"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return strings.Fields(v)
	case []any:
		scopes := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}

	return nil
}
