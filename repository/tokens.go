package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorpulse/connect"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OAuthTokenModel is the Bun model for persisted grants.
type OAuthTokenModel struct {
	bun.BaseModel `bun:"table:oauth_tokens"`

	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	UserID          string         `bun:"user_id,notnull"`
	PlatformID      string         `bun:"platform_id,notnull"`
	AccessToken     string         `bun:"access_token,notnull"`
	RefreshToken    string         `bun:"refresh_token"`
	TokenType       string         `bun:"token_type"`
	Scope           string         `bun:"scope"`
	ExpiresAt       *time.Time     `bun:"expires_at"`
	ProviderPayload map[string]any `bun:"provider_payload,type:jsonb"`
	CreatedAt       time.Time      `bun:"created_at,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,default:current_timestamp"`
}

// TokenRepository implements connect.TokenStore using Bun.
type TokenRepository struct {
	db     *bun.DB
	logger connect.Logger
	now    func() time.Time
}

// TokenRepositoryOption configures the repository.
type TokenRepositoryOption func(*TokenRepository)

// WithTokenLogger sets the repository logger.
func WithTokenLogger(logger connect.Logger) TokenRepositoryOption {
	return func(r *TokenRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTokenClock overrides the time source, used by tests for expiry math.
func WithTokenClock(now func() time.Time) TokenRepositoryOption {
	return func(r *TokenRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewTokenRepository creates a new repository.
func NewTokenRepository(db *bun.DB, opts ...TokenRepositoryOption) *TokenRepository {
	r := &TokenRepository{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// FetchCurrent implements connect.TokenStore. When concurrent callbacks have
// left more than one row for the key, the newest row wins and the rest are
// reconciled away; reconciliation failures are logged, not propagated, since
// the authoritative row is already in hand.
func (r *TokenRepository) FetchCurrent(ctx context.Context, userID string, platform connect.Platform) (*connect.GrantedToken, error) {
	var models []OAuthTokenModel
	err := r.db.NewSelect().
		Model(&models).
		Where("user_id = ? AND platform_id = ?", userID, string(platform)).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connect.ErrStoreUnavailable, err)
	}

	if len(models) == 0 {
		return nil, connect.ErrNoToken
	}

	if len(models) > 1 {
		r.reconcile(ctx, userID, platform, models[1:])
	}

	token := r.toGrantedToken(&models[0])
	if token.Expired(r.now()) {
		return nil, connect.ErrNoToken
	}

	return token, nil
}

// Upsert implements connect.TokenStore. The row ID derives from the key, so
// concurrent first-time writes collide on the primary key as well as on the
// (user_id, platform_id) conflict target; last writer wins either way.
func (r *TokenRepository) Upsert(ctx context.Context, token *connect.GrantedToken) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", connect.ErrStoreUnavailable)
	}

	model := r.fromGrantedToken(token)
	model.UpdatedAt = r.now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (user_id, platform_id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_type = EXCLUDED.token_type").
		Set("scope = EXCLUDED.scope").
		Set("expires_at = EXCLUDED.expires_at").
		Set("provider_payload = EXCLUDED.provider_payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", connect.ErrStoreUnavailable, err)
	}

	return nil
}

// DeleteByUserAndPlatform implements connect.TokenStore.
func (r *TokenRepository) DeleteByUserAndPlatform(ctx context.Context, userID string, platform connect.Platform) error {
	_, err := r.db.NewDelete().
		Model((*OAuthTokenModel)(nil)).
		Where("user_id = ? AND platform_id = ?", userID, string(platform)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", connect.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *TokenRepository) reconcile(ctx context.Context, userID string, platform connect.Platform, stale []OAuthTokenModel) {
	for i := range stale {
		_, err := r.db.NewDelete().
			Model((*OAuthTokenModel)(nil)).
			Where("id = ?", stale[i].ID).
			Exec(ctx)
		if err != nil && r.logger != nil {
			r.logger.Error("failed to delete duplicate token %s for %s/%s: %v", stale[i].ID, userID, platform, err)
		}
	}
}

func (r *TokenRepository) toGrantedToken(m *OAuthTokenModel) *connect.GrantedToken {
	return &connect.GrantedToken{
		ID:              m.ID,
		UserID:          m.UserID,
		Platform:        connect.Platform(m.PlatformID),
		AccessToken:     m.AccessToken,
		RefreshToken:    m.RefreshToken,
		TokenType:       m.TokenType,
		Scope:           m.Scope,
		ExpiresAt:       m.ExpiresAt,
		ProviderPayload: m.ProviderPayload,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (r *TokenRepository) fromGrantedToken(t *connect.GrantedToken) *OAuthTokenModel {
	id := t.ID
	if id == uuid.Nil {
		if derived, err := hashid.NewUUID(t.UserID + "::" + string(t.Platform)); err == nil {
			id = derived
		} else {
			id = uuid.New()
		}
	}

	payload := map[string]any{}
	if t.ProviderPayload != nil {
		payload = t.ProviderPayload
	}

	return &OAuthTokenModel{
		ID:              id,
		UserID:          t.UserID,
		PlatformID:      string(t.Platform),
		AccessToken:     t.AccessToken,
		RefreshToken:    t.RefreshToken,
		TokenType:       t.TokenType,
		Scope:           t.Scope,
		ExpiresAt:       t.ExpiresAt,
		ProviderPayload: payload,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
