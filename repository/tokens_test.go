package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/creatorpulse/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateOAuthTokens = `CREATE TABLE oauth_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    platform_id TEXT NOT NULL,
    access_token TEXT NOT NULL,
    refresh_token TEXT,
    token_type TEXT,
    scope TEXT,
    expires_at TIMESTAMP NULL,
    provider_payload TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_oauth_tokens_user_platform UNIQUE (user_id, platform_id)
);`

// Same shape minus the unique constraint, so tests can seed the duplicate
// rows that concurrent callbacks used to leave behind.
const sqliteCreateOAuthTokensUnconstrained = `CREATE TABLE oauth_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    platform_id TEXT NOT NULL,
    access_token TEXT NOT NULL,
    refresh_token TEXT,
    token_type TEXT,
    scope TEXT,
    expires_at TIMESTAMP NULL,
    provider_payload TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

func setupTokenRepo(t *testing.T, schema string, opts ...TokenRepositoryOption) (*TokenRepository, *bun.DB, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(schema)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return NewTokenRepository(bunDB, opts...), bunDB, cleanup
}

func TestTokenRepositoryUpsertAndFetch(t *testing.T) {
	repo, _, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	ctx := context.Background()
	expiresAt := time.Now().Add(2 * time.Hour).UTC()

	err := repo.Upsert(ctx, &connect.GrantedToken{
		UserID:          "user-123",
		Platform:        connect.PlatformSpotify,
		AccessToken:     "access-token",
		RefreshToken:    "refresh-token",
		TokenType:       "Bearer",
		Scope:           "user-read-email",
		ExpiresAt:       &expiresAt,
		ProviderPayload: map[string]any{"account_tier": "premium"},
	})
	require.NoError(t, err)

	found, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "user-123", found.UserID)
	assert.Equal(t, connect.PlatformSpotify, found.Platform)
	assert.Equal(t, "access-token", found.AccessToken)
	assert.Equal(t, "refresh-token", found.RefreshToken)
	assert.Equal(t, "Bearer", found.TokenType)
	assert.Equal(t, "user-read-email", found.Scope)
	require.NotNil(t, found.ExpiresAt)
	assert.WithinDuration(t, expiresAt, *found.ExpiresAt, time.Second)
	assert.Equal(t, "premium", found.ProviderPayload["account_tier"])
}

func TestTokenRepositoryUpsertReplacesExisting(t *testing.T) {
	repo, bunDB, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	ctx := context.Background()

	err := repo.Upsert(ctx, &connect.GrantedToken{
		UserID:      "user-123",
		Platform:    connect.PlatformSpotify,
		AccessToken: "old-token",
	})
	require.NoError(t, err)

	err = repo.Upsert(ctx, &connect.GrantedToken{
		UserID:       "user-123",
		Platform:     connect.PlatformSpotify,
		AccessToken:  "new-token",
		RefreshToken: "new-refresh",
	})
	require.NoError(t, err)

	count, err := bunDB.NewSelect().Model((*OAuthTokenModel)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "new-token", found.AccessToken)
	assert.Equal(t, "new-refresh", found.RefreshToken)
}

func TestTokenRepositoryUpsertKeepsPlatformsSeparate(t *testing.T) {
	repo, bunDB, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	ctx := context.Background()

	for _, platform := range []connect.Platform{connect.PlatformSpotify, connect.PlatformTikTok} {
		err := repo.Upsert(ctx, &connect.GrantedToken{
			UserID:      "user-123",
			Platform:    platform,
			AccessToken: "token-" + string(platform),
		})
		require.NoError(t, err)
	}

	count, err := bunDB.NewSelect().Model((*OAuthTokenModel)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	found, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, "token-tiktok", found.AccessToken)
}

func TestTokenRepositoryFetchCurrentMissing(t *testing.T) {
	repo, _, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	_, err := repo.FetchCurrent(context.Background(), "user-123", connect.PlatformSpotify)
	assert.ErrorIs(t, err, connect.ErrNoToken)
}

func TestTokenRepositoryFetchCurrentExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo, _, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens, WithTokenClock(func() time.Time { return now }))
	defer cleanup()

	ctx := context.Background()
	expiresAt := now.Add(-time.Minute)

	err := repo.Upsert(ctx, &connect.GrantedToken{
		UserID:      "user-123",
		Platform:    connect.PlatformSpotify,
		AccessToken: "stale-token",
		ExpiresAt:   &expiresAt,
	})
	require.NoError(t, err)

	_, err = repo.FetchCurrent(ctx, "user-123", connect.PlatformSpotify)
	assert.ErrorIs(t, err, connect.ErrNoToken)
}

func TestTokenRepositoryFetchCurrentNoExpiryNeverExpires(t *testing.T) {
	repo, _, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	ctx := context.Background()

	err := repo.Upsert(ctx, &connect.GrantedToken{
		UserID:      "user-123",
		Platform:    connect.PlatformFacebook,
		AccessToken: "long-lived",
	})
	require.NoError(t, err)

	found, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, "long-lived", found.AccessToken)
	assert.Nil(t, found.ExpiresAt)
}

func TestTokenRepositoryFetchCurrentReconcilesDuplicates(t *testing.T) {
	repo, bunDB, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokensUnconstrained)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, token := range []string{"oldest", "middle", "newest"} {
		_, err := bunDB.NewInsert().Model(&OAuthTokenModel{
			ID:              uuid.New(),
			UserID:          "user-123",
			PlatformID:      "spotify",
			AccessToken:     token,
			ProviderPayload: map[string]any{},
			CreatedAt:       base,
			UpdatedAt:       base.Add(time.Duration(i) * time.Minute),
		}).Exec(ctx)
		require.NoError(t, err)
	}

	found, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "newest", found.AccessToken)

	count, err := bunDB.NewSelect().Model((*OAuthTokenModel)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second read finds a clean table and the same winner.
	again, err := repo.FetchCurrent(ctx, "user-123", connect.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "newest", again.AccessToken)
}

func TestTokenRepositoryDeleteByUserAndPlatform(t *testing.T) {
	repo, _, cleanup := setupTokenRepo(t, sqliteCreateOAuthTokens)
	defer cleanup()

	ctx := context.Background()

	err := repo.Upsert(ctx, &connect.GrantedToken{
		UserID:      "user-123",
		Platform:    connect.PlatformTwitter,
		AccessToken: "access-token",
	})
	require.NoError(t, err)

	err = repo.DeleteByUserAndPlatform(ctx, "user-123", connect.PlatformTwitter)
	require.NoError(t, err)

	_, err = repo.FetchCurrent(ctx, "user-123", connect.PlatformTwitter)
	assert.ErrorIs(t, err, connect.ErrNoToken)

	// Deleting again is a no-op, not an error.
	err = repo.DeleteByUserAndPlatform(ctx, "user-123", connect.PlatformTwitter)
	require.NoError(t, err)
}
