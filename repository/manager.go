package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/creatorpulse/connect"
	"github.com/uptrace/bun"
)

// Manager bundles the broker's stores behind one constructor so callers wire
// a single *bun.DB at process start.
type Manager struct {
	db      *bun.DB
	tokens  *TokenRepository
	configs *ConfigRepository
}

// ManagerOption configures the manager's repositories.
type ManagerOption func(*Manager)

// WithManagerLogger propagates a logger to both repositories.
func WithManagerLogger(logger connect.Logger) ManagerOption {
	return func(m *Manager) {
		m.tokens = NewTokenRepository(m.db, WithTokenLogger(logger))
		m.configs = NewConfigRepository(m.db, WithConfigLogger(logger))
	}
}

// NewManager creates a repository manager.
func NewManager(db *bun.DB, opts ...ManagerOption) *Manager {
	m := &Manager{
		db:      db,
		tokens:  NewTokenRepository(db),
		configs: NewConfigRepository(db),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m *Manager) Validate() error {
	if m.tokens == nil {
		return errors.New("repository tokens should be initialized")
	}

	if m.configs == nil {
		return errors.New("repository configs should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Tokens() connect.TokenStore {
	return m.tokens
}

func (m *Manager) Configs() connect.ConfigResolver {
	return m.configs
}
