// Package session maps opaque browser session tokens to user ids.
// Sessions live in the cache layer, not the durable store; losing them
// only forces a re-login.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailveil/internal/cache"
	"github.com/dropDatabas3/mailveil/internal/security/token"
)

const (
	keyPrefix   = "session"
	tokenBytes  = 32
	// CookieName is the browser cookie carrying the session token.
	CookieName = "mv_session"
)

// ErrNoSession means the token is unknown or expired.
var ErrNoSession = fmt.Errorf("session not found")

type Manager struct {
	cache cache.Client
	ttl   time.Duration
}

func NewManager(c cache.Client, ttl time.Duration) *Manager {
	return &Manager{cache: c, ttl: ttl}
}

// Create opens a session for the user and returns its opaque token.
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	tok, err := token.GenerateOpaque(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	if err := m.cache.Set(ctx, key(tok), userID, m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return tok, nil
}

// Resolve returns the user id owning the session token.
func (m *Manager) Resolve(ctx context.Context, tok string) (string, error) {
	userID, err := m.cache.Get(ctx, key(tok))
	if err != nil {
		if cache.IsNotFound(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return userID, nil
}

// Destroy ends the session. Destroying an unknown token is a no-op.
func (m *Manager) Destroy(ctx context.Context, tok string) error {
	return m.cache.Delete(ctx, key(tok))
}

// TTL expone la duración de sesión para setear Max-Age en la cookie.
func (m *Manager) TTL() time.Duration { return m.ttl }

func key(tok string) string { return keyPrefix + ":" + token.SHA256Base64URL(tok) }
