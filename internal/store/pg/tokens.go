package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

func (s *Store) CreateAuthCode(ctx context.Context, c *core.AuthorizationCode) error {
	const q = `
		INSERT INTO authorization_codes (id, code_hash, client_id, user_id, scope, redirect_uri, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.db.Exec(ctx, q, c.ID, c.CodeHash, c.ClientID, c.UserID, c.Scope, c.RedirectURI, c.ExpiresAt, c.CreatedAt)
	return mapErr(err)
}

// ConsumeAuthCode marks the code consumed and returns it in one conditional
// UPDATE; two concurrent exchanges of the same code cannot both succeed.
func (s *Store) ConsumeAuthCode(ctx context.Context, codeHash string, now time.Time) (*core.AuthorizationCode, error) {
	const q = `
		UPDATE authorization_codes SET consumed_at = $2
		WHERE code_hash = $1 AND consumed_at IS NULL
		RETURNING id, code_hash, client_id, user_id, scope, redirect_uri, expires_at, consumed_at, created_at`
	var c core.AuthorizationCode
	err := s.db.QueryRow(ctx, q, codeHash, now).Scan(&c.ID, &c.CodeHash, &c.ClientID, &c.UserID,
		&c.Scope, &c.RedirectURI, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateAccessToken(ctx context.Context, t *core.AccessToken) error {
	const q = `
		INSERT INTO access_tokens (id, token_hash, client_id, user_id, scope, redirect_uri, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.db.Exec(ctx, q, t.ID, t.TokenHash, t.ClientID, t.UserID, t.Scope, t.RedirectURI, t.ExpiresAt, t.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetAccessTokenByHash(ctx context.Context, tokenHash string) (*core.AccessToken, error) {
	const q = `
		SELECT id, token_hash, client_id, user_id, scope, redirect_uri, expires_at, revoked_at, created_at
		FROM access_tokens WHERE token_hash = $1`
	var t core.AccessToken
	err := s.db.QueryRow(ctx, q, tokenHash).Scan(&t.ID, &t.TokenHash, &t.ClientID, &t.UserID,
		&t.Scope, &t.RedirectURI, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *Store) RevokeAccessToken(ctx context.Context, id string, now time.Time) error {
	const q = `UPDATE access_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	tag, err := s.db.Exec(ctx, q, id, now)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CreateVerificationCode(ctx context.Context, v *core.VerificationCode) error {
	const q = `
		INSERT INTO verification_codes (id, user_id, kind, code_hash, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.db.Exec(ctx, q, v.ID, v.UserID, v.Kind, v.CodeHash, v.ExpiresAt, v.CreatedAt)
	return mapErr(err)
}

func (s *Store) ConsumeVerificationCode(ctx context.Context, kind core.VerificationCodeKind, codeHash string, now time.Time) (*core.VerificationCode, error) {
	const q = `
		DELETE FROM verification_codes
		WHERE kind = $1 AND code_hash = $2 AND expires_at > $3
		RETURNING id, user_id, kind, code_hash, expires_at, created_at`
	var v core.VerificationCode
	err := s.db.QueryRow(ctx, q, kind, codeHash, now).Scan(&v.ID, &v.UserID, &v.Kind, &v.CodeHash, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}
