package core

import (
	"context"
	"time"
)

// IdentifierSpace names a uniqueness-checked identifier column. The
// identifier generator consults these spaces before proposing a value.
type IdentifierSpace string

const (
	SpaceAliasEmail  IdentifierSpace = "alias_email"
	SpaceClientID    IdentifierSpace = "client_id"
	SpaceAuthCode    IdentifierSpace = "auth_code"
	SpaceAccessToken IdentifierSpace = "access_token"
)

// Repository is the persistence authority. Implementations must enforce
// uniqueness constraints atomically; callers rely on ErrConflict to detect
// lost races rather than pre-checking.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// WithinTx runs fn against a transaction-scoped repository. fn's writes
	// commit together or not at all. Implementations without multi-statement
	// transactions may serialize fn instead.
	WithinTx(ctx context.Context, fn func(Repository) error) error

	// IdentifierExists checks a candidate against the given identifier space.
	IdentifierExists(ctx context.Context, space IdentifierSpace, value string) (bool, error)

	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error

	// Aliases
	CreateAlias(ctx context.Context, a *Alias) error
	GetAliasByID(ctx context.Context, id string) (*Alias, error)
	ListAliasesByUser(ctx context.Context, userID string) ([]Alias, error)
	CountAliasesByUser(ctx context.Context, userID string) (int, error)
	SetAliasEnabled(ctx context.Context, id string, enabled bool) error

	// Clients
	CreateClient(ctx context.Context, c *Client) error
	GetClientByID(ctx context.Context, id string) (*Client, error)
	GetClientByClientID(ctx context.Context, clientID string) (*Client, error)
	ListClientsByUser(ctx context.Context, userID string) ([]Client, error)
	AddRedirectURI(ctx context.Context, r *RedirectURI) error
	ListRedirectURIs(ctx context.Context, clientID string) ([]RedirectURI, error)

	// Consent bindings. CreateBinding returns ErrConflict when a binding for
	// the (client, user) pair already exists.
	CreateBinding(ctx context.Context, b *ConsentBinding) error
	GetBinding(ctx context.Context, clientID, userID string) (*ConsentBinding, error)

	// Authorization codes. ConsumeAuthCode marks the code consumed and
	// returns it in a single conditional update; a second call for the same
	// hash returns ErrNotFound.
	CreateAuthCode(ctx context.Context, c *AuthorizationCode) error
	ConsumeAuthCode(ctx context.Context, codeHash string, now time.Time) (*AuthorizationCode, error)

	// Access tokens
	CreateAccessToken(ctx context.Context, t *AccessToken) error
	GetAccessTokenByHash(ctx context.Context, tokenHash string) (*AccessToken, error)
	RevokeAccessToken(ctx context.Context, id string, now time.Time) error

	// Verification codes (activation / password reset)
	CreateVerificationCode(ctx context.Context, v *VerificationCode) error
	ConsumeVerificationCode(ctx context.Context, kind VerificationCodeKind, codeHash string, now time.Time) (*VerificationCode, error)
}
