package authz

import "errors"

// Grant failures map one-to-one onto the OAuth error codes the transport
// layer reports. They are never retried automatically.
var (
	// ErrInvalidGrant covers unknown, consumed or mismatched codes and
	// redirect URI mismatches.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrExpiredGrant means the code's validity window passed before exchange.
	ErrExpiredGrant = errors.New("expired grant")
	// ErrUnauthorizedClient means the client is unknown or its secret is wrong.
	ErrUnauthorizedClient = errors.New("unauthorized client")
	// ErrInvalidToken means the presented access token is unknown, revoked
	// or expired.
	ErrInvalidToken = errors.New("invalid token")
)
