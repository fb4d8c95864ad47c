// Package authz implements the authorization code and access token flow:
// code issuance after consent resolution, single-use code exchange, and
// token-driven identity projection. Codes and tokens are opaque random
// strings; only their SHA-256 digests are persisted.
package authz

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailveil/internal/audit"
	"github.com/dropDatabas3/mailveil/internal/consent"
	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/metrics"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/scope"
	"github.com/dropDatabas3/mailveil/internal/security/token"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/validation"
	"github.com/google/uuid"
)

// AvatarResolver turns a user's stored picture path into a fetchable URL.
// nil results mean no URL could be derived.
type AvatarResolver interface {
	AvatarURL(ctx context.Context, u *core.User) *string
}

type AuthorizeInput struct {
	ClientID    string // public client_id
	UserID      string
	RedirectURI string
}

type AuthorizeResult struct {
	Code        string
	RedirectURI string
	Scope       string
	ExpiresAt   time.Time
}

type ExchangeInput struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
}

type TokenResult struct {
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresAt   time.Time
}

type Service interface {
	// Authorize resolves consent for (client, user) and issues a short-lived
	// single-use authorization code bound to the redirect URI.
	Authorize(ctx context.Context, in AuthorizeInput) (*AuthorizeResult, error)
	// Exchange burns a code and issues an access token with identical scope.
	// The burn and the issue commit atomically.
	Exchange(ctx context.Context, in ExchangeInput) (*TokenResult, error)
	// UserInfo projects the identity disclosed by the token's scope set.
	UserInfo(ctx context.Context, rawToken string) (map[string]any, error)
	// Revoke invalidates an access token. Revocation is terminal.
	Revoke(ctx context.Context, rawToken string) error
}

type Deps struct {
	Repo    core.Repository
	Ident   *ident.Generator
	Consent consent.Service
	Policy  scope.GrantPolicy
	Avatar  AvatarResolver // optional

	CodeTTL  time.Duration
	TokenTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type service struct {
	d Deps
}

func NewService(d Deps) Service {
	if d.Policy == nil {
		d.Policy = scope.GrantAll{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{d: d}
}

func (s *service) Authorize(ctx context.Context, in AuthorizeInput) (*AuthorizeResult, error) {
	// Rechazo sintáctico barato antes de ir al store.
	if !validation.ValidIdentifier(in.ClientID) {
		return nil, ErrUnauthorizedClient
	}

	client, err := s.d.Repo.GetClientByClientID(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUnauthorizedClient
		}
		return nil, fmt.Errorf("lookup client: %w", err)
	}

	if err := s.checkRedirect(ctx, client.ID, in.RedirectURI); err != nil {
		return nil, err
	}

	user, err := s.d.Repo.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	binding, err := s.d.Consent.GetOrCreateBinding(ctx, client, user)
	if err != nil {
		return nil, fmt.Errorf("resolve consent: %w", err)
	}

	granted := s.d.Policy.Grant(client, user).String()
	raw, err := s.d.Ident.Generate(ctx, ident.KindAuthCode, "")
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.d.Now().UTC()
	code := &core.AuthorizationCode{
		ID:          uuid.NewString(),
		CodeHash:    token.SHA256Base64URL(raw),
		ClientID:    client.ID,
		UserID:      user.ID,
		Scope:       granted,
		RedirectURI: in.RedirectURI,
		ExpiresAt:   now.Add(s.d.CodeTTL),
		CreatedAt:   now,
	}
	if err := s.d.Repo.CreateAuthCode(ctx, code); err != nil {
		return nil, fmt.Errorf("persist code: %w", err)
	}

	metrics.AuthCodesIssued.Inc()
	audit.Log(ctx, "code.issued",
		logger.ClientID(client.ClientID), logger.UserID(user.ID),
		logger.BindingID(binding.ID), logger.Scope(granted))

	return &AuthorizeResult{
		Code:        raw,
		RedirectURI: in.RedirectURI,
		Scope:       granted,
		ExpiresAt:   code.ExpiresAt,
	}, nil
}

func (s *service) Exchange(ctx context.Context, in ExchangeInput) (*TokenResult, error) {
	client, err := s.d.Repo.GetClientByClientID(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, s.grantFailure(ctx, "unauthorized_client", ErrUnauthorizedClient)
		}
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(in.ClientSecret)) != 1 {
		return nil, s.grantFailure(ctx, "unauthorized_client", ErrUnauthorizedClient)
	}

	raw, err := s.d.Ident.Generate(ctx, ident.KindAccessToken, "")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.d.Now().UTC()
	var result *TokenResult

	// El consumo del code y la emisión del token comparten transacción:
	// o ambos quedan, o ninguno.
	err = s.d.Repo.WithinTx(ctx, func(tx core.Repository) error {
		code, err := tx.ConsumeAuthCode(ctx, token.SHA256Base64URL(in.Code), now)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return s.grantFailure(ctx, "invalid_grant", ErrInvalidGrant)
			}
			return fmt.Errorf("consume code: %w", err)
		}
		if code.Expired(now) {
			return s.grantFailure(ctx, "expired_grant", ErrExpiredGrant)
		}
		if code.ClientID != client.ID {
			return s.grantFailure(ctx, "invalid_grant", ErrInvalidGrant)
		}
		if code.RedirectURI != in.RedirectURI {
			return s.grantFailure(ctx, "invalid_grant", ErrInvalidGrant)
		}

		at := &core.AccessToken{
			ID:          uuid.NewString(),
			TokenHash:   token.SHA256Base64URL(raw),
			ClientID:    code.ClientID,
			UserID:      code.UserID,
			Scope:       code.Scope,
			RedirectURI: code.RedirectURI,
			ExpiresAt:   now.Add(s.d.TokenTTL),
			CreatedAt:   now,
		}
		if err := tx.CreateAccessToken(ctx, at); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}

		result = &TokenResult{
			AccessToken: raw,
			TokenType:   "Bearer",
			Scope:       at.Scope,
			ExpiresAt:   at.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.Inc()
	audit.Log(ctx, "token.issued", logger.ClientID(client.ClientID))
	return result, nil
}

func (s *service) UserInfo(ctx context.Context, rawToken string) (map[string]any, error) {
	at, err := s.d.Repo.GetAccessTokenByHash(ctx, token.SHA256Base64URL(rawToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if !at.Usable(s.d.Now()) {
		return nil, ErrInvalidToken
	}

	client, err := s.d.Repo.GetClientByID(ctx, at.ClientID)
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	user, err := s.d.Repo.GetUserByID(ctx, at.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	binding, err := s.d.Repo.GetBinding(ctx, at.ClientID, at.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup binding: %w", err)
	}

	granted, err := scope.ParseSet(at.Scope)
	if err != nil {
		return nil, fmt.Errorf("stored scope: %w", err)
	}

	id := scope.Identity{Binding: binding, Client: client, User: user}
	if aliasID, ok := binding.Channel.AliasID(); ok && granted.Has(scope.Email) {
		alias, err := s.d.Repo.GetAliasByID(ctx, aliasID)
		if err != nil {
			return nil, fmt.Errorf("lookup alias: %w", err)
		}
		id.AliasEmail = alias.Email
	}
	if granted.Has(scope.AvatarURL) && s.d.Avatar != nil {
		id.AvatarURL = s.d.Avatar.AvatarURL(ctx, user)
	}

	return scope.Project(granted, id), nil
}

func (s *service) Revoke(ctx context.Context, rawToken string) error {
	at, err := s.d.Repo.GetAccessTokenByHash(ctx, token.SHA256Base64URL(rawToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup token: %w", err)
	}
	if err := s.d.Repo.RevokeAccessToken(ctx, at.ID, s.d.Now().UTC()); err != nil {
		return err
	}
	audit.Log(ctx, "token.revoked", logger.UserID(at.UserID))
	return nil
}

func (s *service) checkRedirect(ctx context.Context, clientRowID, uri string) error {
	uris, err := s.d.Repo.ListRedirectURIs(ctx, clientRowID)
	if err != nil {
		return fmt.Errorf("list redirect uris: %w", err)
	}
	for _, r := range uris {
		if r.URI == uri {
			return nil
		}
	}
	return s.grantFailure(ctx, "invalid_grant", ErrInvalidGrant)
}

func (s *service) grantFailure(ctx context.Context, reason string, err error) error {
	metrics.GrantFailures.WithLabelValues(reason).Inc()
	logger.From(ctx).Warn("grant rejected", logger.String("reason", reason))
	return err
}
