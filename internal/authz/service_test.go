package authz

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/consent"
	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/scope"
	"github.com/dropDatabas3/mailveil/internal/storage"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRedirect = "https://app.test/callback"
	testSecret   = "s3cr3t-s3cr3t-s3cr3t"
)

type fixture struct {
	svc    Service
	st     *memory.Store
	client *core.Client
	user   *core.User
	now    time.Time
	clock  *time.Time // mutable, read by the service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	ctx := context.Background()

	user := &core.User{ID: "u1", Email: "ada@real.test", Name: "Ada", Plan: core.PlanMonthly}
	require.NoError(t, st.CreateUser(ctx, user))

	client := &core.Client{
		ID: "c1", ClientID: "demo-abc123", ClientSecret: testSecret,
		Name: "Demo", UserID: "u1",
	}
	require.NoError(t, st.CreateClient(ctx, client))
	require.NoError(t, st.AddRedirectURI(ctx, &core.RedirectURI{ID: "r1", ClientID: "c1", URI: testRedirect}))

	gen := ident.New(ident.StoreAuthority{Repo: st}, "mail.test")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now

	var storageCfg storage.Config
	storageCfg.Local.BaseURL = "https://broker.test"
	resolver, err := storage.New(storageCfg)
	require.NoError(t, err)

	svc := NewService(Deps{
		Repo:  st,
		Ident: gen,
		Consent: consent.NewService(consent.Deps{
			Repo: st, Ident: gen,
			Plans: plan.Evaluator{FreeAliasLimit: 3},
		}),
		Policy:   scope.GrantAll{},
		Avatar:   storage.AvatarSource{Resolver: resolver},
		CodeTTL:  10 * time.Minute,
		TokenTTL: 30 * 24 * time.Hour,
		Now:      func() time.Time { return clock },
	})
	return &fixture{svc: svc, st: st, client: client, user: user, now: now, clock: &clock}
}

func (f *fixture) authorize(t *testing.T) *AuthorizeResult {
	t.Helper()
	res, err := f.svc.Authorize(context.Background(), AuthorizeInput{
		ClientID: f.client.ClientID, UserID: f.user.ID, RedirectURI: testRedirect,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) exchange(code string) (*TokenResult, error) {
	return f.svc.Exchange(context.Background(), ExchangeInput{
		ClientID: f.client.ClientID, ClientSecret: testSecret,
		Code: code, RedirectURI: testRedirect,
	})
}

func TestAuthorizeIssuesCode(t *testing.T) {
	f := newFixture(t)

	res := f.authorize(t)
	assert.NotEmpty(t, res.Code)
	assert.Equal(t, "avatar_url email name", res.Scope)
	assert.Equal(t, f.now.Add(10*time.Minute), res.ExpiresAt)
}

func TestAuthorizeUnknownClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Authorize(context.Background(), AuthorizeInput{
		ClientID: "nope", UserID: f.user.ID, RedirectURI: testRedirect,
	})
	assert.ErrorIs(t, err, ErrUnauthorizedClient)
}

func TestAuthorizeUnregisteredRedirect(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Authorize(context.Background(), AuthorizeInput{
		ClientID: f.client.ClientID, UserID: f.user.ID,
		RedirectURI: "https://evil.test/cb",
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeHappyPath(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)

	tok, err := f.exchange(res.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, res.Scope, tok.Scope)
}

// Second exchange of the same code must fail, never re-issue.
func TestExchangeCodeSingleUse(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)

	_, err := f.exchange(res.Code)
	require.NoError(t, err)

	_, err = f.exchange(res.Code)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeExpiredCode(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)

	*f.clock = f.now.Add(11 * time.Minute)
	_, err := f.exchange(res.Code)
	assert.ErrorIs(t, err, ErrExpiredGrant)
}

func TestExchangeRedirectMismatch(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)

	_, err := f.svc.Exchange(context.Background(), ExchangeInput{
		ClientID: f.client.ClientID, ClientSecret: testSecret,
		Code: res.Code, RedirectURI: "https://other.test/cb",
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// El rechazo revierte el consumo: el retry con el redirect correcto pasa.
	_, err = f.exchange(res.Code)
	require.NoError(t, err)
}

func TestExchangeWrongSecret(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)

	_, err := f.svc.Exchange(context.Background(), ExchangeInput{
		ClientID: f.client.ClientID, ClientSecret: "wrong",
		Code: res.Code, RedirectURI: testRedirect,
	})
	assert.ErrorIs(t, err, ErrUnauthorizedClient)
}

func TestUserInfoDisclosesAlias(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)
	tok, err := f.exchange(res.Code)
	require.NoError(t, err)

	claims, err := f.svc.UserInfo(context.Background(), tok.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "Demo", claims["client"])
	assert.Equal(t, true, claims["email_verified"])
	assert.Equal(t, "Ada", claims["name"])
	email, _ := claims["email"].(string)
	assert.Contains(t, email, "@mail.test", "premium user should get an alias, not the real address")
	assert.NotEqual(t, f.user.Email, email)
	// Sin foto subida el claim es null explícito. Nunca un gravatar:
	// eso filtraría un hash estable del email real.
	v, present := claims["avatar_url"]
	require.True(t, present)
	assert.Nil(t, v)
}

func TestUserInfoAvatarFromStoredPicture(t *testing.T) {
	f := newFixture(t)

	path := "avatars/u1.png"
	f.user.ProfilePicturePath = &path
	require.NoError(t, f.st.UpdateUser(context.Background(), f.user))

	res := f.authorize(t)
	tok, err := f.exchange(res.Code)
	require.NoError(t, err)

	claims, err := f.svc.UserInfo(context.Background(), tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "https://broker.test/static/avatars/u1.png", claims["avatar_url"])
}

func TestUserInfoExpiredToken(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)
	tok, err := f.exchange(res.Code)
	require.NoError(t, err)

	*f.clock = f.now.Add(31 * 24 * time.Hour)
	_, err = f.svc.UserInfo(context.Background(), tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeTerminal(t *testing.T) {
	f := newFixture(t)
	res := f.authorize(t)
	tok, err := f.exchange(res.Code)
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(context.Background(), tok.AccessToken))

	_, err = f.svc.UserInfo(context.Background(), tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserInfoUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UserInfo(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
