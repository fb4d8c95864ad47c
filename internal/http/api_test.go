package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/account"
	"github.com/dropDatabas3/mailveil/internal/authz"
	"github.com/dropDatabas3/mailveil/internal/cache"
	"github.com/dropDatabas3/mailveil/internal/clients"
	"github.com/dropDatabas3/mailveil/internal/consent"
	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/rate"
	"github.com/dropDatabas3/mailveil/internal/scope"
	"github.com/dropDatabas3/mailveil/internal/security/password"
	"github.com/dropDatabas3/mailveil/internal/session"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	st := memory.New()
	gen := ident.New(ident.StoreAuthority{Repo: st}, "mail.test")
	plans := plan.Evaluator{FreeAliasLimit: 3}

	api := &API{
		Accounts: account.NewService(account.Deps{
			Repo: st, Ident: gen, Plans: plans,
			Hashing: password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32},
			Promos:  map[string]time.Duration{"WELCOME30": 30 * 24 * time.Hour},
		}),
		Clients: clients.NewService(clients.Deps{Repo: st, Ident: gen}),
		Authz: authz.NewService(authz.Deps{
			Repo: st, Ident: gen,
			Consent:  consent.NewService(consent.Deps{Repo: st, Ident: gen, Plans: plans}),
			Policy:   scope.GrantAll{},
			CodeTTL:  10 * time.Minute,
			TokenTTL: 30 * 24 * time.Hour,
		}),
		Sessions: session.NewManager(cache.NewMemory("test"), time.Hour),
		Repo:     st,
		Limiter:  rate.NewMemoryLimiter(30, 10*time.Minute),
		BaseURL:  "https://broker.test",
	}
	return api.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// registerAndLogin returns the session cookie for a fresh activated user.
func registerAndLogin(t *testing.T, h http.Handler, email string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register",
		registerRequest{Email: email, Name: "Ada", Password: "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[registerResponse](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/activate", activateRequest{Code: reg.ActivationCode}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login",
		loginRequest{Email: email, Password: "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestFullOAuthFlow(t *testing.T) {
	h := newTestAPI(t)
	cookie := registerAndLogin(t, h, "ada@real.test")

	// Register a client.
	rec := doJSON(t, h, http.MethodPost, "/v1/clients/", createClientRequest{
		Name:         "Demo App",
		HomeURL:      "https://app.test",
		RedirectURIs: []string{"https://app.test/callback"},
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cl := decode[clientResponse](t, rec)
	require.NotEmpty(t, cl.ClientSecret, "creation response must carry the secret")

	// Authorize: expect a redirect carrying the code.
	authURL := fmt.Sprintf("/v1/oauth/authorize?client_id=%s&redirect_uri=%s&state=xyz",
		url.QueryEscape(cl.ClientID), url.QueryEscape("https://app.test/callback"))
	rec = doJSON(t, h, http.MethodGet, authURL, nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.test", loc.Host)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	assert.Equal(t, "xyz", loc.Query().Get("state"))

	// Exchange the code.
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {"https://app.test/callback"},
		"client_id":     {cl.ClientID},
		"client_secret": {cl.ClientSecret},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenRec := httptest.NewRecorder()
	h.ServeHTTP(tokenRec, req)
	require.Equal(t, http.StatusOK, tokenRec.Code, tokenRec.Body.String())

	tok := decode[tokenResponse](t, tokenRec)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Positive(t, tok.ExpiresIn)

	// Userinfo with the bearer token.
	uiReq := httptest.NewRequest(http.MethodGet, "/v1/oauth/userinfo", nil)
	uiReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	uiRec := httptest.NewRecorder()
	h.ServeHTTP(uiRec, uiReq)
	require.Equal(t, http.StatusOK, uiRec.Code, uiRec.Body.String())

	claims := decode[map[string]any](t, uiRec)
	assert.Equal(t, "Demo App", claims["client"])
	assert.Equal(t, true, claims["email_verified"])
	email, _ := claims["email"].(string)
	assert.NotEmpty(t, email)

	// Replay of the code must fail with invalid_grant.
	replay := httptest.NewRequest(http.MethodPost, "/v1/oauth/token", strings.NewReader(form.Encode()))
	replay.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	replayRec := httptest.NewRecorder()
	h.ServeHTTP(replayRec, replay)
	require.Equal(t, http.StatusBadRequest, replayRec.Code)
	oe := decode[oauthError](t, replayRec)
	assert.Equal(t, "invalid_grant", oe.Err)
}

func TestAuthorizeRequiresSession(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/oauth/authorize?client_id=x&redirect_uri=y", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAliasEndpoints(t *testing.T) {
	h := newTestAPI(t)
	cookie := registerAndLogin(t, h, "ada@real.test")

	rec := doJSON(t, h, http.MethodPost, "/v1/aliases/", nil, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[aliasResponse](t, rec)
	assert.Contains(t, created.Email, "@mail.test")
	assert.True(t, created.Enabled)

	rec = doJSON(t, h, http.MethodGet, "/v1/aliases/", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]aliasResponse](t, rec)
	require.Len(t, list, 1)

	rec = doJSON(t, h, http.MethodPatch, "/v1/aliases/"+created.ID, setEnabledRequest{Enabled: false}, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAliasQuotaReturns402(t *testing.T) {
	h := newTestAPI(t)
	cookie := registerAndLogin(t, h, "ada@real.test")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodPost, "/v1/aliases/", nil, cookie)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/aliases/", nil, cookie)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	he := decode[httpError](t, rec)
	assert.Equal(t, "quota_exceeded", he.Code)
}

func TestAccountProfileAndPromo(t *testing.T) {
	h := newTestAPI(t)
	cookie := registerAndLogin(t, h, "ada@real.test")

	rec := doJSON(t, h, http.MethodGet, "/v1/account/", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[profileResponse](t, rec)
	assert.Equal(t, "free", p.Plan)
	assert.True(t, p.PromptUpgrade)
	require.NotNil(t, p.AvatarURL)
	assert.Contains(t, *p.AvatarURL, "gravatar.com")

	rec = doJSON(t, h, http.MethodPost, "/v1/account/promo", promoRequest{Code: "WELCOME30"}, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/account/", nil, cookie)
	p = decode[profileResponse](t, rec)
	assert.Equal(t, "trial", p.Plan)
	assert.False(t, p.PromptUpgrade, "30-day trial is outside the prompt window")
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	h := newTestAPI(t)
	registerAndLogin(t, h, "ada@real.test")

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register",
		registerRequest{Email: "ada@real.test", Name: "X", Password: "p4ssw0rdp4ss"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestAPI(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimited(t *testing.T) {
	h := newTestAPI(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 31; i++ {
		last = doJSON(t, h, http.MethodPost, "/v1/auth/login",
			loginRequest{Email: "nobody@real.test", Password: "wrong-password"}, nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestTokenWrongGrantType(t *testing.T) {
	h := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/oauth/token",
		strings.NewReader("grant_type=client_credentials"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	oe := decode[oauthError](t, rec)
	assert.Equal(t, "invalid_grant", oe.Err)
}
