package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/mailveil/internal/authz"
)

// handleAuthorize runs the consent flow for the logged-in user and redirects
// back to the client with a fresh authorization code.
// GET /v1/oauth/authorize?client_id=...&redirect_uri=...&state=...
func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	if clientID == "" || redirectURI == "" {
		writeError(w, errBadRequest.withDetail("client_id and redirect_uri are required"))
		return
	}

	res, err := a.Authz.Authorize(r.Context(), authz.AuthorizeInput{
		ClientID:    clientID,
		UserID:      sessionUserID(r.Context()),
		RedirectURI: redirectURI,
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	loc, err := url.Parse(res.RedirectURI)
	if err != nil {
		writeError(w, errBadRequest.withDetail("malformed redirect_uri"))
		return
	}
	params := loc.Query()
	params.Set("code", res.Code)
	if state := q.Get("state"); state != "" {
		params.Set("state", state)
	}
	loc.RawQuery = params.Encode()

	http.Redirect(w, r, loc.String(), http.StatusFound)
}

// handleToken exchanges an authorization code for an access token.
// POST /v1/oauth/token (application/x-www-form-urlencoded)
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, errBadRequest.withDetail("malformed form body"))
		return
	}
	if gt := r.PostForm.Get("grant_type"); gt != "authorization_code" {
		writeOAuthError(w, authz.ErrInvalidGrant)
		return
	}

	clientID, clientSecret := r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	// Client credentials may also arrive via HTTP Basic.
	if id, secret, ok := r.BasicAuth(); ok {
		clientID, clientSecret = id, secret
	}

	res, err := a.Authz.Exchange(r.Context(), authz.ExchangeInput{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresIn:   int64(time.Until(res.ExpiresAt).Seconds()),
		Scope:       res.Scope,
	})
}

// handleUserInfo projects the identity disclosed by the bearer token.
// GET /v1/oauth/userinfo
func (a *API) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		writeOAuthError(w, authz.ErrInvalidToken)
		return
	}
	claims, err := a.Authz.UserInfo(r.Context(), raw)
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// handleRevoke invalidates the presented access token.
// POST /v1/oauth/revoke (token in form body, RFC 7009 style)
func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, errBadRequest.withDetail("malformed form body"))
		return
	}
	raw := r.PostForm.Get("token")
	if raw == "" {
		writeError(w, errBadRequest.withDetail("token is required"))
		return
	}
	if err := a.Authz.Revoke(r.Context(), raw); err != nil {
		// Revoking an unknown token is not an error for the caller.
		if err != authz.ErrInvalidToken {
			writeOAuthError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
