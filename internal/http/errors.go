package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/mailveil/internal/account"
	"github.com/dropDatabas3/mailveil/internal/authz"
	"github.com/dropDatabas3/mailveil/internal/clients"
	"github.com/dropDatabas3/mailveil/internal/store/core"
)

// Standard API error responses.

var (
	errInvalidJSON   = &httpError{Code: "invalid_json", Message: "Invalid JSON format", Status: http.StatusBadRequest}
	errBadRequest    = &httpError{Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	errUnauthorized  = &httpError{Code: "unauthorized", Message: "Unauthorized", Status: http.StatusUnauthorized}
	errForbidden     = &httpError{Code: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
	errNotFound      = &httpError{Code: "not_found", Message: "Not found", Status: http.StatusNotFound}
	errConflict      = &httpError{Code: "conflict", Message: "Conflict", Status: http.StatusConflict}
	errQuotaExceeded = &httpError{Code: "quota_exceeded", Message: "Alias quota exceeded, upgrade to create more", Status: http.StatusPaymentRequired}
	errRateLimited   = &httpError{Code: "rate_limited", Message: "Too many requests", Status: http.StatusTooManyRequests}
	errInternal      = &httpError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// httpError is the standard API error body.
type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Status  int    `json:"-"`
}

func (e *httpError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// withDetail returns a copy of the error with specific details.
func (e *httpError) withDetail(detail string) *httpError {
	return &httpError{Code: e.Code, Message: e.Message, Detail: detail, Status: e.Status}
}

func writeError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(he.Status)
	_ = json.NewEncoder(w).Encode(he)
}

// toHTTPError maps service errors onto the API taxonomy.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		return errConflict.withDetail("email already registered")
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrNotActivated),
		errors.Is(err, account.ErrInvalidCode):
		return errUnauthorized.withDetail(err.Error())
	case errors.Is(err, account.ErrQuotaExceeded):
		return errQuotaExceeded
	case errors.Is(err, account.ErrUnknownPromo),
		errors.Is(err, account.ErrPromoRedeemed):
		return errBadRequest.withDetail(err.Error())
	case errors.Is(err, account.ErrForbidden), errors.Is(err, clients.ErrForbidden):
		return errForbidden
	case errors.Is(err, clients.ErrInvalidName), errors.Is(err, clients.ErrInvalidRedirect):
		return errBadRequest.withDetail(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return errNotFound
	case errors.Is(err, core.ErrConflict):
		return errConflict
	}
	return errInternal
}

// oauthError is the RFC 6749 error body used by the oauth endpoints.
type oauthError struct {
	Err  string `json:"error"`
	Desc string `json:"error_description,omitempty"`
}

// writeOAuthError renders grant failures with their standard OAuth codes.
// Anything unmapped is an infrastructure error.
func writeOAuthError(w http.ResponseWriter, err error) {
	var body oauthError
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, authz.ErrUnauthorizedClient):
		body = oauthError{Err: "unauthorized_client"}
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrExpiredGrant):
		body = oauthError{Err: "invalid_grant", Desc: "authorization code expired"}
	case errors.Is(err, authz.ErrInvalidGrant):
		body = oauthError{Err: "invalid_grant"}
	case errors.Is(err, authz.ErrInvalidToken):
		body = oauthError{Err: "invalid_token"}
		status = http.StatusUnauthorized
	default:
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
