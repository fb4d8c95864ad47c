// Package http is the REST surface over the broker services. Handlers stay
// thin: decode, delegate, encode; every policy decision lives in the
// service layer.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/mailveil/internal/account"
	"github.com/dropDatabas3/mailveil/internal/authz"
	"github.com/dropDatabas3/mailveil/internal/clients"
	"github.com/dropDatabas3/mailveil/internal/rate"
	"github.com/dropDatabas3/mailveil/internal/session"
	"github.com/dropDatabas3/mailveil/internal/storage"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/go-chi/chi/v5"
)

// API agrupa las dependencias de los handlers.
type API struct {
	Accounts account.Service
	Clients  clients.Service
	Authz    authz.Service
	Sessions *session.Manager
	Avatars  storage.AvatarSource
	Repo     core.Repository // health checks
	Limiter  rate.Limiter    // optional, throttles /v1/auth

	BaseURL       string
	SecureCookies bool
}

// Router arma el chi.Mux con toda la superficie pública.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(withRecover, withRequestID, withLogging, withSecurityHeaders)

	r.Get("/healthz", a.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(withNoStore, a.withRateLimit)
			r.Post("/register", a.handleRegister)
			r.Post("/activate", a.handleActivate)
			r.Post("/login", a.handleLogin)
			r.Post("/logout", a.handleLogout)
			r.Post("/password-reset/request", a.handlePasswordResetRequest)
			r.Post("/password-reset", a.handlePasswordReset)
		})

		r.Route("/oauth", func(r chi.Router) {
			r.Use(withNoStore)
			r.With(a.requireSession).Get("/authorize", a.handleAuthorize)
			r.Post("/token", a.handleToken)
			r.Get("/userinfo", a.handleUserInfo)
			r.Post("/revoke", a.handleRevoke)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)

			r.Route("/account", func(r chi.Router) {
				r.Get("/", a.handleGetAccount)
				r.Post("/promo", a.handleRedeemPromo)
			})
			r.Route("/aliases", func(r chi.Router) {
				r.Get("/", a.handleListAliases)
				r.Post("/", a.handleCreateAlias)
				r.Patch("/{id}", a.handleSetAliasEnabled)
			})
			r.Route("/clients", func(r chi.Router) {
				r.Use(withNoStore)
				r.Get("/", a.handleListClients)
				r.Post("/", a.handleCreateClient)
				r.Get("/{id}", a.handleGetClient)
				r.Post("/{id}/redirect-uris", a.handleAddRedirectURI)
			})
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
