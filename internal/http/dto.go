package http

import (
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// ActivationCode is returned directly; mail delivery is outside the broker.
	ActivationCode string `json:"activation_code"`
}

type activateRequest struct {
	Code string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

type createClientRequest struct {
	Name         string   `json:"name"`
	HomeURL      string   `json:"home_url"`
	RedirectURIs []string `json:"redirect_uris"`
	Published    bool     `json:"published"`
}

type clientResponse struct {
	ID           string   `json:"id"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Name         string   `json:"name"`
	HomeURL      string   `json:"home_url,omitempty"`
	Published    bool     `json:"published"`
	IconURL      string   `json:"icon_url"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
}

type addRedirectRequest struct {
	URI string `json:"uri"`
}

type aliasResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func toAliasResponse(a core.Alias) aliasResponse {
	return aliasResponse{ID: a.ID, Email: a.Email, Enabled: a.Enabled, CreatedAt: a.CreatedAt}
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type promoRequest struct {
	Code string `json:"code"`
}

type profileResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Plan             string     `json:"plan"`
	AliasCount       int        `json:"alias_count"`
	PromptUpgrade    bool       `json:"prompt_upgrade"`
	PremiumPeriodEnd *time.Time `json:"premium_period_end,omitempty"`
	AvatarURL        *string    `json:"avatar_url"`
}
