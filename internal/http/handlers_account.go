package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	p, err := a.Accounts.Get(r.Context(), sessionUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:               p.User.ID,
		Email:            p.User.Email,
		Name:             p.User.Name,
		Plan:             string(p.User.Plan),
		AliasCount:       p.AliasCount,
		PromptUpgrade:    p.PromptUpgrade,
		PremiumPeriodEnd: p.PremiumPeriodEnd,
		AvatarURL:        a.Avatars.ProfileAvatarURL(r.Context(), p.User),
	})
}

func (a *API) handleRedeemPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidJSON)
		return
	}
	if err := a.Accounts.RedeemPromo(r.Context(), sessionUserID(r.Context()), req.Code); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateAlias(w http.ResponseWriter, r *http.Request) {
	alias, err := a.Accounts.CreateAlias(r.Context(), sessionUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAliasResponse(*alias))
}

func (a *API) handleListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := a.Accounts.ListAliases(r.Context(), sessionUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]aliasResponse, 0, len(aliases))
	for _, al := range aliases {
		out = append(out, toAliasResponse(al))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSetAliasEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidJSON)
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Accounts.SetAliasEnabled(r.Context(), sessionUserID(r.Context()), id, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
