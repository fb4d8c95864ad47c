package http

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/mailveil/internal/clients"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/go-chi/chi/v5"
)

func (a *API) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidJSON)
		return
	}
	c, err := a.Clients.Create(r.Context(), sessionUserID(r.Context()), clients.CreateInput{
		Name:         req.Name,
		HomeURL:      req.HomeURL,
		RedirectURIs: req.RedirectURIs,
		Published:    req.Published,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// Única respuesta que incluye el secret en claro.
	resp := a.toClientResponse(r, c, req.RedirectURIs)
	resp.ClientSecret = c.ClientSecret
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListClients(w http.ResponseWriter, r *http.Request) {
	list, err := a.Clients.List(r.Context(), sessionUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]clientResponse, 0, len(list))
	for i := range list {
		out = append(out, a.toClientResponse(r, &list[i], nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, uris, err := a.Clients.Get(r.Context(), sessionUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	raw := make([]string, 0, len(uris))
	for _, u := range uris {
		raw = append(raw, u.URI)
	}
	writeJSON(w, http.StatusOK, a.toClientResponse(r, c, raw))
}

func (a *API) handleAddRedirectURI(w http.ResponseWriter, r *http.Request) {
	var req addRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidJSON)
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Clients.AddRedirectURI(r.Context(), sessionUserID(r.Context()), id, req.URI); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toClientResponse(r *http.Request, c *core.Client, uris []string) clientResponse {
	return clientResponse{
		ID:           c.ID,
		ClientID:     c.ClientID,
		Name:         c.Name,
		HomeURL:      c.HomeURL,
		Published:    c.Published,
		IconURL:      a.Avatars.IconURL(r.Context(), c, a.BaseURL),
		RedirectURIs: uris,
	}
}
