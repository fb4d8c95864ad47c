// Package clients manages relying-party registration: client id and secret
// issuance, redirect URIs and icon resolution.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/google/uuid"
)

var (
	ErrForbidden       = errors.New("not the owner")
	ErrInvalidName     = errors.New("invalid client name")
	ErrInvalidRedirect = errors.New("invalid redirect uri")
)

type CreateInput struct {
	Name         string
	HomeURL      string
	RedirectURIs []string
	Published    bool
}

type Service interface {
	// Create registers a client owned by the user. The returned client is
	// the only time the secret is available in clear.
	Create(ctx context.Context, ownerID string, in CreateInput) (*core.Client, error)
	Get(ctx context.Context, ownerID, id string) (*core.Client, []core.RedirectURI, error)
	List(ctx context.Context, ownerID string) ([]core.Client, error)
	AddRedirectURI(ctx context.Context, ownerID, id, uri string) error
}

type Deps struct {
	Repo  core.Repository
	Ident *ident.Generator
}

type service struct {
	d Deps
}

func NewService(d Deps) Service { return &service{d: d} }

func (s *service) Create(ctx context.Context, ownerID string, in CreateInput) (*core.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	for _, uri := range in.RedirectURIs {
		if err := checkRedirect(uri); err != nil {
			return nil, err
		}
	}

	clientID, err := s.d.Ident.Generate(ctx, ident.KindClientID, name)
	if err != nil {
		return nil, fmt.Errorf("generate client id: %w", err)
	}
	secret, err := s.d.Ident.Generate(ctx, ident.KindClientSecret, "")
	if err != nil {
		return nil, fmt.Errorf("generate client secret: %w", err)
	}

	c := &core.Client{
		ID:           uuid.NewString(),
		ClientID:     clientID,
		ClientSecret: secret,
		Name:         name,
		HomeURL:      strings.TrimSpace(in.HomeURL),
		Published:    in.Published,
		UserID:       ownerID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.d.Repo.CreateClient(ctx, c); err != nil {
		return nil, fmt.Errorf("persist client: %w", err)
	}
	for _, uri := range in.RedirectURIs {
		r := &core.RedirectURI{ID: uuid.NewString(), ClientID: c.ID, URI: uri}
		if err := s.d.Repo.AddRedirectURI(ctx, r); err != nil {
			return nil, fmt.Errorf("persist redirect uri: %w", err)
		}
	}

	logger.From(ctx).Info("client registered",
		logger.ClientID(clientID), logger.UserID(ownerID))
	return c, nil
}

func (s *service) Get(ctx context.Context, ownerID, id string) (*core.Client, []core.RedirectURI, error) {
	c, err := s.d.Repo.GetClientByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c.UserID != ownerID {
		return nil, nil, ErrForbidden
	}
	uris, err := s.d.Repo.ListRedirectURIs(ctx, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list redirect uris: %w", err)
	}
	return c, uris, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]core.Client, error) {
	return s.d.Repo.ListClientsByUser(ctx, ownerID)
}

func (s *service) AddRedirectURI(ctx context.Context, ownerID, id, uri string) error {
	c, err := s.d.Repo.GetClientByID(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != ownerID {
		return ErrForbidden
	}
	if err := checkRedirect(uri); err != nil {
		return err
	}
	r := &core.RedirectURI{ID: uuid.NewString(), ClientID: c.ID, URI: uri}
	return s.d.Repo.AddRedirectURI(ctx, r)
}

// checkRedirect requires an absolute http(s) URL without fragment.
func checkRedirect(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || u.Fragment != "" {
		return fmt.Errorf("%w: %q", ErrInvalidRedirect, raw)
	}
	return nil
}
