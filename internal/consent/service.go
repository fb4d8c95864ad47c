// Package consent owns the (client, user) binding that fixes which email
// address a client ever sees. Bindings are created on first authorization
// and are immutable afterwards.
package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/metrics"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/google/uuid"
)

// DisclosurePolicy controls what a fresh binding discloses.
type DisclosurePolicy string

const (
	// PolicyAlias mints an alias for every new binding, quota permitting.
	PolicyAlias DisclosurePolicy = "always"
	// PolicyRealEmail never mints aliases; clients see the real address.
	PolicyRealEmail DisclosurePolicy = "never"
)

// aliasWriteAttempts covers the narrow race where a generated alias is
// taken between the generator's existence check and our insert.
const aliasWriteAttempts = 3

type Service interface {
	// GetOrCreateBinding returns the binding for (client, user), creating it
	// on first authorization. Quota denial degrades to real-email disclosure;
	// it never fails the authorization.
	GetOrCreateBinding(ctx context.Context, client *core.Client, user *core.User) (*core.ConsentBinding, error)
}

type Deps struct {
	Repo   core.Repository
	Ident  *ident.Generator
	Plans  plan.Evaluator
	Policy DisclosurePolicy
}

type service struct {
	d Deps
}

func NewService(d Deps) Service {
	if d.Policy == "" {
		d.Policy = PolicyAlias
	}
	return &service{d: d}
}

func (s *service) GetOrCreateBinding(ctx context.Context, client *core.Client, user *core.User) (*core.ConsentBinding, error) {
	b, err := s.d.Repo.GetBinding(ctx, client.ID, user.ID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("lookup binding: %w", err)
	}

	channel, err := s.resolveChannel(ctx, user)
	if err != nil {
		return nil, err
	}

	b = &core.ConsentBinding{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		UserID:    user.ID,
		Channel:   channel,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.d.Repo.CreateBinding(ctx, b); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Perdimos la carrera: otro request creó el binding primero.
			// El alias que pudimos haber creado queda asignado al usuario,
			// lo cual es inocuo.
			return s.d.Repo.GetBinding(ctx, client.ID, user.ID)
		}
		return nil, fmt.Errorf("create binding: %w", err)
	}
	return b, nil
}

// resolveChannel decides alias vs real email for a fresh binding.
func (s *service) resolveChannel(ctx context.Context, user *core.User) (core.DisclosureChannel, error) {
	if s.d.Policy != PolicyAlias {
		return core.DiscloseRealEmail(), nil
	}

	count, err := s.d.Repo.CountAliasesByUser(ctx, user.ID)
	if err != nil {
		return core.DisclosureChannel{}, fmt.Errorf("count aliases: %w", err)
	}
	if !s.d.Plans.CanCreateAlias(user, count) {
		metrics.QuotaDenials.Inc()
		logger.From(ctx).Info("alias quota reached, disclosing real email",
			logger.UserID(user.ID), logger.Count(count))
		return core.DiscloseRealEmail(), nil
	}

	alias, err := s.mintAlias(ctx, user.ID)
	if err != nil {
		return core.DisclosureChannel{}, err
	}
	return core.DiscloseAlias(alias.ID), nil
}

func (s *service) mintAlias(ctx context.Context, userID string) (*core.Alias, error) {
	var lastErr error
	for attempt := 0; attempt < aliasWriteAttempts; attempt++ {
		email, err := s.d.Ident.Generate(ctx, ident.KindAlias, "")
		if err != nil {
			return nil, fmt.Errorf("generate alias: %w", err)
		}
		a := &core.Alias{
			ID:        uuid.NewString(),
			UserID:    userID,
			Email:     email,
			Enabled:   true,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.d.Repo.CreateAlias(ctx, a); err != nil {
			if errors.Is(err, core.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("persist alias: %w", err)
		}
		metrics.AliasesCreated.Inc()
		logger.From(ctx).Info("alias created", logger.UserID(userID), logger.AliasID(a.ID))
		return a, nil
	}
	return nil, fmt.Errorf("persist alias after %d attempts: %w", aliasWriteAttempts, lastErr)
}
