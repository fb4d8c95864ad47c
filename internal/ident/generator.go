// Package ident generates the broker's externally visible identifiers:
// email aliases, OAuth client ids, client secrets, authorization codes and
// access tokens. Candidates are checked against a uniqueness authority and
// regenerated on collision, with a hard retry cap. The generator never
// persists anything; allocation is the caller's responsibility.
package ident

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/dropDatabas3/mailveil/internal/metrics"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/security/token"
	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Kind is the identifier family being generated.
type Kind string

const (
	KindAlias        Kind = "alias"
	KindClientID     Kind = "client_id"
	KindClientSecret Kind = "client_secret"
	KindAuthCode     Kind = "auth_code"
	KindAccessToken  Kind = "access_token"
)

const (
	// maxAttempts caps the regenerate loop. The identifier space is
	// astronomically larger than the occupied set, so hitting the cap means
	// something is broken, not unlucky.
	maxAttempts = 10

	suffixAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	aliasSuffixLen  = 4
	clientSuffixLen = 6
	secretBytes     = 30 // 40 chars base64url
	opaqueBytes     = 32
)

// ErrGenerationExhausted means maxAttempts candidates all collided.
var ErrGenerationExhausted = errors.New("identifier generation exhausted")

// Authority answers whether a candidate is already allocated in its space.
type Authority interface {
	Exists(ctx context.Context, kind Kind, value string) (bool, error)
}

type Generator struct {
	authority   Authority
	emailDomain string
}

func New(authority Authority, emailDomain string) *Generator {
	return &Generator{authority: authority, emailDomain: emailDomain}
}

// Generate returns a fresh, unallocated identifier of the given kind.
// seed influences human-readable kinds only (the client name for client ids);
// it is ignored for opaque kinds.
func (g *Generator) Generate(ctx context.Context, kind Kind, seed string) (string, error) {
	log := logger.From(ctx).With(logger.Component("ident"), logger.Kind(string(kind)))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate, err := g.candidate(kind, seed)
		if err != nil {
			return "", fmt.Errorf("generate %s candidate: %w", kind, err)
		}

		exists, err := g.authority.Exists(ctx, kind, candidate)
		if err != nil {
			return "", fmt.Errorf("check %s candidate: %w", kind, err)
		}
		if !exists {
			log.Debug("identifier generated", logger.Attempt(attempt))
			return candidate, nil
		}

		metrics.IdentifierCollisions.WithLabelValues(string(kind)).Inc()
		log.Warn("identifier collision, regenerating", logger.Attempt(attempt))
	}

	return "", fmt.Errorf("%w: kind=%s attempts=%d", ErrGenerationExhausted, kind, maxAttempts)
}

func (g *Generator) candidate(kind Kind, seed string) (string, error) {
	switch kind {
	case KindAlias:
		return g.aliasCandidate()
	case KindClientID:
		return clientIDCandidate(seed)
	case KindClientSecret:
		return token.GenerateOpaque(secretBytes)
	case KindAuthCode, KindAccessToken:
		return token.GenerateOpaque(opaqueBytes)
	default:
		return "", fmt.Errorf("unknown identifier kind %q", kind)
	}
}

// aliasCandidate builds "<word>.<word>.<suffix>@<domain>".
func (g *Generator) aliasCandidate() (string, error) {
	w1, err := randomWord()
	if err != nil {
		return "", err
	}
	w2, err := randomWord()
	if err != nil {
		return "", err
	}
	suffix, err := gonanoid.Generate(suffixAlphabet, aliasSuffixLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s.%s@%s", w1, w2, suffix, g.emailDomain), nil
}

// clientIDCandidate builds "<slugified name>-<suffix>".
func clientIDCandidate(name string) (string, error) {
	suffix, err := gonanoid.Generate(suffixAlphabet, clientSuffixLen)
	if err != nil {
		return "", err
	}
	s := slug.Make(name)
	if s == "" {
		s = "client"
	}
	return s + "-" + suffix, nil
}

func randomWord() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[n.Int64()], nil
}
