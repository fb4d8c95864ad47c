package ident

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/security/token"
	"github.com/dropDatabas3/mailveil/internal/store/core"
)

// StoreAuthority answers existence checks against the persistence authority.
// Client secrets have no identifier column (they are never looked up by
// value), so they are always reported free.
type StoreAuthority struct {
	Repo core.Repository
}

func (a StoreAuthority) Exists(ctx context.Context, kind Kind, value string) (bool, error) {
	space, ok := spaceFor(kind)
	if !ok {
		return false, nil
	}
	// Codes y tokens se persisten como digests: la consulta va por hash.
	switch kind {
	case KindAuthCode, KindAccessToken:
		value = token.SHA256Base64URL(value)
	}
	return a.Repo.IdentifierExists(ctx, space, value)
}

func spaceFor(kind Kind) (core.IdentifierSpace, bool) {
	switch kind {
	case KindAlias:
		return core.SpaceAliasEmail, true
	case KindClientID:
		return core.SpaceClientID, true
	case KindAuthCode:
		return core.SpaceAuthCode, true
	case KindAccessToken:
		return core.SpaceAccessToken, true
	default:
		return "", false
	}
}
