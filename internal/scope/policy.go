package scope

import "github.com/dropDatabas3/mailveil/internal/store/core"

// GrantPolicy decides which scopes an authorization grants. It is a
// pluggable seam: today every client gets its full declared set, but
// per-user scope downgrade can slot in here without touching the issuer.
type GrantPolicy interface {
	Grant(client *core.Client, user *core.User) Set
}

// GrantAll grants the full declared scope set unconditionally.
type GrantAll struct{}

func (GrantAll) Grant(_ *core.Client, _ *core.User) Set { return NewSet(All()...) }
