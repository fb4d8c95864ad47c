// Package memory implements core.Repository with in-process maps.
// It honors the same uniqueness contract as the SQL store and is the
// backend for unit tests and for running without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

type Store struct {
	mu sync.Mutex
	// txMu serializes WithinTx blocks against each other.
	txMu sync.Mutex

	users    map[string]*core.User  // by id
	aliases  map[string]*core.Alias // by id
	clients  map[string]*core.Client
	uris     map[string][]core.RedirectURI // by client row id
	bindings map[string]*core.ConsentBinding
	codes    map[string]*core.AuthorizationCode // by code hash
	tokens   map[string]*core.AccessToken       // by token hash
	verif    map[string]*core.VerificationCode  // by kind+hash
}

func New() *Store {
	return &Store{
		users:    map[string]*core.User{},
		aliases:  map[string]*core.Alias{},
		clients:  map[string]*core.Client{},
		uris:     map[string][]core.RedirectURI{},
		bindings: map[string]*core.ConsentBinding{},
		codes:    map[string]*core.AuthorizationCode{},
		tokens:   map[string]*core.AccessToken{},
		verif:    map[string]*core.VerificationCode{},
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// WithinTx serializes transactional blocks. A fn error restores the
// pre-tx snapshot, matching the SQL store's rollback semantics.
func (s *Store) WithinTx(ctx context.Context, fn func(core.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	users    map[string]*core.User
	aliases  map[string]*core.Alias
	clients  map[string]*core.Client
	uris     map[string][]core.RedirectURI
	bindings map[string]*core.ConsentBinding
	codes    map[string]*core.AuthorizationCode
	tokens   map[string]*core.AccessToken
	verif    map[string]*core.VerificationCode
}

// cloneMap copies the map and the pointed-to values, so in-place mutations
// inside a tx cannot leak into the snapshot.
func cloneMap[V any](m map[string]*V) map[string]*V {
	out := make(map[string]*V, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func (s *Store) snapshot() snapshot {
	uris := make(map[string][]core.RedirectURI, len(s.uris))
	for k, v := range s.uris {
		cp := make([]core.RedirectURI, len(v))
		copy(cp, v)
		uris[k] = cp
	}
	return snapshot{
		users:    cloneMap(s.users),
		aliases:  cloneMap(s.aliases),
		clients:  cloneMap(s.clients),
		uris:     uris,
		bindings: cloneMap(s.bindings),
		codes:    cloneMap(s.codes),
		tokens:   cloneMap(s.tokens),
		verif:    cloneMap(s.verif),
	}
}

func (s *Store) restore(sn snapshot) {
	s.users = sn.users
	s.aliases = sn.aliases
	s.clients = sn.clients
	s.uris = sn.uris
	s.bindings = sn.bindings
	s.codes = sn.codes
	s.tokens = sn.tokens
	s.verif = sn.verif
}

func bindingKey(clientID, userID string) string { return clientID + "\x00" + userID }
func verifKey(kind core.VerificationCodeKind, hash string) string {
	return string(kind) + "\x00" + hash
}

func (s *Store) IdentifierExists(ctx context.Context, space core.IdentifierSpace, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch space {
	case core.SpaceAliasEmail:
		for _, a := range s.aliases {
			if a.Email == value {
				return true, nil
			}
		}
	case core.SpaceClientID:
		for _, c := range s.clients {
			if c.ClientID == value {
				return true, nil
			}
		}
	case core.SpaceAuthCode:
		_, ok := s.codes[value]
		return ok, nil
	case core.SpaceAccessToken:
		_, ok := s.tokens[value]
		return ok, nil
	default:
		return false, core.ErrInvalid
	}
	return false, nil
}

// ---- Users ----

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.users {
		if ex.Email == u.Email {
			return core.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	now := time.Now()
	cp := *u
	cp.UpdatedAt = &now
	s.users[u.ID] = &cp
	return nil
}

// ---- Aliases ----

func (s *Store) CreateAlias(ctx context.Context, a *core.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.aliases {
		if ex.Email == a.Email {
			return core.ErrConflict
		}
	}
	cp := *a
	s.aliases[a.ID] = &cp
	return nil
}

func (s *Store) GetAliasByID(ctx context.Context, id string) (*core.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.aliases[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAliasesByUser(ctx context.Context, userID string) ([]core.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Alias
	for _, a := range s.aliases {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountAliasesByUser(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.aliases {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetAliasEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.aliases[id]
	if !ok {
		return core.ErrNotFound
	}
	a.Enabled = enabled
	return nil
}

// ---- Clients ----

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.clients {
		if ex.ClientID == c.ClientID {
			return core.ErrConflict
		}
	}
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *Store) GetClientByID(ctx context.Context, id string) (*core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetClientByClientID(ctx context.Context, clientID string) (*core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.ClientID == clientID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListClientsByUser(ctx context.Context, userID string) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Client
	for _, c := range s.clients {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddRedirectURI(ctx context.Context, r *core.RedirectURI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[r.ClientID]; !ok {
		return core.ErrNotFound
	}
	s.uris[r.ClientID] = append(s.uris[r.ClientID], *r)
	return nil
}

func (s *Store) ListRedirectURIs(ctx context.Context, clientID string) ([]core.RedirectURI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RedirectURI, len(s.uris[clientID]))
	copy(out, s.uris[clientID])
	return out, nil
}

// ---- Consent bindings ----

func (s *Store) CreateBinding(ctx context.Context, b *core.ConsentBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := bindingKey(b.ClientID, b.UserID)
	if _, ok := s.bindings[k]; ok {
		return core.ErrConflict
	}
	cp := *b
	s.bindings[k] = &cp
	return nil
}

func (s *Store) GetBinding(ctx context.Context, clientID, userID string) (*core.ConsentBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[bindingKey(clientID, userID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// ---- Authorization codes ----

func (s *Store) CreateAuthCode(ctx context.Context, c *core.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[c.CodeHash]; ok {
		return core.ErrConflict
	}
	cp := *c
	s.codes[c.CodeHash] = &cp
	return nil
}

func (s *Store) ConsumeAuthCode(ctx context.Context, codeHash string, now time.Time) (*core.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeHash]
	if !ok || c.ConsumedAt != nil {
		return nil, core.ErrNotFound
	}
	t := now
	c.ConsumedAt = &t
	cp := *c
	return &cp, nil
}

// ---- Access tokens ----

func (s *Store) CreateAccessToken(ctx context.Context, t *core.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.TokenHash]; ok {
		return core.ErrConflict
	}
	cp := *t
	s.tokens[t.TokenHash] = &cp
	return nil
}

func (s *Store) GetAccessTokenByHash(ctx context.Context, tokenHash string) (*core.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RevokeAccessToken(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID == id {
			ts := now
			t.RevokedAt = &ts
			return nil
		}
	}
	return core.ErrNotFound
}

// ---- Verification codes ----

func (s *Store) CreateVerificationCode(ctx context.Context, v *core.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := verifKey(v.Kind, v.CodeHash)
	if _, ok := s.verif[k]; ok {
		return core.ErrConflict
	}
	cp := *v
	s.verif[k] = &cp
	return nil
}

func (s *Store) ConsumeVerificationCode(ctx context.Context, kind core.VerificationCodeKind, codeHash string, now time.Time) (*core.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := verifKey(kind, codeHash)
	v, ok := s.verif[k]
	if !ok || now.After(v.ExpiresAt) {
		return nil, core.ErrNotFound
	}
	delete(s.verif, k)
	cp := *v
	return &cp, nil
}
