// Package scope models the closed set of attribute capabilities a client
// can be granted and projects user attributes according to that set.
// Adding a scope means adding a constant here and a branch in Project;
// there is no open string space.
package scope

import (
	"fmt"
	"sort"
	"strings"
)

// Scope is a named capability controlling which attribute is disclosed.
type Scope string

const (
	Name      Scope = "name"
	Email     Scope = "email"
	AvatarURL Scope = "avatar_url"
)

// All returns every known scope.
func All() []Scope { return []Scope{Name, Email, AvatarURL} }

// Parse validates a single scope name.
func Parse(s string) (Scope, error) {
	switch Scope(s) {
	case Name, Email, AvatarURL:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Set is a granted scope collection. Stored and transmitted as a
// space-separated string, OAuth style.
type Set map[Scope]struct{}

func NewSet(scopes ...Scope) Set {
	s := make(Set, len(scopes))
	for _, sc := range scopes {
		s[sc] = struct{}{}
	}
	return s
}

// ParseSet parses a space-separated scope string, rejecting unknown names.
func ParseSet(raw string) (Set, error) {
	s := Set{}
	for _, part := range strings.Fields(raw) {
		sc, err := Parse(part)
		if err != nil {
			return nil, err
		}
		s[sc] = struct{}{}
	}
	return s, nil
}

func (s Set) Has(sc Scope) bool {
	_, ok := s[sc]
	return ok
}

// String renders the set in stable (sorted) order.
func (s Set) String() string {
	names := make([]string, 0, len(s))
	for sc := range s {
		names = append(names, string(sc))
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
