package validation

import "regexp"

// Identifier syntax rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9_.-].
// - Length 1..64.
//
// Applies to client ids and to the local part of generated aliases.
// Examples valid: demo-app-x7q2, word-pair-k3, a
// Examples invalid: -lead, trail-, "", BAD, with space.
var identifierRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_\.-]{0,62}[a-z0-9])?$`)

// ValidIdentifier returns true if the candidate matches the allowed pattern.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// Scope name rules: same shape as identifiers plus ":" separators
// (e.g. "avatar_url", "email", "profile:read").
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName returns true if the provided scope name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}
