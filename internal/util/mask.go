// Package util reúne helpers chicos compartidos entre capas.
package util

import "strings"

// MaskEmail reduce un email a una forma loggeable: primera letra del local
// part y del dominio, el resto oculto ("ada@example.com" -> "a…@e….com").
// Entradas que no parecen un email se degradan a "***" o a los extremos.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	local, domain, found := strings.Cut(s, "@")
	if !found || local == "" {
		switch {
		case s == "":
			return ""
		case len(s) <= 3:
			return "***"
		default:
			return s[:1] + "…" + s[len(s)-1:]
		}
	}

	if len(local) > 1 {
		local = local[:1] + "…"
	}
	if dot := strings.IndexByte(domain, '.'); dot > 1 {
		domain = domain[:1] + "…" + domain[dot:]
	}
	return local + "@" + domain
}
