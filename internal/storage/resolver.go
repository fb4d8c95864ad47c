// Package storage resolves stored object paths (profile pictures, client
// icons) into fetchable URLs. When nothing is stored, deterministic
// fallbacks apply: a gravatar-style URL for users, a static icon for
// clients.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Resolver turns an object path into a URL a browser can fetch.
type Resolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// Config selects and parametrizes the backend.
type Config struct {
	Driver string // "s3" | "local"

	S3 struct {
		Bucket   string
		Region   string
		Endpoint string
		URLTTL   time.Duration
	}
	Local struct {
		BaseURL string
	}
}

// New builds the resolver for the configured driver.
func New(cfg Config) (Resolver, error) {
	switch cfg.Driver {
	case "s3":
		return newS3(cfg)
	case "local", "":
		return localResolver{baseURL: cfg.Local.BaseURL}, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// localResolver serves files from the broker's own static file route.
type localResolver struct {
	baseURL string
}

func (l localResolver) ResolveURL(_ context.Context, path string) (string, error) {
	base := strings.TrimSuffix(l.baseURL, "/")
	return base + "/static/" + strings.TrimPrefix(path, "/"), nil
}

// GravatarURL is the deterministic avatar fallback for users without an
// uploaded picture.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}

// DefaultIconURL is the static fallback for clients without an icon.
func DefaultIconURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/static/default-icon.svg"
}
