package storage

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/store/core"
)

// AvatarSource resolves avatar and icon URLs. Two distinct behaviors:
// AvatarURL feeds third-party disclosure and never invents a URL, while
// ProfileAvatarURL serves the owner's own profile view and may fall back
// to gravatar.
type AvatarSource struct {
	Resolver Resolver
}

// AvatarURL returns the stored picture's URL, or nil when none is stored.
// No gravatar here: the fallback hashes the real address, and this result
// can reach clients bound to an alias.
func (a AvatarSource) AvatarURL(ctx context.Context, u *core.User) *string {
	if u.ProfilePicturePath == nil || a.Resolver == nil {
		return nil
	}
	url, err := a.Resolver.ResolveURL(ctx, *u.ProfilePicturePath)
	if err != nil {
		logger.From(ctx).Warn("avatar resolution failed",
			logger.UserID(u.ID), logger.Err(err))
		return nil
	}
	return &url
}

// ProfileAvatarURL resolves the avatar for the user's own profile view,
// falling back to gravatar when no picture is stored or resolution fails.
func (a AvatarSource) ProfileAvatarURL(ctx context.Context, u *core.User) *string {
	if url := a.AvatarURL(ctx, u); url != nil {
		return url
	}
	url := GravatarURL(u.Email)
	return &url
}

// IconURL resolves a client's icon URL with the static default fallback.
func (a AvatarSource) IconURL(ctx context.Context, c *core.Client, baseURL string) string {
	if c.IconPath != nil && a.Resolver != nil {
		url, err := a.Resolver.ResolveURL(ctx, *c.IconPath)
		if err == nil {
			return url
		}
		logger.From(ctx).Warn("icon resolution failed, using fallback",
			logger.ClientID(c.ClientID), logger.Err(err))
	}
	return DefaultIconURL(baseURL)
}
