package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalResolver(t *testing.T) {
	var cfg Config
	cfg.Driver = "local"
	cfg.Local.BaseURL = "https://broker.test/"

	r, err := New(cfg)
	require.NoError(t, err)

	url, err := r.ResolveURL(context.Background(), "avatars/u1.png")
	require.NoError(t, err)
	assert.Equal(t, "https://broker.test/static/avatars/u1.png", url)
}

func TestGravatarURLDeterministic(t *testing.T) {
	a := GravatarURL("Ada@Real.Test ")
	b := GravatarURL("ada@real.test")
	assert.Equal(t, a, b, "normalization must make the hash stable")
	assert.Contains(t, a, "gravatar.com/avatar/")
}

type failingResolver struct{}

func (failingResolver) ResolveURL(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

// The disclosure path must never substitute a gravatar URL: it hashes the
// real address and can reach clients that only know an alias.
func TestAvatarURLNilWithoutStoredPicture(t *testing.T) {
	user := &core.User{ID: "u1", Email: "ada@real.test"}

	var cfg Config
	cfg.Local.BaseURL = "https://broker.test"
	r, err := New(cfg)
	require.NoError(t, err)

	assert.Nil(t, AvatarSource{Resolver: r}.AvatarURL(context.Background(), user))
	assert.Nil(t, AvatarSource{}.AvatarURL(context.Background(), user))
}

func TestAvatarURLNilOnResolverFailure(t *testing.T) {
	path := "avatars/u1.png"
	user := &core.User{ID: "u1", Email: "ada@real.test", ProfilePicturePath: &path}

	got := AvatarSource{Resolver: failingResolver{}}.AvatarURL(context.Background(), user)
	assert.Nil(t, got)
}

func TestProfileAvatarFallsBackToGravatar(t *testing.T) {
	user := &core.User{ID: "u1", Email: "ada@real.test"}

	got := AvatarSource{}.ProfileAvatarURL(context.Background(), user)
	require.NotNil(t, got)
	assert.Equal(t, GravatarURL(user.Email), *got)
}

func TestAvatarSourceUsesUploadedPicture(t *testing.T) {
	var cfg Config
	cfg.Local.BaseURL = "https://broker.test"
	r, err := New(cfg)
	require.NoError(t, err)

	path := "avatars/u1.png"
	user := &core.User{ID: "u1", Email: "ada@real.test", ProfilePicturePath: &path}

	got := AvatarSource{Resolver: r}.AvatarURL(context.Background(), user)
	require.NotNil(t, got)
	assert.Equal(t, "https://broker.test/static/avatars/u1.png", *got)
}

func TestIconURLDefault(t *testing.T) {
	client := &core.Client{ClientID: "demo-abc"}
	got := AvatarSource{}.IconURL(context.Background(), client, "https://broker.test")
	assert.Equal(t, "https://broker.test/static/default-icon.svg", got)
}
