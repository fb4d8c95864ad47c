package ident

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/security/token"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tokens and codes live in the store as digests, so the authority must find
// them from the raw candidate.
func TestStoreAuthorityHashesOpaqueKinds(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	rawToken, err := token.GenerateOpaque(32)
	require.NoError(t, err)
	require.NoError(t, st.CreateAccessToken(ctx, &core.AccessToken{
		ID: "t1", TokenHash: token.SHA256Base64URL(rawToken),
		ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	rawCode, err := token.GenerateOpaque(32)
	require.NoError(t, err)
	require.NoError(t, st.CreateAuthCode(ctx, &core.AuthorizationCode{
		ID: "ac1", CodeHash: token.SHA256Base64URL(rawCode),
		ExpiresAt: time.Now().Add(time.Minute), CreatedAt: time.Now(),
	}))

	auth := StoreAuthority{Repo: st}

	exists, err := auth.Exists(ctx, KindAccessToken, rawToken)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = auth.Exists(ctx, KindAuthCode, rawCode)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = auth.Exists(ctx, KindAccessToken, "never-issued")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreAuthorityClientSecretAlwaysFree(t *testing.T) {
	auth := StoreAuthority{Repo: memory.New()}
	exists, err := auth.Exists(context.Background(), KindClientSecret, "whatever")
	require.NoError(t, err)
	assert.False(t, exists)
}
