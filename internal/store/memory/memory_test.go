package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.CreateAuthCode(ctx, &core.AuthorizationCode{
		ID: "c1", CodeHash: "h1", ExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}))

	errBoom := errors.New("boom")
	err := st.WithinTx(ctx, func(tx core.Repository) error {
		consumed, err := tx.ConsumeAuthCode(ctx, "h1", now)
		require.NoError(t, err)
		require.NotNil(t, consumed.ConsumedAt)

		require.NoError(t, tx.CreateAccessToken(ctx, &core.AccessToken{
			ID: "t1", TokenHash: "th1", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		}))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	// El consumo se revirtió y el token no quedó persistido.
	code, err := st.ConsumeAuthCode(ctx, "h1", now)
	require.NoError(t, err)
	assert.NotNil(t, code.ConsumedAt)

	_, err = st.GetAccessTokenByHash(ctx, "th1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWithinTxCommitsOnNil(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now().UTC()

	err := st.WithinTx(ctx, func(tx core.Repository) error {
		return tx.CreateAccessToken(ctx, &core.AccessToken{
			ID: "t1", TokenHash: "th1", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		})
	})
	require.NoError(t, err)

	_, err = st.GetAccessTokenByHash(ctx, "th1")
	require.NoError(t, err)
}
