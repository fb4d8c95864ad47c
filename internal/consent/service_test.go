package consent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, policy DisclosurePolicy, p core.Plan) (Service, *memory.Store, *core.Client, *core.User) {
	t.Helper()
	st := memory.New()

	user := &core.User{ID: "u1", Email: "ada@real.test", Name: "Ada", Plan: p}
	require.NoError(t, st.CreateUser(context.Background(), user))

	client := &core.Client{ID: "c1", ClientID: "demo-abc123", Name: "Demo", UserID: "u1"}
	require.NoError(t, st.CreateClient(context.Background(), client))

	svc := NewService(Deps{
		Repo:   st,
		Ident:  ident.New(ident.StoreAuthority{Repo: st}, "mail.test"),
		Plans:  plan.Evaluator{FreeAliasLimit: 2},
		Policy: policy,
	})
	return svc, st, client, user
}

func TestGetOrCreateBindingMintsAlias(t *testing.T) {
	svc, st, client, user := fixture(t, PolicyAlias, core.PlanFree)

	b, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)

	aliasID, ok := b.Channel.AliasID()
	require.True(t, ok, "fresh binding should disclose an alias")

	a, err := st.GetAliasByID(context.Background(), aliasID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, a.UserID)
	assert.True(t, a.Enabled)
	assert.Contains(t, a.Email, "@mail.test")
}

func TestGetOrCreateBindingIdempotent(t *testing.T) {
	svc, _, client, user := fixture(t, PolicyAlias, core.PlanFree)

	first, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)
	second, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateBindingRealEmailPolicy(t *testing.T) {
	svc, st, client, user := fixture(t, PolicyRealEmail, core.PlanMonthly)

	b, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)
	assert.False(t, b.Channel.IsAlias())

	n, err := st.CountAliasesByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "real-email policy must not mint aliases")
}

// Quota denial degrades to real email; the authorization still succeeds.
func TestGetOrCreateBindingQuotaFallsBack(t *testing.T) {
	svc, st, client, user := fixture(t, PolicyAlias, core.PlanFree)

	for i := 0; i < 2; i++ {
		require.NoError(t, st.CreateAlias(context.Background(), &core.Alias{
			ID: "a" + string(rune('1'+i)), UserID: user.ID,
			Email: "existing" + string(rune('1'+i)) + "@mail.test", Enabled: true,
			CreatedAt: time.Now(),
		}))
	}

	b, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)
	assert.False(t, b.Channel.IsAlias())
}

func TestGetOrCreateBindingPremiumIgnoresQuota(t *testing.T) {
	svc, st, client, user := fixture(t, PolicyAlias, core.PlanYearly)

	for i := 0; i < 5; i++ {
		require.NoError(t, st.CreateAlias(context.Background(), &core.Alias{
			ID: "a" + string(rune('1'+i)), UserID: user.ID,
			Email: "x" + string(rune('1'+i)) + "@mail.test", Enabled: true,
			CreatedAt: time.Now(),
		}))
	}

	b, err := svc.GetOrCreateBinding(context.Background(), client, user)
	require.NoError(t, err)
	assert.True(t, b.Channel.IsAlias())
}

// Two concurrent first authorizations must converge on one binding.
func TestGetOrCreateBindingConcurrent(t *testing.T) {
	svc, _, client, user := fixture(t, PolicyAlias, core.PlanMonthly)

	const n = 16
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.GetOrCreateBinding(context.Background(), client, user)
			if err != nil {
				t.Error(err)
				return
			}
			ids <- b.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "all callers must see the same binding")
}
