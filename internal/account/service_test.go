package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/security/password"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHashing = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(Deps{
		Repo:    st,
		Ident:   ident.New(ident.StoreAuthority{Repo: st}, "mail.test"),
		Plans:   plan.Evaluator{FreeAliasLimit: 2},
		Hashing: testHashing,
		Promos:  map[string]time.Duration{"WELCOME30": 30 * 24 * time.Hour},
	})
	return svc, st
}

func register(t *testing.T, svc Service) (*core.User, string) {
	t.Helper()
	u, code, err := svc.Register(context.Background(), "Ada@Real.Test", "Ada", "hunter2hunter2")
	require.NoError(t, err)
	return u, code
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newService(t)
	u, code := register(t, svc)

	assert.Equal(t, "ada@real.test", u.Email)
	assert.Equal(t, core.PlanFree, u.Plan)
	assert.False(t, u.Activated)
	assert.NotEmpty(t, code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc)

	_, _, err := svc.Register(context.Background(), "ada@real.test", "Other", "p4ssw0rdp4ss")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRequiresActivation(t *testing.T) {
	svc, _ := newService(t)
	_, code := register(t, svc)

	_, err := svc.Login(context.Background(), "ada@real.test", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrNotActivated)

	require.NoError(t, svc.Activate(context.Background(), code))

	u, err := svc.Login(context.Background(), "ada@real.test", "hunter2hunter2")
	require.NoError(t, err)
	assert.True(t, u.Activated)
}

func TestActivationCodeSingleUse(t *testing.T) {
	svc, _ := newService(t)
	_, code := register(t, svc)

	require.NoError(t, svc.Activate(context.Background(), code))
	assert.ErrorIs(t, svc.Activate(context.Background(), code), ErrInvalidCode)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(t)
	_, code := register(t, svc)
	require.NoError(t, svc.Activate(context.Background(), code))

	_, err := svc.Login(context.Background(), "ada@real.test", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newService(t)
	_, code := register(t, svc)
	require.NoError(t, svc.Activate(context.Background(), code))

	reset, err := svc.RequestPasswordReset(context.Background(), "ada@real.test")
	require.NoError(t, err)
	require.NoError(t, svc.ResetPassword(context.Background(), reset, "n3w-p4ssw0rd!"))

	_, err = svc.Login(context.Background(), "ada@real.test", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "ada@real.test", "n3w-p4ssw0rd!")
	assert.NoError(t, err)
}

func TestRedeemPromoStartsTrial(t *testing.T) {
	svc, st := newService(t)
	u, _ := register(t, svc)

	require.NoError(t, svc.RedeemPromo(context.Background(), u.ID, "WELCOME30"))

	got, err := st.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanTrial, got.Plan)
	require.NotNil(t, got.PlanExpiration)
	assert.True(t, got.PlanExpiration.After(time.Now().Add(29*24*time.Hour)))

	assert.ErrorIs(t, svc.RedeemPromo(context.Background(), u.ID, "WELCOME30"), ErrPromoRedeemed)
	assert.ErrorIs(t, svc.RedeemPromo(context.Background(), u.ID, "NOPE"), ErrUnknownPromo)
}

func TestCreateAliasQuota(t *testing.T) {
	svc, _ := newService(t)
	u, _ := register(t, svc)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.CreateAlias(ctx, u.ID)
		require.NoError(t, err)
	}
	_, err := svc.CreateAlias(ctx, u.ID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	aliases, err := svc.ListAliases(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, aliases, 2)
}

func TestSetAliasEnabledOwnership(t *testing.T) {
	svc, _ := newService(t)
	u, _ := register(t, svc)
	ctx := context.Background()

	a, err := svc.CreateAlias(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetAliasEnabled(ctx, u.ID, a.ID, false))
	assert.ErrorIs(t, svc.SetAliasEnabled(ctx, "intruder", a.ID, true), ErrForbidden)
}

type fakeBilling struct {
	end time.Time
	err error
}

func (f fakeBilling) PeriodEnd(context.Context, string) (time.Time, error) { return f.end, f.err }

func TestGetProfileWithBilling(t *testing.T) {
	st := memory.New()
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(Deps{
		Repo:    st,
		Ident:   ident.New(ident.StoreAuthority{Repo: st}, "mail.test"),
		Plans:   plan.Evaluator{FreeAliasLimit: 2},
		Billing: fakeBilling{end: end},
		Hashing: testHashing,
	})

	sub := "sub_123"
	u := &core.User{ID: "u1", Email: "ada@real.test", Plan: core.PlanMonthly, StripeSubscriptionID: &sub}
	require.NoError(t, st.CreateUser(context.Background(), u))

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, p.PromptUpgrade)
	require.NotNil(t, p.PremiumPeriodEnd)
	assert.Equal(t, end, *p.PremiumPeriodEnd)
}

func TestGetProfileBillingFailureNonFatal(t *testing.T) {
	st := memory.New()
	svc := NewService(Deps{
		Repo:    st,
		Plans:   plan.Evaluator{FreeAliasLimit: 2},
		Billing: fakeBilling{err: errors.New("stripe down")},
		Hashing: testHashing,
	})

	sub := "sub_123"
	u := &core.User{ID: "u1", Email: "ada@real.test", Plan: core.PlanYearly, StripeSubscriptionID: &sub}
	require.NoError(t, st.CreateUser(context.Background(), u))

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p.PremiumPeriodEnd)
}
