// Package account covers the user-facing lifecycle around the broker:
// registration and activation, login, password reset, promo redemption,
// alias management and the profile view with billing data.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/mailveil/internal/audit"
	"github.com/dropDatabas3/mailveil/internal/billing"
	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/metrics"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/security/password"
	"github.com/dropDatabas3/mailveil/internal/security/token"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/google/uuid"
)

const (
	verificationTTL = time.Hour
	verifCodeBytes  = 32
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotActivated       = errors.New("account not activated")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrQuotaExceeded      = errors.New("alias quota exceeded")
	ErrUnknownPromo       = errors.New("unknown promo code")
	ErrPromoRedeemed      = errors.New("promo code already redeemed")
	ErrForbidden          = errors.New("not the owner")
)

// Profile is the account view: the user plus derived billing/plan facts.
type Profile struct {
	User          *core.User
	AliasCount    int
	PromptUpgrade bool
	// PremiumPeriodEnd is set for paying users with a live subscription.
	PremiumPeriodEnd *time.Time
}

type Service interface {
	// Register creates an inactive user and returns the activation code to
	// be delivered out of band.
	Register(ctx context.Context, email, name, plain string) (*core.User, string, error)
	// Activate consumes an activation code.
	Activate(ctx context.Context, code string) error
	// Login authenticates an activated user.
	Login(ctx context.Context, email, plain string) (*core.User, error)
	// RequestPasswordReset returns a reset code for the account, delivered
	// out of band. Unknown emails return ErrInvalidCredentials so callers
	// can avoid account enumeration if they choose to.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	// ResetPassword consumes a reset code and replaces the password.
	ResetPassword(ctx context.Context, code, newPlain string) error

	Get(ctx context.Context, userID string) (*Profile, error)
	RedeemPromo(ctx context.Context, userID, code string) error

	CreateAlias(ctx context.Context, userID string) (*core.Alias, error)
	ListAliases(ctx context.Context, userID string) ([]core.Alias, error)
	SetAliasEnabled(ctx context.Context, userID, aliasID string, enabled bool) error
}

type Deps struct {
	Repo    core.Repository
	Ident   *ident.Generator
	Plans   plan.Evaluator
	Billing billing.Provider // optional
	Hashing password.Params
	// Promos maps known promo codes to the trial extension they grant.
	Promos map[string]time.Duration
}

type service struct {
	d Deps
}

func NewService(d Deps) Service {
	if d.Hashing == (password.Params{}) {
		d.Hashing = password.Default
	}
	return &service{d: d}
}

func (s *service) Register(ctx context.Context, email, name, plain string) (*core.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phc, err := password.Hash(s.d.Hashing, plain)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: phc,
		Plan:         core.PlanFree,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.d.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	code, err := s.issueVerification(ctx, u.ID, core.VerifyActivate)
	if err != nil {
		return nil, "", err
	}

	logger.From(ctx).Info("user registered", logger.UserID(u.ID), logger.Email(email))
	return u, code, nil
}

func (s *service) Activate(ctx context.Context, code string) error {
	v, err := s.consumeVerification(ctx, core.VerifyActivate, code)
	if err != nil {
		return err
	}
	u, err := s.d.Repo.GetUserByID(ctx, v.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	u.Activated = true
	if err := s.d.Repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	logger.From(ctx).Info("account activated", logger.UserID(u.ID))
	return nil
}

func (s *service) Login(ctx context.Context, email, plain string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.d.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !password.Verify(plain, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.Activated {
		return nil, ErrNotActivated
	}
	audit.Log(ctx, "user.login", logger.UserID(u.ID), logger.Email(email))
	return u, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.d.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	return s.issueVerification(ctx, u.ID, core.VerifyReset)
}

func (s *service) ResetPassword(ctx context.Context, code, newPlain string) error {
	v, err := s.consumeVerification(ctx, core.VerifyReset, code)
	if err != nil {
		return err
	}
	phc, err := password.Hash(s.d.Hashing, newPlain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u, err := s.d.Repo.GetUserByID(ctx, v.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	u.PasswordHash = phc
	if err := s.d.Repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	audit.Log(ctx, "user.password_reset", logger.UserID(u.ID))
	return nil
}

func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.d.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	count, err := s.d.Repo.CountAliasesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count aliases: %w", err)
	}

	p := &Profile{
		User:          u,
		AliasCount:    count,
		PromptUpgrade: s.d.Plans.ShouldPromptUpgrade(u),
	}
	if u.Plan.Premium() && s.d.Billing != nil && u.StripeSubscriptionID != nil {
		end, err := s.d.Billing.PeriodEnd(ctx, *u.StripeSubscriptionID)
		if err != nil {
			// Dato de display; no bloquea la vista de cuenta.
			logger.From(ctx).Warn("period end unavailable", logger.UserID(u.ID), logger.Err(err))
		} else {
			p.PremiumPeriodEnd = &end
		}
	}
	return p, nil
}

func (s *service) RedeemPromo(ctx context.Context, userID, code string) error {
	ext, ok := s.d.Promos[code]
	if !ok {
		return ErrUnknownPromo
	}
	u, err := s.d.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	for _, redeemed := range u.RedeemedPromoCodes() {
		if redeemed == code {
			return ErrPromoRedeemed
		}
	}

	// El promo extiende (o inicia) un trial premium.
	base := time.Now().UTC()
	if u.Plan == core.PlanTrial && u.PlanExpiration != nil && u.PlanExpiration.After(base) {
		base = *u.PlanExpiration
	}
	exp := base.Add(ext)
	if !u.Plan.Premium() {
		u.Plan = core.PlanTrial
		u.PlanExpiration = &exp
	}
	u.RedeemPromoCode(code)

	if err := s.d.Repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("redeem promo: %w", err)
	}
	logger.From(ctx).Info("promo redeemed", logger.UserID(userID), logger.String("promo", code))
	return nil
}

func (s *service) CreateAlias(ctx context.Context, userID string) (*core.Alias, error) {
	u, err := s.d.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	count, err := s.d.Repo.CountAliasesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count aliases: %w", err)
	}
	if !s.d.Plans.CanCreateAlias(u, count) {
		metrics.QuotaDenials.Inc()
		return nil, ErrQuotaExceeded
	}

	email, err := s.d.Ident.Generate(ctx, ident.KindAlias, "")
	if err != nil {
		return nil, fmt.Errorf("generate alias: %w", err)
	}
	a := &core.Alias{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.d.Repo.CreateAlias(ctx, a); err != nil {
		return nil, fmt.Errorf("persist alias: %w", err)
	}
	metrics.AliasesCreated.Inc()
	logger.From(ctx).Info("alias created", logger.UserID(userID), logger.AliasID(a.ID))
	return a, nil
}

func (s *service) ListAliases(ctx context.Context, userID string) ([]core.Alias, error) {
	return s.d.Repo.ListAliasesByUser(ctx, userID)
}

func (s *service) SetAliasEnabled(ctx context.Context, userID, aliasID string, enabled bool) error {
	a, err := s.d.Repo.GetAliasByID(ctx, aliasID)
	if err != nil {
		return fmt.Errorf("lookup alias: %w", err)
	}
	if a.UserID != userID {
		return ErrForbidden
	}
	return s.d.Repo.SetAliasEnabled(ctx, aliasID, enabled)
}

func (s *service) issueVerification(ctx context.Context, userID string, kind core.VerificationCodeKind) (string, error) {
	raw, err := token.GenerateOpaque(verifCodeBytes)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	now := time.Now().UTC()
	v := &core.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		CodeHash:  token.SHA256Base64URL(raw),
		ExpiresAt: now.Add(verificationTTL),
		CreatedAt: now,
	}
	if err := s.d.Repo.CreateVerificationCode(ctx, v); err != nil {
		return "", fmt.Errorf("persist verification code: %w", err)
	}
	return raw, nil
}

func (s *service) consumeVerification(ctx context.Context, kind core.VerificationCodeKind, raw string) (*core.VerificationCode, error) {
	v, err := s.d.Repo.ConsumeVerificationCode(ctx, kind, token.SHA256Base64URL(raw), time.Now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("consume verification code: %w", err)
	}
	return v, nil
}
