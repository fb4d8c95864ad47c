package core

import (
	"strings"
	"time"
)

// Plan es el plan de suscripción de un usuario.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanTrial   Plan = "trial"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// Premium reports whether the plan has no alias quota ceiling.
func (p Plan) Premium() bool { return p == PlanMonthly || p == PlanYearly }

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanTrial, PlanMonthly, PlanYearly:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	Activated    bool

	Plan Plan
	// PlanExpiration is meaningful only while Plan == trial.
	PlanExpiration *time.Time

	StripeCustomerID     *string
	StripeSubscriptionID *string

	// ProfilePicturePath is an object-storage path, resolved to a URL on read.
	ProfilePicturePath *string

	// PromoCodes holds the promo codes the user has redeemed, comma-separated.
	PromoCodes string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// RedeemedPromoCodes returns the promo codes already used by the user.
func (u *User) RedeemedPromoCodes() []string {
	if u.PromoCodes == "" {
		return nil
	}
	return strings.Split(u.PromoCodes, ",")
}

// RedeemPromoCode appends a promo code to the user's redeemed list.
func (u *User) RedeemPromoCode(code string) {
	codes := append(u.RedeemedPromoCodes(), code)
	u.PromoCodes = strings.Join(codes, ",")
}

// Alias is a generated email address owned by exactly one user.
// Alias emails are globally unique across all users.
type Alias struct {
	ID        string
	UserID    string
	Email     string
	Enabled   bool
	CreatedAt time.Time
}

// Client is an OAuth-style relying party.
type Client struct {
	ID           string
	ClientID     string
	ClientSecret string
	Name         string
	HomeURL      string
	Published    bool
	UserID       string // owner
	IconPath     *string
	CreatedAt    time.Time
}

type RedirectURI struct {
	ID       string
	ClientID string
	URI      string
}

// DisclosureChannel says which email a client sees for a user:
// a generated alias or the user's real address. It replaces the
// null-foreign-key convention with an explicit variant.
type DisclosureChannel struct {
	aliasID string
}

// DiscloseAlias builds a channel that discloses the given alias.
func DiscloseAlias(aliasID string) DisclosureChannel {
	return DisclosureChannel{aliasID: aliasID}
}

// DiscloseRealEmail builds a channel that discloses the real address.
func DiscloseRealEmail() DisclosureChannel {
	return DisclosureChannel{}
}

// AliasID returns the referenced alias id and whether the channel is an alias.
func (d DisclosureChannel) AliasID() (string, bool) {
	return d.aliasID, d.aliasID != ""
}

// IsAlias reports whether the channel discloses a generated alias.
func (d DisclosureChannel) IsAlias() bool { return d.aliasID != "" }

// ConsentBinding is the persistent (client, user) association created at
// first authorization. At most one binding exists per pair.
type ConsentBinding struct {
	ID        string
	ClientID  string // Client.ID, not the public client_id
	UserID    string
	Channel   DisclosureChannel
	CreatedAt time.Time
}

// AuthorizationCode is single-use and time-bounded. Only the SHA-256 digest
// of the code is stored.
type AuthorizationCode struct {
	ID          string
	CodeHash    string
	ClientID    string
	UserID      string
	Scope       string
	RedirectURI string
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
	CreatedAt   time.Time
}

// Expired reports whether the code's validity window has passed.
func (c *AuthorizationCode) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// AccessToken is the longer-lived opaque credential issued at exchange.
// Only the SHA-256 digest of the token is stored.
type AccessToken struct {
	ID          string
	TokenHash   string
	ClientID    string
	UserID      string
	Scope       string
	RedirectURI string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Usable reports whether the token is neither expired nor revoked.
func (t *AccessToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// VerificationCodeKind distinguishes account-activation codes from
// password-reset codes.
type VerificationCodeKind string

const (
	VerifyActivate VerificationCodeKind = "activate"
	VerifyReset    VerificationCodeKind = "reset"
)

// VerificationCode covers account activation and password reset. Valid for
// a short window (1h in the default wiring).
type VerificationCode struct {
	ID        string
	UserID    string
	Kind      VerificationCodeKind
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
