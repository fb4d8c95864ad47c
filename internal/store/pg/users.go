package pg

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

const userCols = `id, email, name, password_hash, is_admin, activated, plan, plan_expiration,
	stripe_customer_id, stripe_subscription_id, profile_picture_path, promo_codes, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.Activated,
		&u.Plan, &u.PlanExpiration, &u.StripeCustomerID, &u.StripeSubscriptionID,
		&u.ProfilePicturePath, &u.PromoCodes, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	const q = `
		INSERT INTO users (id, email, name, password_hash, is_admin, activated, plan, plan_expiration,
			stripe_customer_id, stripe_subscription_id, profile_picture_path, promo_codes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := s.db.Exec(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash, u.IsAdmin, u.Activated,
		u.Plan, u.PlanExpiration, u.StripeCustomerID, u.StripeSubscriptionID,
		u.ProfilePicturePath, u.PromoCodes, u.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	const q = `
		UPDATE users SET name = $2, password_hash = $3, is_admin = $4, activated = $5,
			plan = $6, plan_expiration = $7, stripe_customer_id = $8, stripe_subscription_id = $9,
			profile_picture_path = $10, promo_codes = $11, updated_at = NOW()
		WHERE id = $1`
	tag, err := s.db.Exec(ctx, q, u.ID, u.Name, u.PasswordHash, u.IsAdmin, u.Activated,
		u.Plan, u.PlanExpiration, u.StripeCustomerID, u.StripeSubscriptionID,
		u.ProfilePicturePath, u.PromoCodes)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
