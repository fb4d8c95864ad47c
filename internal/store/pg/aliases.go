package pg

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

func (s *Store) CreateAlias(ctx context.Context, a *core.Alias) error {
	const q = `
		INSERT INTO aliases (id, user_id, email, enabled, created_at)
		VALUES ($1,$2,$3,$4,$5)`
	_, err := s.db.Exec(ctx, q, a.ID, a.UserID, a.Email, a.Enabled, a.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetAliasByID(ctx context.Context, id string) (*core.Alias, error) {
	const q = `SELECT id, user_id, email, enabled, created_at FROM aliases WHERE id = $1`
	var a core.Alias
	err := s.db.QueryRow(ctx, q, id).Scan(&a.ID, &a.UserID, &a.Email, &a.Enabled, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) ListAliasesByUser(ctx context.Context, userID string) ([]core.Alias, error) {
	const q = `
		SELECT id, user_id, email, enabled, created_at
		FROM aliases WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Alias
	for rows.Next() {
		var a core.Alias
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email, &a.Enabled, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAliasesByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM aliases WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (s *Store) SetAliasEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE aliases SET enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
