package pg

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

const clientCols = `id, client_id, client_secret, name, home_url, published, user_id, icon_path, created_at`

func scanClient(row interface{ Scan(...any) error }) (*core.Client, error) {
	var c core.Client
	err := row.Scan(&c.ID, &c.ClientID, &c.ClientSecret, &c.Name, &c.HomeURL,
		&c.Published, &c.UserID, &c.IconPath, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	const q = `
		INSERT INTO clients (id, client_id, client_secret, name, home_url, published, user_id, icon_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.db.Exec(ctx, q, c.ID, c.ClientID, c.ClientSecret, c.Name, c.HomeURL,
		c.Published, c.UserID, c.IconPath, c.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetClientByID(ctx context.Context, id string) (*core.Client, error) {
	return scanClient(s.db.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
}

func (s *Store) GetClientByClientID(ctx context.Context, clientID string) (*core.Client, error) {
	return scanClient(s.db.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE client_id = $1`, clientID))
}

func (s *Store) ListClientsByUser(ctx context.Context, userID string) ([]core.Client, error) {
	rows, err := s.db.Query(ctx, `SELECT `+clientCols+` FROM clients WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ID, &c.ClientID, &c.ClientSecret, &c.Name, &c.HomeURL,
			&c.Published, &c.UserID, &c.IconPath, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddRedirectURI(ctx context.Context, r *core.RedirectURI) error {
	const q = `INSERT INTO redirect_uris (id, client_id, uri) VALUES ($1,$2,$3)`
	_, err := s.db.Exec(ctx, q, r.ID, r.ClientID, r.URI)
	return mapErr(err)
}

func (s *Store) ListRedirectURIs(ctx context.Context, clientID string) ([]core.RedirectURI, error) {
	rows, err := s.db.Query(ctx, `SELECT id, client_id, uri FROM redirect_uris WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RedirectURI
	for rows.Next() {
		var r core.RedirectURI
		if err := rows.Scan(&r.ID, &r.ClientID, &r.URI); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
