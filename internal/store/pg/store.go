// Package pg implements core.Repository on PostgreSQL via pgx.
// Uniqueness constraints in the schema are the authority of record for
// every identifier space; races surface as core.ErrConflict.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier abstrae pool y tx: ambos implementan Exec/Query/QueryRow.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   querier
	pool *pgxpool.Pool // nil when transaction-scoped
}

type Tuning struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, t Tuning) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if t.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(t.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if t.MaxIdleConns > 0 {
		pcfg.MinConns = int32(t.MaxIdleConns)
	}
	if t.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(t.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: pool, pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithinTx runs fn against a tx-scoped Store. Commit on nil error,
// rollback otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(core.Repository) error) error {
	if s.pool == nil {
		// already inside a transaction
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	scoped := &Store{db: tx}
	if err := fn(scoped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// isUniqueViolation detecta violaciones de constraint unique (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapErr traduce errores pgx a los sentinelas de core.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return core.ErrNotFound
	case isUniqueViolation(err):
		return core.ErrConflict
	default:
		return err
	}
}

var spaceQueries = map[core.IdentifierSpace]string{
	core.SpaceAliasEmail:  `SELECT EXISTS(SELECT 1 FROM aliases WHERE email = $1)`,
	core.SpaceClientID:    `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`,
	core.SpaceAuthCode:    `SELECT EXISTS(SELECT 1 FROM authorization_codes WHERE code_hash = $1)`,
	core.SpaceAccessToken: `SELECT EXISTS(SELECT 1 FROM access_tokens WHERE token_hash = $1)`,
}

func (s *Store) IdentifierExists(ctx context.Context, space core.IdentifierSpace, value string) (bool, error) {
	q, ok := spaceQueries[space]
	if !ok {
		return false, core.ErrInvalid
	}
	var exists bool
	if err := s.db.QueryRow(ctx, q, value).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
