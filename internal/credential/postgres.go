package credential

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the subset of *pgxpool.Pool used by PostgresStore.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps values in the credentials table.
type PostgresStore struct {
	db  PgxQuerier
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore wraps db. A zero ttl keeps values until deleted.
func NewPostgresStore(db PgxQuerier, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `
        SELECT value FROM credentials
        WHERE key=$1 AND (expires_at IS NULL OR expires_at > $2)`
	var value string
	err := s.db.QueryRow(ctx, query, key, s.now()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO credentials (key, value, expires_at, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=NOW()`
	var expiresAt *time.Time
	if s.ttl > 0 {
		exp := s.now().Add(s.ttl)
		expiresAt = &exp
	}
	_, err := s.db.Exec(ctx, query, key, value, expiresAt)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM credentials WHERE key=$1`
	_, err := s.db.Exec(ctx, query, key)
	return err
}
