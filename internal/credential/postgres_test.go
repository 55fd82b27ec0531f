package credential

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	row   fakeRow
	execs []execCall
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return f.row
}

func TestPostgresStoreGetMissing(t *testing.T) {
	store := NewPostgresStore(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}, 0)
	if _, ok, err := store.Get(context.Background(), "authToken"); err != nil || ok {
		t.Fatalf("expected missing, ok=%v err=%v", ok, err)
	}
}

func TestPostgresStoreSetWithTTL(t *testing.T) {
	db := &fakeQuerier{}
	store := NewPostgresStore(db, time.Hour)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.Set(context.Background(), "authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0].sql, "ON CONFLICT") {
		t.Fatalf("expected upsert, got %+v", db.execs)
	}
	exp, ok := db.execs[0].args[2].(*time.Time)
	if !ok || exp == nil || !exp.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("unexpected expiry arg %#v", db.execs[0].args[2])
	}
}

func TestPostgresStoreSetWithoutTTL(t *testing.T) {
	db := &fakeQuerier{}
	store := NewPostgresStore(db, 0)
	if err := store.Set(context.Background(), "authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if exp := db.execs[0].args[2].(*time.Time); exp != nil {
		t.Fatalf("expected nil expiry, got %v", exp)
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile("../../migrations/0001_credentials.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := NewPostgresStore(pool, 0)
	key := "test-" + time.Now().Format("150405.000000")
	if err := store.Set(ctx, key, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, key)
	if err != nil || !ok || val != "tok" {
		t.Fatalf("get: %q ok=%v err=%v", val, ok, err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
