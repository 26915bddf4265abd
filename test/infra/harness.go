package infra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Harness owns a migrated, schema-isolated database for one test.
type Harness struct {
	container *PGContainer
	pool      *pgxpool.Pool
	teardown  func(context.Context) error
}

// NewHarness reuses CONCORDA_TEST_PG_DSN or DATABASE_URL when set and
// otherwise boots a container. The test is skipped when neither works.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres harness skipped in -short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, dsn, err := StartPostgres16(ctx, "")
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	pool, teardown, err := ApplyMigrations(ctx, dsn, true)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("apply migrations: %v", err)
	}

	h := &Harness{container: container, pool: pool, teardown: teardown}
	t.Cleanup(func() { h.Close(context.Background()) })
	return h
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) {
	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
	if h.teardown != nil {
		_ = h.teardown(ctx)
		h.teardown = nil
	}
	if h.container != nil {
		_ = h.container.Terminate(ctx)
		h.container = nil
	}
}

// Reset truncates mutable tables to provide a clean slate.
func (h *Harness) Reset(ctx context.Context) error {
	tables := []string{
		"agreement_rules",
		"agreement_participants",
		"agreements",
		"tips",
		"user_preferences",
		"profiles",
		"users",
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reset begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, tbl := range tables {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+tbl+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", tbl, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reset commit: %w", err)
	}
	return nil
}

// SeedUser inserts a bare user row and returns its id.
func (h *Harness) SeedUser(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := h.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`,
		id, fmt.Sprintf("%s@concorda.test", id),
	)
	if err != nil {
		return "", fmt.Errorf("seed user: %w", err)
	}
	return id, nil
}
