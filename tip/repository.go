package tip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals no tip exists for the requested date.
var ErrNotFound = errors.New("tip: not found")

// PGRepository stores tips in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `id::text, title, category, content, display_date, created_at`

// GetByDate returns the tip displayed on day.
func (r *PGRepository) GetByDate(ctx context.Context, day time.Time) (Tip, error) {
	t, err := scanTip(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM tips WHERE display_date = $1`, Day(day)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tip{}, ErrNotFound
		}
		return Tip{}, fmt.Errorf("tip: get by date: %w", err)
	}
	return t, nil
}

// Insert stores the tip unless one already exists for its date. It reports
// whether this call created the row.
func (r *PGRepository) Insert(ctx context.Context, t Tip) (bool, error) {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return false, fmt.Errorf("tip: marshal content: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO tips (title, category, content, display_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (display_date) DO NOTHING
	`, t.Title, t.Category, content, Day(t.DisplayDate))
	if err != nil {
		return false, fmt.Errorf("tip: insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns up to limit tips, most recent day first.
func (r *PGRepository) List(ctx context.Context, limit int) ([]Tip, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM tips ORDER BY display_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("tip: list: %w", err)
	}
	defer rows.Close()

	out := make([]Tip, 0, limit)
	for rows.Next() {
		t, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("tip: scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tip: iterate: %w", err)
	}
	return out, nil
}

func scanTip(row pgx.Row) (Tip, error) {
	var (
		t   Tip
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Category, &raw, &t.DisplayDate, &t.CreatedAt); err != nil {
		return Tip{}, err
	}
	if err := json.Unmarshal(raw, &t.Content); err != nil {
		return Tip{}, fmt.Errorf("tip: decode content of %s: %w", t.ID, err)
	}
	return t, nil
}
