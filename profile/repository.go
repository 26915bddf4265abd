package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested profile does not exist.
var ErrNotFound = errors.New("profile: not found")

// Repository provides access to profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id::text, email, full_name, avatar_url, phone, created_at, updated_at`

// GetByID fetches a profile by its user id.
func (r *Repository) GetByID(ctx context.Context, id string) (Profile, error) {
	p, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("profile: query by id: %w", err)
	}
	return p, nil
}

// Upsert writes the profile, creating it when missing. The email is taken
// from the users row so it cannot drift.
func (r *Repository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	const query = `
		INSERT INTO profiles (id, email, full_name, avatar_url, phone)
		SELECT u.id, u.email, $2, $3, $4 FROM users u WHERE u.id = $1
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    avatar_url = EXCLUDED.avatar_url,
		    phone = EXCLUDED.phone,
		    updated_at = NOW()
		RETURNING ` + columns

	stored, err := scan(r.pool.QueryRow(ctx, query, p.ID, p.FullName, p.AvatarURL, p.Phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("profile: upsert: %w", err)
	}
	return stored, nil
}

func scan(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
