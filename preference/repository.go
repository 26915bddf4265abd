package preference

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user has no saved preferences.
var ErrNotFound = errors.New("preference: not found")

// Repository stores preferences in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the saved preferences of userID.
func (r *Repository) Get(ctx context.Context, userID string) (Preferences, error) {
	const query = `
		SELECT user_id::text, favorite_tip_ids, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`
	var p Preferences
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FavoriteTipIDs, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, fmt.Errorf("preference: get: %w", err)
	}
	return p, nil
}

// Save upserts the preferences.
func (r *Repository) Save(ctx context.Context, p Preferences) (Preferences, error) {
	const query = `
		INSERT INTO user_preferences (user_id, favorite_tip_ids)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET favorite_tip_ids = EXCLUDED.favorite_tip_ids,
		    updated_at = NOW()
		RETURNING user_id::text, favorite_tip_ids, updated_at
	`
	var stored Preferences
	err := r.pool.QueryRow(ctx, query, p.UserID, p.FavoriteTipIDs).
		Scan(&stored.UserID, &stored.FavoriteTipIDs, &stored.UpdatedAt)
	if err != nil {
		return Preferences{}, fmt.Errorf("preference: save: %w", err)
	}
	return stored, nil
}
