package preference

import (
	"context"
	"errors"
	"strings"
)

// Store persists preferences; Get returns ErrNotFound for a user who never saved.
type Store interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Save(ctx context.Context, p Preferences) (Preferences, error)
}

// Service manages per-user preferences.
type Service struct {
	repo Store
}

// NewService builds a Service over repo.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Load returns the stored preferences, or the defaults when none were saved.
func (s *Service) Load(ctx context.Context, userID string) (Preferences, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(userID), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	if p.FavoriteTipIDs == nil {
		p.FavoriteTipIDs = []string{}
	}
	return p, nil
}

// Save replaces the preferences. Favorites are trimmed and de-duplicated
// keeping first occurrence order.
func (s *Service) Save(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	p.UserID = userID
	p.FavoriteTipIDs = dedupe(p.FavoriteTipIDs)
	return s.repo.Save(ctx, p)
}

// ToggleFavorite adds tipID to the favorites or removes it when present.
func (s *Service) ToggleFavorite(ctx context.Context, userID, tipID string) (Preferences, error) {
	tipID = strings.TrimSpace(tipID)
	p, err := s.Load(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	if tipID == "" {
		return p, nil
	}

	next := make([]string, 0, len(p.FavoriteTipIDs)+1)
	removed := false
	for _, id := range p.FavoriteTipIDs {
		if id == tipID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, tipID)
	}
	p.FavoriteTipIDs = next
	return s.Save(ctx, userID, p)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
