package profile

import (
	"context"
	"errors"
	"strings"
)

// ErrNameRequired signals an update without a first name.
var ErrNameRequired = errors.New("profile: first name required")

// Store abstracts repository operations for the service.
type Store interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}

// Service exposes profile operations.
type Service struct {
	repo Store
}

// NewService builds a Service using the provided repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Get returns the profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetByID(ctx, userID)
}

// Update replaces the editable fields. The avatar is kept when the request
// leaves it out.
func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (Profile, error) {
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return Profile{}, ErrNameRequired
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	next := Profile{
		ID:        userID,
		FullName:  strings.TrimSpace(first + " " + strings.TrimSpace(req.LastName)),
		AvatarURL: current.AvatarURL,
	}
	if req.AvatarURL != nil {
		next.AvatarURL = req.AvatarURL
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		next.Phone = &phone
	}
	return s.repo.Upsert(ctx, next)
}
