package profile

import (
	"context"
	"errors"
	"testing"
)

func TestService_UpdateComposesName(t *testing.T) {
	avatar := "https://cdn.example/ana.png"
	repo := &fakeStore{rows: map[string]Profile{
		"u1": {ID: "u1", Email: "ana@example.com", FullName: "Ana", AvatarURL: &avatar},
	}}
	svc := NewService(repo)

	got, err := svc.Update(context.Background(), "u1", UpdateRequest{FirstName: " Ana ", LastName: "Souza Lima", Phone: " 1199 "})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.FullName != "Ana Souza Lima" {
		t.Fatalf("unexpected full name %q", got.FullName)
	}
	if got.Phone == nil || *got.Phone != "1199" {
		t.Fatalf("phone not trimmed: %v", got.Phone)
	}
	if got.AvatarURL == nil || *got.AvatarURL != avatar {
		t.Fatalf("avatar dropped on update")
	}
	if got.FirstName() != "Ana" {
		t.Fatalf("unexpected first name %q", got.FirstName())
	}
	if got.Email != "ana@example.com" {
		t.Fatalf("email changed: %q", got.Email)
	}
}

func TestService_UpdateRequiresFirstName(t *testing.T) {
	svc := NewService(&fakeStore{rows: map[string]Profile{}})
	if _, err := svc.Update(context.Background(), "u1", UpdateRequest{LastName: "Souza"}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestService_GetMissing(t *testing.T) {
	svc := NewService(&fakeStore{rows: map[string]Profile{}})
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfile_FirstNameSingleWord(t *testing.T) {
	if got := (Profile{FullName: "Beto"}).FirstName(); got != "Beto" {
		t.Fatalf("got %q", got)
	}
	if got := (Profile{}).FirstName(); got != "" {
		t.Fatalf("got %q", got)
	}
}

type fakeStore struct {
	rows map[string]Profile
}

func (f *fakeStore) GetByID(_ context.Context, id string) (Profile, error) {
	p, ok := f.rows[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) Upsert(_ context.Context, p Profile) (Profile, error) {
	if existing, ok := f.rows[p.ID]; ok {
		p.Email = existing.Email
		p.CreatedAt = existing.CreatedAt
	}
	f.rows[p.ID] = p
	return p, nil
}
