package profile

import "time"

// Profile is the public face of an account.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirstName returns the first word of the full name, or "" when unnamed.
func (p Profile) FirstName() string {
	for i, r := range p.FullName {
		if r == ' ' {
			return p.FullName[:i]
		}
	}
	return p.FullName
}

// UpdateRequest is the editable part of a profile.
type UpdateRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}
