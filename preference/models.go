package preference

import "time"

// Preferences are the explicit per-user settings that outlive a session.
type Preferences struct {
	UserID         string    `json:"user_id"`
	FavoriteTipIDs []string  `json:"favorite_tip_ids"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Defaults returns the preferences of a user who never saved any.
func Defaults(userID string) Preferences {
	return Preferences{UserID: userID, FavoriteTipIDs: []string{}}
}

// IsFavorite reports whether tipID is among the favorites.
func (p Preferences) IsFavorite(tipID string) bool {
	for _, id := range p.FavoriteTipIDs {
		if id == tipID {
			return true
		}
	}
	return false
}
