package model

import "time"

// Identity is the authenticated user behind a session.
type Identity struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	SessionID string    `json:"-"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Present reports whether the identity carries a user.
func (i Identity) Present() bool {
	return i.UserID != ""
}
