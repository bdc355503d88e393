package models

import "time"

// RefreshToken is one opaque rotating token. A token is deleted the moment
// it is exchanged; presenting it twice fails.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}
