// Package models defines the companion server's storage types.
package models

import "time"

// Account is a registered sync account. The password is stored as an
// argon2id verifier with a per-account salt; the plaintext never touches
// the database.
type Account struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
