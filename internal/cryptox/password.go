// Package cryptox provides password hashing and verification built on
// argon2id. The same derivation runs on the client (for offline login
// against locally cached credentials) and on the server (for stored
// password verifiers).
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Changing them invalidates stored verifiers, so bump
// them only together with a credential migration.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// HashPassword derives a fixed-length verifier from a password and salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword reports whether the candidate password matches the stored
// verifier, in constant time.
func VerifyPassword(password, salt, verifier []byte) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}

// WipeByteArray overwrites the contents of b with zeros. Useful for clearing
// passwords from memory after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
