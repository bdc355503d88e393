// Package meta is a small name/value store for client housekeeping data:
// the loaded catalog version, cached offline-login credentials, and the
// persisted session tokens.
package meta

import "context"

// Well-known metadata keys.
const (
	KeyCatalogVersion = "catalog_version"
	KeyOfflineAuth    = "offline_auth"
	KeySession        = "session"
)

type Repository interface {
	// Get returns the value for name or common.ErrorNotFound.
	Get(ctx context.Context, name string) (string, error)
	// Set upserts the value for name.
	Set(ctx context.Context, name, value string) error
	// Delete removes the entry. Missing entries are not an error.
	Delete(ctx context.Context, name string) error
}
