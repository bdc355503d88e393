// Package api defines the JSON wire types exchanged between the tracker
// client and the companion server. Both sides import this package so the
// contract lives in one place.
package api

import "encoding/json"

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse carries a freshly minted token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Operation is one queued client mutation in wire form: the queue item id,
// the operation type tag, and the type's JSON payload.
type Operation struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SyncRequest pushes a batch of operations in replay order.
type SyncRequest struct {
	Operations []Operation `json:"operations"`
}

// OperationResult reports the outcome of applying one operation.
type OperationResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SyncResponse mirrors SyncRequest order: one result per pushed operation.
type SyncResponse struct {
	Results []OperationResult `json:"results"`
}

// ErrorResponse is the uniform error body for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	CacheEntries  int    `json:"cacheEntries"`
}

// MetricsResponse is returned by GET /metrics.
type MetricsResponse struct {
	ContentRequests int64 `json:"contentRequests"`
	CacheHits       int64 `json:"cacheHits"`
	CacheMisses     int64 `json:"cacheMisses"`
	UpstreamFetches int64 `json:"upstreamFetches"`
	Errors          int64 `json:"errors"`
	SyncRequests    int64 `json:"syncRequests"`
	SyncOperations  int64 `json:"syncOperations"`
}

// CacheStatsResponse is returned by the admin cache endpoints.
type CacheStatsResponse struct {
	Entries int      `json:"entries"`
	Keys    []string `json:"keys"`
}

// PublishURLResponse carries a presigned upload URL for a content bundle.
type PublishURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
