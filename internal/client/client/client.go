// Package client provides the API client the tracker uses to reach the
// companion server, plus local database bootstrap.
package client

import (
	"context"
	"encoding/json"

	"github.com/sciencehabits/sciencehabits/internal/api"
)

// Session is an authenticated token pair returned by Login/Refresh.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client is the remote surface of the companion server as seen from the
// tracker. Implementations must be safe for concurrent use.
type Client interface {
	Close() error
	// Ping checks server liveness; a nil error means "online".
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// PushOps uploads queued operations in replay order and returns one
	// result per operation.
	PushOps(ctx context.Context, accessToken string, ops []api.Operation) ([]api.OperationResult, error)
	// FetchContent downloads a catalog document (habits, research, ...) for
	// a language.
	FetchContent(ctx context.Context, contentType, language string) (json.RawMessage, error)
}
