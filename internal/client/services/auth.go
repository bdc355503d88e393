package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/meta"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/cryptox"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// offlineAuth is the locally cached credential verifier written after a
// successful online login so the user can unlock the tracker without the
// server.
type offlineAuth struct {
	Username string `json:"username"`
	Salt     string `json:"salt"`     // hex
	Verifier string `json:"verifier"` // hex
}

type AuthService interface {
	// Register creates an account on the companion server.
	Register(ctx context.Context, username, password string) error
	// Login authenticates online, persists the session and caches the
	// credentials for offline login.
	Login(ctx context.Context, username, password string) error
	// LoginOffline verifies the password against the locally cached
	// credentials. No session results; queued operations wait for an
	// online login.
	LoginOffline(ctx context.Context, username, password string) error
	// Refresh rotates the persisted session's token pair.
	Refresh(ctx context.Context) error
	// Logout discards the persisted session. Cached offline credentials
	// survive so offline login keeps working.
	Logout(ctx context.Context) error
	// Session returns the persisted session or nil when logged out.
	Session(ctx context.Context) (*client.Session, error)

	TokenSource
}

type authService struct {
	client client.Client
	meta   meta.Repository
	log    logging.Logger
}

func NewAuthService(cl client.Client, metaRepo meta.Repository, log logging.Logger) AuthService {
	return &authService{client: cl, meta: metaRepo, log: log.With("component", "auth")}
}

func (s *authService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}
	return s.client.Register(ctx, username, password)
}

func (s *authService) Login(ctx context.Context, username, password string) error {
	session, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := s.saveSession(ctx, session); err != nil {
		return err
	}
	if err := s.cacheOfflineAuth(ctx, username, password); err != nil {
		// losing the offline cache is not fatal for the login itself
		s.log.Warn(ctx, "caching offline credentials failed", "error", err)
	}
	s.log.Info(ctx, "logged in", "username", username)
	return nil
}

func (s *authService) LoginOffline(ctx context.Context, username, password string) error {
	raw, err := s.meta.Get(ctx, meta.KeyOfflineAuth)
	if errors.Is(err, common.ErrorNotFound) {
		return client.ErrLocalDataNotAvailable
	} else if err != nil {
		return fmt.Errorf("loading offline credentials: %w", err)
	}

	var cached offlineAuth
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return fmt.Errorf("decoding offline credentials: %w", err)
	}
	if cached.Username != username {
		return client.ErrUnauthorized
	}

	salt, err := hex.DecodeString(cached.Salt)
	if err != nil {
		return fmt.Errorf("decoding salt: %w", err)
	}
	verifier, err := hex.DecodeString(cached.Verifier)
	if err != nil {
		return fmt.Errorf("decoding verifier: %w", err)
	}

	pw := []byte(password)
	defer cryptox.WipeByteArray(pw)
	if !cryptox.VerifyPassword(pw, salt, verifier) {
		return client.ErrUnauthorized
	}

	s.log.Info(ctx, "offline login succeeded", "username", username)
	return nil
}

func (s *authService) Refresh(ctx context.Context) error {
	session, err := s.Session(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return client.ErrUnauthorized
	}

	fresh, err := s.client.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return err
	}
	return s.saveSession(ctx, fresh)
}

func (s *authService) Logout(ctx context.Context) error {
	if err := s.meta.Delete(ctx, meta.KeySession); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.log.Info(ctx, "logged out")
	return nil
}

func (s *authService) Session(ctx context.Context) (*client.Session, error) {
	raw, err := s.meta.Get(ctx, meta.KeySession)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var session client.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

// AccessToken implements TokenSource. An empty token means logged out.
func (s *authService) AccessToken(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil || session == nil {
		return "", err
	}
	return session.AccessToken, nil
}

func (s *authService) saveSession(ctx context.Context, session *client.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.meta.Set(ctx, meta.KeySession, string(b)); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

func (s *authService) cacheOfflineAuth(ctx context.Context, username, password string) error {
	salt := common.GenerateRandByteArray(16)

	pw := []byte(password)
	defer cryptox.WipeByteArray(pw)

	cached := offlineAuth{
		Username: username,
		Salt:     hex.EncodeToString(salt),
		Verifier: hex.EncodeToString(cryptox.HashPassword(pw, salt)),
	}
	b, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.meta.Set(ctx, meta.KeyOfflineAuth, string(b))
}
