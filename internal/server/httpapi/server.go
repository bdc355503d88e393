// Package httpapi exposes the companion server's JSON API: account auth,
// operation sync, the content edge cache and the admin cache endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/logging"
	"github.com/sciencehabits/sciencehabits/internal/server/config"
	"github.com/sciencehabits/sciencehabits/internal/server/services"
)

// Server serves the HTTP API and owns the listener lifecycle.
type Server struct {
	users   *services.UserService
	content *services.ContentService
	sync    *services.SyncService
	config  *config.Config
	log     logging.Logger

	startedAt time.Time
	httpSrv   *http.Server
}

// NewServer wires the services into a Server. Run starts it.
func NewServer(users *services.UserService, content *services.ContentService, sync *services.SyncService, cfg *config.Config, log logging.Logger) *Server {
	return &Server{
		users:   users,
		content: content,
		sync:    sync,
		config:  cfg,
		log:     log,
	}
}

// Handler builds the route table. Split from Run so tests can drive the
// mux through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)

	mux.HandleFunc("POST /api/sync", s.withAuth(s.handleSync))
	mux.HandleFunc("GET /api/{type}/{language}", s.handleContent)

	mux.HandleFunc("POST /admin/cache/clear", s.withAdminKey(s.handleCacheClear))
	mux.HandleFunc("GET /admin/cache/stats", s.withAdminKey(s.handleCacheStats))
	mux.HandleFunc("GET /admin/content/publish-url", s.withAdminKey(s.handlePublishURL))
	mux.HandleFunc("PUT /admin/content/{type}/{language}", s.withAdminKey(s.handlePublish))

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.startedAt = time.Now()
	s.httpSrv = &http.Server{
		Addr:              s.config.EndpointAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server starting", "addr", s.config.EndpointAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info(shutdownCtx, "http server shutting down")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
