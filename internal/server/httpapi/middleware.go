package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/common"
)

type contextKey string

// accountIDKey carries the authenticated account id through the request
// context.
const accountIDKey contextKey = "accountID"

// accountID returns the id set by withAuth, or "".
func accountID(r *http.Request) string {
	id, _ := r.Context().Value(accountIDKey).(string)
	return id
}

// withAuth resolves the bearer access token and stores the account id in the
// request context. Missing or bad tokens end the request with 401.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := s.users.AuthorizeAccess(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), accountIDKey, id)))
	}
}

// withAdminKey guards the admin endpoints with the static admin API key.
func (s *Server) withAdminKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(common.AdminKeyHeaderName)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.config.AdminAPIKey)) != 1 {
			s.writeError(w, http.StatusForbidden, "invalid admin key")
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
