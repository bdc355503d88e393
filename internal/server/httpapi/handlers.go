package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/common"
)

// maxBodyBytes caps request bodies; sync batches and content bundles stay
// well under this.
const maxBodyBytes = 4 << 20

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(context.Background(), "failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries, _ := s.content.CacheStats()
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		CacheEntries:  entries,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	cm := s.content.Metrics()
	sm := s.sync.Metrics()
	s.writeJSON(w, http.StatusOK, api.MetricsResponse{
		ContentRequests: cm.ContentRequests,
		CacheHits:       cm.CacheHits,
		CacheMisses:     cm.CacheMisses,
		UpstreamFetches: cm.UpstreamFetches,
		Errors:          cm.Errors,
		SyncRequests:    sm.SyncRequests,
		SyncOperations:  sm.SyncOperations,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.users.Register(r.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			s.writeError(w, http.StatusConflict, "username is taken")
		case errors.Is(err, common.ErrorValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error(r.Context(), "register failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log.Error(r.Context(), "login failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		s.log.Error(r.Context(), "refresh failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req api.SyncRequest
	if !s.decode(w, r, &req) {
		return
	}
	results := s.sync.ApplyOps(r.Context(), accountID(r), req.Operations)
	s.writeJSON(w, http.StatusOK, api.SyncResponse{Results: results})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	contentType := r.PathValue("type")
	language := r.PathValue("language")

	body, err := s.content.Get(r.Context(), contentType, language)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.writeError(w, http.StatusNotFound, "no such content")
			return
		}
		s.log.Error(r.Context(), "content fetch failed",
			"type", contentType, "language", language, "error", err)
		s.writeError(w, http.StatusBadGateway, "content unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.log.Error(r.Context(), "failed to write content body", "error", err)
	}
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	cleared := s.content.ClearCache()
	s.log.Info(r.Context(), "cache cleared", "entries", cleared)
	s.writeJSON(w, http.StatusOK, api.CacheStatsResponse{Entries: cleared})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	entries, keys := s.content.CacheStats()
	s.writeJSON(w, http.StatusOK, api.CacheStatsResponse{Entries: entries, Keys: keys})
}

func (s *Server) handlePublishURL(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("type")
	language := r.URL.Query().Get("language")
	if contentType == "" || language == "" {
		s.writeError(w, http.StatusBadRequest, "type and language are required")
		return
	}
	key, url, err := s.content.GetPresignedPutUrl(r.Context(), contentType, language)
	if err != nil {
		s.log.Error(r.Context(), "presign failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, api.PublishURLResponse{Key: key, URL: url})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	contentType := r.PathValue("type")
	language := r.PathValue("language")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := s.content.Publish(r.Context(), contentType, language, body); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error(r.Context(), "publish failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
