package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/logging"
	"github.com/sciencehabits/sciencehabits/internal/server/config"
	"github.com/sciencehabits/sciencehabits/internal/server/models"
	contentrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/content"
	refreshtokensrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/refreshtokens"
	syncrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/sync"
	usersrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/users"
	"github.com/sciencehabits/sciencehabits/internal/server/services"
)

// --- in-memory repositories ---

type memUsersRepo struct {
	byName map[string]*models.Account
	nextID int
}

func (f *memUsersRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if _, ok := f.byName[a.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	a.ID = fmt.Sprintf("acc-%d", f.nextID)
	a.CreatedAt = time.Now()
	f.byName[a.UserName] = a
	return a, nil
}

func (f *memUsersRepo) GetByUserName(ctx context.Context, userName string) (*models.Account, error) {
	a, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type memRefreshRepo struct {
	tokens map[string]*models.RefreshToken
}

func (f *memRefreshRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: time.Now().Add(validity)}
	return nil
}

func (f *memRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *memRefreshRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *memRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type memContentRepo struct {
	docs map[string]json.RawMessage
}

func (f *memContentRepo) Get(ctx context.Context, contentType, language string) (*models.ContentDocument, error) {
	doc, ok := f.docs[contentType+"/"+language]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.ContentDocument{Type: contentType, Language: language, Body: doc}, nil
}

func (f *memContentRepo) Upsert(ctx context.Context, contentType, language string, body json.RawMessage) error {
	f.docs[contentType+"/"+language] = body
	return nil
}

func (f *memContentRepo) List(ctx context.Context) ([]*models.ContentDocument, error) {
	return nil, nil
}

type memSyncRepo struct {
	progress map[string]json.RawMessage
	habits   map[string]json.RawMessage
	profiles map[string]json.RawMessage
}

func (f *memSyncRepo) GetProgress(ctx context.Context, userID, habitID string) (*models.ProgressDoc, error) {
	doc, ok := f.progress[userID+"|"+habitID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.ProgressDoc{UserID: userID, HabitID: habitID, Doc: doc}, nil
}

func (f *memSyncRepo) UpsertProgress(ctx context.Context, userID, habitID string, doc json.RawMessage) error {
	f.progress[userID+"|"+habitID] = doc
	return nil
}

func (f *memSyncRepo) UpsertHabit(ctx context.Context, id, userID string, doc json.RawMessage) error {
	f.habits[id] = doc
	return nil
}

func (f *memSyncRepo) DeleteHabit(ctx context.Context, userID, id string) error {
	delete(f.habits, id)
	delete(f.progress, userID+"|"+id)
	return nil
}

func (f *memSyncRepo) UpsertProfile(ctx context.Context, userID string, doc json.RawMessage) error {
	f.profiles[userID] = doc
	return nil
}

func (f *memSyncRepo) ListHabits(ctx context.Context, userID string) ([]*models.HabitDoc, error) {
	return nil, nil
}

func (f *memSyncRepo) ListProgress(ctx context.Context, userID string) ([]*models.ProgressDoc, error) {
	return nil, nil
}

type memRepoManager struct {
	u *memUsersRepo
	r *memRefreshRepo
	c *memContentRepo
	s *memSyncRepo
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *memRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *memRepoManager) Content(db dbx.DBTX) contentrepo.Repository             { return m.c }
func (m *memRepoManager) Sync(db dbx.DBTX) syncrepo.Repository                   { return m.s }

// --- fixture ---

type apiFixture struct {
	srv     *httptest.Server
	rm      *memRepoManager
	content *memContentRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	rm := &memRepoManager{
		u: &memUsersRepo{byName: map[string]*models.Account{}},
		r: &memRefreshRepo{tokens: map[string]*models.RefreshToken{}},
		c: &memContentRepo{docs: map[string]json.RawMessage{}},
		s: &memSyncRepo{
			progress: map[string]json.RawMessage{},
			habits:   map[string]json.RawMessage{},
			profiles: map[string]json.RawMessage{},
		},
	}

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AdminAPIKey:                  "admin-key",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		CacheTTL:                     time.Minute,
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	server := NewServer(
		services.NewUserService(db, rm, cfg),
		services.NewContentService(db, rm, cfg),
		services.NewSyncService(db, rm),
		cfg,
		log,
	)
	server.startedAt = time.Now()

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &apiFixture{srv: srv, rm: rm, content: rm.c}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) registerAndLogin(t *testing.T, username, password string) api.TokenResponse {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/auth/register",
		api.RegisterRequest{Username: username, Password: password}, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/login",
		api.LoginRequest{Username: username, Password: password}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[api.TokenResponse](t, resp)
}

// --- tests ---

func TestAuthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	tokens := f.registerAndLogin(t, "alice", "s3cret")
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	// duplicate username
	resp := f.do(t, http.MethodPost, "/api/auth/register",
		api.RegisterRequest{Username: "alice", Password: "other"}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// wrong password
	resp = f.do(t, http.MethodPost, "/api/auth/login",
		api.LoginRequest{Username: "alice", Password: "nope"}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAPIFixture(t)
	tokens := f.registerAndLogin(t, "alice", "pw")

	resp := f.do(t, http.MethodPost, "/api/auth/refresh",
		api.RefreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeBody[api.TokenResponse](t, resp)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// the old token is single-use
	resp = f.do(t, http.MethodPost, "/api/auth/refresh",
		api.RefreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSyncRequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/sync", api.SyncRequest{}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/sync", api.SyncRequest{},
		map[string]string{common.AuthorizationHeaderName: "Bearer garbage"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSyncAppliesOperations(t *testing.T) {
	f := newAPIFixture(t)
	tokens := f.registerAndLogin(t, "alice", "pw")

	payload, err := json.Marshal(map[string]string{"habitId": "habit-1", "date": "2023-01-14"})
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/sync", api.SyncRequest{
		Operations: []api.Operation{{ID: "op-1", Type: "HABIT_COMPLETION", Payload: payload}},
	}, map[string]string{common.AuthorizationHeaderName: "Bearer " + tokens.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[api.SyncResponse](t, resp)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].OK, out.Results[0].Error)
	assert.Len(t, f.rm.s.progress, 1)
}

func TestContentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.content.docs["habits/en"] = json.RawMessage(`[{"id":"h1"}]`)

	resp := f.do(t, http.MethodGet, "/api/habits/en", nil, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"h1"}]`, string(body))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	f.content.docs["habits/en"] = json.RawMessage(`[]`)

	resp := f.do(t, http.MethodGet, "/api/habits/en", nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[api.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.CacheEntries)

	resp = f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	metrics := decodeBody[api.MetricsResponse](t, resp)
	assert.Equal(t, int64(1), metrics.ContentRequests)
	assert.Equal(t, int64(1), metrics.CacheMisses)
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/admin/cache/stats", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/admin/cache/stats", nil,
		map[string]string{common.AdminKeyHeaderName: "admin-key"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody[api.CacheStatsResponse](t, resp)
	assert.Equal(t, 0, stats.Entries)
}

func TestAdminCacheClearAndPublish(t *testing.T) {
	f := newAPIFixture(t)
	admin := map[string]string{common.AdminKeyHeaderName: "admin-key"}
	f.content.docs["habits/en"] = json.RawMessage(`["old"]`)

	// warm the cache
	resp := f.do(t, http.MethodGet, "/api/habits/en", nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/admin/cache/clear", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decodeBody[api.CacheStatsResponse](t, resp)
	assert.Equal(t, 1, cleared.Entries)

	// direct publish replaces the stored document
	req, err := http.NewRequest(http.MethodPut, f.srv.URL+"/admin/content/habits/en",
		bytes.NewReader([]byte(`["new"]`)))
	require.NoError(t, err)
	req.Header.Set(common.AdminKeyHeaderName, "admin-key")
	putResp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	require.Equal(t, http.StatusNoContent, putResp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/habits/en", nil, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `["new"]`, string(body))
}
