package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/cryptox"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/server/config"
	"github.com/sciencehabits/sciencehabits/internal/server/models"
	contentrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/content"
	refreshtokensrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/refreshtokens"
	syncrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/sync"
	usersrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

type fakeUsersRepo struct {
	createErr error
	created   *models.Account

	getOut *models.Account
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = "acc-1"
	a.CreatedAt = time.Now()
	f.created = a
	return a, nil
}

func (f *fakeUsersRepo) GetByUserName(ctx context.Context, userName string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr error

	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error { return f.delErr }

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	c *fakeContentRepo
	s *fakeSyncRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Content(db dbx.DBTX) contentrepo.Repository             { return m.c }
func (m *fakeRepoManager) Sync(db dbx.DBTX) syncrepo.Repository                   { return m.s }

// --- tests ---

func TestRegister_HashesPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	account, err := s.Register(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if account.ID != "acc-1" {
		t.Fatalf("missing generated id: %+v", account)
	}
	if len(rm.u.created.Salt) != 16 {
		t.Fatalf("salt length: %d", len(rm.u.created.Salt))
	}
	if !cryptox.VerifyPassword([]byte("s3cret"), rm.u.created.Salt, rm.u.created.Verifier) {
		t.Fatal("stored verifier does not verify the password")
	}
}

func TestRegister_EmptyFields(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}})
	if _, err := s.Register(context.Background(), "", "pw"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("empty username: want ErrorValidation, got %v", err)
	}
	if _, err := s.Register(context.Background(), "alice", ""); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("empty password: want ErrorValidation, got %v", err)
	}
}

func TestRegister_TakenUsername(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorAlreadyExists}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	if _, err := s.Register(context.Background(), "alice", "pw"); !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func loginAccount(t *testing.T, password string) *models.Account {
	t.Helper()
	salt := []byte("0123456789abcdef")
	return &models.Account{
		ID:       "acc-1",
		UserName: "alice",
		Salt:     salt,
		Verifier: cryptox.HashPassword([]byte(password), salt),
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// not found → unauthorized
	sNF := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{getErr: common.ErrorNotFound}, r: &fakeRefreshRepo{},
	})
	if _, err := sNF.Login(context.Background(), "ghost", "x"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("notfound: want unauthorized, got %v", err)
	}

	// repo error → internal
	sIE := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{getErr: errBoom{}}, r: &fakeRefreshRepo{},
	})
	if _, err := sIE.Login(context.Background(), "u", "x"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("repo error: want ErrorInternal, got %v", err)
	}

	// wrong password → unauthorized
	sWP := newUserService(t, db, &fakeRepoManager{
		u: &fakeUsersRepo{getOut: loginAccount(t, "right")}, r: &fakeRefreshRepo{},
	})
	if _, err := sWP.Login(context.Background(), "alice", "wrong"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("wrong password: want unauthorized, got %v", err)
	}

	// success
	rmOK := &fakeRepoManager{u: &fakeUsersRepo{getOut: loginAccount(t, "right")}, r: &fakeRefreshRepo{}}
	sOK := newUserService(t, db, rmOK)
	pair, err := sOK.Login(context.Background(), "alice", "right")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Login success: pair=%+v err=%v", pair, err)
	}
	if len(rmOK.r.created) != 1 || rmOK.r.created[0] != pair.RefreshToken {
		t.Fatalf("refresh token not stored: %v", rmOK.r.created)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "acc-1", ExpiresAt: time.Now().Add(10 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	pair, err := s.RefreshToken(context.Background(), "refresh-xyz")
	if err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if pair.RefreshToken == "refresh-xyz" {
		t.Fatal("refresh token was not rotated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "acc-1", ExpiresAt: time.Now().Add(-1 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	if _, err := s.RefreshToken(context.Background(), "r"); !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{findErr: common.ErrorNotFound}})
	if _, err := s.RefreshToken(context.Background(), "r"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
}

func TestRefreshToken_DeleteErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "acc-1", ExpiresAt: time.Now().Add(10 * time.Minute)},
			delErr:  errBoom{},
		},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error deleting refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
}

func TestAuthorizeAccess_RoundTrip(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	token, err := s.generateAccessToken("acc-7")
	if err != nil {
		t.Fatalf("generateAccessToken error: %v", err)
	}
	id, err := s.AuthorizeAccess(token)
	if err != nil || id != "acc-7" {
		t.Fatalf("AuthorizeAccess: id=%q err=%v", id, err)
	}

	if _, err := s.AuthorizeAccess("garbage"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("garbage token: want ErrInvalidToken, got %v", err)
	}
}

// mustJSON fails the test unless v marshals.
func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
