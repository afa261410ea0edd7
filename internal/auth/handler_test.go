package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumbung-wms/lumbung-wms/internal/auth"
	mdshared "github.com/lumbung-wms/lumbung-wms/internal/masterdata/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/users"
)

type stubUserRepo struct {
	user *users.User
}

func (s *stubUserRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]users.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepo) Get(ctx context.Context, id int64) (users.User, error) {
	if s.user == nil || s.user.ID != id {
		return users.User{}, httpx.ErrNotFound
	}
	return *s.user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	if s.user == nil || s.user.Email != email {
		return users.User{}, httpx.ErrNotFound
	}
	return *s.user, nil
}

func (s *stubUserRepo) Create(ctx context.Context, user users.User) (users.User, error) {
	return user, nil
}

func (s *stubUserRepo) Update(ctx context.Context, id int64, user users.User) error { return nil }

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error { return nil }

func (s *stubUserRepo) Delete(ctx context.Context, id int64) error { return nil }

type stubSessionRepo struct {
	registered []string
}

func (s *stubSessionRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.registered = append(s.registered, id)
	return nil
}

func (s *stubSessionRepo) DeleteSession(ctx context.Context, id string) error { return nil }

func newAuthHandler(t *testing.T, userRepo users.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(userRepo, &stubSessionRepo{}), sessionManager, csrfManager)
	return handler, sessionManager
}

func activeUser(t *testing.T, password string) *users.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &users.User{
		ID:           1,
		Email:        "gudang@test.local",
		Name:         "Petugas Gudang",
		PasswordHash: string(hashed),
		Role:         "staff",
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubUserRepo{user: activeUser(t, "correctpass")})

	body := `{"email":"gudang@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, sess))

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"success":true`)
	require.Contains(t, res.Body.String(), `"csrf_token"`)
	require.Equal(t, "1", sess.User())
	require.Equal(t, "staff", sess.Get("role"))
}

func TestLoginWrongPassword(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubUserRepo{user: activeUser(t, "correctpass")})

	body := `{"email":"gudang@test.local","password":"wrongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Contains(t, res.Body.String(), "invalid email or password")
	require.Empty(t, sess.User())
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correctpass")
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubUserRepo{user: user})

	body := `{"email":"gudang@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestSessionRequiresLogin(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleSessionForTest(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Contains(t, res.Body.String(), "authentication required")
}
