package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/revocation"
	"github.com/sidukcapil/apiserver/internal/services"
	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateKey
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, types.AuditLog) {}

func newTestAuthServer(t *testing.T) (*httptest.Server, *AuthHandler) {
	t.Helper()

	userService := services.NewUserService(newFakeUserRepo(), nopAudit{})
	handler := NewAuthHandler(userService, revocation.NewMemoryStore(), "test-secret", 0)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})
	router.With(handler.RequireAuth, handler.RequireRole(types.RoleAdmin, types.RoleSuperAdmin)).
		Get("/staff-only", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, handler
}

func registerTestUser(t *testing.T, baseURL, username string, role types.UserRole) string {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "testpass123!",
		"role":     string(role),
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(baseURL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d", resp.StatusCode)
	}

	var parsed AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if parsed.Token == "" {
		t.Fatalf("missing token in register response")
	}
	return parsed.Token
}

func doAuthed(t *testing.T, method, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestRegisterDefaultsToPenduduk(t *testing.T) {
	srv, _ := newTestAuthServer(t)

	payload := map[string]string{
		"username": "warga1",
		"email":    "warga1@example.com",
		"password": "testpass123!",
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(srv.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()

	var parsed AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.User.Role != types.RolePenduduk {
		t.Fatalf("expected default role PENDUDUK, got %s", parsed.User.Role)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	srv, _ := newTestAuthServer(t)

	registerTestUser(t, srv.URL, "warga1", types.RolePenduduk)

	payload := map[string]string{
		"username": "warga1",
		"email":    "other@example.com",
		"password": "testpass123!",
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(srv.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _ := newTestAuthServer(t)

	registerTestUser(t, srv.URL, "warga1", types.RolePenduduk)

	payload := map[string]string{"username": "warga1", "password": "wrong"}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv, _ := newTestAuthServer(t)

	token := registerTestUser(t, srv.URL, "warga1", types.RolePenduduk)

	resp := doAuthed(t, http.MethodGet, srv.URL+"/auth/me", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodPost, srv.URL+"/auth/logout", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from logout, got %d", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodGet, srv.URL+"/auth/me", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestTokenTTLFromConfig(t *testing.T) {
	userService := services.NewUserService(newFakeUserRepo(), nopAudit{})
	handler := NewAuthHandler(userService, revocation.NewMemoryStore(), "test-secret", 2*time.Hour)
	if handler.tokenTTL != 2*time.Hour {
		t.Fatalf("expected configured ttl, got %v", handler.tokenTTL)
	}

	fallback := NewAuthHandler(userService, revocation.NewMemoryStore(), "test-secret", 0)
	if fallback.tokenTTL != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", fallback.tokenTTL)
	}

	token, err := issueToken(1, handler.secret, handler.tokenTTL)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := parseTokenClaims(token, handler.secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining > 2*time.Hour || remaining < 2*time.Hour-time.Minute {
		t.Fatalf("expected expiry about 2h out, got %v", remaining)
	}
}

func TestRequireRoleBlocksCitizens(t *testing.T) {
	srv, _ := newTestAuthServer(t)

	citizenToken := registerTestUser(t, srv.URL, "warga1", types.RolePenduduk)
	adminToken := registerTestUser(t, srv.URL, "admin1", types.RoleAdmin)

	resp := doAuthed(t, http.MethodGet, srv.URL+"/staff-only", citizenToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for PENDUDUK, got %d", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodGet, srv.URL+"/staff-only", adminToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for ADMIN, got %d", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodGet, srv.URL+"/staff-only", "not-a-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
}
