package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquisitions/internal/auth"
	"acquisitions/internal/db"
	"acquisitions/internal/handler"
	appmiddleware "acquisitions/internal/middleware"
	"acquisitions/internal/model"
	"acquisitions/internal/protect"
	"acquisitions/internal/repository"
	"acquisitions/internal/service"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Safari/605.1.15"

type testServer struct {
	e     *echo.Echo
	users repository.UserRepository
	jwt   *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gormDB, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	jwtService := auth.NewJWTService("test-secret", time.Hour)
	hasher := auth.NewBcryptHasher(4)
	session := auth.NewSessionCarrier(false, time.Hour)
	users := repository.NewUserRepository(gormDB)

	e := echo.New()
	Register(e, Handlers{
		Auth:          handler.NewAuthHandler(service.NewAuthService(users, hasher, jwtService), session),
		Users:         handler.NewUserHandler(service.NewUserService(users, hasher)),
		Health:        handler.NewHealthHandler(),
		Authenticator: appmiddleware.NewAuthenticator(jwtService, session),
		Security: appmiddleware.NewSecurity(appmiddleware.SecurityConfig{
			Protector:  protect.NewClient(),
			Store:      protect.NewMemoryWindowStore(),
			HealthPath: HealthPath,
		}),
	})
	return &testServer{e: e, users: users, jwt: jwtService}
}

type call struct {
	method string
	path   string
	body   string
	token  string
	cookie *http.Cookie
	ua     string
	// forwardedFor is sent as X-Forwarded-For.
	forwardedFor string
}

// do sends a request. Requests without a user agent skip rate limiting.
func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	if c.forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, c.forwardedFor)
		req.Header.Set(echo.HeaderXRealIP, c.forwardedFor)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// seed inserts a user directly and returns a bearer token for it.
func (s *testServer) seed(t *testing.T, name string, role model.Role) (*model.User, string) {
	t.Helper()
	u := &model.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "unused",
		Role:         role,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.jwt.Sign(auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return u, token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookie {
			return c
		}
	}
	return nil
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, call{method: http.MethodPost, path: "/auth/signup",
		body: `{"name":"Alice","email":" Alice@Example.com ","password":"secret1"}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")
	require.NotNil(t, tokenCookie(rec))

	rec = s.do(t, call{method: http.MethodPost, path: "/auth/signup",
		body: `{"name":"Alice Again","email":"alice@example.com","password":"secret2"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decode(t, rec)["error"])

	rec = s.do(t, call{method: http.MethodPost, path: "/auth/signin",
		body: `{"email":"alice@example.com","password":"secret1"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User signed in successfully", decode(t, rec)["message"])
	cookie := tokenCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = s.do(t, call{method: http.MethodGet, path: "/users/me", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Alice", me["name"])

	rec = s.do(t, call{method: http.MethodPost, path: "/auth/signout", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := tokenCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestSignIn_FailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, call{method: http.MethodPost, path: "/auth/signup",
		body: `{"name":"Bob","email":"bob@example.com","password":"secret1"}`})
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPassword := s.do(t, call{method: http.MethodPost, path: "/auth/signin",
		body: `{"email":"bob@example.com","password":"nope-nope"}`})
	unknownEmail := s.do(t, call{method: http.MethodPost, path: "/auth/signin",
		body: `{"email":"ghost@example.com","password":"nope-nope"}`})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestSignUp_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		details string
	}{
		{"bad email", `{"name":"Carol","email":"not-an-email","password":"secret1"}`, "Invalid email format"},
		{"short password", `{"name":"Carol","email":"carol@example.com","password":"123"}`, "Password must be at least 6 characters"},
		{"unknown role", `{"name":"Carol","email":"carol@example.com","password":"secret1","role":"root"}`, "Invalid role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, call{method: http.MethodPost, path: "/auth/signup", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "Validation failed", body["error"])
			assert.Contains(t, body["details"], tt.details)
		})
	}

	rec := s.do(t, call{method: http.MethodPost, path: "/auth/signup", body: `[1,2,3]`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", decode(t, rec)["error"])
}

func TestProtectedRoutes_Tokens(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seed(t, "Dave", model.RoleUser)

	rec := s.do(t, call{method: http.MethodGet, path: "/users/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MISSING", decode(t, rec)["code"])

	rec = s.do(t, call{method: http.MethodGet, path: "/users/me", token: token + "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", decode(t, rec)["code"])

	rec = s.do(t, call{method: http.MethodGet, path: "/users/me", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	u, token := s.seed(t, "Erin", model.RoleUser)

	rec := s.do(t, call{method: http.MethodPatch, path: "/users/me", token: token, body: `{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", decode(t, rec)["error"])

	rec = s.do(t, call{method: http.MethodPatch, path: "/users/me", token: token,
		body: `{"name":"Erin B","role":"admin"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Erin B", updated["name"])
	assert.Equal(t, "user", updated["role"])

	stored, err := s.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, stored.Role)

	s.seed(t, "Frank", model.RoleUser)
	rec = s.do(t, call{method: http.MethodPatch, path: "/users/me", token: token,
		body: `{"email":"frank@example.com"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decode(t, rec)["error"])
}

func TestListUsers_Pagination(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seed(t, "Admin", model.RoleAdmin)
	for i := 1; i < 25; i++ {
		s.seed(t, fmt.Sprintf("member%02d", i), model.RoleUser)
	}

	rec := s.do(t, call{method: http.MethodGet, path: "/users?page=3&limit=10", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Users fetched successfully", body["message"])
	assert.Len(t, body["users"], 5)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["page"])
	assert.EqualValues(t, 10, pagination["limit"])
	assert.EqualValues(t, 25, pagination["total"])
	assert.EqualValues(t, 3, pagination["totalPages"])

	rec = s.do(t, call{method: http.MethodGet, path: "/users?search=MEMBER0&sortBy=name&sortOrder=asc", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode(t, rec)["users"].([]any)
	require.Len(t, users, 9)
	assert.Equal(t, "member01", users[0].(map[string]any)["name"])

	rec = s.do(t, call{method: http.MethodGet, path: "/users?limit=500", token: adminToken})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserRoutes_Authorization(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.seed(t, "Grace", model.RoleAdmin)
	user, userToken := s.seed(t, "Heidi", model.RoleUser)
	other, _ := s.seed(t, "Ivan", model.RoleUser)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"user lists users", http.MethodGet, "/users", userToken, "", http.StatusForbidden},
		{"user reads self", http.MethodGet, fmt.Sprintf("/users/%d", user.ID), userToken, "", http.StatusOK},
		{"user reads other", http.MethodGet, fmt.Sprintf("/users/%d", other.ID), userToken, "", http.StatusForbidden},
		{"admin reads other", http.MethodGet, fmt.Sprintf("/users/%d", other.ID), adminToken, "", http.StatusOK},
		{"admin reads missing", http.MethodGet, "/users/9999", adminToken, "", http.StatusNotFound},
		{"admin bad id", http.MethodGet, "/users/abc", adminToken, "", http.StatusBadRequest},
		{"user updates other", http.MethodPatch, fmt.Sprintf("/users/%d", other.ID), userToken, `{"name":"X"}`, http.StatusForbidden},
		{"admin empty update", http.MethodPatch, fmt.Sprintf("/users/%d", other.ID), adminToken, `{}`, http.StatusBadRequest},
		{"user deletes other", http.MethodDelete, fmt.Sprintf("/users/%d", other.ID), userToken, "", http.StatusForbidden},
		{"admin deletes self", http.MethodDelete, fmt.Sprintf("/users/%d", admin.ID), adminToken, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, call{method: tt.method, path: tt.path, token: tt.token, body: tt.body})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	_, err := s.users.FindByID(context.Background(), admin.ID)
	assert.NoError(t, err, "self-delete must not remove the admin")
}

func TestAdminUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.seed(t, "Judy", model.RoleAdmin)
	target, _ := s.seed(t, "Mallory", model.RoleUser)
	path := fmt.Sprintf("/users/%d", target.ID)

	rec := s.do(t, call{method: http.MethodPatch, path: path, token: adminToken, body: `{"role":"admin"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "User updated successfully", body["message"])
	assert.Equal(t, "admin", body["user"].(map[string]any)["role"])

	rec = s.do(t, call{method: http.MethodDelete, path: path, token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", decode(t, rec)["message"])

	rec = s.do(t, call{method: http.MethodGet, path: path, token: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{method: http.MethodDelete, path: path, token: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decode(t, rec)["status"])

	rec = s.do(t, call{method: http.MethodGet, path: "/api"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the acquisitions API", decode(t, rec)["message"])

	rec = s.do(t, call{method: http.MethodGet, path: "/does-not-exist"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "The requested resource was not found.", body["message"])

	rec = s.do(t, call{method: http.MethodGet, path: "/auth/signup"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRateLimiting(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		rec := s.do(t, call{method: http.MethodGet, path: "/api", ua: browserUA})
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	rec := s.do(t, call{method: http.MethodGet, path: "/api", ua: browserUA})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", decode(t, rec)["error"])

	for i := 0; i < 10; i++ {
		rec := s.do(t, call{method: http.MethodGet, path: "/health", ua: browserUA})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	_, token := s.seed(t, "Niaj", model.RoleUser)
	rec = s.do(t, call{method: http.MethodGet, path: "/users/me", ua: browserUA, token: token})
	assert.Equal(t, http.StatusOK, rec.Code, "user tier is counted separately from guests")
}

func TestRateLimiting_IgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t)

	for i := 1; i <= 5; i++ {
		rec := s.do(t, call{method: http.MethodGet, path: "/api", ua: browserUA, forwardedFor: fmt.Sprintf("10.0.0.%d", i)})
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := s.do(t, call{method: http.MethodGet, path: "/api", ua: browserUA, forwardedFor: "10.0.0.6"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
