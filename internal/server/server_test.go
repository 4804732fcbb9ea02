package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"chirp/internal/config"
	"chirp/internal/middleware"
	"chirp/internal/service"
	"chirp/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

func testConfig() *config.Config {
	return &config.Config{
		Port:            "3000",
		Env:             "test",
		JWTSecret:       "test-secret-key-12345678901234567890123456789012",
		TokenTTLMinutes: 60,
		DBDriver:        config.DriverMemory,
		AllowedOrigins:  "*",
		PostMaxLength:   280,
		BioMaxLength:    160,
		PinPolicy:       config.PinAuthorOrAdmin,
	}
}

// newTestApp wires a full app over a private in-memory database. rdb may be nil.
func newTestApp(t *testing.T, rdb *redis.Client) (*fiber.App, *Server) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	srv, err := NewServerWithDeps(testConfig(), testutil.NewDB(t), rdb)
	require.NoError(t, err)
	srv.Services().Identity.SetHashCost(bcrypt.MinCost)

	app := NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return app, srv
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// call performs a request and decodes the JSON response into a generic map.
func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func signup(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, _ := call(t, app, http.MethodPost, "/register", "", fiber.Map{"username": username, "password": testPassword})
	require.Equal(t, http.StatusCreated, status)
	return login(t, app, username)
}

func login(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/login", "", fiber.Map{"username": username, "password": testPassword})
	require.Equal(t, http.StatusOK, status, body)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func adminToken(t *testing.T, app *fiber.App, srv *Server) string {
	t.Helper()
	_, err := srv.Services().Identity.Register(context.Background(), service.RegisterInput{
		Username: "root",
		Password: testPassword,
		IsAdmin:  true,
		Verified: true,
	})
	require.NoError(t, err)
	return login(t, app, "root")
}

func TestHealthEndpoints(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := call(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["status"])

	status, body = call(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestUnknownRouteIs404(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := call(t, app, http.MethodGet, "/does/not/exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Page not found", body["error"])
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := call(t, app, http.MethodPost, "/register", "", fiber.Map{"username": "alice", "password": testPassword})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", body["username"])

	tests := []struct {
		name     string
		path     string
		body     interface{}
		expected int
	}{
		{"duplicate username", "/register", fiber.Map{"username": "alice", "password": testPassword}, http.StatusBadRequest},
		{"invalid username", "/register", fiber.Map{"username": "a!", "password": testPassword}, http.StatusBadRequest},
		{"wrong password", "/login", fiber.Map{"username": "alice", "password": "wrongpass1"}, http.StatusUnauthorized},
		{"unknown user", "/login", fiber.Map{"username": "nobody", "password": testPassword}, http.StatusUnauthorized},
		{"malformed body", "/login", "not-an-object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.expected, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	token := login(t, app, "alice")
	status, body = call(t, app, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
}

func TestAuthRequired(t *testing.T) {
	app, _ := newTestApp(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, http.MethodGet, "/me", tt.header, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	app, _ := newTestApp(t, newTestRedis(t))
	token := signup(t, app, "alice")

	status, body := call(t, app, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out", body["message"])

	status, body = call(t, app, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", body["error"])

	// A fresh login still works.
	fresh := login(t, app, "alice")
	status, _ = call(t, app, http.MethodGet, "/me", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminRoutesRejectStandardUsers(t *testing.T) {
	app, _ := newTestApp(t, nil)
	token := signup(t, app, "alice")
	signup(t, app, "bob")

	routes := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/ban/bob", nil},
		{http.MethodPost, "/warn/bob", fiber.Map{"message": "hi"}},
		{http.MethodPost, "/announce", fiber.Map{"message": "hi"}},
		{http.MethodGet, "/users/bob/activity", nil},
		{http.MethodGet, "/trends/hashtags", nil},
		{http.MethodPut, "/tweets/1", fiber.Map{"content": "x"}},
		{http.MethodDelete, "/tweets/1", nil},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			status, body := call(t, app, r.method, r.path, token, r.body)
			assert.Equal(t, http.StatusForbidden, status)
			assert.Equal(t, "Admin access required", body["error"])
		})
	}
}

func TestTweetLifecycle(t *testing.T) {
	app, _ := newTestApp(t, nil)
	alice := signup(t, app, "alice")
	bob := signup(t, app, "bob")

	status, _ := call(t, app, http.MethodPost, "/follow/alice", bob, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodPost, "/tweets", alice, fiber.Map{"content": "hello #golang"})
	require.Equal(t, http.StatusCreated, status)
	id := int(body["id"].(float64))
	assert.Equal(t, []interface{}{"golang"}, body["hashtags"])

	path := "/tweets/" + strconv.Itoa(id)

	status, body = call(t, app, http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["likes_count"])

	status, body = call(t, app, http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(0), body["likes_count"])

	status, _ = call(t, app, http.MethodPost, path+"/retweet", bob, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, _ = call(t, app, http.MethodPost, path+"/retweet", bob, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, path+"/reply", bob, fiber.Map{"content": "nice"})
	require.Equal(t, http.StatusCreated, status)
	replyID := int(body["id"].(float64))

	status, body = call(t, app, http.MethodPost, path+"/replies/"+strconv.Itoa(replyID)+"/like", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["liked"])

	status, body = call(t, app, http.MethodPost, path+"/pin", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tweet pinned", body["message"])

	status, body = call(t, app, http.MethodGet, "/timeline/following", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["tweets"])
	assert.NotNil(t, body["meta"])

	status, body = call(t, app, http.MethodGet, "/search/hashtags?tag=golang", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 2, "original and retweet carry the tag")

	status, _ = call(t, app, http.MethodGet, "/search/tweets", bob, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodGet, "/notifications/unread", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(4), body["unread"], "follow, like, retweet and reply")

	status, body = call(t, app, http.MethodGet, "/notifications", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["notifications"], 4)

	status, body = call(t, app, http.MethodGet, "/notifications/unread", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["unread"])

	status, _ = call(t, app, http.MethodGet, "/tweets/abc", bob, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = call(t, app, http.MethodGet, "/tweets/9999", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBannedTokenIsForbidden(t *testing.T) {
	app, srv := newTestApp(t, nil)
	root := adminToken(t, app, srv)
	alice := signup(t, app, "alice")

	status, body := call(t, app, http.MethodPost, "/ban/alice", root, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, app, http.MethodGet, "/me", alice, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Account banned", body["error"])

	status, _ = call(t, app, http.MethodPost, "/login", "", fiber.Map{"username": "alice", "password": testPassword})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/users/alice", root, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdminModeration(t *testing.T) {
	app, srv := newTestApp(t, nil)
	root := adminToken(t, app, srv)
	alice := signup(t, app, "alice")
	signup(t, app, "bob")

	status, _ := call(t, app, http.MethodPost, "/tweets", alice, fiber.Map{"content": "learning #go today"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodPost, "/announce", root, fiber.Map{"message": "maintenance tonight"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["recipients"])

	status, _ = call(t, app, http.MethodPost, "/warn/alice", root, fiber.Map{"message": "be nice"})
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodGet, "/users/alice/activity", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["activityLog"])

	status, body = call(t, app, http.MethodGet, "/trends/hashtags", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["trends"])

	status, body = call(t, app, http.MethodGet, "/analytics", root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "platform")

	status, body = call(t, app, http.MethodGet, "/analytics", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "overview")
	assert.NotContains(t, body, "platform")
}

func TestProfileAndDrafts(t *testing.T) {
	app, _ := newTestApp(t, nil)
	alice := signup(t, app, "alice")

	status, body := call(t, app, http.MethodPost, "/profile/update", alice, fiber.Map{"bio": "gopher", "themeColor": "#112233"})
	require.Equal(t, http.StatusOK, status, body)

	status, _ = call(t, app, http.MethodPost, "/profile/update", alice, fiber.Map{"themeColor": "red"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/drafts", alice, fiber.Map{"content": "half a thought"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "half a thought", body["draft"])

	status, body = call(t, app, http.MethodGet, "/drafts", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "half a thought", body["draft"])

	status, body = call(t, app, http.MethodGet, "/users/alice", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "gopher", body["bio"])
	assert.Equal(t, "#112233", body["theme_color"])
}

func TestLoginFailsClosedWhenRedisDownInProduction(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.Env = "production"
	srv, err := NewServerWithDeps(cfg, testutil.NewDB(t), rdb)
	require.NoError(t, err)
	assert.Equal(t, middleware.FailClosed, srv.loginFailPolicy())

	app := NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	t.Setenv("APP_ENV", "production")
	mr.Close()

	status, _ := call(t, app, http.MethodPost, "/login", "", fiber.Map{"username": "alice", "password": testPassword})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestLoginFailPolicy(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name string
		env  string
		rdb  *redis.Client
		exp  middleware.FailPolicy
	}{
		{"development", "development", rdb, middleware.FailOpen},
		{"production without redis", "production", nil, middleware.FailOpen},
		{"production with redis", "production", rdb, middleware.FailClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Env = tt.env
			s := &Server{config: cfg, redis: tt.rdb}
			assert.Equal(t, tt.exp, s.loginFailPolicy())
		})
	}
}
