package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janusgate/backend/internal/api"
	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/database/models"
	"github.com/janusgate/backend/internal/database/repository"
	"github.com/janusgate/backend/internal/database/service"
	"github.com/janusgate/backend/internal/handler"
	"github.com/janusgate/backend/internal/janus"
	"github.com/janusgate/backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeJanus is a minimal videoroom gateway double. Session bookkeeping is
// handled for real; plugin replies come from pluginData.
type fakeJanus struct {
	srv *httptest.Server

	mu         sync.Mutex
	pluginData string
	nextID     int64
}

func newFakeJanus(t *testing.T) *fakeJanus {
	f := &fakeJanus{pluginData: `{"videoroom":"success"}`, nextID: 1}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeJanus) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Janus       string `json:"janus"`
		Transaction string `json:"transaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reply := map[string]any{"transaction": req.Transaction}
	switch req.Janus {
	case "create", "attach":
		f.nextID++
		reply["janus"] = "success"
		reply["data"] = map[string]any{"id": f.nextID}
	case "keepalive":
		reply["janus"] = "ack"
	case "message":
		reply["janus"] = "success"
		reply["plugindata"] = map[string]any{
			"plugin": "janus.plugin.videoroom",
			"data":   json.RawMessage(f.pluginData),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func (f *fakeJanus) setPluginData(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pluginData = data
}

type testApp struct {
	router *gin.Engine
	gw     *fakeJanus
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	gw := newFakeJanus(t)

	cfg := &config.Config{
		JanusServerURL:         gw.srv.URL,
		JanusCallTimeout:       5,
		JanusKeepaliveInterval: 60,
		JWTSecret:              "test-secret-key-for-testing-purposes",
		JWTAlgorithm:           "HS256",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLDays:    7,
		RefreshTokenPepper:     "test-pepper",
		CookieSameSite:         "lax",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		cfg,
		logger,
	)

	client := janus.NewClient(cfg, logger)
	manager := janus.NewManager(client, cfg, logger)
	t.Cleanup(manager.Close)
	roomService := janus.NewRoomService(manager, client, logger)

	router := api.SetupRouter(
		handler.NewAuthHandler(authService, cfg, logger),
		handler.NewUserHandler(authService, logger),
		handler.NewRoomHandler(roomService, logger),
		middleware.NewAuthMiddleware(authService, logger),
		middleware.NewNoOpLoginLimiter(logger),
		logger,
	)

	return &testApp{router: router, gw: gw, db: db}
}

func (a *testApp) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func withCookie(cookie *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("refresh_token cookie not set")
	return nil
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// register creates a user and returns a logged-in token response plus the
// refresh cookie.
func (a *testApp) register(t *testing.T, userID, password string) (map[string]any, *http.Cookie) {
	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"user_id":   userID,
		"user_name": "Test User",
		"user_pwd":  password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"user_id":  userID,
		"user_pwd": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	return decodeJSON(t, rec), refreshCookie(t, rec)
}
