// file: router/router_test.go

package router_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"go-auth-api/config"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	logger.Init()
	config.LoadConfig("../")

	// --- Database Connection ---
	testDbConnStr := fmt.Sprintf("postgres://%s:%s@localhost:5434/%s_test?sslmode=disable",
		config.AppConfig.Database.User,
		config.AppConfig.Database.Password,
		config.AppConfig.Database.Name,
	)
	var err error
	testDB, err = sql.Open("postgres", testDbConnStr)
	if err != nil {
		log.Fatalf("could not connect to test database: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err = testDB.Ping(); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		log.Fatalf("database not ready: %v", err)
	}
	runMigrations(testDbConnStr)

	exitCode := m.Run()

	testDB.Close()
	os.Exit(exitCode)
}

func runMigrations(connStr string) {
	migrationPath := "file://../db/migrations"
	mig, err := migrate.New(migrationPath, connStr)
	if err != nil {
		log.Fatalf("cannot create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("failed to run migrate up: %v", err)
	}
}

type testServer struct {
	router http.Handler
	cache  *service.SessionCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	_, err := testDB.Exec("TRUNCATE TABLE users")
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	cfg := config.AppConfig
	codec := service.NewTokenCodec(cfg.JWT.SecretKey, time.Duration(cfg.JWT.AccessTTLMinutes)*time.Minute)
	userRepo := repository.NewUserRepository(testDB)
	authService := service.NewAuthService(userRepo, codec, service.LogNotifier{}, time.Duration(cfg.JWT.RefreshTTLDays)*24*time.Hour)
	cache := service.NewSessionCache(redisClient, time.Duration(cfg.Session.IdleTimeoutMinutes)*time.Minute)
	authHandler := handler.NewAuthHandler(authService, cache)

	return &testServer{
		router: router.NewRouter(authHandler, codec, cache, authService),
		cache:  cache,
	}
}

func (s *testServer) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// TestEndToEnd_SessionRenewal walks the full lifecycle: register, login,
// access-token expiry, transparent renewal through the gate, and rejection
// of the replayed pre-rotation refresh token.
func TestEndToEnd_SessionRenewal(t *testing.T) {
	srv := newTestServer(t)

	// Register and log in.
	rr := srv.postJSON(t, "/auth/register",
		`{"email":"alice@example.com","password":"Secret1!pass","firstName":"Alice","lastName":"Smith"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = srv.postJSON(t, "/auth/login", `{"email":"alice@example.com","password":"Secret1!pass"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var bundleA model.TokenBundle
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bundleA))
	require.NotEmpty(t, bundleA.RefreshToken)

	// Simulate the access token aging past its TTL: plant a session entry
	// whose access token is already expired, paired with bundle A's refresh
	// token.
	expiredCodec := service.NewTokenCodec(config.AppConfig.JWT.SecretKey, -1*time.Minute)
	staleAccess, _, err := expiredCodec.Issue(&model.User{
		ID:    bundleA.User.ID,
		Email: bundleA.User.Email,
		Role:  bundleA.User.Role,
	})
	require.NoError(t, err)

	sessionID := uuid.NewString()
	require.NoError(t, srv.cache.Set(context.Background(), sessionID, &model.SessionEntry{
		AccessToken:  staleAccess,
		RefreshToken: bundleA.RefreshToken,
		UserID:       bundleA.User.ID,
	}))

	// A protected request triggers the renewal gate.
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: config.AppConfig.Session.CookieName, Value: sessionID})
	rr = httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me["email"])

	// The session now holds bundle B with a rotated refresh token.
	entry, err := srv.cache.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEqual(t, bundleA.RefreshToken, entry.RefreshToken)
	assert.NotEqual(t, staleAccess, entry.AccessToken)

	// Replaying bundle A's refresh token is rejected.
	rr = srv.postJSON(t, "/auth/refresh",
		`{"userId":"`+bundleA.User.ID.String()+`","refreshToken":"`+bundleA.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// TestEndToEnd_DuplicateRegistration exercises the unique-email invariant
// through the full stack.
func TestEndToEnd_DuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)

	body := `{"email":"bob@example.com","password":"Secret1!pass","firstName":"Bob","lastName":"Jones"}`
	rr := srv.postJSON(t, "/auth/register", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = srv.postJSON(t, "/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var count int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM users WHERE email=$1", "bob@example.com").Scan(&count))
	assert.Equal(t, 1, count)
}
