package handler_test

import (
	"context"
	"go-auth-api/config"
	"go-auth-api/handler"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	cache   *service.SessionCache
	service *mockTokenService
	handler http.Handler

	nextCalled bool
	nextCtx    context.Context
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	f := &gateFixture{
		cache:   newTestCache(t),
		service: new(mockTokenService),
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.nextCalled = true
		f.nextCtx = r.Context()
		w.WriteHeader(http.StatusOK)
	})

	f.handler = handler.RenewalMiddleware(f.cache, f.service, testCodec())(next)
	return f
}

func sessionRequest(method, path, sessionID string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{
			Name:  config.AppConfig.Session.CookieName,
			Value: sessionID,
		})
	}
	return req
}

func seedSession(t *testing.T, cache *service.SessionCache, sessionID string, entry *model.SessionEntry) {
	t.Helper()
	require.NoError(t, cache.Set(context.Background(), sessionID, entry))
}

func TestRenewalMiddleware_SkipsAuthEndpoints(t *testing.T) {
	f := newGateFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("POST", "/auth/login", uuid.NewString()))

	assert.True(t, f.nextCalled)
	f.service.AssertNotCalled(t, "Refresh")
}

func TestRenewalMiddleware_NoSessionPassesThroughUnauthenticated(t *testing.T) {
	f := newGateFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", ""))

	assert.True(t, f.nextCalled)
	_, hasIdentity := f.nextCtx.Value(handler.UserIDKey).(uuid.UUID)
	assert.False(t, hasIdentity)
}

func TestRenewalMiddleware_EmptyCachePassesThrough(t *testing.T) {
	f := newGateFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", uuid.NewString()))

	assert.True(t, f.nextCalled)
	f.service.AssertNotCalled(t, "Refresh")
}

func TestRenewalMiddleware_FreshTokenAttachesSecurityContext(t *testing.T) {
	f := newGateFixture(t)
	user := sampleUser()
	sessionID := uuid.NewString()

	accessToken, _, err := testCodec().Issue(user)
	require.NoError(t, err)
	seedSession(t, f.cache, sessionID, &model.SessionEntry{
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
		UserID:       user.ID,
	})

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", sessionID))

	require.True(t, f.nextCalled)
	assert.Equal(t, user.ID, f.nextCtx.Value(handler.UserIDKey))
	assert.Equal(t, user.Email, f.nextCtx.Value(handler.UserEmailKey))
	assert.Equal(t, string(user.Role), f.nextCtx.Value(handler.UserRoleKey))
	f.service.AssertNotCalled(t, "Refresh")
}

func TestRenewalMiddleware_ExpiredTokenIsRefreshed(t *testing.T) {
	f := newGateFixture(t)
	user := sampleUser()
	sessionID := uuid.NewString()

	staleToken, _, err := expiredCodec().Issue(user)
	require.NoError(t, err)
	seedSession(t, f.cache, sessionID, &model.SessionEntry{
		AccessToken:  staleToken,
		RefreshToken: "old-refresh-token",
		UserID:       user.ID,
	})

	newBundle := bundleFor(t, testCodec(), user, "new-refresh-token")
	f.service.On("Refresh", mock.Anything, user.ID, "old-refresh-token").Return(newBundle, nil).Once()

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", sessionID))

	require.True(t, f.nextCalled)
	assert.Equal(t, user.ID, f.nextCtx.Value(handler.UserIDKey))

	// The cache must now hold the rotated bundle.
	entry, err := f.cache.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "new-refresh-token", entry.RefreshToken)
	assert.Equal(t, newBundle.AccessToken, entry.AccessToken)

	f.service.AssertExpectations(t)
}

func TestRenewalMiddleware_FailedRefreshClearsSession(t *testing.T) {
	f := newGateFixture(t)
	user := sampleUser()
	sessionID := uuid.NewString()

	staleToken, _, err := expiredCodec().Issue(user)
	require.NoError(t, err)
	seedSession(t, f.cache, sessionID, &model.SessionEntry{
		AccessToken:  staleToken,
		RefreshToken: "already-rotated",
		UserID:       user.ID,
	})

	f.service.On("Refresh", mock.Anything, user.ID, "already-rotated").
		Return(nil, service.ErrInvalidRefreshToken).Once()

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", sessionID))

	// Short-circuited: the request never reaches protected functionality.
	assert.False(t, f.nextCalled)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"code":401,"message":"invalid session"}`, rr.Body.String())

	entry, err := f.cache.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// The session cookie is dropped so the client re-authenticates.
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, config.AppConfig.Session.CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)

	f.service.AssertExpectations(t)
}

func TestRenewalMiddleware_UnreadableCachedTokenGoesThroughRefresh(t *testing.T) {
	f := newGateFixture(t)
	user := sampleUser()
	sessionID := uuid.NewString()

	seedSession(t, f.cache, sessionID, &model.SessionEntry{
		AccessToken:  "garbage",
		RefreshToken: "refresh-token",
		UserID:       user.ID,
	})

	newBundle := bundleFor(t, testCodec(), user, "rotated")
	f.service.On("Refresh", mock.Anything, user.ID, "refresh-token").Return(newBundle, nil).Once()

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, sessionRequest("GET", "/api/me", sessionID))

	assert.True(t, f.nextCalled)
	f.service.AssertExpectations(t)
}
