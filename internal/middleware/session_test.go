package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"caltrack/internal/auth"
)

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func gateRequest(t *testing.T, gate *SessionGate, path string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *uuid.UUID) {
	t.Helper()
	e := echo.New()
	var seen *uuid.UUID
	e.Use(gate.Middleware())
	handler := func(c echo.Context) error {
		if id, ok := CurrentUserID(c); ok {
			seen = &id
		}
		return c.String(http.StatusOK, "ok")
	}
	e.GET("/*", handler)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestSessionGate_ProtectedPathsRedirect(t *testing.T) {
	gate := NewSessionGate(auth.NewJWTService("test-secret"), new(MockTokenStore), false)

	tests := []struct {
		path         string
		wantLocation string
	}{
		{"/", "/login?next=%2F"},
		{"/settings", "/login?next=%2Fsettings"},
		{"/history/2024-06-01", "/login?next=%2Fhistory%2F2024-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, seen := gateRequest(t, gate, tt.path)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
			assert.Nil(t, seen)
		})
	}
}

func TestSessionGate_PublicPathsPassWithoutUser(t *testing.T) {
	gate := NewSessionGate(auth.NewJWTService("test-secret"), new(MockTokenStore), false)

	paths := []string{
		"/login",
		"/login?next=%2F",
		"/auth/refresh",
		"/api/food/barcode/123",
		"/static/app.css",
		"/favicon.ico",
		"/manifest.webmanifest",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec, _ := gateRequest(t, gate, path)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestSessionGate_ValidAccessCookiePasses(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	tokens := new(MockTokenStore)
	tokens.On("IsAccessTokenBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
	gate := NewSessionGate(jwtService, tokens, false)

	userID := uuid.New()
	access, err := jwtService.GenerateAccessToken(userID, "test@example.com")
	assert.NoError(t, err)

	rec, seen := gateRequest(t, gate, "/", &http.Cookie{Name: AccessCookie, Value: access})

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, userID, *seen)
	}
}

func TestSessionGate_BlacklistedAccessCookieRedirects(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	tokens := new(MockTokenStore)
	tokens.On("IsAccessTokenBlacklisted", mock.Anything, mock.Anything).Return(true, nil)
	gate := NewSessionGate(jwtService, tokens, false)

	access, err := jwtService.GenerateAccessToken(uuid.New(), "test@example.com")
	assert.NoError(t, err)

	rec, _ := gateRequest(t, gate, "/", &http.Cookie{Name: AccessCookie, Value: access})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSessionGate_RefreshMintsNewAccessCookie(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New()
	tokenID, refresh, err := jwtService.GenerateRefreshToken(userID, "test@example.com")
	assert.NoError(t, err)

	tokens := new(MockTokenStore)
	tokens.On("GetRefreshToken", mock.Anything, tokenID).Return(userID, "test@example.com", nil)
	gate := NewSessionGate(jwtService, tokens, false)

	rec, seen := gateRequest(t, gate, "/", &http.Cookie{Name: RefreshCookie, Value: refresh})

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, userID, *seen)
	}

	// The refreshed access cookie must be mirrored onto the response.
	var refreshed *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == AccessCookie {
			refreshed = ck
		}
	}
	if assert.NotNil(t, refreshed, "expected a refreshed access cookie") {
		claims, err := jwtService.ValidateToken(refreshed.Value)
		assert.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.True(t, refreshed.HttpOnly)
	}
}

func TestSessionGate_RefreshCookieAlsoMirroredOnRedirect(t *testing.T) {
	// A refresh that succeeds on a protected path only matters for the
	// pass-through case, but a refresh attempted on the way to a redirect
	// must still not lose cookie writes. Here the refresh token is valid
	// but the wrong signature, so resolution fails and the gate redirects.
	jwtService := auth.NewJWTService("test-secret")
	other := auth.NewJWTService("other-secret")
	_, refresh, err := other.GenerateRefreshToken(uuid.New(), "test@example.com")
	assert.NoError(t, err)

	gate := NewSessionGate(jwtService, new(MockTokenStore), false)
	rec, _ := gateRequest(t, gate, "/", &http.Cookie{Name: RefreshCookie, Value: refresh})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2F", rec.Header().Get(echo.HeaderLocation))
}

func TestSessionGate_StoreOutageFailsClosed(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New()
	tokenID, refresh, err := jwtService.GenerateRefreshToken(userID, "test@example.com")
	assert.NoError(t, err)

	tokens := new(MockTokenStore)
	tokens.On("GetRefreshToken", mock.Anything, tokenID).Return(uuid.Nil, "", assert.AnError)
	gate := NewSessionGate(jwtService, tokens, false)

	rec, seen := gateRequest(t, gate, "/", &http.Cookie{Name: RefreshCookie, Value: refresh})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, seen)
}

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/login", true},
		{"/login/reset", true},
		{"/auth/callback", true},
		{"/api/entries", true},
		{"/static/icons/192.png", true},
		{"/favicon.ico", true},
		{"/manifest.webmanifest", true},
		{"/", false},
		{"/entries", false},
		{"/faviconXico", false},
		{"/manifest.webmanifest/extra", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPublicPath(tt.path), "path %q", tt.path)
	}
}
