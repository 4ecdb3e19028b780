package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"caltrack/internal/auth"
)

// Session cookie names. Both are HttpOnly; the access cookie is a short-lived
// JWT, the refresh cookie a long-lived JWT whose JTI must still be live in
// the token store.
const (
	AccessCookie  = "ct_access_token"
	RefreshCookie = "ct_refresh_token"
)

const (
	userIDKey = "userID"
	emailKey  = "email"
)

// SessionGate authenticates every inbound request from its session cookies.
// It refreshes an expired access token from the refresh cookie, mirrors any
// newly minted cookie onto the response on every exit path, and redirects
// unauthenticated access to protected paths over to the login page with the
// original path preserved in a `next` parameter.
//
// The gate never caches its decision: each request re-validates.
type SessionGate struct {
	jwt    *auth.JWTService
	tokens auth.TokenStoreInterface
	secure bool
}

// NewSessionGate creates a session gate.
func NewSessionGate(jwtService *auth.JWTService, tokens auth.TokenStoreInterface, secureCookies bool) *SessionGate {
	return &SessionGate{jwt: jwtService, tokens: tokens, secure: secureCookies}
}

// Middleware returns the echo middleware enforcing the gate.
func (g *SessionGate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := g.resolve(c)
			if claims != nil {
				if id, err := claims.Subject(); err == nil {
					c.Set(userIDKey, id)
					c.Set(emailKey, claims.Email)
				} else {
					claims = nil
				}
			}

			path := c.Request().URL.Path
			if claims == nil && !IsPublicPath(path) {
				q := url.Values{}
				q.Set("next", path)
				return c.Redirect(http.StatusSeeOther, "/login?"+q.Encode())
			}
			return next(c)
		}
	}
}

// resolve returns the claims of the current session, refreshing the access
// token when needed. A refreshed cookie is written to the response before
// returning, so the redirect path carries it too. Any failure along the way
// resolves to nil: the gate fails closed.
func (g *SessionGate) resolve(c echo.Context) *auth.Claims {
	ctx := c.Request().Context()

	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		if claims, err := g.jwt.ValidateToken(ck.Value); err == nil {
			if black, _ := g.tokens.IsAccessTokenBlacklisted(ctx, claims.ID); !black {
				return claims
			}
		}
	}

	rc, err := c.Cookie(RefreshCookie)
	if err != nil || rc.Value == "" {
		return nil
	}
	claims, err := g.jwt.ValidateToken(rc.Value)
	if err != nil || claims.ID == "" {
		return nil
	}
	userID, email, err := g.tokens.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil
	}

	access, err := g.jwt.GenerateAccessToken(userID, email)
	if err != nil {
		return nil
	}
	SetSessionCookie(c, AccessCookie, access, auth.AccessTokenExpiry, g.secure)

	fresh, err := g.jwt.ValidateToken(access)
	if err != nil {
		return nil
	}
	return fresh
}

// IsPublicPath reports whether path is reachable without a session. A path
// is public iff it starts with /login, /auth, /api or /static, or exactly
// equals /favicon.ico or /manifest.webmanifest.
func IsPublicPath(path string) bool {
	return strings.HasPrefix(path, "/login") ||
		strings.HasPrefix(path, "/auth") ||
		strings.HasPrefix(path, "/api") ||
		strings.HasPrefix(path, "/static") ||
		path == "/favicon.ico" ||
		path == "/manifest.webmanifest"
}

// SetSessionCookie writes a session cookie onto the response.
func SetSessionCookie(c echo.Context, name, value string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookies expires both session cookies on the response.
func ClearSessionCookies(c echo.Context, secure bool) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// CurrentUserID returns the authenticated user for the request, whether it
// arrived through the cookie gate or through the bearer-token guard on the
// API group.
func CurrentUserID(c echo.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(userIDKey).(uuid.UUID); ok {
		return v, true
	}
	if tok, ok := c.Get("user").(*jwtv5.Token); ok {
		if mc, ok := tok.Claims.(jwtv5.MapClaims); ok {
			if s, ok := mc["user_id"].(string); ok {
				if id, err := uuid.Parse(s); err == nil {
					return id, true
				}
			}
		}
	}
	return uuid.Nil, false
}
