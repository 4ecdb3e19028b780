package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"caltrack/internal/auth"
	"caltrack/internal/errors"
	"caltrack/internal/middleware"
	"caltrack/internal/model"
	"caltrack/internal/service"
)

// AuthHandler handles authentication endpoints, both the JSON API under
// /auth and the cookie-based page flow (/login, /signout).
type AuthHandler struct {
	authService service.AuthService
	entries     service.EntryService
	secure      bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, entries service.EntryService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, entries: entries, secure: secureCookies}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user,omitempty"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrUserAlreadyExists {
			return echo.NewHTTPError(http.StatusConflict, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_ALREADY_EXISTS",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to register user",
			Code:  "REGISTRATION_FAILED",
		})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "user registered successfully",
		"user":    user,
	})
}

// Login godoc
// @Summary Login and receive a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, refreshToken, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_CREDENTIALS",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to login",
			Code:  "LOGIN_FAILED",
		})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: service.ErrInvalidRefreshToken.Error(),
			Code:  "INVALID_REFRESH_TOKEN",
		})
	}

	return c.JSON(http.StatusOK, AuthResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Logout and revoke the token pair
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, bearerToken(c)); err != nil {
		if err == service.ErrInvalidRefreshToken {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_REFRESH_TOKEN",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to logout",
			Code:  "LOGOUT_FAILED",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// bearerToken extracts the access token from the Authorization header, if
// the caller sent one, so logout can blacklist it alongside the refresh
// token.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// LoginPage godoc
// @Summary Login page data
// @Tags pages
// @Produce json
// @Success 200 {object} map[string]string
// @Router /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "sign in required",
		"next":    c.QueryParam("next"),
	})
}

// LoginForm handles the form-encoded page login: on success it sets the
// session cookie pair and sends the browser back where it wanted to go.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.Redirect(http.StatusSeeOther, "/login?error=invalid")
	}
	if err := c.Validate(&req); err != nil {
		return c.Redirect(http.StatusSeeOther, "/login?error=invalid")
	}

	accessToken, refreshToken, _, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		c.Logger().Warnf("login failed for %s: %v", req.Email, err)
		return c.Redirect(http.StatusSeeOther, "/login?error=credentials")
	}

	middleware.SetSessionCookie(c, middleware.AccessCookie, accessToken, auth.AccessTokenExpiry, h.secure)
	middleware.SetSessionCookie(c, middleware.RefreshCookie, refreshToken, auth.RefreshTokenExpiry, h.secure)

	return c.Redirect(http.StatusSeeOther, safeNext(c.FormValue("next")))
}

// SignOut terminates the session: the refresh token is revoked, the access
// token blacklisted, both cookies cleared, and the user's cached day view
// dropped so the next render reflects the signed-out state.
func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx := c.Request().Context()

	var refreshToken, accessToken string
	if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
		refreshToken = ck.Value
	}
	if ck, err := c.Cookie(middleware.AccessCookie); err == nil {
		accessToken = ck.Value
	}

	if err := h.authService.Logout(ctx, refreshToken, accessToken); err != nil {
		c.Logger().Warnf("signout: %v", err)
	}

	if userID, ok := middleware.CurrentUserID(c); ok {
		h.entries.InvalidateDay(ctx, userID, model.Day(time.Now().Format("2006-01-02")))
	}

	middleware.ClearSessionCookies(c, h.secure)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// safeNext keeps post-login redirects on-site. Anything that is not a
// local absolute path falls back to the main view.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if _, err := url.Parse(next); err != nil {
		return "/"
	}
	return next
}
