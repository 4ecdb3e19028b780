package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"caltrack/internal/config"
	"caltrack/internal/handler"
	"caltrack/internal/middleware"
)

// Register wires routes and middleware. The session gate runs on every
// request; the /api/entries group additionally accepts bearer tokens for
// the installable-app client.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	gate *middleware.SessionGate,
	authHandler *handler.AuthHandler,
	entryHandler *handler.EntryHandler,
	foodHandler *handler.FoodHandler,
	labelHandler *handler.LabelHandler,
) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(gate.Middleware())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/static", "static")

	// Page flow (cookie session)
	e.GET("/", entryHandler.Day)
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.LoginForm)
	e.POST("/signout", authHandler.SignOut)
	e.POST("/entries", entryHandler.Create)
	e.POST("/entries/update", entryHandler.Update)
	e.POST("/entries/delete", entryHandler.Delete)

	// JSON auth
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout)

	api := e.Group("/api")

	api.GET("/food/barcode/:barcode", foodHandler.LookupBarcode)
	api.POST("/label/parse", labelHandler.Parse)

	// Entry API (requires bearer token)
	secured := api.Group("/entries", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))
	secured.GET("", entryHandler.ListEntries)
	secured.POST("", entryHandler.CreateEntry)
	secured.PUT("/:id", entryHandler.UpdateEntry)
	secured.DELETE("/:id", entryHandler.DeleteEntry)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
