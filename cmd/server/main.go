package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"caltrack/internal/auth"
	"caltrack/internal/cache"
	"caltrack/internal/config"
	"caltrack/internal/db"
	"caltrack/internal/handler"
	"caltrack/internal/middleware"
	"caltrack/internal/model"
	"caltrack/internal/repository"
	"caltrack/internal/router"
	"caltrack/internal/service"
)

// @title Caltrack API
// @version 1.0
// @description Personal calorie tracker: session-gated day views, food entry CRUD, and barcode nutrition lookup.
// @host localhost:8080
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(echomw.RequestID())

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Entry{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	entryRepo := repository.NewEntryRepository(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	gate := middleware.NewSessionGate(jwtService, tokenStore, cfg.CookieSecure)

	// Services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	entryService := service.NewEntryService(entryRepo, cacheClient, cfg.DailyCalorieGoal)
	lookupService := service.NewLookupService(cfg.OpenFoodFactsURL, cacheClient)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, entryService, cfg.CookieSecure)
	entryHandler := handler.NewEntryHandler(entryService)
	foodHandler := handler.NewFoodHandler(lookupService)
	labelHandler := handler.NewLabelHandler()

	router.Register(
		e,
		cfg,
		gate,
		authHandler,
		entryHandler,
		foodHandler,
		labelHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
