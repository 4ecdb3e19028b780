package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort       string
	PostgresDSN      string
	RedisAddr        string
	RedisDB          int
	RedisPass        string
	JWTSecret        string
	CookieSecure     bool
	OpenFoodFactsURL string
	DailyCalorieGoal int
	SwaggerHost      string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is picked up when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=caltrack password=caltrack dbname=caltrack port=5432 sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me"),
		CookieSecure:     getEnvBool("COOKIE_SECURE", false),
		OpenFoodFactsURL: getEnv("OPENFOODFACTS_URL", "https://world.openfoodfacts.org"),
		DailyCalorieGoal: getEnvInt("DAILY_CALORIE_GOAL", 2000),
		SwaggerHost:      os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
