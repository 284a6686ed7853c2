package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadENV loads the environment variables from .env if GO_ENV is unset or "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		// A missing .env is fine in development; real env vars still apply
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV   string
	LOG_MODE string
	PORT     int
	// Database
	DB_DRIVER      string // postgres or sqlite
	DB_USER_NAME   string
	DB_PASSWORD    string
	DB_NAME        string
	DB_HOST        string
	DB_PORT        string
	DB_SSL_MODE    string
	DB_SQLITE_PATH string
	// JWT
	JWT_SECRET string
	JWT_ISSUER string
	// Redis
	REDIS_URL string
	// DigitalOcean Spaces (S3 compatible object storage for uploaded items)
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
	DO_SPACES_CDN_URL  string
	// HTTP
	ALLOWED_ORIGINS     string
	RATE_LIMIT_REQUESTS int // per minute per IP, 0 disables
	UPLOAD_MAX_MB       int
	// Seeded admin account
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
	// Background jobs
	CRON_ENABLED bool
}

func Get() (*EnvironmentVariable, error) {

	region := getEnv("DO_SPACES_REGION", "nyc3")

	envVariables := &EnvironmentVariable{
		GO_ENV:   os.Getenv("GO_ENV"),
		LOG_MODE: getEnv("LOG_MODE", os.Getenv("GO_ENV")),
		PORT:     getEnvInt("PORT", 8080),
		// Database
		DB_DRIVER:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DB_USER_NAME:   os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		DB_HOST:        getEnv("DB_HOST", "localhost"),
		DB_PORT:        getEnv("DB_PORT", "5432"),
		DB_SSL_MODE:    getEnv("DB_SSL_MODE", "disable"),
		DB_SQLITE_PATH: getEnv("DB_SQLITE_PATH", "catalog.db"),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getEnv("JWT_ISSUER", "course-catalog-api"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Spaces
		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   region,
		DO_SPACES_ENDPOINT: getEnv("DO_SPACES_ENDPOINT", region+".digitaloceanspaces.com"),
		DO_SPACES_CDN_URL:  os.Getenv("DO_SPACES_CDN_URL"),
		// HTTP
		ALLOWED_ORIGINS:     getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RATE_LIMIT_REQUESTS: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		UPLOAD_MAX_MB:       getEnvInt("UPLOAD_MAX_MB", 20),
		// Admin
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
		// Cron is on unless explicitly disabled
		CRON_ENABLED: os.Getenv("CRON_ENABLED") != "false",
	}

	return envVariables, nil
}

// SpacesEnabled reports whether object storage credentials are configured
func (e *EnvironmentVariable) SpacesEnabled() bool {
	return e.DO_SPACES_KEY != "" && e.DO_SPACES_SECRET != "" && e.DO_SPACES_BUCKET != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
