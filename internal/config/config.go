package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Auth configuration
	JWTSecret          string
	TokenExpiryMinutes int

	// Loan policy
	LoanPeriodDays      int
	MaxLoansPerUser     int
	OverdueSweepMinutes int

	// Catalog
	PreviewPageCount int
}

// Load loads configuration from the environment, reading .env first if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		DBType:              getEnv("DB_TYPE", "mysql"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "3306"),
		DBDatabase:          getEnv("DB_DATABASE", ""),
		DBUser:              getEnv("DB_USER", ""),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:   getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenExpiryMinutes:  getEnvAsInt("TOKEN_EXPIRY_MINUTES", 30),
		LoanPeriodDays:      getEnvAsInt("LOAN_PERIOD_DAYS", 14),
		MaxLoansPerUser:     getEnvAsInt("MAX_LOANS_PER_USER", 3),
		OverdueSweepMinutes: getEnvAsInt("OVERDUE_SWEEP_MINUTES", 60),
		PreviewPageCount:    getEnvAsInt("PREVIEW_PAGE_COUNT", 5),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.LoanPeriodDays < 1 {
		return nil, fmt.Errorf("LOAN_PERIOD_DAYS must be at least 1")
	}
	if cfg.MaxLoansPerUser < 1 {
		return nil, fmt.Errorf("MAX_LOANS_PER_USER must be at least 1")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
