package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBUrl       string
	FrontendURL string
	LogLevel    string
	// Identity service (GoTrue-compatible REST API)
	IdentityURL           string
	IdentityAPIKey        string
	IdentityApplicationID string // audience of the bridged token
	IdentityJWTTemplate   string // named template bridging identity -> database
	IdentityJWTSecret     string // HS256 verification
	IdentityJWKSURL       string // RS256 verification
	IdentityTimeout       time.Duration
	// Token readiness / persistence retry
	TokenPollInterval   time.Duration
	TokenSignInAttempts int
	TokenSignUpBudget   time.Duration
	PersistMaxRetries   int
	PersistBackoff      time.Duration
	AllowRoleChange     bool
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	SessionTTL           time.Duration
	// CV storage (S3-compatible)
	S3Provider        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	WasabiEndpoint    string
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitLoginThreshold  int
	RateLimitGlobalThreshold int
	CVUploadLimit            int
}

func LoadConfig() (*Config, error) {
	// Load .env file (only effective locally; ignored when the file is absent)
	_ = godotenv.Load()

	identityURL := strings.TrimRight(getEnv("IDENTITY_URL", ""), "/")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		// Identity
		IdentityURL:           identityURL,
		IdentityAPIKey:        getEnv("IDENTITY_API_KEY", ""),
		IdentityApplicationID: getEnv("IDENTITY_APPLICATION_ID", "convex"),
		IdentityJWTTemplate:   getEnv("IDENTITY_JWT_TEMPLATE", "convex"),
		IdentityJWTSecret:     getEnv("IDENTITY_JWT_SECRET", ""),
		IdentityJWKSURL:       getEnv("IDENTITY_JWKS_URL", identityURL+"/auth/v1/.well-known/jwks.json"),
		IdentityTimeout:       getEnvMillis("IDENTITY_TIMEOUT_MS", 15000),
		// Orchestration timings
		TokenPollInterval:   getEnvMillis("TOKEN_POLL_INTERVAL_MS", 250),
		TokenSignInAttempts: getEnvInt("TOKEN_POLL_SIGNIN_ATTEMPTS", 8),
		TokenSignUpBudget:   getEnvMillis("TOKEN_POLL_SIGNUP_BUDGET_MS", 5000),
		PersistMaxRetries:   getEnvInt("PERSIST_MAX_RETRIES", 3),
		PersistBackoff:      getEnvMillis("PERSIST_BACKOFF_MS", 300),
		AllowRoleChange:     getEnvBool("ALLOW_ROLE_CHANGE", false),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		SessionTTL:           time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60*24)) * time.Minute,
		// CV storage
		S3Provider:        getEnv("S3_PROVIDER", "aws"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("CV_BUCKET", ""),
		WasabiEndpoint:    getEnv("WASABI_ENDPOINT", ""),
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),    // 1 minute window
		RateLimitLoginThreshold:  getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10),   // 10 auth attempts per window
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100), // 100 requests per window
		CVUploadLimit:            getEnvInt("CV_UPLOAD_LIMIT", 5),                // 5 CV uploads per window
	}

	// Basic validation to avoid obscure failures later
	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.IdentityURL == "" {
		log.Println("WARNING: IDENTITY_URL is missing. Sign-in and sign-up will fail.")
	}
	if cfg.IdentityJWTSecret == "" && cfg.IdentityURL == "" {
		log.Println("WARNING: neither IDENTITY_JWT_SECRET nor IDENTITY_URL set. Database tokens cannot be verified.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Sessions and rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// CVStorageConfigured reports whether CV uploads can be stored.
func (c *Config) CVStorageConfigured() bool {
	return c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvMillis reads a millisecond count as a duration
func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
