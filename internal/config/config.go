package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream services
	MemberServiceBaseURL  string
	PlanServiceBaseURL    string
	MessagingBaseURL      string
	MessagingAPIKey       string
	WidgetScriptURL       string
	UpstreamTimeout       time.Duration
	EligibilityCacheTTL   time.Duration
	HoursRecheckInterval  time.Duration
	DefaultTimezone       string
	SessionTranscriptSize int

	// Auth
	MemberJWTSecret  string
	SessionJWTSecret string
	SessionJWTTTL    time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MemberServiceBaseURL:  getEnv("MEMBER_SERVICE_BASE_URL", ""),
		PlanServiceBaseURL:    getEnv("PLAN_SERVICE_BASE_URL", ""),
		MessagingBaseURL:      getEnv("MESSAGING_BASE_URL", ""),
		MessagingAPIKey:       getEnv("MESSAGING_API_KEY", ""),
		WidgetScriptURL:       getEnv("WIDGET_SCRIPT_URL", ""),
		UpstreamTimeout:       getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		EligibilityCacheTTL:   getEnvAsDuration("ELIGIBILITY_CACHE_TTL", 5*time.Minute),
		HoursRecheckInterval:  getEnvAsDuration("HOURS_RECHECK_INTERVAL", time.Minute),
		DefaultTimezone:       getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		SessionTranscriptSize: getEnvAsInt("SESSION_TRANSCRIPT_SIZE", 250),

		MemberJWTSecret:  getEnv("MEMBER_JWT_SECRET", ""),
		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionJWTTTL:    getEnvAsDuration("SESSION_JWT_TTL", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
