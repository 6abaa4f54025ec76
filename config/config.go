// Package config provides environment-driven settings for the steams API server.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// RateLimitStore names the backing store of the request limiter.
type RateLimitStore string

const (
	RateLimitStoreMemory RateLimitStore = "memory"
	RateLimitStoreRedis  RateLimitStore = "redis"
)

// LoadEnv reads a .env file from the working directory, if there is one.
// Variables already present in the environment win.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("DEBUG") == "true"
}

// GetLogFolder returns the folder for the file log backend. Empty disables it.
func GetLogFolder() string {
	return os.Getenv("LOG_FOLDER")
}

func GetPort() int {
	return getInt("PORT", 8032)
}

func GetListen() string {
	return os.Getenv("LISTEN")
}

// Identity provider settings. These mirror the variables the OpenID Connect
// client has always been configured with.

func GetAuthSecret() string {
	return os.Getenv("AUTH_SECRET")
}

func GetBaseURL() string {
	return strings.TrimRight(getEnv("BASE_URL", "http://localhost:8032"), "/")
}

func GetClientID() string {
	return os.Getenv("CLIENT_ID")
}

func GetClientSecret() string {
	return os.Getenv("CLIENT_SECRET")
}

func GetIssuerBaseURL() string {
	return strings.TrimSpace(os.Getenv("ISSUER_BASE_URL"))
}

// GetSessionMaxAge returns the session cookie lifetime in seconds.
func GetSessionMaxAge() int {
	return int(getDuration("SESSION_MAX_AGE", 24*time.Hour) / time.Second)
}

func GetMapServiceURL() string {
	return strings.TrimRight(getEnv("MAP_SERVICE_URL", "https://maps.steams.social"), "/")
}

func GetMapTimeout() time.Duration {
	return getDuration("MAP_TIMEOUT", 10*time.Second)
}

func GetCORSAllowedOrigins() []string {
	return getList("CORS_ALLOWED_ORIGINS", []string{
		"https://steams.social",
		"https://www.steams.social",
		"https://steamwys.us.auth0.com",
	})
}

func GetCORSAllowCredentials() bool {
	return getBool("CORS_ALLOW_CREDENTIALS", true)
}

// GetTrustedProxies returns the proxies whose forwarding headers are trusted
// when resolving the client address. Nil trusts none and uses the peer address.
func GetTrustedProxies() []string {
	return getList("TRUSTED_PROXIES", nil)
}

// GetRateLimitMax ignores values below 1.
func GetRateLimitMax() int {
	if n := getInt("RATE_LIMIT_MAX", 100); n > 0 {
		return n
	}
	return 100
}

// GetRateLimitWindow ignores windows shorter than a second.
func GetRateLimitWindow() time.Duration {
	if d := getDuration("RATE_LIMIT_WINDOW", 15*time.Minute); d >= time.Second {
		return d
	}
	return 15 * time.Minute
}

func GetRateLimitStore() RateLimitStore {
	return RateLimitStore(strings.ToLower(getEnv("RATE_LIMIT_STORE", string(RateLimitStoreMemory))))
}

// GetRedisAddr returns the external Redis address. Empty starts an embedded server.
func GetRedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

func GetRedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func GetRedisDB() int {
	return getInt("REDIS_DB", 0)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
