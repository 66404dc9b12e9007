package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendBaseURL string
	BackendTimeout time.Duration

	// Session
	AuthCheckTimeout   time.Duration
	LoginSettleDelay   time.Duration
	VisitorSessionTTL  time.Duration
	VisitorMaxSessions int

	// Media
	MediaFetchTimeout time.Duration
	MediaMaxSize      int64
	MediaAllowedHosts []string

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel string

	// Server
	ServerPort    string
	PublicBaseURL string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendBaseURL = strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/")
	if cfg.BackendBaseURL == "" {
		missing = append(missing, "BACKEND_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	u, err := url.Parse(cfg.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL must be an absolute http(s) URL: %q", cfg.BackendBaseURL)
	}

	// Optional fields with defaults
	// 0はバックエンド呼び出しに上限を設けない
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 30*time.Second)
	cfg.AuthCheckTimeout = getEnvDuration("AUTH_CHECK_TIMEOUT", 5*time.Second)
	cfg.LoginSettleDelay = getEnvDuration("LOGIN_SETTLE_DELAY", 500*time.Millisecond)
	cfg.VisitorSessionTTL = getEnvDuration("VISITOR_SESSION_TTL", 24*time.Hour)
	cfg.VisitorMaxSessions = getEnvInt("VISITOR_MAX_SESSIONS", 10000)
	cfg.MediaFetchTimeout = getEnvDuration("MEDIA_FETCH_TIMEOUT", 10*time.Second)
	cfg.MediaMaxSize = getEnvInt64("MEDIA_MAX_SIZE", 5242880)
	cfg.MediaAllowedHosts = getEnvList("MEDIA_ALLOWED_HOSTS")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.PublicBaseURL = getEnvString("PUBLIC_BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", strings.HasPrefix(cfg.PublicBaseURL, "https://"))
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
