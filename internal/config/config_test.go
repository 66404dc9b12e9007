package config

import (
	"reflect"
	"testing"
	"time"
)

var optionalEnvVars = []string{
	"BACKEND_TIMEOUT", "AUTH_CHECK_TIMEOUT", "LOGIN_SETTLE_DELAY", "VISITOR_SESSION_TTL",
	"VISITOR_MAX_SESSIONS", "MEDIA_FETCH_TIMEOUT", "MEDIA_MAX_SIZE", "MEDIA_ALLOWED_HOSTS",
	"RATE_LIMIT_GENERAL", "RATE_LIMIT_AUTH", "LOG_LEVEL", "SERVER_PORT", "PUBLIC_BASE_URL",
	"COOKIE_SECURE", "COOKIE_DOMAIN",
}

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range optionalEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("BACKEND_BASE_URL", "http://localhost:8000/")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 末尾のスラッシュは取り除く
	if cfg.BackendBaseURL != "http://localhost:8000" {
		t.Errorf("BackendBaseURL = %q, want %q", cfg.BackendBaseURL, "http://localhost:8000")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Backend defaults
	if cfg.BackendTimeout != 30*time.Second {
		t.Errorf("BackendTimeout = %v, want %v", cfg.BackendTimeout, 30*time.Second)
	}

	// Session defaults
	if cfg.AuthCheckTimeout != 5*time.Second {
		t.Errorf("AuthCheckTimeout = %v, want %v", cfg.AuthCheckTimeout, 5*time.Second)
	}
	if cfg.LoginSettleDelay != 500*time.Millisecond {
		t.Errorf("LoginSettleDelay = %v, want %v", cfg.LoginSettleDelay, 500*time.Millisecond)
	}
	if cfg.VisitorSessionTTL != 24*time.Hour {
		t.Errorf("VisitorSessionTTL = %v, want %v", cfg.VisitorSessionTTL, 24*time.Hour)
	}
	if cfg.VisitorMaxSessions != 10000 {
		t.Errorf("VisitorMaxSessions = %d, want %d", cfg.VisitorMaxSessions, 10000)
	}

	// Media defaults
	if cfg.MediaFetchTimeout != 10*time.Second {
		t.Errorf("MediaFetchTimeout = %v, want %v", cfg.MediaFetchTimeout, 10*time.Second)
	}
	if cfg.MediaMaxSize != 5242880 {
		t.Errorf("MediaMaxSize = %d, want %d", cfg.MediaMaxSize, 5242880)
	}
	if len(cfg.MediaAllowedHosts) != 0 {
		t.Errorf("MediaAllowedHosts = %v, want empty", cfg.MediaAllowedHosts)
	}

	// Rate limit defaults
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.RateLimitAuth != 10 {
		t.Errorf("RateLimitAuth = %d, want %d", cfg.RateLimitAuth, 10)
	}

	// Server defaults
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Errorf("PublicBaseURL = %q, want %q", cfg.PublicBaseURL, "http://localhost:8080")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure = true, want false for http PUBLIC_BASE_URL")
	}
}

func TestLoad_BackendTimeoutZeroDisablesLimit(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BACKEND_TIMEOUT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BackendTimeout != 0 {
		t.Errorf("BackendTimeout = %v, want 0", cfg.BackendTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("BACKEND_TIMEOUT", "15s")
	t.Setenv("AUTH_CHECK_TIMEOUT", "2s")
	t.Setenv("LOGIN_SETTLE_DELAY", "250ms")
	t.Setenv("VISITOR_SESSION_TTL", "1h")
	t.Setenv("VISITOR_MAX_SESSIONS", "500")
	t.Setenv("MEDIA_FETCH_TIMEOUT", "3s")
	t.Setenv("MEDIA_MAX_SIZE", "1048576")
	t.Setenv("MEDIA_ALLOWED_HOSTS", "media.guim.co.uk, i.guim.co.uk,,")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("RATE_LIMIT_AUTH", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("PUBLIC_BASE_URL", "https://news.example.com")
	t.Setenv("COOKIE_DOMAIN", "news.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.BackendTimeout != 15*time.Second {
		t.Errorf("BackendTimeout = %v, want %v", cfg.BackendTimeout, 15*time.Second)
	}
	if cfg.AuthCheckTimeout != 2*time.Second {
		t.Errorf("AuthCheckTimeout = %v, want %v", cfg.AuthCheckTimeout, 2*time.Second)
	}
	if cfg.LoginSettleDelay != 250*time.Millisecond {
		t.Errorf("LoginSettleDelay = %v, want %v", cfg.LoginSettleDelay, 250*time.Millisecond)
	}
	if cfg.VisitorSessionTTL != time.Hour {
		t.Errorf("VisitorSessionTTL = %v, want %v", cfg.VisitorSessionTTL, time.Hour)
	}
	if cfg.VisitorMaxSessions != 500 {
		t.Errorf("VisitorMaxSessions = %d, want %d", cfg.VisitorMaxSessions, 500)
	}
	if cfg.MediaFetchTimeout != 3*time.Second {
		t.Errorf("MediaFetchTimeout = %v, want %v", cfg.MediaFetchTimeout, 3*time.Second)
	}
	if cfg.MediaMaxSize != 1048576 {
		t.Errorf("MediaMaxSize = %d, want %d", cfg.MediaMaxSize, 1048576)
	}
	if want := []string{"media.guim.co.uk", "i.guim.co.uk"}; !reflect.DeepEqual(cfg.MediaAllowedHosts, want) {
		t.Errorf("MediaAllowedHosts = %v, want %v", cfg.MediaAllowedHosts, want)
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 60)
	}
	if cfg.RateLimitAuth != 5 {
		t.Errorf("RateLimitAuth = %d, want %d", cfg.RateLimitAuth, 5)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure = false, want true for https PUBLIC_BASE_URL")
	}
	if cfg.CookieDomain != "news.example.com" {
		t.Errorf("CookieDomain = %q, want %q", cfg.CookieDomain, "news.example.com")
	}
}

func TestLoad_CookieSecureOverride(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PUBLIC_BASE_URL", "https://news.example.com")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CookieSecure {
		t.Error("COOKIE_SECURE=false should override the https default")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AUTH_CHECK_TIMEOUT", "soon")
	t.Setenv("VISITOR_MAX_SESSIONS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AuthCheckTimeout != 5*time.Second {
		t.Errorf("AuthCheckTimeout = %v, want %v", cfg.AuthCheckTimeout, 5*time.Second)
	}
	if cfg.VisitorMaxSessions != 10000 {
		t.Errorf("VisitorMaxSessions = %d, want %d", cfg.VisitorMaxSessions, 10000)
	}
}

func TestLoad_MissingBackendBaseURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BACKEND_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing BACKEND_BASE_URL, got nil")
	}
}

func TestLoad_InvalidBackendBaseURL_ReturnsError(t *testing.T) {
	tests := []string{"localhost:8000", "ftp://backend.example.com", "/relative/path"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv("BACKEND_BASE_URL", raw)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for BACKEND_BASE_URL=%q, got nil", raw)
			}
		})
	}
}
