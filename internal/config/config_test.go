package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host settings cannot leak into
// assertions. t.Setenv also restores the originals after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
		"API_BASE_PATH", "DB_PATH", "VIEWER_BASE_URL", "CLAIM_POINTS", "UNCLAIM_TOKEN_LEN",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"IDEMPOTENCY_TTL", "PUSH_ENDPOINT", "PUSH_API_KEY", "MAIL_ENDPOINT", "MAIL_SERVICE_KEY",
		"PROVIDER_TIMEOUT", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Errorf("mode/level = %q/%q", cfg.GinMode, cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "hint.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ClaimPoints != 10 || cfg.UnclaimTokenLen != 32 {
		t.Errorf("ClaimPoints/UnclaimTokenLen = %d/%d", cfg.ClaimPoints, cfg.UnclaimTokenLen)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Errorf("rate = %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.Providers.PushEndpoint != "" || cfg.Providers.MailEndpoint != "" {
		t.Errorf("providers enabled by default: %+v", cfg.Providers)
	}
	if cfg.Providers.Timeout != 10*time.Second {
		t.Errorf("provider timeout = %v", cfg.Providers.Timeout)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "hint-server" || cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("OTEL defaults = %+v", cfg.OTEL)
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Errorf("CORS origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GIN_MODE", "DEBUG")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("VIEWER_BASE_URL", "https://lists.example.org/view")
	t.Setenv("CLAIM_POINTS", "50")
	t.Setenv("UNCLAIM_TOKEN_LEN", "48")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	t.Setenv("PUSH_ENDPOINT", "https://push.example.com/send")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "debug" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warning normalized to warn", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.ClaimPoints != 50 || cfg.UnclaimTokenLen != 48 {
		t.Errorf("ClaimPoints/UnclaimTokenLen = %d/%d", cfg.ClaimPoints, cfg.UnclaimTokenLen)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("CORS origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Providers.PushEndpoint != "https://push.example.com/send" || cfg.Providers.Timeout != 3*time.Second {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.OTEL.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v", cfg.OTEL.SampleRatio)
	}

	u := cfg.ViewerURL()
	if u == nil || u.Host != "lists.example.org" || u.Path != "/view" {
		t.Errorf("ViewerURL = %v", u)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"relative viewer url", "VIEWER_BASE_URL", "/l", "VIEWER_BASE_URL"},
		{"zero claim points", "CLAIM_POINTS", "0", "CLAIM_POINTS"},
		{"short unclaim token", "UNCLAIM_TOKEN_LEN", "8", "UNCLAIM_TOKEN_LEN"},
		{"negative rps", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"zero idempotency ttl", "IDEMPOTENCY_TTL", "-1s", "IDEMPOTENCY_TTL"},
		{"zero provider timeout", "PROVIDER_TIMEOUT", "-1s", "PROVIDER_TIMEOUT"},
		{"sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "2", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil {
				t.Fatalf("Load accepted %s=%s", tc.key, tc.val)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestLoad_UnknownGinModeFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v1/": "/api/v1",
		" /api  ":  "/api",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Errorf("splitCSV(\"\") = %v", got)
	}
	got := splitCSV(" a ,, b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitCSV = %v", got)
	}
}
