package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"HOST", "PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
	"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH",
	"DB_PATH", "TIMEZONE", "REMINDER_WINDOW", "AUTH_GATE_ENABLED", "SESSION_SECRET",
	"SESSION_MAX_AGE", "PIN_RESET_CODE", "RATE_RPS", "RATE_BURST", "AUTH_RATE_PER_MIN",
	"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE", "IDEMPOTENCY_TTL", "OTEL_ENABLED",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
	"OTEL_TRACES_SAMPLER_ARG",
}

// cleanEnv blanks every variable Load reads; empty counts as unset.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Fatalf("Addr = %q; want loopback", cfg.Addr())
	}
	if cfg.APIBasePath != "/api/v1" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.DBPath != "medremind.db" || cfg.Location == nil || cfg.ReminderWindow != 15*time.Minute {
		t.Fatalf("app defaults: %+v", cfg)
	}
	if cfg.Auth.GateEnabled || cfg.Auth.ResetCode != "" || cfg.Auth.SessionMaxAge != 12*time.Hour {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 || cfg.AuthRatePerMin != 5 {
		t.Fatalf("rate defaults: %v %v %v", cfg.RateRPS, cfg.RateBurst, cfg.AuthRatePerMin)
	}
	if cfg.CORS.AllowedOrigins != nil || cfg.Security.EnableHSTS || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("web defaults: %+v %+v %v", cfg.CORS, cfg.Security, cfg.IdempotencyTTL)
	}
	if cfg.OTEL.Enabled || !cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "medremind" || cfg.OTEL.SampleRatio != 1 {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t)
	set := map[string]string{
		"HOST":                        "0.0.0.0",
		"PORT":                        "9000",
		"READ_TIMEOUT":                "2s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "Weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "medremind/v2/",
		"DB_PATH":                     " /var/lib/medremind/data.db ",
		"TIMEZONE":                    "America/New_York",
		"REMINDER_WINDOW":             "45m",
		"AUTH_GATE_ENABLED":           "true",
		"SESSION_SECRET":              strings.Repeat("k", 32),
		"PIN_RESET_CODE":              " 246810 ",
		"RATE_RPS":                    "0.5",
		"AUTH_RATE_PER_MIN":           "3",
		"CORS_ALLOWED_ORIGINS":        " https://a.example , ,http://localhost:5173 ",
		"ENABLE_HSTS":                 "1",
		"IDEMPOTENCY_TTL":             "48h",
		"OTEL_ENABLED":                "Y",
		"OTEL_EXPORTER_OTLP_INSECURE": "off",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
	}
	for k, v := range set {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9000" || cfg.ReadTimeout != 2*time.Second || cfg.MaxHeaderBytes != 8192 {
		t.Fatalf("server: %+v", cfg)
	}
	if cfg.GinMode != "release" || cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled {
		t.Fatalf("normalization: mode=%q level=%q", cfg.GinMode, cfg.LogLevel)
	}
	if cfg.APIBasePath != "/medremind/v2" || cfg.DBPath != "/var/lib/medremind/data.db" {
		t.Fatalf("paths: %q %q", cfg.APIBasePath, cfg.DBPath)
	}
	if cfg.Location.String() != "America/New_York" || cfg.ReminderWindow != 45*time.Minute {
		t.Fatalf("calendar: %v %v", cfg.Location, cfg.ReminderWindow)
	}
	if !cfg.Auth.GateEnabled || cfg.Auth.ResetCode != "246810" {
		t.Fatalf("auth: %+v", cfg.Auth)
	}
	if cfg.RateRPS != 0.5 || cfg.AuthRatePerMin != 3 {
		t.Fatalf("rate: %v %v", cfg.RateRPS, cfg.AuthRatePerMin)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.example", "http://localhost:5173"}) {
		t.Fatalf("cors: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("security: %+v %v", cfg.Security, cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{map[string]string{"READ_TIMEOUT": "0s"}, "READ_TIMEOUT"},
		{map[string]string{"IDLE_TIMEOUT": "-1s"}, "IDLE_TIMEOUT"},
		{map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{map[string]string{"REMINDER_WINDOW": "0m"}, "REMINDER_WINDOW"},
		{map[string]string{"AUTH_GATE_ENABLED": "true", "SESSION_SECRET": "short"}, "SESSION_SECRET"},
		{map[string]string{"SESSION_MAX_AGE": "0s"}, "SESSION_MAX_AGE"},
		{map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{map[string]string{"AUTH_RATE_PER_MIN": "0"}, "AUTH_RATE_PER_MIN"},
		{map[string]string{"HSTS_MAX_AGE": "-1h"}, "HSTS_MAX_AGE"},
		{map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		// Malformed values are errors, not silent defaults.
		{map[string]string{"RATE_RPS": "fast"}, "RATE_RPS must be a number"},
		{map[string]string{"RATE_BURST": "ten"}, "RATE_BURST must be an integer"},
		{map[string]string{"LOG_PRETTY": "maybe"}, "LOG_PRETTY must be a boolean"},
		{map[string]string{"REMINDER_WINDOW": "15"}, "REMINDER_WINDOW must be a duration"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v; want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("RATE_BURST", "x")
	t.Setenv("TIMEZONE", "Nowhere/City")
	t.Setenv("IDEMPOTENCY_TTL", "0s")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, k := range []string{"RATE_BURST", "TIMEZONE", "IDEMPOTENCY_TTL"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error %q does not mention %s", err, k)
		}
	}
}

func TestMustLoad(t *testing.T) {
	cleanEnv(t)
	if cfg := MustLoad(); cfg.Port != "8080" {
		t.Fatalf("MustLoad port = %q", cfg.Port)
	}

	t.Setenv("LOG_LEVEL", "chatty")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad must panic on invalid config")
		}
	}()
	MustLoad()
}

func TestNormalizeBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":         "/",
		"/":        "/",
		" api ":    "/api",
		"/api/v1/": "/api/v1",
		"api/v1":   "/api/v1",
	} {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
