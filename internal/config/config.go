// Package config loads MedRemind settings from environment variables.
//
// Unset or empty variables take their default. A variable that is set but
// cannot be parsed is an error, as is any value outside its allowed range;
// Load reports all of them together so a bad .env file can be fixed in one
// pass.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists browser origins allowed to call the API. Empty allows any
// origin without credentials.
type CORSConfig struct {
	AllowedOrigins []string
}

type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// AuthConfig configures the PIN gate.
type AuthConfig struct {
	GateEnabled   bool          // AUTH_GATE_ENABLED
	SessionSecret string        // SESSION_SECRET, signs the session cookie
	SessionMaxAge time.Duration // SESSION_MAX_AGE
	ResetCode     string        // PIN_RESET_CODE; empty disables reset
}

// Config is the resolved application configuration.
type Config struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug, release or test

	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string // "/" or a path without trailing slash

	DBPath         string
	Timezone       string         // IANA name or "Local"
	Location       *time.Location // resolved from Timezone
	ReminderWindow time.Duration  // default look-ahead for due reminders

	Auth AuthConfig

	RateRPS        float64
	RateBurst      int
	AuthRatePerMin int // unlock and reset attempts per minute per client

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // how long a dose write can be replayed

	OTEL OTELConfig
}

// MustLoad is Load for main: it panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration.
func Load() (Config, error) {
	var env envReader

	cfg := Config{
		Host:              env.str("HOST", "127.0.0.1"),
		Port:              env.str("PORT", "8080"),
		ReadTimeout:       env.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: env.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      env.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       env.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    env.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(env.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogPretty:      env.flag("LOG_PRETTY", false),
		SwaggerEnabled: env.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(env.str("API_BASE_PATH", "/api/v1")),

		DBPath:         env.str("DB_PATH", "medremind.db"),
		Timezone:       env.str("TIMEZONE", "Local"),
		ReminderWindow: env.dur("REMINDER_WINDOW", 15*time.Minute),

		Auth: AuthConfig{
			GateEnabled:   env.flag("AUTH_GATE_ENABLED", false),
			SessionSecret: env.str("SESSION_SECRET", ""),
			SessionMaxAge: env.dur("SESSION_MAX_AGE", 12*time.Hour),
			ResetCode:     env.str("PIN_RESET_CODE", ""),
		},

		RateRPS:        env.float("RATE_RPS", 5.0),
		RateBurst:      env.integer("RATE_BURST", 10),
		AuthRatePerMin: env.integer("AUTH_RATE_PER_MIN", 5),

		CORS: CORSConfig{AllowedOrigins: splitCSV(env.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: env.flag("ENABLE_HSTS", false),
			HSTSMaxAge: env.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: env.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     env.flag("OTEL_ENABLED", false),
			Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    env.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: env.str("OTEL_SERVICE_NAME", "medremind"),
			SampleRatio: env.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		env.fail("TIMEZONE", "must be a valid IANA time zone or Local")
	} else {
		cfg.Location = loc
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		env.fail("LOG_LEVEL", "must be one of debug, info, warn, error, fatal, panic")
	}
	env.check(cfg.ReadTimeout > 0, "READ_TIMEOUT", "must be > 0")
	env.check(cfg.ReadHeaderTimeout > 0, "READ_HEADER_TIMEOUT", "must be > 0")
	env.check(cfg.WriteTimeout > 0, "WRITE_TIMEOUT", "must be > 0")
	env.check(cfg.IdleTimeout > 0, "IDLE_TIMEOUT", "must be > 0")
	env.check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES", "must be > 0")
	env.check(cfg.ReminderWindow > 0, "REMINDER_WINDOW", "must be > 0")
	env.check(!cfg.Auth.GateEnabled || len(cfg.Auth.SessionSecret) >= 32,
		"SESSION_SECRET", "must be at least 32 bytes when AUTH_GATE_ENABLED")
	env.check(cfg.Auth.SessionMaxAge > 0, "SESSION_MAX_AGE", "must be > 0")
	env.check(cfg.RateRPS >= 0, "RATE_RPS", "must be >= 0")
	env.check(cfg.RateBurst >= 1, "RATE_BURST", "must be >= 1")
	env.check(cfg.AuthRatePerMin >= 1, "AUTH_RATE_PER_MIN", "must be >= 1")
	env.check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE", "must be >= 0")
	env.check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL", "must be > 0")
	env.check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG", "must be in [0,1]")

	return cfg, env.err()
}

// Addr returns host:port for http.Server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// envReader reads typed variables and collects every problem it sees.
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, msg string) {
	r.errs = append(r.errs, fmt.Errorf("%s %s", key, msg))
}

func (r *envReader) check(ok bool, key, msg string) {
	if !ok {
		r.fail(key, msg)
	}
}

func (r *envReader) err() error { return errors.Join(r.errs...) }

// lookup returns the trimmed value and whether it is non-empty.
func (r *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "must be an integer")
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, "must be a number")
		return def
	}
	return f
}

func (r *envReader) flag(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.fail(key, "must be a boolean")
	return def
}

func (r *envReader) dur(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, "must be a duration such as 15m or 12h")
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns "/" for empty input, otherwise a path with a
// leading slash and no trailing slash.
func normalizeBasePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}
