// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"

	DefaultSQLiteDSN = "sqlite:///./readinglist.db"
)

type RateLimit struct {
	Backend     string
	Window      time.Duration
	PostLimit   int
	GlobalLimit int
	IdleTTL     time.Duration
	SweepEvery  time.Duration
	TrustProxy  bool
}

type Redis struct {
	URL      string
	Addr     string
	User     string
	Password string
}

func (r Redis) Configured() bool { return r.URL != "" || r.Addr != "" }

type Snapshot struct {
	Bucket   string
	Endpoint string
	Region   string
	At       string
	TZ       string
}

func (s Snapshot) Enabled() bool { return s.Bucket != "" }

type Config struct {
	Addr           string
	AppEnv         string
	StorageBackend string
	DatabaseURL    string
	EnsureSchema   bool
	MaxBodyBytes   int64

	RateLimit RateLimit
	Redis     Redis

	CORSOrigins    []string
	StrictSecurity bool

	LogLevel  string
	LogFormat string

	TLSCertFile string
	TLSKeyFile  string

	Snapshot Snapshot
}

func (c Config) Production() bool { return strings.EqualFold(c.AppEnv, "production") }

func (c Config) TLS() bool { return c.TLSCertFile != "" && c.TLSKeyFile != "" }

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from getenv and validates it.
func LoadFrom(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	c := Config{
		Addr:           e.str("ADDR", ":8080"),
		AppEnv:         e.str("APP_ENV", "development"),
		StorageBackend: strings.ToLower(e.str("STORAGE_BACKEND", BackendMemory)),
		DatabaseURL:    e.str("DATABASE_URL", ""),
		MaxBodyBytes:   e.num64("MAX_BODY_BYTES", 1_000_000),
		RateLimit: RateLimit{
			Backend:     strings.ToLower(e.str("RATE_LIMIT_BACKEND", BackendMemory)),
			Window:      e.dur("RATE_LIMIT_WINDOW", 60*time.Second),
			PostLimit:   e.num("RATE_LIMIT_POST", 10),
			GlobalLimit: e.num("RATE_LIMIT_GLOBAL", 1000),
			IdleTTL:     e.dur("RATE_LIMIT_IDLE_TTL", 15*time.Minute),
			SweepEvery:  e.dur("RATE_LIMIT_SWEEP_EVERY", 2*time.Minute),
			TrustProxy:  e.flag("TRUST_PROXY_HEADERS", false),
		},
		Redis: Redis{
			URL:      e.str("REDIS_URL", ""),
			Addr:     e.str("REDIS_ADDR", ""),
			User:     e.str("REDIS_USER", ""),
			Password: e.str("REDIS_PASSWORD", ""),
		},
		CORSOrigins:    e.list("CORS_ORIGINS"),
		StrictSecurity: e.flag("STRICT_SECURITY", false),
		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(e.str("LOG_FORMAT", "json")),
		TLSCertFile:    e.str("TLS_CERT_FILE", ""),
		TLSKeyFile:     e.str("TLS_KEY_FILE", ""),
		Snapshot: Snapshot{
			Bucket:   e.str("SNAPSHOT_BUCKET", ""),
			Endpoint: e.str("SNAPSHOT_ENDPOINT", ""),
			Region:   e.str("SNAPSHOT_REGION", "auto"),
			At:       e.str("SNAPSHOT_AT", "03:00"),
			TZ:       e.str("SNAPSHOT_TZ", "UTC"),
		},
	}
	if c.StorageBackend == BackendSQLite && c.DatabaseURL == "" {
		c.DatabaseURL = DefaultSQLiteDSN
	}
	c.EnsureSchema = e.flag("DB_ENSURE_SCHEMA", c.StorageBackend != BackendPostgres)

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate fails fast on settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q must be memory, postgres or sqlite", c.StorageBackend))
	}

	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if !c.Redis.Configured() {
			errs = append(errs, errors.New("RATE_LIMIT_BACKEND=redis needs REDIS_URL or REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q must be memory or redis", c.RateLimit.Backend))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be > 0"))
	}
	if c.RateLimit.PostLimit <= 0 || c.RateLimit.GlobalLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_POST and RATE_LIMIT_GLOBAL must be > 0"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be > 0"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be debug, info, warn or error", c.LogLevel))
	}
	if c.Snapshot.Enabled() {
		if _, _, err := ParseClock(c.Snapshot.At); err != nil {
			errs = append(errs, fmt.Errorf("SNAPSHOT_AT: %w", err))
		}
		if _, err := time.LoadLocation(c.Snapshot.TZ); err != nil {
			errs = append(errs, fmt.Errorf("SNAPSHOT_TZ: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Warnings returns non-fatal hardening nudges worth logging on startup.
func (c Config) Warnings() []string {
	var warns []string
	if c.RateLimit.TrustProxy {
		warns = append(warns, "TRUST_PROXY_HEADERS=true: client IPs come from X-Forwarded-For; only enable behind a proxy you control")
	}
	if !c.Production() {
		return warns
	}
	if c.StorageBackend == BackendMemory {
		warns = append(warns, "STORAGE_BACKEND=memory in production: data is lost on restart")
	}
	if c.RateLimit.Backend == BackendMemory {
		warns = append(warns, "RATE_LIMIT_BACKEND=memory: limits are per replica")
	}
	if strings.HasPrefix(c.Redis.URL, "redis://") {
		warns = append(warns, "REDIS_URL uses redis:// (no TLS). Prefer rediss:// for TLS")
	}
	if c.Redis.Addr != "" && c.Redis.URL == "" && (c.Redis.User == "" || c.Redis.Password == "") {
		warns = append(warns, "REDIS_ADDR provided without REDIS_USER/REDIS_PASSWORD; require auth in production")
	}
	if !c.TLS() {
		warns = append(warns, "TLS_CERT_FILE/TLS_KEY_FILE not set; serving plain HTTP")
	}
	for _, o := range c.CORSOrigins {
		if o == "*" {
			warns = append(warns, "CORS_ORIGINS contains *; any site can call the API")
		}
	}
	return warns
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	c.DatabaseURL = redactURL(c.DatabaseURL)
	c.Redis.URL = redactURL(c.Redis.URL)
	if c.Redis.Password != "" {
		c.Redis.Password = "xxxxx"
	}
	c.CORSOrigins = append([]string(nil), c.CORSOrigins...)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		if strings.Contains(raw, "password=") {
			return "xxxxx"
		}
		return raw
	}
	return u.Redacted()
}
