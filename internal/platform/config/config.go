// Package config loads runtime configuration from FORMCHECK_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"formcheck/internal/fieldcheck/models"
	"formcheck/pkg/platform/strings"
)

// Directory backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendFailover = "failover"
)

// Config is the full runtime configuration.
type Config struct {
	Log       LogConfig
	Field     FieldConfig
	Checks    CheckConfig
	Directory DirectoryConfig
	Redis     RedisConfig
	// MetricsAddr enables the /metrics and /healthz listener when set.
	MetricsAddr string `validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// FieldConfig holds the username and email field limits and the selectable
// domains.
type FieldConfig struct {
	Debounce          time.Duration `validate:"gte=0"`
	UsernameMinLength int           `validate:"min=1"`
	UsernameMaxLength int           `validate:"gtefield=UsernameMinLength,max=255"`
	EmailMinLength    int           `validate:"min=1"`
	EmailMaxLength    int           `validate:"gtefield=EmailMinLength,max=254"`
	Domains           []string      `validate:"dive,hostname"`
	DefaultDomain     string        `validate:"omitempty,hostname"`
}

// CheckConfig throttles and bounds availability queries.
type CheckConfig struct {
	Timeout time.Duration `validate:"gt=0"`
	// Rate is queries per second across all fields; zero disables throttling.
	Rate  float64 `validate:"gte=0"`
	Burst int     `validate:"min=1"`
}

type DirectoryConfig struct {
	Backend string        `validate:"oneof=memory redis failover"`
	Taken   []string      `validate:"dive,required"`
	Latency time.Duration `validate:"gte=0"`
	// Breaker thresholds for the failover backend.
	FailureThreshold int `validate:"min=1"`
	SuccessThreshold int `validate:"min=1"`
}

// RedisConfig configures the Redis directory connection.
type RedisConfig struct {
	URL          string
	PoolSize     int `validate:"min=1"`
	MinIdleConns int `validate:"gte=0"`
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads envFile (when non-empty) into the process environment and then
// builds the config from it. Without envFile a .env in the working directory
// is loaded if present.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := envReader{lookup: lookup}

	domains := strings.SplitCSV(e.str("FORMCHECK_DOMAINS", ""))
	defaultDomain := e.str("FORMCHECK_DEFAULT_DOMAIN", "")
	if defaultDomain == "" && len(domains) > 0 {
		defaultDomain = domains[0]
	}

	cfg := Config{
		Log: LogConfig{
			Level:  e.str("FORMCHECK_LOG_LEVEL", "info"),
			Format: e.str("FORMCHECK_LOG_FORMAT", "text"),
		},
		Field: FieldConfig{
			Debounce:          e.duration("FORMCHECK_DEBOUNCE", models.DefaultDebounce),
			UsernameMinLength: e.int("FORMCHECK_USERNAME_MIN_LENGTH", models.DefaultIdentifierMinLength),
			UsernameMaxLength: e.int("FORMCHECK_USERNAME_MAX_LENGTH", models.DefaultIdentifierMaxLength),
			EmailMinLength:    e.int("FORMCHECK_EMAIL_MIN_LENGTH", models.DefaultEmailMinLength),
			EmailMaxLength:    e.int("FORMCHECK_EMAIL_MAX_LENGTH", models.DefaultEmailMaxLength),
			Domains:           domains,
			DefaultDomain:     defaultDomain,
		},
		Checks: CheckConfig{
			Timeout: e.duration("FORMCHECK_QUERY_TIMEOUT", 10*time.Second),
			Rate:    e.float("FORMCHECK_QUERY_RATE", 0),
			Burst:   e.int("FORMCHECK_QUERY_BURST", 1),
		},
		Directory: DirectoryConfig{
			Backend:          e.str("FORMCHECK_DIRECTORY", BackendMemory),
			Taken:            strings.SplitCSV(e.str("FORMCHECK_TAKEN", "")),
			Latency:          e.duration("FORMCHECK_DIRECTORY_LATENCY", 0),
			FailureThreshold: e.int("FORMCHECK_BREAKER_FAILURES", 5),
			SuccessThreshold: e.int("FORMCHECK_BREAKER_SUCCESSES", 3),
		},
		Redis: RedisConfig{
			URL:          e.str("FORMCHECK_REDIS_URL", ""),
			PoolSize:     e.int("FORMCHECK_REDIS_POOL_SIZE", 10),
			MinIdleConns: e.int("FORMCHECK_REDIS_MIN_IDLE_CONNS", 0),
			DialTimeout:  e.duration("FORMCHECK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("FORMCHECK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("FORMCHECK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		MetricsAddr: e.str("FORMCHECK_METRICS_ADDR", ""),
	}

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Directory.Backend != BackendMemory && c.Redis.URL == "" {
		return fmt.Errorf("FORMCHECK_REDIS_URL is required for the %s directory", c.Directory.Backend)
	}
	if c.Field.DefaultDomain != "" && len(c.Field.Domains) > 0 && !slices.Contains(c.Field.Domains, c.Field.DefaultDomain) {
		return fmt.Errorf("default domain %q is not among FORMCHECK_DOMAINS", c.Field.DefaultDomain)
	}
	return nil
}

// UsernameField returns the field config for a username checked against the
// configured domains.
func (c Config) UsernameField() models.FieldConfig {
	return models.FieldConfig{
		Kind:      models.KindIdentifier,
		MinLength: c.Field.UsernameMinLength,
		MaxLength: c.Field.UsernameMaxLength,
		Debounce:  c.Field.Debounce,
		Context:   c.Field.DefaultDomain,
		Contexts:  c.Field.Domains,
	}
}

// EmailField returns the field config for an email address. Email fields
// have no domain selector.
func (c Config) EmailField() models.FieldConfig {
	return models.FieldConfig{
		Kind:      models.KindEmail,
		MinLength: c.Field.EmailMinLength,
		MaxLength: c.Field.EmailMaxLength,
		Debounce:  c.Field.Debounce,
	}
}

// envReader collects parse errors so every malformed variable is reported.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
