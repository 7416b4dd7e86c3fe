package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// EnvPrefix is the prefix of environment overrides, e.g. TROLLEY_API_BASE.
const EnvPrefix = "TROLLEY"

// Credential backends.
const (
	CredentialFile  = "file"
	CredentialRedis = "redis"
	CredentialEnv   = "env"
)

// Config captures everything trolley needs at startup.
type Config struct {
	APIBase              string
	RequestTimeout       time.Duration
	Debounce             time.Duration
	TaxRate              decimal.Decimal
	NotifyQuantityErrors bool
	CredentialBackend    string
	CredentialsPath      string
	RedisURL             string
	LogDir               string
	LogLevel             string
	MetricsAddr          string
	FetchRetries         int
	// BreakerFailures consecutive backend failures open the circuit; 0 disables it.
	BreakerFailures int
	BreakerCooldown time.Duration
}

const (
	defaultConfigPath      = "~/.config/trolley/config.toml"
	defaultCredentialsPath = "~/.config/trolley/credentials.toml"
	defaultLogDir          = "~/.local/share/trolley"
	defaultAPIBase         = "http://127.0.0.1:8000/api"
	defaultRequestTimeout  = 10 * time.Second
	defaultDebounce        = 500 * time.Millisecond
	defaultLogLevel        = "info"
	defaultFetchRetries    = 3
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 15 * time.Second
)

type fileConfig struct {
	APIBase              string `toml:"api_base"`
	RequestTimeout       string `toml:"request_timeout"`
	Debounce             string `toml:"debounce"`
	TaxRate              string `toml:"tax_rate"`
	NotifyQuantityErrors bool   `toml:"notify_quantity_errors"`
	CredentialBackend    string `toml:"credential_backend"`
	CredentialsPath      string `toml:"credentials_path"`
	RedisURL             string `toml:"redis_url"`
	LogDir               string `toml:"log_dir"`
	LogLevel             string `toml:"log_level"`
	MetricsAddr          string `toml:"metrics_addr"`
	FetchRetries         int    `toml:"fetch_retries"`
	BreakerFailures      *int   `toml:"breaker_failures"`
	BreakerCooldown      string `toml:"breaker_cooldown"`
}

// envConfig holds TROLLEY_* overrides. Nil fields were not set.
type envConfig struct {
	APIBase              *string        `envconfig:"API_BASE"`
	RequestTimeout       *time.Duration `envconfig:"REQUEST_TIMEOUT"`
	Debounce             *time.Duration `envconfig:"DEBOUNCE"`
	TaxRate              *string        `envconfig:"TAX_RATE"`
	NotifyQuantityErrors *bool          `envconfig:"NOTIFY_QUANTITY_ERRORS"`
	CredentialBackend    *string        `envconfig:"CREDENTIAL_BACKEND"`
	CredentialsPath      *string        `envconfig:"CREDENTIALS_PATH"`
	RedisURL             *string        `envconfig:"REDIS_URL"`
	LogDir               *string        `envconfig:"LOG_DIR"`
	LogLevel             *string        `envconfig:"LOG_LEVEL"`
	MetricsAddr          *string        `envconfig:"METRICS_ADDR"`
	FetchRetries         *int           `envconfig:"FETCH_RETRIES"`
	BreakerFailures      *int           `envconfig:"BREAKER_FAILURES"`
	BreakerCooldown      *time.Duration `envconfig:"BREAKER_COOLDOWN"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBase:           defaultAPIBase,
		RequestTimeout:    defaultRequestTimeout,
		Debounce:          defaultDebounce,
		TaxRate:           decimal.Zero,
		CredentialBackend: CredentialFile,
		CredentialsPath:   mustExpand(defaultCredentialsPath),
		LogDir:            mustExpand(defaultLogDir),
		LogLevel:          defaultLogLevel,
		FetchRetries:      defaultFetchRetries,
		BreakerFailures:   defaultBreakerFailures,
		BreakerCooldown:   defaultBreakerCooldown,
	}
}

// Load reads the TOML config at path (or the default location), falls back
// to defaults when it is missing, then applies TROLLEY_* environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if raw != nil {
		if err := cfg.applyFile(*raw); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &raw, nil
}

func (c *Config) applyFile(raw fileConfig) error {
	if v := strings.TrimSpace(raw.APIBase); v != "" {
		c.APIBase = v
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.Debounce); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse debounce: %w", err)
		}
		c.Debounce = d
	}
	if v := strings.TrimSpace(raw.TaxRate); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("parse tax_rate: %w", err)
		}
		c.TaxRate = rate
	}
	c.NotifyQuantityErrors = raw.NotifyQuantityErrors
	if v := strings.TrimSpace(raw.CredentialBackend); v != "" {
		c.CredentialBackend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.CredentialsPath); v != "" {
		c.CredentialsPath = mustExpand(v)
	}
	c.RedisURL = strings.TrimSpace(raw.RedisURL)
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		c.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if raw.FetchRetries != 0 {
		c.FetchRetries = raw.FetchRetries
	}
	if raw.BreakerFailures != nil {
		c.BreakerFailures = *raw.BreakerFailures
	}
	if v := strings.TrimSpace(raw.BreakerCooldown); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse breaker_cooldown: %w", err)
		}
		c.BreakerCooldown = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env envConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if env.APIBase != nil {
		c.APIBase = strings.TrimSpace(*env.APIBase)
	}
	if env.RequestTimeout != nil {
		c.RequestTimeout = *env.RequestTimeout
	}
	if env.Debounce != nil {
		c.Debounce = *env.Debounce
	}
	if env.TaxRate != nil {
		rate, err := decimal.NewFromString(strings.TrimSpace(*env.TaxRate))
		if err != nil {
			return fmt.Errorf("parse %s_TAX_RATE: %w", EnvPrefix, err)
		}
		c.TaxRate = rate
	}
	if env.NotifyQuantityErrors != nil {
		c.NotifyQuantityErrors = *env.NotifyQuantityErrors
	}
	if env.CredentialBackend != nil {
		c.CredentialBackend = strings.ToLower(strings.TrimSpace(*env.CredentialBackend))
	}
	if env.CredentialsPath != nil {
		c.CredentialsPath = mustExpand(*env.CredentialsPath)
	}
	if env.RedisURL != nil {
		c.RedisURL = strings.TrimSpace(*env.RedisURL)
	}
	if env.LogDir != nil {
		c.LogDir = mustExpand(*env.LogDir)
	}
	if env.LogLevel != nil {
		c.LogLevel = strings.TrimSpace(*env.LogLevel)
	}
	if env.MetricsAddr != nil {
		c.MetricsAddr = strings.TrimSpace(*env.MetricsAddr)
	}
	if env.FetchRetries != nil {
		c.FetchRetries = *env.FetchRetries
	}
	if env.BreakerFailures != nil {
		c.BreakerFailures = *env.BreakerFailures
	}
	if env.BreakerCooldown != nil {
		c.BreakerCooldown = *env.BreakerCooldown
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIBase) == "" {
		return errors.New("api_base is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("tax_rate must not be negative, got %s", c.TaxRate)
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("fetch_retries must be at least 1, got %d", c.FetchRetries)
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("breaker_failures must not be negative, got %d", c.BreakerFailures)
	}
	if c.BreakerFailures > 0 && c.BreakerCooldown <= 0 {
		return fmt.Errorf("breaker_cooldown must be positive, got %s", c.BreakerCooldown)
	}
	switch c.CredentialBackend {
	case CredentialFile, CredentialEnv:
	case CredentialRedis:
		if c.RedisURL == "" {
			return errors.New("redis_url is required when credential_backend is redis")
		}
	default:
		return fmt.Errorf("unknown credential_backend %q", c.CredentialBackend)
	}
	return nil
}

// LogPath returns the path of the trolley log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/trolley.log")
	}
	return filepath.Join(c.LogDir, "trolley.log")
}

// DefaultPath returns the default config file location, unexpanded.
func DefaultPath() string {
	return defaultConfigPath
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
