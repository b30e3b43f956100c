package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shelfrank API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Recommender RecommenderConfig `yaml:"recommender"`
	NLP         NLPConfig         `yaml:"nlp"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Feed        FeedConfig        `yaml:"feed"`
	Cache       CacheConfig       `yaml:"cache"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds catalog store settings.
type CatalogConfig struct {
	DSN              string `yaml:"dsn"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	QueryTimeoutSec  int    `yaml:"query_timeout_sec"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// RecommenderConfig holds personalization service settings.
type RecommenderConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	AnonymousID string `yaml:"anonymous_id"`
}

// NLPConfig holds query interpretation service settings.
type NLPConfig struct {
	BaseURL             string `yaml:"base_url"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	MaxRecommendations  int    `yaml:"max_recommendations"`
	EnableSQLGeneration bool   `yaml:"enable_sql_generation"`
}

// MonitorConfig holds health monitor settings.
type MonitorConfig struct {
	IntervalSec     int `yaml:"interval_sec"`
	CheckTimeoutSec int `yaml:"check_timeout_sec"`
	MinRecheckSec   int `yaml:"min_recheck_sec"`
}

// FeedConfig holds feed size limits.
type FeedConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// CacheConfig holds the recommendation cache settings. No addrs disables it.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenTimeoutSec      int    `yaml:"open_timeout_sec"`
	HalfOpenRequests    uint32 `yaml:"half_open_requests"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.MaxOpenConns <= 0 {
		c.Catalog.MaxOpenConns = 4
	}
	if c.Catalog.QueryTimeoutSec <= 0 {
		c.Catalog.QueryTimeoutSec = 15
	}
	if c.Catalog.ReadinessTimeout <= 0 {
		c.Catalog.ReadinessTimeout = 10
	}
	if c.Recommender.TimeoutSec <= 0 {
		c.Recommender.TimeoutSec = 5
	}
	if c.Recommender.AnonymousID == "" {
		c.Recommender.AnonymousID = "anonymous"
	}
	if c.NLP.TimeoutSec <= 0 {
		c.NLP.TimeoutSec = 5
	}
	if c.NLP.MaxRecommendations <= 0 {
		c.NLP.MaxRecommendations = 20
	}
	if c.Monitor.IntervalSec <= 0 {
		c.Monitor.IntervalSec = 30
	}
	if c.Monitor.CheckTimeoutSec <= 0 {
		c.Monitor.CheckTimeoutSec = 3
	}
	if c.Monitor.MinRecheckSec <= 0 {
		c.Monitor.MinRecheckSec = 5
	}
	if c.Feed.DefaultLimit <= 0 {
		c.Feed.DefaultLimit = 20
	}
	if c.Feed.MaxLimit <= 0 {
		c.Feed.MaxLimit = 100
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
	if c.Breaker.HalfOpenRequests == 0 {
		c.Breaker.HalfOpenRequests = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog.dsn is required")
	}
	if err := validateURL("recommender.base_url", c.Recommender.BaseURL); err != nil {
		return err
	}
	if err := validateURL("nlp.base_url", c.NLP.BaseURL); err != nil {
		return err
	}
	if c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return fmt.Errorf("feed.default_limit (%d) must not exceed feed.max_limit (%d)",
			c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
