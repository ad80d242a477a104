// Package config loads settings for the CLI and the stub server.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (config/nutrition.yaml by default), a .env file, and NUTRITION_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nutritrack/nutrition-core/internal/kvstore"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

// DefaultPath is the config file read when no path is given.
var DefaultPath = filepath.Join("config", "nutrition.yaml")

// DefaultEnvFile is the dotenv file read when present.
const DefaultEnvFile = ".env"

// Config is the complete runtime configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// AppConfig holds presentation settings.
type AppConfig struct {
	Name string `yaml:"name" env:"NUTRITION_APP_NAME"`
	// CalorieGoal is the daily target shown under the food log. Zero hides it.
	CalorieGoal float64 `yaml:"calorie_goal" env:"NUTRITION_CALORIE_GOAL"`
}

// APIConfig configures the remote client.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"NUTRITION_API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"NUTRITION_API_TIMEOUT"`
}

// SessionConfig names the persisted session keys.
type SessionConfig struct {
	TokenKey string `yaml:"token_key" env:"NUTRITION_SESSION_TOKEN_KEY"`
	UserKey  string `yaml:"user_key" env:"NUTRITION_SESSION_USER_KEY"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" env:"NUTRITION_STORE_DRIVER"`
	Path          string `yaml:"path" env:"NUTRITION_STORE_PATH"`
	DSN           string `yaml:"dsn" env:"NUTRITION_STORE_DSN"`
	Table         string `yaml:"table" env:"NUTRITION_STORE_TABLE"`
	RedisAddr     string `yaml:"redis_addr" env:"NUTRITION_STORE_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"NUTRITION_STORE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"NUTRITION_STORE_REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" env:"NUTRITION_STORE_KEY_PREFIX"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"NUTRITION_LOG_LEVEL"`
	Format string `yaml:"format" env:"NUTRITION_LOG_FORMAT"`
}

// ServerConfig configures the stub API server.
type ServerConfig struct {
	Addr      string        `yaml:"addr" env:"NUTRITION_SERVER_ADDR"`
	JWTSecret string        `yaml:"jwt_secret" env:"NUTRITION_SERVER_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"NUTRITION_SERVER_TOKEN_TTL"`
	RateLimit float64       `yaml:"rate_limit" env:"NUTRITION_SERVER_RATE_LIMIT"`
	RateBurst int           `yaml:"rate_burst" env:"NUTRITION_SERVER_RATE_BURST"`
	SeedFile  string        `yaml:"seed_file" env:"NUTRITION_SERVER_SEED_FILE"`
	Metrics   string        `yaml:"metrics_namespace" env:"NUTRITION_SERVER_METRICS_NAMESPACE"`
	// AllowedOrigins enables CORS. The environment form separates origins
	// with semicolons.
	AllowedOrigins []string `yaml:"allowed_origins" env:"NUTRITION_SERVER_ALLOWED_ORIGINS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "Nutrition Tracker", CalorieGoal: 2000},
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			TokenKey: "authToken",
			UserKey:  "userData",
		},
		Store: StoreConfig{
			Driver: kvstore.DriverFile,
			Path:   defaultStorePath(),
			Table:  "kv_store",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			TokenTTL:  24 * time.Hour,
			RateLimit: 20,
			RateBurst: 40,
			Metrics:   "nutrition",
		},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".nutrition", "session.json")
	}
	return filepath.Join(dir, "nutrition-tracker", "session.json")
}

// Load builds the configuration from path, the .env file and the
// environment. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to Default on any error.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// loadEnvFile exports the variables in path that are not already set.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to decode environment: %w", err)
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not a valid URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if c.Session.TokenKey == "" || c.Session.UserKey == "" {
		return fmt.Errorf("session keys are required")
	}
	if c.Session.TokenKey == c.Session.UserKey {
		return fmt.Errorf("session.token_key and session.user_key must differ")
	}

	switch strings.ToLower(c.Store.Driver) {
	case kvstore.DriverMemory:
	case kvstore.DriverFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file driver")
		}
	case kvstore.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case kvstore.DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.App.CalorieGoal < 0 {
		return fmt.Errorf("app.calorie_goal must not be negative")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

// KVStore returns the store settings for kvstore.Open.
func (c *Config) KVStore() kvstore.Config {
	return kvstore.Config{
		Driver:        c.Store.Driver,
		Path:          c.Store.Path,
		DSN:           c.Store.DSN,
		Table:         c.Store.Table,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		KeyPrefix:     c.Store.KeyPrefix,
	}
}

// Logger builds a logger for service at the configured level and format.
func (c *Config) Logger(service string) *logger.Logger {
	return logger.New(logger.Config{
		Service: service,
		Level:   c.Log.Level,
		Format:  c.Log.Format,
	})
}
