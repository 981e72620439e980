package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/huddle/client/internal/tokenstore"
)

// Config captures the runtime configuration of the huddle client and its
// local development backend.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	UserCacheTTL   time.Duration `yaml:"user_cache_ttl"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`

	Tokens TokenStoreConfig `yaml:"tokens"`
	Avatar AvatarConfig     `yaml:"avatar"`
	Dev    DevServerConfig  `yaml:"dev"`
}

// TokenStoreConfig selects where session tokens are persisted.
type TokenStoreConfig struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"`
	Passphrase   string `yaml:"passphrase"`
	DatabaseURL  string `yaml:"database_url"`
	RedisURL     string `yaml:"redis_url"`
	Namespace    string `yaml:"namespace"`
	MigrationDir string `yaml:"migrations"`
}

// Options converts the section into tokenstore options.
func (c TokenStoreConfig) Options() tokenstore.Options {
	return tokenstore.Options{
		Driver:      c.Driver,
		Path:        c.Path,
		Passphrase:  c.Passphrase,
		DatabaseURL: c.DatabaseURL,
		RedisURL:    c.RedisURL,
		Namespace:   c.Namespace,
	}
}

// AvatarConfig describes the S3-compatible bucket that receives avatars.
type AvatarConfig struct {
	Bucket        string `yaml:"bucket"`
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"public_url"`
	Size          int    `yaml:"size"`
}

// DevServerConfig configures `huddle dev-server`.
type DevServerConfig struct {
	Port       int           `yaml:"port"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	JWTSecret  string        `yaml:"jwt_secret"`
	// DatabaseURL stores refresh sessions in postgres when set.
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:         "http://localhost:8080/api",
		RequestTimeout: 15 * time.Second,
		RateLimit:      10,
		RateBurst:      5,
		LogLevel:       "info",
		LogFormat:      "json",
		UserCacheTTL:   time.Minute,
		Tokens: TokenStoreConfig{
			Driver:    tokenstore.DriverFile,
			Path:      defaultTokenPath(),
			Namespace: "default",
		},
		Avatar: AvatarConfig{
			Region: "us-east-1",
			Size:   256,
		},
		Dev: DevServerConfig{
			Port:       8080,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			JWTSecret:  "huddle-dev-secret",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// HUDDLE_CONFIG and environment variables, in that order. A .env file in the
// working directory is loaded into the environment first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("HUDDLE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getString("HUDDLE_API_URL", cfg.APIURL)
	cfg.RequestTimeout = getDuration("HUDDLE_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RateLimit = getFloat("HUDDLE_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getInt("HUDDLE_RATE_BURST", cfg.RateBurst)
	cfg.LogLevel = getString("HUDDLE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getString("HUDDLE_LOG_FORMAT", cfg.LogFormat)
	cfg.UserCacheTTL = getDuration("HUDDLE_USER_CACHE_TTL", cfg.UserCacheTTL)
	cfg.OTLPEndpoint = getString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	cfg.Tokens.Driver = getString("HUDDLE_TOKEN_STORE", cfg.Tokens.Driver)
	cfg.Tokens.Path = getString("HUDDLE_TOKEN_PATH", cfg.Tokens.Path)
	cfg.Tokens.Passphrase = getString("HUDDLE_TOKEN_PASSPHRASE", cfg.Tokens.Passphrase)
	cfg.Tokens.DatabaseURL = getString("HUDDLE_TOKEN_DATABASE_URL", cfg.Tokens.DatabaseURL)
	cfg.Tokens.RedisURL = getString("HUDDLE_TOKEN_REDIS_URL", cfg.Tokens.RedisURL)
	cfg.Tokens.Namespace = getString("HUDDLE_TOKEN_NAMESPACE", cfg.Tokens.Namespace)
	cfg.Tokens.MigrationDir = getString("HUDDLE_MIGRATIONS", cfg.Tokens.MigrationDir)

	cfg.Avatar.Bucket = getString("HUDDLE_AVATAR_BUCKET", cfg.Avatar.Bucket)
	cfg.Avatar.Endpoint = getString("HUDDLE_AVATAR_ENDPOINT", cfg.Avatar.Endpoint)
	cfg.Avatar.Region = getString("HUDDLE_AVATAR_REGION", cfg.Avatar.Region)
	cfg.Avatar.PublicBaseURL = getString("HUDDLE_AVATAR_PUBLIC_URL", cfg.Avatar.PublicBaseURL)
	cfg.Avatar.Size = getInt("HUDDLE_AVATAR_SIZE", cfg.Avatar.Size)

	cfg.Dev.Port = getInt("HUDDLE_DEV_PORT", cfg.Dev.Port)
	cfg.Dev.AccessTTL = getDuration("HUDDLE_DEV_ACCESS_TTL", cfg.Dev.AccessTTL)
	cfg.Dev.RefreshTTL = getDuration("HUDDLE_DEV_REFRESH_TTL", cfg.Dev.RefreshTTL)
	cfg.Dev.JWTSecret = getString("HUDDLE_DEV_JWT_SECRET", cfg.Dev.JWTSecret)
	cfg.Dev.DatabaseURL = getString("HUDDLE_DEV_DATABASE_URL", cfg.Dev.DatabaseURL)
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "huddle", "tokens.json")
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
