// Package config loads server settings from the environment.
//
// Values come from, in order of precedence: real environment variables,
// an optional .env file in the working directory, then the defaults in
// setDefaults. Every key is bound to one explicit variable name in
// bindEnv, so the full list of settings lives in one place.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Google   GoogleConfig   `mapstructure:"google"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	LogLevel      string `mapstructure:"log_level"`
	FrontendURL   string `mapstructure:"frontend_url"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
}

// DatabaseConfig selects the SQL driver. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SessionConfig controls the session JWT.
type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// GoogleConfig holds the OAuth client. Login is disabled when the client
// id or secret is empty.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

// StorageConfig selects where uploads go. Backend is "local" or "s3".
type StorageConfig struct {
	Backend        string   `mapstructure:"backend"`
	LocalDir       string   `mapstructure:"local_dir"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	S3             S3Config `mapstructure:"s3"`
}

// S3Config contains connection options for S3-compatible storage.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// LoginEnabled reports whether Google credentials are configured.
func (g GoogleConfig) LoginEnabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// SlogLevel parses LogLevel, defaulting to Info.
func (s ServerConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads the optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Server.FrontendURL = strings.TrimRight(cfg.Server.FrontendURL, "/")
	if cfg.Google.CallbackURL == "" {
		cfg.Google.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/callback", cfg.Server.Port)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.frontend_url", "http://127.0.0.1:5173")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/tailor.db")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./var/uploads")
	v.SetDefault("storage.max_upload_bytes", 10<<20)
	v.SetDefault("storage.s3.use_ssl", false)
	v.SetDefault("storage.s3.bucket", "tailor-uploads")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"server.port":                  "PORT",
		"server.log_level":             "LOG_LEVEL",
		"server.frontend_url":          "FRONTEND_URL",
		"server.secure_cookies":        "SECURE_COOKIES",
		"database.driver":              "DB_DRIVER",
		"database.dsn":                 "DB_DSN",
		"session.secret":               "SESSION_SECRET",
		"session.ttl":                  "SESSION_TTL",
		"google.client_id":             "GOOGLE_CLIENT_ID",
		"google.client_secret":         "GOOGLE_CLIENT_SECRET",
		"google.callback_url":          "GOOGLE_CALLBACK_URL",
		"storage.backend":              "STORAGE_BACKEND",
		"storage.local_dir":            "LOCAL_STORAGE_DIR",
		"storage.max_upload_bytes":     "MAX_UPLOAD_BYTES",
		"storage.s3.endpoint":          "S3_ENDPOINT",
		"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
		"storage.s3.bucket":            "S3_BUCKET",
		"storage.s3.region":            "S3_REGION",
		"storage.s3.use_ssl":           "S3_USE_SSL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return errors.New("DB_DSN is required")
	}
	if len(cfg.Session.Secret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalDir == "" {
			return errors.New("LOCAL_STORAGE_DIR is required for the local backend")
		}
	case "s3":
		s3 := cfg.Storage.S3
		if s3.Endpoint == "" {
			return errors.New("S3_ENDPOINT is required for the s3 backend")
		}
		if s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 backend")
		}
		if s3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", cfg.Storage.Backend)
	}
	return nil
}
