// Package config reads the service settings from the environment (and an
// optional .env file) once at start-up.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string
	HTTPPort    string
	LogLevel    string
	AppBaseURL  string

	JWTSecret    string
	JWTExpiresIn time.Duration

	AdminEmail    string
	AdminPassword string

	Storage StorageConfig
	Redis   RedisConfig
	SMTP    SMTPConfig
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	DirectorEmail string
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" }

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("STORAGE_BUCKET", "invoices")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("APP_BASE_URL", "http://localhost:5173")
	return v
}

// FromViper builds and validates a Config. Missing mandatory settings fail
// here rather than on first use.
func FromViper(v *viper.Viper) (Config, error) {
	ttl, err := time.ParseDuration(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	cfg := Config{
		DatabaseURL:   strings.TrimSpace(v.GetString("DATABASE_URL")),
		HTTPPort:      v.GetString("HTTP_PORT"),
		LogLevel:      strings.ToLower(v.GetString("LOG_LEVEL")),
		AppBaseURL:    strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTExpiresIn:  ttl,
		AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		Storage: StorageConfig{
			Endpoint:      strings.TrimSpace(v.GetString("STORAGE_ENDPOINT")),
			AccessKey:     v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:     v.GetString("STORAGE_SECRET_KEY"),
			Bucket:        v.GetString("STORAGE_BUCKET"),
			UseSSL:        v.GetBool("STORAGE_USE_SSL"),
			PublicBaseURL: strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		SMTP: SMTPConfig{
			Host:          v.GetString("SMTP_HOST"),
			Port:          v.GetInt("SMTP_PORT"),
			Username:      v.GetString("SMTP_USERNAME"),
			Password:      v.GetString("SMTP_PASSWORD"),
			From:          v.GetString("SMTP_FROM"),
			DirectorEmail: v.GetString("DIRECTOR_EMAIL"),
		},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.Storage.Enabled() {
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET is empty"))
		}
		if c.Storage.PublicBaseURL == "" {
			errs = append(errs, errors.New("STORAGE_PUBLIC_BASE_URL is required with STORAGE_ENDPOINT"))
		}
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required with SMTP_HOST"))
	}
	return errors.Join(errs...)
}
