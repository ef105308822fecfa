package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	PublicURL  string `yaml:"public_url"`
	Production bool   `yaml:"production"`
	RateLimit  int    `yaml:"rate_limit"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type StorageConfig struct {
	AccountID       string        `yaml:"account_id"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	Bucket          string        `yaml:"bucket"`
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	ImageURLTTL     time.Duration `yaml:"image_url_ttl"`
	UploadURLTTL    time.Duration `yaml:"upload_url_ttl"`
}

type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret"`
	SessionMaxAge int           `yaml:"session_max_age"`
	GoogleKey     string        `yaml:"google_key"`
	GoogleSecret  string        `yaml:"google_secret"`
	AzureADKey    string        `yaml:"azuread_key"`
	AzureADSecret string        `yaml:"azuread_secret"`
	EmailTokenTTL time.Duration `yaml:"email_token_ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 3000, PublicURL: "http://localhost:3000", RateLimit: 120},
		Log:    LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Storage: StorageConfig{
			Region:       "auto",
			ImageURLTTL:  24 * time.Hour,
			UploadURLTTL: 15 * time.Minute,
		},
		Auth: AuthConfig{SessionMaxAge: 86400 * 30, EmailTokenTTL: 15 * time.Minute},
		SMTP: SMTPConfig{Port: 587},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file and the process environment, in that order.
func Load(configFile string) (*Config, error) {
	c := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	envOverrideInt(&c.Server.Port, "PORT")
	envOverride(&c.Server.PublicURL, "PUBLIC_URL")
	envOverrideInt(&c.Server.RateLimit, "RATE_LIMIT")
	if os.Getenv("APP_ENV") == "production" {
		c.Server.Production = true
	}

	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")

	envOverride(&c.Database.DSN, "DSN")

	envOverride(&c.Storage.AccountID, "ACCOUNT_ID")
	envOverride(&c.Storage.AccessKeyID, "ACCESS_KEY_ID")
	envOverride(&c.Storage.AccessKeySecret, "ACCESS_KEY_SECRET")
	envOverride(&c.Storage.Bucket, "BUCKET_NAME")
	envOverride(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	envOverrideDuration(&c.Storage.ImageURLTTL, "IMAGE_URL_TTL")
	envOverrideDuration(&c.Storage.UploadURLTTL, "UPLOAD_URL_TTL")

	envOverride(&c.Auth.SessionSecret, "SESSION_SECRET")
	envOverride(&c.Auth.GoogleKey, "GOOGLE_KEY")
	envOverride(&c.Auth.GoogleSecret, "GOOGLE_SECRET")
	envOverride(&c.Auth.AzureADKey, "AZUREAD_KEY")
	envOverride(&c.Auth.AzureADSecret, "AZUREAD_SECRET")

	envOverride(&c.SMTP.Host, "SMTP_HOST")
	envOverrideInt(&c.SMTP.Port, "SMTP_PORT")
	envOverride(&c.SMTP.User, "SMTP_USER")
	envOverride(&c.SMTP.Password, "SMTP_PASSWORD")
	envOverride(&c.SMTP.From, "EMAIL_FROM")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required (DSN)"))
	}
	if c.Auth.SessionSecret == "" {
		errs = append(errs, errors.New("session secret is required (SESSION_SECRET)"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage bucket is required (BUCKET_NAME)"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// StorageEndpoint falls back to the Cloudflare R2 endpoint for the account.
func (c *Config) StorageEndpoint() string {
	if c.Storage.Endpoint != "" {
		return c.Storage.Endpoint
	}
	if c.Storage.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.Storage.AccountID)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
