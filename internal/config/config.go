// Package config provides application configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by CONFIG_FILE, then environment variables (which a .env file
// may populate).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	App       AppConfig       `yaml:"app"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	PDF       PDFConfig       `yaml:"pdf"`
	Assistant AssistantConfig `yaml:"assistant"`
	Cache     CacheConfig     `yaml:"cache"`
	CAIWatch  CAIWatchConfig  `yaml:"cai_watch"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout"`  // seconds
}

// DatabaseConfig holds PostgreSQL connection settings.
// URL (e.g. the Supabase connection string) wins over the discrete fields.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	LogLevel string `yaml:"log_level"` // silent, error, warn, info
	Retries  int    `yaml:"retries"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool `yaml:"dev"`
	Migrations bool `yaml:"migrations"`
	Seed       bool `yaml:"seed"`
}

type SessionConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
	Secure   bool   `yaml:"secure"`
}

// LogConfig drives the zap logger. An empty File logs to stdout only.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// StorageConfig points at the S3-compatible bucket that holds invoice PDFs.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	PresignMinutes  int    `yaml:"presign_minutes"`
}

// PDFConfig selects the renderer. An empty FunctionURL renders locally.
type PDFConfig struct {
	FunctionURL    string `yaml:"function_url"`
	FunctionKey    string `yaml:"function_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AssistantConfig struct {
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	OpenAIKey      string `yaml:"openai_key"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	PineconeHost   string `yaml:"pinecone_host"`
	PineconeKey    string `yaml:"pinecone_key"`
	Namespace      string `yaml:"namespace"`
	TopK           int    `yaml:"top_k"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RatePerMinute  int    `yaml:"rate_per_minute"`
	Burst          int    `yaml:"burst"`
}

// Enabled reports whether both vendors are configured.
func (a AssistantConfig) Enabled() bool {
	return a.OpenAIKey != "" && a.PineconeHost != ""
}

// CacheConfig selects the workspace snapshot store. An empty RedisAddr keeps
// snapshots in process memory.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

type CAIWatchConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Schedule   string  `yaml:"schedule"` // cron expression
	WithinDays int     `yaml:"within_days"`
	Threshold  float64 `yaml:"threshold"` // used fraction of the range
}

// SMTPConfig enables mail notifications when Host is set.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// DSN returns the PostgreSQL connection string in key=value format,
// or URL when one is configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MigrateURL returns the connection string in URL format, as golang-migrate expects.
func (d DatabaseConfig) MigrateURL() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Default returns the built-in configuration for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", ReadTimeout: 15, WriteTimeout: 30, IdleTimeout: 60},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "facturas",
			Password: "facturas",
			DBName:   "facturas",
			SSLMode:  "disable",
			LogLevel: "warn",
			Retries:  5,
		},
		App:     AppConfig{Dev: true},
		Session: SessionConfig{TTLHours: 24 * 14},
		Log:     LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30},
		Storage: StorageConfig{Bucket: "invoices", Region: "us-east-1", PresignMinutes: 15},
		PDF:     PDFConfig{TimeoutSeconds: 30},
		Assistant: AssistantConfig{
			OpenAIBaseURL:  "https://api.openai.com",
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			TopK:           5,
			TimeoutSeconds: 30,
			RatePerMinute:  10,
			Burst:          3,
		},
		Cache:    CacheConfig{TTLSeconds: 300},
		CAIWatch: CAIWatchConfig{Schedule: "0 7 * * *", WithinDays: 30, Threshold: 0.9},
		SMTP:     SMTPConfig{Port: 587},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the environment.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.LogLevel = getEnv("DB_LOG_LEVEL", c.Database.LogLevel)
	c.Database.Retries = getEnvInt("DB_RETRIES", c.Database.Retries)

	c.App.Dev = getEnvBool("DEV", c.App.Dev)
	c.App.Migrations = getEnvBool("MIGRATIONS", c.App.Migrations)
	c.App.Seed = getEnvBool("DB_SEED", c.App.Seed)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.TTLHours = getEnvInt("SESSION_TTL_HOURS", c.Session.TTLHours)
	c.Session.Secure = getEnvBool("SESSION_SECURE", c.Session.Secure)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)

	c.Storage.Bucket = getEnv("S3_BUCKET", c.Storage.Bucket)
	c.Storage.Region = getEnv("S3_REGION", c.Storage.Region)
	c.Storage.Endpoint = getEnv("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.Storage.SecretAccessKey)
	c.Storage.PathStyle = getEnvBool("S3_PATH_STYLE", c.Storage.PathStyle)
	c.Storage.PresignMinutes = getEnvInt("S3_PRESIGN_MINUTES", c.Storage.PresignMinutes)

	c.PDF.FunctionURL = getEnv("PDF_FUNCTION_URL", c.PDF.FunctionURL)
	c.PDF.FunctionKey = getEnv("PDF_FUNCTION_KEY", c.PDF.FunctionKey)
	c.PDF.TimeoutSeconds = getEnvInt("PDF_TIMEOUT_SECONDS", c.PDF.TimeoutSeconds)

	c.Assistant.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Assistant.OpenAIBaseURL)
	c.Assistant.OpenAIKey = getEnv("OPENAI_API_KEY", c.Assistant.OpenAIKey)
	c.Assistant.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", c.Assistant.EmbeddingModel)
	c.Assistant.ChatModel = getEnv("OPENAI_CHAT_MODEL", c.Assistant.ChatModel)
	c.Assistant.PineconeHost = getEnv("PINECONE_HOST", c.Assistant.PineconeHost)
	c.Assistant.PineconeKey = getEnv("PINECONE_API_KEY", c.Assistant.PineconeKey)
	c.Assistant.Namespace = getEnv("PINECONE_NAMESPACE", c.Assistant.Namespace)
	c.Assistant.TopK = getEnvInt("ASSISTANT_TOP_K", c.Assistant.TopK)
	c.Assistant.RatePerMinute = getEnvInt("ASSISTANT_RATE_PER_MINUTE", c.Assistant.RatePerMinute)

	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.TTLSeconds = getEnvInt("CACHE_TTL_SECONDS", c.Cache.TTLSeconds)

	c.CAIWatch.Enabled = getEnvBool("CAI_WATCH", c.CAIWatch.Enabled)
	c.CAIWatch.Schedule = getEnv("CAI_WATCH_SCHEDULE", c.CAIWatch.Schedule)
	c.CAIWatch.WithinDays = getEnvInt("CAI_WATCH_WITHIN_DAYS", c.CAIWatch.WithinDays)
	c.CAIWatch.Threshold = getEnvFloat("CAI_WATCH_THRESHOLD", c.CAIWatch.Threshold)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = getEnvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.User = getEnv("SMTP_USER", c.SMTP.User)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = getEnv("SMTP_FROM", c.SMTP.From)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is empty"))
	}
	if !c.App.Dev && c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required outside dev mode"))
	}
	if c.CAIWatch.Threshold <= 0 || c.CAIWatch.Threshold > 1 {
		errs = append(errs, fmt.Errorf("cai watch threshold %v must be in (0,1]", c.CAIWatch.Threshold))
	}
	return errors.Join(errs...)
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
