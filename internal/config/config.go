package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store and archive drivers.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"

	ArchiveMemory = "memory"
	ArchiveS3     = "s3"
	ArchiveNone   = "none"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"ENV"`
	Version string `mapstructure:"VERSION"`

	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	StorePath      string `mapstructure:"STORE_PATH"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	EngineAPIKey     string        `mapstructure:"ENGINE_API_KEY"`
	EngineBaseURL    string        `mapstructure:"ENGINE_BASE_URL"`
	EngineModel      string        `mapstructure:"ENGINE_MODEL"`
	EngineImageModel string        `mapstructure:"ENGINE_IMAGE_MODEL"`
	EngineTimeout    time.Duration `mapstructure:"ENGINE_TIMEOUT"`

	ProductName     string `mapstructure:"PRODUCT_NAME"`
	PracticeName    string `mapstructure:"PRACTICE_NAME"`
	ReportPreparer  string `mapstructure:"REPORT_PREPARER"`
	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE"`

	ArchiveDriver   string `mapstructure:"ARCHIVE_DRIVER"`
	ArchiveBucket   string `mapstructure:"ARCHIVE_BUCKET"`
	ArchivePrefix   string `mapstructure:"ARCHIVE_PREFIX"`
	ArchiveEndpoint string `mapstructure:"ARCHIVE_ENDPOINT"`

	KafkaBrokers     []string `mapstructure:"KAFKA_BROKERS"`
	KafkaUrgentTopic string   `mapstructure:"KAFKA_URGENT_TOPIC"`

	DefaultPractitionerID string        `mapstructure:"DEFAULT_PRACTITIONER_ID"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	ImageBodyLimit        string        `mapstructure:"IMAGE_BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "VERSION",
	"STORE_DRIVER", "STORE_PATH", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "REDIS_KEY_PREFIX",
	"ENGINE_API_KEY", "ENGINE_BASE_URL", "ENGINE_MODEL", "ENGINE_IMAGE_MODEL", "ENGINE_TIMEOUT",
	"PRODUCT_NAME", "PRACTICE_NAME", "REPORT_PREPARER", "DEFAULT_LANGUAGE",
	"ARCHIVE_DRIVER", "ARCHIVE_BUCKET", "ARCHIVE_PREFIX", "ARCHIVE_ENDPOINT",
	"KAFKA_BROKERS", "KAFKA_URGENT_TOPIC",
	"DEFAULT_PRACTITIONER_ID", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "IMAGE_BODY_LIMIT",
}

// Load reads .env (when present) and the environment. It does not validate;
// call Validate before starting anything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("VERSION", "dev")
	v.SetDefault("STORE_DRIVER", StoreFile)
	v.SetDefault("STORE_PATH", "./data")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REDIS_KEY_PREFIX", "alcortex:")
	v.SetDefault("ENGINE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ENGINE_MODEL", "gemini-3-pro-preview")
	v.SetDefault("ENGINE_IMAGE_MODEL", "gemini-3-flash-preview")
	v.SetDefault("ENGINE_TIMEOUT", "60s")
	v.SetDefault("PRODUCT_NAME", "ALCORTEX")
	v.SetDefault("PRACTICE_NAME", "AlCortex Pro")
	v.SetDefault("DEFAULT_LANGUAGE", "en")
	v.SetDefault("ARCHIVE_DRIVER", ArchiveMemory)
	v.SetDefault("ARCHIVE_PREFIX", "exports/")
	v.SetDefault("KAFKA_URGENT_TOPIC", "diagnosis.urgent")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("REQUEST_TIMEOUT", "90s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("IMAGE_BODY_LIMIT", "20M")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.ArchiveDriver = strings.ToLower(strings.TrimSpace(cfg.ArchiveDriver))

	return cfg, nil
}

// splitList normalizes a comma-separated setting that viper may have left
// as a single element.
func splitList(parsed []string, raw string) []string {
	if len(parsed) <= 1 {
		parsed = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(parsed))
	for _, s := range parsed {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks driver-specific requirements.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreFile:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required when STORE_DRIVER is %q", StoreFile)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER is %q", StoreRedis)
		}
	case StoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER %q loses every record on restart and is not allowed in production", StoreMemory)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be file, postgres, redis or memory, got %q", c.StoreDriver)
	}

	switch c.ArchiveDriver {
	case ArchiveNone:
	case ArchiveMemory:
		if c.IsProduction() {
			return fmt.Errorf("ARCHIVE_DRIVER %q keeps every export in process memory and is not allowed in production; use s3 or none", ArchiveMemory)
		}
	case ArchiveS3:
		if c.ArchiveBucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required when ARCHIVE_DRIVER is %q", ArchiveS3)
		}
	default:
		return fmt.Errorf("ARCHIVE_DRIVER must be memory, s3 or none, got %q", c.ArchiveDriver)
	}

	switch c.DefaultLanguage {
	case "en", "id", "ru":
	default:
		return fmt.Errorf("DEFAULT_LANGUAGE must be en, id or ru, got %q", c.DefaultLanguage)
	}

	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive")
	}
	if c.RequestTimeout > 0 && c.RequestTimeout <= c.EngineTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed ENGINE_TIMEOUT (%s)", c.RequestTimeout, c.EngineTimeout)
	}
	if c.IsProduction() && c.DefaultPractitionerID != "" {
		return fmt.Errorf("DEFAULT_PRACTITIONER_ID must not be set in production")
	}
	return nil
}

// ValidateEngine checks the settings needed to call the reasoning engine.
// Commands that never call it skip this check.
func (c *Config) ValidateEngine() error {
	if c.EngineAPIKey == "" {
		return fmt.Errorf("ENGINE_API_KEY is required")
	}
	if c.EngineModel == "" || c.EngineImageModel == "" {
		return fmt.Errorf("ENGINE_MODEL and ENGINE_IMAGE_MODEL are required")
	}
	return nil
}
