package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clinic/clinic/internal/platform/db"
)

// defaultMainDB names the administrative database when neither
// MONGODB_MAIN_DB nor the URI path names one.
const defaultMainDB = "main"

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	MongoURI            string        `mapstructure:"MONGODB_URI"`
	MongoMainDB         string        `mapstructure:"MONGODB_MAIN_DB"`
	MongoMaxPoolSize    uint64        `mapstructure:"MONGODB_MAX_POOL_SIZE"`
	MongoConnectTimeout time.Duration `mapstructure:"MONGODB_CONNECT_TIMEOUT"`
	MongoOpTimeout      time.Duration `mapstructure:"MONGODB_OP_TIMEOUT"`
	DBConnectRetries    int           `mapstructure:"DB_CONNECT_RETRIES"`
	DBEnsureIndexes     bool          `mapstructure:"DB_ENSURE_INDEXES"`
	AuditDatabaseURL    string        `mapstructure:"AUDIT_DATABASE_URL"`
	AuditDBMaxConns     int32         `mapstructure:"AUDIT_DB_MAX_CONNS"`
	AuditDBMinConns     int32         `mapstructure:"AUDIT_DB_MIN_CONNS"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	EmailSecret         string        `mapstructure:"EMAIL_SECRET"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	SMTPHost            string        `mapstructure:"SMTP_HOST"`
	SMTPPort            int           `mapstructure:"SMTP_PORT"`
	SMTPUser            string        `mapstructure:"SMTP_USER"`
	SMTPPassword        string        `mapstructure:"SMTP_PASSWORD"`
	FromEmail           string        `mapstructure:"FROM_EMAIL"`
	AppURL              string        `mapstructure:"NEXT_PUBLIC_APP_URL"`
	MeetingBaseURL      string        `mapstructure:"MEETING_BASE_URL"`
	AuthRequired        bool          `mapstructure:"AUTH_REQUIRED"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	LogFile             string        `mapstructure:"LOG_FILE"`
	LogFileMaxSizeMB    int           `mapstructure:"LOG_FILE_MAX_SIZE_MB"`
	LogFileMaxBackups   int           `mapstructure:"LOG_FILE_MAX_BACKUPS"`
	LogFileMaxAgeDays   int           `mapstructure:"LOG_FILE_MAX_AGE_DAYS"`
	OTLPEndpoint        string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var envKeys = []string{
	"PORT", "ENV", "MONGODB_URI", "MONGODB_MAIN_DB", "MONGODB_MAX_POOL_SIZE",
	"MONGODB_CONNECT_TIMEOUT", "MONGODB_OP_TIMEOUT", "DB_CONNECT_RETRIES", "DB_ENSURE_INDEXES",
	"AUDIT_DATABASE_URL", "AUDIT_DB_MAX_CONNS", "AUDIT_DB_MIN_CONNS", "REDIS_URL",
	"EMAIL_SECRET", "JWT_SECRET", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD",
	"FROM_EMAIL", "NEXT_PUBLIC_APP_URL", "MEETING_BASE_URL", "AUTH_REQUIRED", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FILE", "LOG_FILE_MAX_SIZE_MB",
	"LOG_FILE_MAX_BACKUPS", "LOG_FILE_MAX_AGE_DAYS", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("MONGODB_MAX_POOL_SIZE", 20)
	v.SetDefault("MONGODB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("MONGODB_OP_TIMEOUT", "10s")
	v.SetDefault("DB_CONNECT_RETRIES", 3)
	v.SetDefault("DB_ENSURE_INDEXES", true)
	v.SetDefault("AUDIT_DB_MAX_CONNS", 10)
	v.SetDefault("AUDIT_DB_MIN_CONNS", 1)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NEXT_PUBLIC_APP_URL", "http://localhost:3000")
	v.SetDefault("MEETING_BASE_URL", "https://meet.jit.si")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("NEXT_PUBLIC_APP_URL", "NEXT_PUBLIC_APP_URL", "APP_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if !v.IsSet("AUTH_REQUIRED") {
		cfg.AuthRequired = !cfg.IsDev()
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	cfg.MeetingBaseURL = strings.TrimRight(cfg.MeetingBaseURL, "/")

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MongoMainDB == "" {
		cfg.MongoMainDB = db.DatabaseFromURI(cfg.MongoURI)
	}
	if cfg.MongoMainDB == "" {
		cfg.MongoMainDB = defaultMainDB
	}

	if cfg.IsDev() && !cfg.AuthRequired {
		log.Println("WARNING: AUTH_REQUIRED=false in development: /api/{tenant} routes accept anonymous requests.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SMTPEnabled reports whether outbound login emails can be delivered.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Validate checks that the configuration is safe to run. Outside development
// both signing secrets are mandatory and must not be shared, since an email
// token must never be accepted as a session.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.EmailSecret == "" {
			return fmt.Errorf("EMAIL_SECRET is required when ENV=%q", c.Env)
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
	}
	if c.EmailSecret != "" && c.EmailSecret == c.JWTSecret {
		return fmt.Errorf("EMAIL_SECRET and JWT_SECRET must differ")
	}
	if c.SMTPEnabled() && c.FromEmail == "" {
		return fmt.Errorf("FROM_EMAIL is required when SMTP_HOST is set")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.SMTPPort)
	}
	if c.DBConnectRetries < 1 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be at least 1, got %d", c.DBConnectRetries)
	}
	return nil
}
