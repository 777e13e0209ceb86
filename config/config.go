// config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the server reads from the environment
type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	JWT     JWTConfig
	OTP     OTPConfig
	Mail    MailConfig
	Storage StorageConfig
	Log     LogConfig

	CORSAllowedOrigins []string
	// SuperAdminEmails is the allow-list for super-admin signup. Empty disables it.
	SuperAdminEmails []string
}

type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
	SecureCookies   bool
	CookieDomain    string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type OTPConfig struct {
	TTL         time.Duration
	Length      int
	MaxAttempts int
}

type MailConfig struct {
	Provider       string // smtp, sendgrid, resend or log
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SendGridAPIKey string
	ResendAPIKey   string
}

type StorageConfig struct {
	Provider      string // local or s3
	UploadsDir    string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
}

type LogConfig struct {
	Level  string
	Format string
}

// IsDevelopment reports whether the server runs in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// Load reads an optional .env file and builds the configuration from the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            GetEnv("PORT", "8080"),
			Env:             GetEnv("ENV", "production"),
			ShutdownTimeout: time.Duration(GetEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
			SecureCookies:   GetEnvAsBool("SECURE_COOKIES", true),
			CookieDomain:    GetEnv("COOKIE_DOMAIN", ""),
		},
		Mongo: MongoConfig{
			URI:      GetEnv("MONGO_URI", os.Getenv("MONGODB_URI")),
			Database: GetEnv("DB_NAME", "gym"),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     GetEnv("JWT_SECRET", ""),
			Issuer:     GetEnv("JWT_ISSUER", "gym-backend"),
			AccessTTL:  time.Duration(GetEnvAsInt("JWT_ACCESS_TTL_MINUTES", 24*60)) * time.Minute,
			RefreshTTL: time.Duration(GetEnvAsInt("JWT_REFRESH_TTL_HOURS", 7*24)) * time.Hour,
		},
		OTP: OTPConfig{
			TTL:         time.Duration(GetEnvAsInt("OTP_TTL_MINUTES", 10)) * time.Minute,
			Length:      GetEnvAsInt("OTP_LENGTH", 6),
			MaxAttempts: GetEnvAsInt("OTP_MAX_ATTEMPTS", 5),
		},
		Mail: MailConfig{
			Provider:       strings.ToLower(GetEnv("MAIL_PROVIDER", "smtp")),
			From:           GetEnv("FROM_EMAIL", ""),
			FromName:       GetEnv("FROM_NAME", "Gym Dashboard"),
			SMTPHost:       GetEnv("SMTP_HOST", ""),
			SMTPPort:       GetEnvAsInt("SMTP_PORT", 587),
			SMTPUser:       GetEnv("SMTP_USER", ""),
			SMTPPass:       GetEnv("SMTP_PASS", ""),
			SendGridAPIKey: GetEnv("SENDGRID_API_KEY", ""),
			ResendAPIKey:   GetEnv("RESEND_API_KEY", ""),
		},
		Storage: StorageConfig{
			Provider:      strings.ToLower(GetEnv("STORAGE_PROVIDER", "local")),
			UploadsDir:    GetEnv("UPLOADS_DIR", "uploads"),
			PublicBaseURL: GetEnv("STORAGE_PUBLIC_BASE_URL", "/uploads"),
			S3Bucket:      GetEnv("AWS_S3_BUCKET", ""),
			S3Region:      GetEnv("AWS_REGION", "us-east-1"),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "json"),
		},
		CORSAllowedOrigins: GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		SuperAdminEmails:   GetEnvAsList("SUPER_ADMIN_EMAILS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.Mongo.URI == "" {
		if !c.IsDevelopment() {
			return errors.New("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.OTP.Length < 4 || c.OTP.Length > 8 {
		return errors.New("OTP_LENGTH must be between 4 and 8")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP_TTL_MINUTES must be positive")
	}
	return nil
}

// GetEnv returns the variable or the default when it is unset or empty
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logrus.Warnf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logrus.Warnf("Invalid boolean value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsList splits a comma separated variable, dropping blank entries
func GetEnvAsList(key string, defaultValue []string) []string {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
