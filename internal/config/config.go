// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config represents the application configuration. Fields tagged `env:"-"`
// are derived from the string fields by parse() after loading.
type Config struct {
	APIName          string `env:"MP_API_APP_NAME"`
	APIVersion       string `env:"MP_API_APP_VERSION"`
	ServerPort       string `env:"MP_API_SERVER_PORT"`
	ServerLogLevel   string `env:"MP_API_SERVER_LOG_LEVEL"`
	PostgresDsn      string `env:"MP_API_PG_DSN"`
	PostgresLogLevel string `env:"MP_API_PG_LOG_LEVEL"`
	RedisHost        string `env:"MP_API_REDIS_HOST"`
	RedisPort        string `env:"MP_API_REDIS_PORT"`
	RedisPassword    string `env:"MP_API_REDIS_PASSWORD"`
	JWTSecret        string `env:"MP_API_JWT_SECRET"`
	JWTExpiryHours   string `env:"MP_API_JWT_EXPIRY_HOURS"`
	CASServerURL     string `env:"MP_API_CAS_SERVER_URL"`
	CASServiceURL    string `env:"MP_API_CAS_SERVICE_URL"`
	CASDevMode       string `env:"MP_API_CAS_DEV_MODE"`
	CASDevNetID      string `env:"MP_API_CAS_DEV_NETID"`
	NetIDMinLen      string `env:"MP_API_NETID_MIN_LEN"`
	NetIDMaxLen      string `env:"MP_API_NETID_MAX_LEN"`
	FrontendURL      string `env:"MP_API_FRONTEND_URL"`
	MailServerToken  string `env:"MP_API_MAIL_SERVER_TOKEN"`
	MailFromEmail    string `env:"MP_API_MAIL_FROM_EMAIL"`
	MailDomain       string `env:"MP_API_MAIL_DOMAIN"`
	S3Region         string `env:"MP_API_S3_REGION"`
	S3Bucket         string `env:"MP_API_S3_BUCKET"`
	S3AccessKey      string `env:"MP_API_S3_ACCESS_KEY"`
	S3SecretKey      string `env:"MP_API_S3_SECRET_KEY"`
	S3BaseEndpoint   string `env:"MP_API_S3_BASE_ENDPOINT"`
	PendingMaxHours  string `env:"MP_API_PENDING_MAX_HOURS"`
	LogRetentionDays string `env:"MP_API_LOG_RETENTION_DAYS"`

	JWTExpiry     time.Duration `env:"-"`
	CASDevEnabled bool          `env:"-"`
	NetIDMin      int           `env:"-"`
	NetIDMax      int           `env:"-"`
	PendingMaxAge time.Duration `env:"-"`
	LogRetention  time.Duration `env:"-"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}
		if envTag == "-" {
			continue
		}

		value := os.Getenv(envTag)
		if value == "" {
			return fmt.Errorf("env variable %s is required but not set", envTag)
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// parse converts string env values into their typed counterparts. A value
// that does not parse is a startup error, never a per-request one.
func (c *Config) parse() error {
	expiryHours, convErr := strconv.Atoi(c.JWTExpiryHours)
	if convErr != nil || expiryHours <= 0 {
		return fmt.Errorf("MP_API_JWT_EXPIRY_HOURS must be a positive integer, got %q", c.JWTExpiryHours)
	}
	c.JWTExpiry = time.Duration(expiryHours) * time.Hour

	devMode, convErr := strconv.ParseBool(c.CASDevMode)
	if convErr != nil {
		return fmt.Errorf("MP_API_CAS_DEV_MODE must be a boolean, got %q", c.CASDevMode)
	}
	c.CASDevEnabled = devMode

	c.NetIDMin, convErr = strconv.Atoi(c.NetIDMinLen)
	if convErr != nil || c.NetIDMin < 1 {
		return fmt.Errorf("MP_API_NETID_MIN_LEN must be a positive integer, got %q", c.NetIDMinLen)
	}
	c.NetIDMax, convErr = strconv.Atoi(c.NetIDMaxLen)
	if convErr != nil || c.NetIDMax < c.NetIDMin {
		return fmt.Errorf("MP_API_NETID_MAX_LEN must be an integer >= min length, got %q", c.NetIDMaxLen)
	}

	pendingHours, convErr := strconv.Atoi(c.PendingMaxHours)
	if convErr != nil || pendingHours <= 0 {
		return fmt.Errorf("MP_API_PENDING_MAX_HOURS must be a positive integer, got %q", c.PendingMaxHours)
	}
	c.PendingMaxAge = time.Duration(pendingHours) * time.Hour

	retentionDays, convErr := strconv.Atoi(c.LogRetentionDays)
	if convErr != nil || retentionDays <= 0 {
		return fmt.Errorf("MP_API_LOG_RETENTION_DAYS must be a positive integer, got %q", c.LogRetentionDays)
	}
	c.LogRetention = time.Duration(retentionDays) * 24 * time.Hour

	c.CASServerURL = strings.TrimSuffix(c.CASServerURL, "/")
	c.FrontendURL = strings.TrimSuffix(c.FrontendURL, "/")

	return nil
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("env") == "-" {
			continue
		}
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "key"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
