package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Receipt   ReceiptConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Sequence  SequenceConfig
	Printer   PrinterConfig
	Email     EmailConfig
	Kafka     KafkaConfig
	Tracing   TracingConfig
	Audit     AuditConfig
	Admin     AdminConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Debug   bool
	Version string
	// Timezone defines the clinic's calendar day
	Timezone        string
	IdempotencyTTL  time.Duration
	JanitorInterval time.Duration
	ShutdownTimeout time.Duration
}

type ReceiptConfig struct {
	ClinicName string
	Address    string
	Phone      string
	TaxID      string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	Timezone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type SequenceConfig struct {
	TransactionPrefix string
	ReceiptPrefix     string
	// Grace keeps a day's counter alive past midnight for late commits
	Grace time.Duration
}

type PrinterConfig struct {
	Type    string
	USBPath string
	Address string
	Width   int
	Timeout time.Duration
}

type EmailConfig struct {
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	FromName        string
	FromEmail       string
	AdminRecipients []string
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	ClientID     string
	Topic        string
	BatchSize    int
	PollInterval time.Duration
	Linger       time.Duration
	MaxRetries   int
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type AuditConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// AdminConfig is the bootstrap administrator created by migrate
type AdminConfig struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func Load() *Config {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) *Config {
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: %s file not found, using environment variables: %v", envFile, err)
	}

	setDefaults(v)

	return &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Env:             v.GetString("APP_ENV"),
			Port:            v.GetString("APP_PORT"),
			Debug:           v.GetBool("APP_DEBUG"),
			Version:         v.GetString("APP_VERSION"),
			Timezone:        v.GetString("APP_TIMEZONE"),
			IdempotencyTTL:  time.Duration(v.GetInt("IDEMPOTENCY_TTL_HOURS")) * time.Hour,
			JanitorInterval: time.Duration(v.GetInt("JANITOR_INTERVAL_MINUTES")) * time.Minute,
			ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Receipt: ReceiptConfig{
			ClinicName: v.GetString("RECEIPT_CLINIC_NAME"),
			Address:    v.GetString("RECEIPT_ADDRESS"),
			Phone:      v.GetString("RECEIPT_PHONE"),
			TaxID:      v.GetString("RECEIPT_TAX_ID"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			Timezone:        v.GetString("DB_TIMEZONE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: v.GetInt("RATE_LIMIT_DURATION"),
		},
		Sequence: SequenceConfig{
			TransactionPrefix: strings.ToUpper(v.GetString("SEQUENCE_TRANSACTION_PREFIX")),
			ReceiptPrefix:     strings.ToUpper(v.GetString("SEQUENCE_RECEIPT_PREFIX")),
			Grace:             time.Duration(v.GetInt("SEQUENCE_GRACE_HOURS")) * time.Hour,
		},
		Printer: PrinterConfig{
			Type:    v.GetString("PRINTER_TYPE"),
			USBPath: v.GetString("PRINTER_USB_PATH"),
			Address: v.GetString("PRINTER_ADDRESS"),
			Width:   v.GetInt("PRINTER_WIDTH"),
			Timeout: time.Duration(v.GetInt("PRINTER_TIMEOUT_SECONDS")) * time.Second,
		},
		Email: EmailConfig{
			SMTPHost:        v.GetString("SMTP_HOST"),
			SMTPPort:        v.GetInt("SMTP_PORT"),
			SMTPUsername:    v.GetString("SMTP_USERNAME"),
			SMTPPassword:    v.GetString("SMTP_PASSWORD"),
			FromName:        v.GetString("EMAIL_FROM_NAME"),
			FromEmail:       v.GetString("EMAIL_FROM_ADDRESS"),
			AdminRecipients: splitList(v.GetString("EMAIL_ADMIN_RECIPIENTS")),
		},
		Kafka: KafkaConfig{
			Enabled:      v.GetBool("KAFKA_ENABLED"),
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			ClientID:     v.GetString("KAFKA_CLIENT_ID"),
			Topic:        v.GetString("KAFKA_TOPIC"),
			BatchSize:    v.GetInt("KAFKA_RELAY_BATCH_SIZE"),
			PollInterval: time.Duration(v.GetInt("KAFKA_RELAY_POLL_SECONDS")) * time.Second,
			Linger:       time.Duration(v.GetInt("KAFKA_LINGER_MS")) * time.Millisecond,
			MaxRetries:   v.GetInt("KAFKA_MAX_RETRIES"),
		},
		Tracing: TracingConfig{
			Enabled:    v.GetBool("TRACING_ENABLED"),
			Endpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate: v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		Audit: AuditConfig{
			Timeout:          time.Duration(v.GetInt("AUDIT_TIMEOUT_MS")) * time.Millisecond,
			FailureThreshold: v.GetUint32("AUDIT_BREAKER_FAILURES"),
			OpenTimeout:      time.Duration(v.GetInt("AUDIT_BREAKER_OPEN_SECONDS")) * time.Second,
		},
		Admin: AdminConfig{
			Email:     v.GetString("ADMIN_EMAIL"),
			Password:  v.GetString("ADMIN_PASSWORD"),
			FirstName: v.GetString("ADMIN_FIRST_NAME"),
			LastName:  v.GetString("ADMIN_LAST_NAME"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "diagnostics-api")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("APP_TIMEZONE", "Asia/Manila")
	v.SetDefault("IDEMPOTENCY_TTL_HOURS", 24)
	v.SetDefault("JANITOR_INTERVAL_MINUTES", 60)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("RECEIPT_CLINIC_NAME", "Diagnostics Clinic")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "diagnostics")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "Asia/Manila")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 12)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("CORS_ALLOWED_METHODS", "")
	v.SetDefault("CORS_ALLOWED_HEADERS", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_DURATION", 60)
	v.SetDefault("SEQUENCE_TRANSACTION_PREFIX", "TXN")
	v.SetDefault("SEQUENCE_RECEIPT_PREFIX", "RCP")
	v.SetDefault("SEQUENCE_GRACE_HOURS", 6)
	v.SetDefault("PRINTER_TYPE", "none")
	v.SetDefault("PRINTER_USB_PATH", "/dev/usb/lp0")
	v.SetDefault("PRINTER_ADDRESS", "")
	v.SetDefault("PRINTER_WIDTH", 48)
	v.SetDefault("PRINTER_TIMEOUT_SECONDS", 5)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM_NAME", "Diagnostics Clinic")
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@localhost")
	v.SetDefault("EMAIL_ADMIN_RECIPIENTS", "")
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "diagnostics-api")
	v.SetDefault("KAFKA_TOPIC", "clinic.transaction-events")
	v.SetDefault("KAFKA_RELAY_BATCH_SIZE", 100)
	v.SetDefault("KAFKA_RELAY_POLL_SECONDS", 2)
	v.SetDefault("KAFKA_LINGER_MS", 10)
	v.SetDefault("KAFKA_MAX_RETRIES", 5)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)
	v.SetDefault("AUDIT_TIMEOUT_MS", 2000)
	v.SetDefault("AUDIT_BREAKER_FAILURES", 5)
	v.SetDefault("AUDIT_BREAKER_OPEN_SECONDS", 30)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_FIRST_NAME", "Clinic")
	v.SetDefault("ADMIN_LAST_NAME", "Administrator")
}

// splitList parses a comma separated setting, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves APP_TIMEZONE
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
