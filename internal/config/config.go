package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Backend selects the storage implementation wired at startup.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port           string
	StorageBackend string
	DBConn         string
	LogLevel       string
	JWTSecret      string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	NotifyEmail  string
	// NotifyThreshold is the smallest transaction amount that triggers an
	// operations notification. Zero disables notifications together with
	// an empty NotifyEmail.
	NotifyThreshold decimal.Decimal

	// AuditSchedule is a cron expression for the ledger consistency
	// sweep; empty disables the job.
	AuditSchedule string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendMemory),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=ledger password=ledger dbname=ledger sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "ledger@localhost"),
		NotifyEmail:    getEnv("NOTIFY_EMAIL", ""),
		AuditSchedule:  getEnv("AUDIT_SCHEDULE", ""),
	}

	if cfg.StorageBackend != BackendMemory && cfg.StorageBackend != BackendPostgres {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q", BackendMemory, BackendPostgres)
	}
	if cfg.StorageBackend == BackendPostgres && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	threshold := getEnv("NOTIFY_THRESHOLD", "10000.00")
	parsed, err := decimal.NewFromString(threshold)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_THRESHOLD %q: %w", threshold, err)
	}
	cfg.NotifyThreshold = parsed

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
