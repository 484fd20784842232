// Package config loads the process configuration from the environment.
// Variable names are contractual; deployments set them directly or through
// a .env file loaded at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the supervisor needs besides the database
// settings, which pkg/database loads separately.
type Config struct {
	// BindAddress is the host:port the HTTP server listens on.
	BindAddress string

	SMTP      SMTPConfig
	Scripts   ScriptConfig
	Retention RetentionConfig
}

// SMTPConfig describes the authenticated relay used by email actions.
// All fields are required: a supervisor that cannot send mail would fail
// exactly when it matters, so misconfiguration is fatal at startup.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ScriptConfig describes the sandbox for script actions.
type ScriptConfig struct {
	// Dir is the only directory scripts may be executed from.
	Dir string
	// TimeoutSeconds bounds each script run; enforced by the timeout wrapper.
	TimeoutSeconds int64
}

// RetentionConfig controls purging of finished execution records.
type RetentionConfig struct {
	// ExecutionDays is how long finished execution records are kept.
	// 0 disables purging.
	ExecutionDays int
}

// LoadFromEnv reads the configuration from environment variables, applying
// defaults for the optional ones.
func LoadFromEnv() (*Config, error) {
	smtp, err := loadSMTPFromEnv()
	if err != nil {
		return nil, err
	}

	scriptTimeout, err := strconv.ParseInt(getEnvOrDefault("SCRIPT_TIMEOUT_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SCRIPT_TIMEOUT_SECONDS: %w", err)
	}
	if scriptTimeout < 1 {
		return nil, fmt.Errorf("SCRIPT_TIMEOUT_SECONDS must be at least 1")
	}

	retentionDays, err := strconv.Atoi(getEnvOrDefault("EXECUTION_RETENTION_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXECUTION_RETENTION_DAYS: %w", err)
	}
	if retentionDays < 0 {
		return nil, fmt.Errorf("EXECUTION_RETENTION_DAYS must not be negative")
	}

	return &Config{
		BindAddress: getEnvOrDefault("BIND_ADDRESS", "0.0.0.0:3000"),
		SMTP:        smtp,
		Scripts: ScriptConfig{
			Dir:            getEnvOrDefault("SCRIPTS_DIR", "./scripts"),
			TimeoutSeconds: scriptTimeout,
		},
		Retention: RetentionConfig{
			ExecutionDays: retentionDays,
		},
	}, nil
}

func loadSMTPFromEnv() (SMTPConfig, error) {
	for _, key := range []string{"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM"} {
		if os.Getenv(key) == "" {
			return SMTPConfig{}, fmt.Errorf("%s is required", key)
		}
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		return SMTPConfig{}, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return SMTPConfig{}, fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}

	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
