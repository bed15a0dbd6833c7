package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DatabaseTypePostgres = "POSTGRES"
	DatabaseTypeMysql    = "MYSQL"
	DatabaseTypeSqllite  = "SQLLITE"
)

type DatabaseConfig struct {
	Type        string `env:"MAILFLOW_DATABASE_TYPE" envDefault:"SQLLITE"`
	URL         string `env:"MAILFLOW_DATABASE_URL"`
	SqlLiteFile string `env:"MAILFLOW_DATABASE_SQLLITE_FILE_NAME" envDefault:"./mailflow.db"`
}

type HTTPConfig struct {
	Port string `env:"MAILFLOW_HTTP_PORT" envDefault:"8080"`
}

type AuthConfig struct {
	// bcrypt hashes, not plaintext secrets; generated with mailflow-hash or
	// any bcrypt tool. Empty hash disables the guarded surface.
	APIKeyHash     string `env:"MAILFLOW_API_KEY_HASH"`
	CronSecretHash string `env:"MAILFLOW_CRON_SECRET_HASH"`
}

type SendGridConfig struct {
	APIKey      string `env:"SENDGRID_API_KEY"`
	SenderEmail string `env:"SENDGRID_SENDER_EMAIL" envDefault:"noreply@landertag.com"`
	SenderName  string `env:"SENDGRID_SENDER_NAME" envDefault:"PrelanderAI"`
	// When set, emails are written to this directory instead of sent.
	DevDir string `env:"MAILFLOW_EMAIL_DEV_DIR"`
}

type SchedulerConfig struct {
	Enabled   bool   `env:"MAILFLOW_SCHEDULER_ENABLED" envDefault:"true"`
	CronSpec  string `env:"MAILFLOW_SCHEDULER_CRON" envDefault:"*/5 * * * *"`
	BatchSize int    `env:"MAILFLOW_SCHEDULER_BATCH_SIZE" envDefault:"100"`
}

type AppConfig struct {
	AppURL string `env:"MAILFLOW_APP_URL" envDefault:"https://app.landertag.com"`
}

type Config struct {
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	SendGrid  SendGridConfig
	Scheduler SchedulerConfig
	App       AppConfig
}

var dotenvOnce sync.Once

// Load reads configuration from the environment, loading a .env file first if
// one exists.
func Load() (*Config, error) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Database.Type != DatabaseTypePostgres &&
		cfg.Database.Type != DatabaseTypeMysql &&
		cfg.Database.Type != DatabaseTypeSqllite {
		return nil, fmt.Errorf("MAILFLOW_DATABASE_TYPE must be one of POSTGRES, MYSQL, SQLLITE, got %q", cfg.Database.Type)
	}
	return &cfg, nil
}
