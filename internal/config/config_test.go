package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("MAILFLOW_DATABASE_TYPE")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Type != DatabaseTypeSqllite {
		t.Errorf("Expected default database type SQLLITE, got %s", cfg.Database.Type)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.HTTP.Port)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.BatchSize != 100 {
		t.Errorf("Unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestLoad_RejectsUnknownDatabaseType(t *testing.T) {
	os.Setenv("MAILFLOW_DATABASE_TYPE", "ORACLE")
	defer os.Unsetenv("MAILFLOW_DATABASE_TYPE")

	if _, err := Load(); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	os.Setenv("MAILFLOW_DATABASE_TYPE", "POSTGRES")
	os.Setenv("MAILFLOW_DATABASE_URL", "postgres://localhost/mailflow")
	os.Setenv("MAILFLOW_SCHEDULER_ENABLED", "false")
	defer func() {
		os.Unsetenv("MAILFLOW_DATABASE_TYPE")
		os.Unsetenv("MAILFLOW_DATABASE_URL")
		os.Unsetenv("MAILFLOW_SCHEDULER_ENABLED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Type != DatabaseTypePostgres {
		t.Errorf("Expected POSTGRES, got %s", cfg.Database.Type)
	}
	if cfg.Database.URL != "postgres://localhost/mailflow" {
		t.Errorf("Unexpected database URL %s", cfg.Database.URL)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Expected scheduler disabled")
	}
}
