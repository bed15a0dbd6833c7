package mailflow

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/landertag/mailflow/internal/catalog"
	"github.com/landertag/mailflow/internal/config"
	"github.com/landertag/mailflow/internal/controllers"
	"github.com/landertag/mailflow/internal/email"
	"github.com/landertag/mailflow/internal/engine"
	"github.com/landertag/mailflow/internal/migrations"
	"github.com/landertag/mailflow/internal/repository"
	"github.com/landertag/mailflow/pkg/mailflow/core"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Start boots the email workflow engine and HTTP server.
// This call blocks until the HTTP server stops.
func Start(mux *http.ServeMux) error {

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var db *sql.DB
	if cfg.Database.Type == config.DatabaseTypePostgres {
		db = setupPostgresDatabase(cfg)
		defer db.Close()
	}
	if cfg.Database.Type == config.DatabaseTypeSqllite {
		db = setupSqlLiteDatabase(cfg)
		defer db.Close()
	}
	if cfg.Database.Type == config.DatabaseTypeMysql {
		db = setupMysqlDatabase(cfg)
		defer db.Close()
	}

	templates := email.NewTemplates(cfg.App.AppURL)
	cat, err := catalog.New(catalog.BuiltIn())
	if err != nil {
		slog.Error("Workflow catalog is invalid", "error", err)
		os.Exit(1)
	}
	if err := cat.Validate(templates.Has); err != nil {
		slog.Error("Workflow catalog references unknown templates", "error", err)
		os.Exit(1)
	}

	var sender email.Sender
	if cfg.SendGrid.DevDir != "" || cfg.SendGrid.APIKey == "" {
		dir := cfg.SendGrid.DevDir
		if dir == "" {
			dir = "./emails"
		}
		slog.Info("Using dev email sender, emails are written to disk", "dir", dir)
		sender = email.NewDevSender(dir)
	} else {
		sender = email.NewSendGridSender(cfg.SendGrid)
	}

	clock := core.NewRealClock()
	dialect := repository.DialectFor(cfg.Database.Type)
	instanceRepo := repository.NewInstanceRepository(db, dialect, clock)
	scheduleRepo := repository.NewScheduleRepository(db, dialect, clock)
	emailLogRepo := repository.NewEmailLogRepository(db, dialect, clock)

	eng := engine.New(cat, templates, sender, instanceRepo, scheduleRepo, emailLogRepo, clock)
	processor := engine.NewProcessor(eng, scheduleRepo)

	if cfg.Scheduler.Enabled {
		c := cron.New()
		_, err := c.AddFunc(cfg.Scheduler.CronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := processor.ProcessDue(ctx, cfg.Scheduler.BatchSize); err != nil {
				slog.Error("Scheduled email processing failed", "error", err)
			}
		})
		if err != nil {
			slog.Error("Invalid scheduler cron expression", "cron", cfg.Scheduler.CronSpec, "error", err)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		slog.Info("Internal scheduler started", "cron", cfg.Scheduler.CronSpec)
	}

	if mux == nil {
		mux = http.NewServeMux()
	}
	authController := controllers.NewAuthController(cfg.Auth)
	workflowsController := controllers.NewWorkflowsController(eng, authController)
	workflowsController.RegisterRoutes(mux)
	schedulerController := controllers.NewSchedulerController(processor, authController, cfg.Scheduler.BatchSize)
	schedulerController.RegisterRoutes(mux)
	mailerController := controllers.NewMailerController(templates, sender, emailLogRepo, clock, authController)
	mailerController.RegisterRoutes(mux)

	addr := ":" + cfg.HTTP.Port
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		return err
	}
	return nil
}

func setupPostgresDatabase(cfg *config.Config) *sql.DB {
	dbURL := cfg.Database.URL
	if dbURL == "" {
		panic("MAILFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database")
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase(cfg *config.Config) *sql.DB {
	fileName := cfg.Database.SqlLiteFile
	if fileName == "" {
		panic("MAILFLOW_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase(cfg *config.Config) *sql.DB {
	dbURL := cfg.Database.URL
	if dbURL == "" {
		panic("MAILFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("MAILFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("MAILFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database")
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func SetupLogger() {
	w := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
