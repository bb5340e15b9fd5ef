package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/internal/config"
	"github.com/diewo77/go-offers/internal/db"
	"github.com/diewo77/go-offers/internal/logging"
	"github.com/diewo77/go-offers/internal/models"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.App.LogLevel, cfg.App.Dev)
	logging.SetGlobal(logger)

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := migrateSchema(cfg, dbConn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := seed(cfg, dbConn); err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		log.Info().Msg("seeding completed successfully")
		return
	}

	if cfg.App.Migrations || cfg.Database.Driver == config.DriverSQLite {
		if err := migrateSchema(cfg, dbConn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed")
	}
	if err := seed(cfg, dbConn); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	if cfg.App.SessionSecret == "" && !cfg.App.Dev {
		log.Warn().Msg("SESSION_SECRET is not set, using the development key")
	}
	auth.SetSecret(cfg.App.SessionSecret)
	auth.SetUserVerifier(activeUserVerifier(dbConn))

	appHandler := NewApp(dbConn, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

// migrateSchema applies the versioned SQL files on PostgreSQL and falls back
// to the gorm models for SQLite.
func migrateSchema(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.Database.Driver == config.DriverPostgres {
		if err := db.RunSQLMigrations(cfg.Database.URL(), cfg.App.MigrationsDir); err != nil {
			return err
		}
		return db.CheckSchema(dbConn)
	}
	return db.Migrate(dbConn)
}

func seed(cfg *config.Config, dbConn *gorm.DB) error {
	if err := db.Seed(dbConn); err != nil {
		return err
	}
	return db.SeedAdmin(dbConn, cfg.Admin.Email, cfg.Admin.Password)
}

// activeUserVerifier accepts sessions of approved, active accounts only.
func activeUserVerifier(dbConn *gorm.DB) auth.UserVerifier {
	return func(ctx context.Context, uid uint) bool {
		var count int64
		err := dbConn.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND is_approved = ? AND is_active = ?", uid, true, true).
			Count(&count).Error
		return err == nil && count > 0
	}
}
