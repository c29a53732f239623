// Package cli provides common initialization for the ledger binaries.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// ShutdownTimeout bounds how long Run waits for in-flight work to drain.
const ShutdownTimeout = 30 * time.Second

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logCfg := applog.DefaultConfig()
	logCfg.Level = applog.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = component
	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// MustValidate exits the process when validate fails.
func MustValidate(logger *applog.Logger, validate func() error) {
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// Run calls serve until it returns or SIGINT/SIGTERM arrives, then calls
// shutdown with a context bounded by timeout. The first non-nil error wins.
func Run(ctx context.Context, logger *applog.Logger, timeout time.Duration,
	serve func(ctx context.Context) error,
	shutdown func(ctx context.Context) error,
) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var g errgroup.Group

	g.Go(func() error {
		defer cancel()
		return serve(runCtx)
	})

	g.Go(func() error {
		<-runCtx.Done()
		if sigCtx.Err() != nil {
			logger.Info("Shutdown signal received")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		start := time.Now()
		err := shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		} else if err == nil {
			logger.Info("Shutdown complete", "duration", time.Since(start))
		}
		return err
	})

	return g.Wait()
}

// Slog returns the underlying slog logger for packages that take one.
func Slog(logger *applog.Logger) *slog.Logger {
	return logger.Logger.With("component", logger.Component())
}
