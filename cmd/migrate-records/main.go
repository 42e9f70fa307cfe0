package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OlaWak/heartpi/internal/config"
	"github.com/OlaWak/heartpi/internal/database"
	"github.com/OlaWak/heartpi/internal/logger"
	"github.com/OlaWak/heartpi/internal/repository"

	"go.uber.org/zap"
)

// migrate-records copies a CSV record store into PostgreSQL (DB_* settings).
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	source := flag.String("source", cfg.Store.UserDataPath, "CSV record store to copy")
	flag.Parse()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "heartpi-migrate-records", cfg.Log.ErrorLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*source, cfg, log); err != nil {
		log.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(source string, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. source must exist; opening the store would otherwise create it
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("source %s: %w", source, err)
	}
	src, err := repository.OpenCSVRecordStore(source, log)
	if err != nil {
		return err
	}
	defer src.Close()

	// 2. destination
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	dst := repository.NewPostgresRecordStore(db, log)
	defer dst.Close()
	if err := dst.EnsureSchema(ctx); err != nil {
		return err
	}

	// 3. copy
	st, err := repository.CopyRecords(ctx, src.Records(ctx), dst, log)
	log.Info("Migration finished",
		zap.String("source", source),
		zap.Int("credentials", st.Credentials),
		zap.Int("readings", st.Readings),
		zap.Int("duplicate_credentials", st.DuplicateCredential),
	)
	return err
}
