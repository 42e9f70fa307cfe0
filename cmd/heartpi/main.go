package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OlaWak/heartpi/internal/config"
	"github.com/OlaWak/heartpi/internal/database"
	httpapi "github.com/OlaWak/heartpi/internal/http"
	"github.com/OlaWak/heartpi/internal/logger"
	"github.com/OlaWak/heartpi/internal/mqtt"
	"github.com/OlaWak/heartpi/internal/notify"
	"github.com/OlaWak/heartpi/internal/repository"
	"github.com/OlaWak/heartpi/internal/service"
	"github.com/OlaWak/heartpi/internal/simulator"
	"github.com/OlaWak/heartpi/internal/store"

	"go.uber.org/zap"
)

const streamMaxLen = 10000

func main() {
	// 1. config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName, cfg.Log.ErrorLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. record store
	records, err := openRecordStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open record store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer records.Close()

	readingLog, err := repository.OpenReadingLog(cfg.Store.ReadingLogPath, log)
	if err != nil {
		log.Fatal("Failed to open reading log", zap.String("path", cfg.Store.ReadingLogPath), zap.Error(err))
	}
	defer readingLog.Close()

	// 4. optional Redis cache and event stream
	opts := service.AssessmentOptions{
		FollowUpSamples: cfg.Assessment.FollowUpSamples,
		FollowUpSpread:  cfg.Assessment.FollowUpSpread,
		NoFollowUps:     cfg.Assessment.FollowUpSamples == 0,
		ReadingLog:      readingLog,
		CacheTTL:        cfg.Assessment.LatestTTL,
	}
	if cfg.Redis.Enabled {
		rc, err := store.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, running without cache and event stream", zap.Error(err))
		} else {
			defer rc.Close()
			opts.Cache = store.NewRedisKV(rc)
			opts.Publisher = store.NewStreamPublisher(rc, cfg.Assessment.Stream, streamMaxLen)
			log.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Assessment.Stream))
		}
	}

	// 5. caregiver alert transport
	mailer, closeMailer := newMailer(cfg, log)
	defer closeMailer()

	// 6. services
	accounts := service.NewAccountService(records, log)
	assessments := service.NewAssessmentService(records, simulator.New(nil), opts, log)
	history := service.NewHistoryService(records, assessments, log)
	caregiver := service.NewCaregiverService(history, mailer, time.Local, log)

	// 7. HTTP
	handler := httpapi.NewHeartPiHandler(accounts, assessments, history, caregiver, time.Local, log)
	router := httpapi.NewRouter(log)
	router.RegisterHeartPiRoutes(handler)
	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	// 8. serve until SIGINT/SIGTERM
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(runCtx); err != nil {
		log.Error("HTTP server error", zap.Error(err))
	}
	log.Info("heartpi stopped")
}

func openRecordStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.RecordStore, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		log.Warn("Using in-memory record store; data is lost on exit")
		return repository.NewMemoryRecordStore(), nil
	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		s := repository.NewPostgresRecordStore(db, log)
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("Using PostgreSQL record store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		return s, nil
	default:
		s, err := repository.OpenCSVRecordStore(cfg.Store.UserDataPath, log)
		if err != nil {
			return nil, err
		}
		log.Info("Using CSV record store", zap.String("path", cfg.Store.UserDataPath))
		return s, nil
	}
}

// newMailer returns nil when no transport is configured; alerts then fail with notify.ErrNotConfigured.
func newMailer(cfg *config.Config, log *zap.Logger) (notify.Mailer, func()) {
	switch cfg.Alert.Transport {
	case config.AlertMQTT:
		client, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, caregiver alerts disabled", zap.Error(err))
			return nil, func() {}
		}
		return notify.NewMQTTMailer(client, cfg.MQTT.AlertTopic, cfg.MQTT.QoS, cfg.Mail.SenderEmail, log), client.Disconnect
	default:
		if cfg.Mail.GatewayURL == "" {
			log.Warn("MAIL_GATEWAY_URL not set, caregiver alerts disabled")
			return nil, func() {}
		}
		return notify.NewHTTPMailer(cfg.Mail, log), func() {}
	}
}
