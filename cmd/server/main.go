package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/config"
	"github.com/mhartley/claim-audit/internal/export"
	"github.com/mhartley/claim-audit/internal/extraction"
	"github.com/mhartley/claim-audit/internal/notify"
	"github.com/mhartley/claim-audit/internal/reconcile"
	"github.com/mhartley/claim-audit/internal/report"
	"github.com/mhartley/claim-audit/internal/repository"
	"github.com/mhartley/claim-audit/internal/server"
	"github.com/mhartley/claim-audit/internal/session"
	"github.com/mhartley/claim-audit/pkg/database"
	"github.com/mhartley/claim-audit/pkg/utils"
)

func main() {
	// Pick up local credentials before viper reads the environment.
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting claim audit service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	amountThreshold, err := decimal.NewFromString(cfg.Policy.AmountThreshold)
	if err != nil {
		logger.Fatal("Invalid policy amount threshold",
			zap.String("value", cfg.Policy.AmountThreshold), zap.Error(err))
	}

	recordRepo := repository.NewRecordRepository(db.DB, logger)
	analyzer := extraction.NewClient(cfg.Extraction.APIKey, cfg.Extraction.Model, logger)
	parser := extraction.NewParser(logger)
	engine := reconcile.NewEngine(amountThreshold, cfg.Policy.MaxReceiptAgeDays)
	registry := session.NewRegistry(logger)
	reportEngine := report.NewEngine(logger)
	formatter := export.NewFormatter()
	workbooks := export.NewWorkbookWriter(logger)

	anchors := report.Anchors{
		DayStart:        cfg.Schedule.DayStart,
		DayEnd:          cfg.Schedule.DayEnd,
		MinBlockMinutes: cfg.Schedule.MinBlockMinutes,
		MaxBlockMinutes: cfg.Schedule.MaxBlockMinutes,
	}

	var notifier server.ReportNotifier
	if cfg.Notify.Enabled {
		notifier = notify.NewNotifier(notify.Config{
			AppID:         cfg.Notify.AppID,
			AppSecret:     cfg.Notify.AppSecret,
			ReceiveIDType: cfg.Notify.ReceiveIDType,
			ReceiveID:     cfg.Notify.ReceiveID,
		}, logger)
	}

	handlers := server.NewHandlers(
		analyzer,
		parser,
		engine,
		registry,
		recordRepo,
		reportEngine,
		anchors,
		formatter,
		workbooks,
		notifier,
		cfg.Extraction.Timeout,
		logger,
	)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
