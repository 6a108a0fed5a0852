package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/application/service"
	"github.com/acampov/mealpass/internal/config"
	"github.com/acampov/mealpass/internal/infrastructure/email"
	"github.com/acampov/mealpass/internal/infrastructure/persistence/repository"
	sqlitedb "github.com/acampov/mealpass/internal/infrastructure/persistence/sqlite"
	"github.com/acampov/mealpass/internal/infrastructure/qr"
	"github.com/acampov/mealpass/internal/infrastructure/roster"
	httpserver "github.com/acampov/mealpass/internal/interfaces/http"
	"github.com/acampov/mealpass/migrations"
	"github.com/acampov/mealpass/pkg/database"
	"github.com/acampov/mealpass/pkg/utils"
)

func main() {
	// Local .env overrides are optional
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
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

	logger.Info("Starting meal voucher service",
		zap.String("event", cfg.Event.Name),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories and transaction manager share one pool
	txManager := sqlitedb.NewDB(db.DB, logger)
	voucherRepo := repository.NewVoucherRepository(db.DB, logger)
	attendeeRepo := repository.NewAttendeeRepository(db.DB, logger)

	renderer := qr.NewRenderer(cfg.Event.QRSize)

	var sink port.NotificationSink
	if cfg.SMTP.Host != "" {
		sink = email.NewSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			SenderName: cfg.SMTP.SenderName,
			EventName:  cfg.Event.Name,
		}, renderer, logger)
	} else {
		logger.Info("SMTP not configured, voucher emails disabled")
		sink = email.NewDisabledSink(logger)
	}

	svcLogger := utils.NewSugarAdapter(logger)
	attendeeService := service.NewAttendeeService(attendeeRepo, svcLogger)
	issuanceService := service.NewIssuanceService(voucherRepo, txManager, sink, svcLogger)
	redemptionService := service.NewRedemptionService(voucherRepo, svcLogger)
	batchService := service.NewBatchIssuanceService(voucherRepo, issuanceService, svcLogger)

	localSource := service.NewLocalAttendeeSource(attendeeRepo)

	var externalSource port.AttendeeSource
	if cfg.Roster.DSN != "" {
		rosterDB, err := roster.Open(cfg.Roster.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to external roster", zap.Error(err))
		}
		defer rosterDB.Close()
		externalSource = roster.NewSource(rosterDB, roster.Config{
			Table:       cfg.Roster.Table,
			NameColumn:  cfg.Roster.NameColumn,
			IDColumn:    cfg.Roster.IDColumn,
			EmailColumn: cfg.Roster.EmailColumn,
		}, logger)
		logger.Info("External roster connected", zap.String("table", cfg.Roster.Table))
	}

	handlers := httpserver.NewHandlers(
		attendeeService,
		issuanceService,
		redemptionService,
		batchService,
		voucherRepo,
		renderer,
		localSource,
		externalSource,
		svcLogger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, svcLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
