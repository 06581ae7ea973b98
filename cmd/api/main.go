package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/config"
	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/infrastructure/audit"
	"github.com/clinicpos/diagnostics-api/internal/infrastructure/database"
	"github.com/clinicpos/diagnostics-api/internal/infrastructure/events"
	"github.com/clinicpos/diagnostics-api/internal/infrastructure/notify"
	"github.com/clinicpos/diagnostics-api/internal/infrastructure/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/logging"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/internal/observability/tracing"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/handler"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/middleware"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/routes"
	"github.com/clinicpos/diagnostics-api/pkg/email"
	"github.com/clinicpos/diagnostics-api/pkg/printer"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "diagnostics-api",
		Short:         "Diagnostics clinic point-of-sale API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(relayCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	var skipSeed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed default data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(skipSeed)
		},
	}
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "only migrate the schema")
	return cmd
}

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish transaction events to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay()
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale sequence counters and expired idempotency keys once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep()
		},
	}
}

// runtime bundles what every subcommand needs
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	calendar *service.Calendar
}

func bootstrap() (*runtime, error) {
	cfg := config.Load()

	logger, err := logging.New(cfg.App.Env, cfg.App.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		calendar: service.NewCalendar(loc),
	}, nil
}

func (r *runtime) close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.logger.Sync()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runMigrate(skipSeed bool) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := database.AutoMigrate(rt.db, rt.logger); err != nil {
		return err
	}
	if skipSeed {
		return nil
	}

	jwtManager := utils.NewJWTManager(rt.cfg.JWT.Secret, rt.cfg.JWT.ExpiryHours)
	authService := service.NewAuthService(
		repository.NewUserRepository(rt.db),
		repository.NewRoleRepository(rt.db),
		jwtManager,
	)
	return database.SeedDefaultData(context.Background(), rt.db, authService, rt.cfg.Admin, rt.logger)
}

func runSweep() error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	janitor := service.NewJanitorService(
		repository.NewCounterRepository(rt.db),
		repository.NewIdempotencyRepository(rt.db),
		rt.calendar,
		rt.logger,
	)

	ctx, cancel := signalContext()
	defer cancel()

	result, err := janitor.Sweep(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info("sweep completed",
		zap.Int64("counters", result.Counters),
		zap.Int64("idempotency_keys", result.IdempotencyKeys),
	)
	return nil
}

func runRelay() error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	kafkaCfg := rt.cfg.Kafka
	if !kafkaCfg.Enabled {
		return errors.New("event relay is disabled, set KAFKA_ENABLED=true")
	}
	if len(kafkaCfg.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is empty")
	}

	ctx, cancel := signalContext()
	defer cancel()

	tp, err := tracing.Init(ctx, tracingConfig(rt.cfg, "relay"))
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer shutdownTracing(tp, rt.logger)

	m := metrics.New(prometheus.DefaultRegisterer)

	producer, err := events.NewProducer(events.ProducerConfig{
		Brokers:    kafkaCfg.Brokers,
		ClientID:   kafkaCfg.ClientID,
		Linger:     kafkaCfg.Linger,
		MaxRetries: kafkaCfg.MaxRetries,
	}, rt.logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	err = producer.Ping(pingCtx)
	pingCancel()
	if err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}

	relay := events.NewRelay(
		repository.NewTxManager(rt.db),
		repository.NewTransactionEventRepository(rt.db),
		producer,
		events.RelayConfig{
			Topic:        kafkaCfg.Topic,
			BatchSize:    kafkaCfg.BatchSize,
			PollInterval: kafkaCfg.PollInterval,
		},
		m,
		rt.logger,
	)

	rt.logger.Info("starting transaction event relay",
		zap.Strings("brokers", kafkaCfg.Brokers),
		zap.String("topic", kafkaCfg.Topic),
	)
	relay.Run(ctx)
	rt.logger.Info("relay stopped")
	return nil
}

func runServer() error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger
	db := rt.db

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tp, err := tracing.Init(ctx, tracingConfig(cfg, "api"))
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer shutdownTracing(tp, logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Repositories
	txm := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	labTestRepo := repository.NewLabTestRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	testRepo := repository.NewTransactionTestRepository(db)
	eventRepo := repository.NewTransactionEventRepository(db)
	recRepo := repository.NewReconciliationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	auditSink := audit.NewSink(auditRepo, audit.Config{
		Timeout:          cfg.Audit.Timeout,
		FailureThreshold: cfg.Audit.FailureThreshold,
		OpenTimeout:      cfg.Audit.OpenTimeout,
	}, m, logger)

	emailService := email.NewEmailService(email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		AppName:      cfg.Receipt.ClinicName,
	})
	if !emailService.Enabled() {
		logger.Warn("SMTP not configured, correction requests will not be emailed")
	}
	notifier := notify.NewCorrectionMailer(emailService, userRepo, cfg.Email.AdminRecipients)

	receiptPrinter, err := printer.New(printer.Config{
		Type:    cfg.Printer.Type,
		USBPath: cfg.Printer.USBPath,
		Address: cfg.Printer.Address,
		Timeout: cfg.Printer.Timeout,
	})
	if err != nil {
		logger.Warn("printer unavailable, receipts will not be printed", zap.Error(err))
		receiptPrinter = printer.NewNullPrinter()
	}

	// Services
	sequences := service.NewSequenceGenerator(counterRepo, cfg.Sequence.Grace, m)
	authService := service.NewAuthService(userRepo, roleRepo, jwtManager)
	transactionService := service.NewTransactionService(
		txm,
		patientRepo,
		labTestRepo,
		discountRepo,
		txnRepo,
		testRepo,
		eventRepo,
		sequences,
		rt.calendar,
		service.SequencePrefixes{
			Transaction: cfg.Sequence.TransactionPrefix,
			Receipt:     cfg.Sequence.ReceiptPrefix,
		},
		auditSink,
		m,
		logger,
	)
	labService := service.NewLabService(txm, txnRepo, testRepo, eventRepo, rt.calendar, auditSink, m, logger)
	reconciliationService := service.NewReconciliationService(txm, recRepo, txnRepo, rt.calendar, auditSink, notifier, m, logger)
	printerService := service.NewPrinterService(
		receiptPrinter,
		txnRepo,
		userRepo,
		rt.calendar,
		entity.ReceiptHeader{
			ClinicName: cfg.Receipt.ClinicName,
			Address:    cfg.Receipt.Address,
			Phone:      cfg.Receipt.Phone,
			TaxID:      cfg.Receipt.TaxID,
		},
		cfg.Printer.Width,
		logger,
	)
	janitor := service.NewJanitorService(counterRepo, idempotencyRepo, rt.calendar, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	policy := middleware.DefaultPolicy()

	var rateLimiter *middleware.UserRateLimiter
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Duration > 0 {
		rateLimiter = middleware.NewUserRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(cfg.RateLimit.Requests) / float64(cfg.RateLimit.Duration),
			BurstSize:         cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		rateLimiter.Start(ctx.Done())
	}

	router := routes.Setup(&routes.Handlers{
		Auth:           handler.NewAuthHandler(authService, policy),
		Transaction:    handler.NewTransactionHandler(transactionService, rt.calendar),
		Lab:            handler.NewLabHandler(labService),
		Reconciliation: handler.NewReconciliationHandler(reconciliationService, rt.calendar),
		Printer:        handler.NewPrinterHandler(printerService),
		Health:         handler.NewHealthHandler(cfg.App.Name, sqlDB),
	}, &routes.Deps{
		JWTManager:      jwtManager,
		Policy:          policy,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
		Metrics:         m,
		Logger:          logger,
	})

	if cfg.App.JanitorInterval > 0 {
		go janitor.Run(ctx, cfg.App.JanitorInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("name", cfg.App.Name),
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("timezone", cfg.App.Timezone),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func tracingConfig(cfg *config.Config, component string) tracing.Config {
	return tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.App.Name + "-" + component,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	}
}

func shutdownTracing(tp *tracing.Provider, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}
