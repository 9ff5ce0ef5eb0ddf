package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/sarathi/internal/adapter/http"
	"github.com/iho/sarathi/internal/adapter/http/handler"
	"github.com/iho/sarathi/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/sarathi/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/sarathi/internal/adapter/repository/redis"
	"github.com/iho/sarathi/internal/infrastructure/auth"
	"github.com/iho/sarathi/internal/infrastructure/config"
	"github.com/iho/sarathi/internal/infrastructure/eventpublisher"
	"github.com/iho/sarathi/internal/infrastructure/logger"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
	"github.com/iho/sarathi/internal/infrastructure/notify"
	"github.com/iho/sarathi/internal/infrastructure/postgres"
	"github.com/iho/sarathi/internal/infrastructure/redis"
	"github.com/iho/sarathi/internal/usecase"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	refreshMode, err := usecase.ParseScoreRefreshMode(cfg.ScoreRefreshMode)
	if err != nil {
		return err
	}

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	users := postgresRepo.NewUserRepository(pool)
	txns := postgresRepo.NewTransactionRepository(pool)
	scores := postgresRepo.NewScoreRepository(pool)
	loans := postgresRepo.NewLoanRepository(pool)
	merchants := postgresRepo.NewMerchantRepository(pool)
	escrows := postgresRepo.NewEscrowRepository(pool)
	proofs := postgresRepo.NewProofRepository(pool)
	outbox := postgresRepo.NewOutboxRepository(pool)
	audit := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	scoreCache := redisRepo.NewScoreCache(redisClient)

	coordinator := usecase.NewCoordinator(usecase.CoordinatorConfig{
		TxManager:       txManager,
		Retrier:         postgresRepo.NewRetrier(log),
		Locker:          redisRepo.NewLocker(redisClient),
		Logger:          log,
		Metrics:         m,
		Timeout:         cfg.ScopeTimeout,
		LockTTL:         cfg.ScopeLockTTL,
		ForceSequential: cfg.StoreAtomicMode == "sequential",
	})

	// Use cases
	scoreUC := usecase.NewScoreUseCase(usecase.ScoreDeps{
		Users:        users,
		Transactions: txns,
		Loans:        loans,
		Scores:       scores,
		Cache:        scoreCache,
		IDGen:        idGen,
		TTL:          cfg.ScoreTTL,
		Logger:       log,
		Metrics:      m,
	})
	refresher := usecase.NewBackgroundScoreRefresher(scoreUC, refreshMode, cfg.ScoreRefreshTimeout, log)
	defer refresher.Wait()

	ledgerUC := usecase.NewLedgerUseCase(usecase.LedgerDeps{
		Coordinator:  coordinator,
		Users:        users,
		Transactions: txns,
		Outbox:       outbox,
		IDGen:        idGen,
		Refresher:    refresher,
		Region:       cfg.DefaultRegion,
		Logger:       log,
		Metrics:      m,
	})
	loanUC := usecase.NewLoanUseCase(usecase.LoanDeps{
		Coordinator:  coordinator,
		Users:        users,
		Loans:        loans,
		Transactions: txns,
		Ledger:       ledgerUC,
		Scores:       scoreUC,
		Outbox:       outbox,
		Audit:        audit,
		IDGen:        idGen,
		Refresher:    refresher,
		Logger:       log,
		Metrics:      m,
	})
	escrowUC := usecase.NewEscrowUseCase(usecase.EscrowDeps{
		Coordinator:  coordinator,
		Users:        users,
		Merchants:    merchants,
		Escrows:      escrows,
		Proofs:       proofs,
		Transactions: txns,
		Ledger:       ledgerUC,
		Outbox:       outbox,
		Audit:        audit,
		IDGen:        idGen,
		Refresher:    refresher,
		Logger:       log,
		Metrics:      m,
	})
	merchantUC := usecase.NewMerchantUseCase(coordinator, merchants, outbox, audit, idGen, cfg.DefaultRegion, m)
	reconciliationUC := usecase.NewReconciliationUseCase(users, txns)
	auditUC := usecase.NewAuditUseCase(audit)

	// Outbox delivery
	notifier, err := notify.New(notifyConfig(cfg), log)
	if err != nil {
		return err
	}
	sink, closeSink, err := eventSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo:  outbox,
		Publisher:   eventpublisher.NewRoutingPublisher(notifier, sink, log, m),
		Logger:      log,
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxPollInterval,
		Retention:   cfg.OutboxRetention,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// HTTP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
	go cleanupLimiters(ctx, rateLimiter)

	routerCfg := httpAdapter.RouterConfig{
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC),
		ScoreHandler:    handler.NewScoreHandler(scoreUC),
		LoanHandler:     handler.NewLoanHandler(loanUC),
		SafeSendHandler: handler.NewSafeSendHandler(merchantUC, escrowUC),
		AdminHandler:    handler.NewAdminHandler(reconciliationUC, auditUC),
		HealthHandler: handler.NewHealthHandler(
			handler.PingerFunc(pool.Ping),
			handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:           log,
	}
	if cfg.AuthEnabled {
		routerCfg.Verifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn().Msg("authentication disabled, trusting X-User-ID headers")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
