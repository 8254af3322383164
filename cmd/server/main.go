package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/bookvalue-backend/internal/adapter/grpc"
	bookvaluev1 "github.com/simaogato/bookvalue-backend/internal/adapter/grpc/bookvalue/v1"
	"github.com/simaogato/bookvalue-backend/internal/adapter/quotesource"
	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/config"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/logger"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
	"github.com/simaogato/bookvalue-backend/internal/scheduler"
	"github.com/simaogato/bookvalue-backend/internal/usecase/alert"
	"github.com/simaogato/bookvalue-backend/internal/usecase/batch"
	"github.com/simaogato/bookvalue-backend/internal/usecase/classifier"
	"github.com/simaogato/bookvalue-backend/internal/usecase/comparison"
	"github.com/simaogato/bookvalue-backend/internal/usecase/notification"
	"github.com/simaogato/bookvalue-backend/internal/usecase/refresh"
	"github.com/simaogato/bookvalue-backend/internal/usecase/snapshot"
	"github.com/simaogato/bookvalue-backend/internal/usecase/tracker"
)

// repositories is the persistence handle passed to every service
type repositories struct {
	books         domain.BookRepository
	ceilings      domain.CeilingRepository
	quotes        domain.QuoteRepository
	batches       domain.BatchRepository
	snapshots     domain.SnapshotRepository
	alerts        domain.AlertRepository
	notifications domain.NotificationRepository
	close         func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup storage
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	clk := clock.New()

	// 3. Initialize Services (Use Cases)
	c, err := classifier.NewClassifier(cfg.Tiers)
	if err != nil {
		return err
	}

	trackerService := tracker.NewTrackerService(repos.ceilings, repos.books, c, log)
	batchService := batch.NewBatchService(repos.batches, repos.books, clk, log)

	var source refresh.QuoteSource
	if cfg.Quote.Enabled() {
		source = quotesource.NewClient(quotesource.Config{
			BaseURL:       cfg.Quote.URL,
			APIKey:        cfg.Quote.APIKey,
			Timeout:       cfg.Quote.Timeout,
			RatePerSecond: cfg.Quote.RatePerSecond,
			Burst:         cfg.Quote.Burst,
		}, clk, m, log)
	} else {
		log.Warn("QUOTE_SOURCE_URL not set, alerts evaluate stored prices")
	}
	refreshService := refresh.NewRefreshService(repos.books, repos.quotes, source, trackerService, batchService, cfg.AlertConcurrency, log)

	snapshotService := snapshot.NewSnapshotService(repos.books, repos.batches, repos.snapshots, snapshot.Config{
		Concurrency: cfg.SnapshotConcurrency,
	}, clk, m, log)

	var generator comparison.SnapshotGenerator
	if cfg.ComparisonLazyGenerate {
		generator = snapshotService
	}
	comparisonService := comparison.NewComparisonService(repos.batches, repos.snapshots, generator, clk, log)

	var refresher alert.BookRefresher
	if source != nil {
		refresher = refreshService
	}
	alertService := alert.NewAlertService(repos.alerts, repos.books, refresher, alert.Config{
		Concurrency: cfg.AlertConcurrency,
		Timeout:     cfg.AlertTimeout,
	}, clk, m, log)

	notificationService := notification.NewNotificationService(repos.notifications, clk, log)

	// 4. Start gRPC Server
	if cfg.APIToken == "" {
		log.Warn("API_TOKEN not set, every RPC will be rejected")
	}

	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(alertService, snapshotService, comparisonService, refreshService, notificationService, batchService, log)
	bookvaluev1.RegisterValuationServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC server: %w", err)
		}
	}()

	// 5. Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve metrics: %w", err)
		}
	}()

	// 6. Optional in-process scheduler
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(alertService, snapshotService, scheduler.Config{
			AlertInterval:    cfg.Scheduler.AlertInterval,
			SnapshotInterval: cfg.Scheduler.SnapshotInterval,
		}, clk, m, log)
		go sched.RunForever(ctx)
		log.Info("scheduler started",
			zap.Duration("alert_interval", cfg.Scheduler.AlertInterval),
			zap.Duration("snapshot_interval", cfg.Scheduler.SnapshotInterval),
		)
	}

	// Graceful shutdown
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping gracefully")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	return serveErr
}

func openRepositories(ctx context.Context, cfg config.Config, log *zap.Logger) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &repositories{
			books:         store.Books(),
			ceilings:      store.Ceilings(),
			quotes:        store.Quotes(),
			batches:       store.Batches(),
			snapshots:     store.Snapshots(),
			alerts:        store.Alerts(),
			notifications: store.Notifications(),
			close:         func() error { return nil },
		}, nil
	}

	db, err := connectWithRetry(ctx, cfg.DBConnStr, log)
	if err != nil {
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database schema applied")
	}

	return &repositories{
		books:         postgres.NewBookRepository(db),
		ceilings:      postgres.NewCeilingRepository(db),
		quotes:        postgres.NewQuoteRepository(db),
		batches:       postgres.NewBatchRepository(db),
		snapshots:     postgres.NewSnapshotRepository(db),
		alerts:        postgres.NewAlertRepository(db),
		notifications: postgres.NewNotificationRepository(db),
		close:         db.Close,
	}, nil
}

// connectWithRetry waits for Postgres to come up, as it often starts after us in compose
func connectWithRetry(ctx context.Context, connStr string, log *zap.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 10; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to database: %w", lastErr)
}
