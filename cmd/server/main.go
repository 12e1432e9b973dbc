package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"drivepass/internal/analysis"
	"drivepass/internal/audit"
	"drivepass/internal/dispatch"
	"drivepass/internal/domain"
	"drivepass/internal/notify"
	"drivepass/internal/platform/config"
	"drivepass/internal/platform/httpserver"
	"drivepass/internal/platform/logger"
	platformredis "drivepass/internal/platform/redis"
	reviewhandler "drivepass/internal/review/handler"
	reviewservice "drivepass/internal/review/service"
	httptransport "drivepass/internal/transport/http"
	"drivepass/internal/verification/handler"
	"drivepass/internal/verification/metrics"
	verificationservice "drivepass/internal/verification/service"
	"drivepass/internal/verification/store"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	caseStore, auditStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	auditPublisher := audit.NewPublisher(auditStore)

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()

		inbox := make(chan domain.AuditEntry, 256)
		auditPublisher = auditPublisher.WithMirror(inbox)
		worker := audit.NewWorker(sink, inbox, log)
		group.Go(func() error { return worker.Run(ctx) })
		log.Info("audit mirror enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	var analyzer analysis.Client
	if cfg.Analysis.Endpoint != "" {
		analyzer = analysis.NewHTTPClient(cfg.Analysis.Endpoint, cfg.Analysis.Timeout)
	} else {
		// Local runs without a classifier approve everything cleanly.
		log.Warn("no analysis endpoint configured, using a permissive stub")
		analyzer = &analysis.MockClient{Assessment: domain.Assessment{
			IsAuthentic:          true,
			PhotoMatch:           true,
			PhotoMatchConfidence: 0.99,
			ImageQualityScore:    0.99,
			RiskTier:             domain.RiskLow,
			OverallConfidence:    0.99,
		}}
	}

	dispatcher := dispatch.New(auditPublisher, &notify.LogNotifier{Logger: log}, cfg.Review.QueueOwners, log)
	m := metrics.New()

	verificationSvc, err := verificationservice.New(caseStore, analyzer, dispatcher, verificationservice.Config{
		AnalysisRetries:     cfg.Analysis.Retries,
		AnalysisBackoffBase: cfg.Analysis.BackoffBase,
	}, log, m)
	if err != nil {
		return err
	}
	reviewSvc, err := reviewservice.New(caseStore, dispatcher, log, m)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(log,
		handler.New(verificationSvc, log),
		reviewhandler.New(reviewSvc, func(kase *domain.VerificationCase) any {
			return handler.FromCase(kase)
		}, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	group.Go(func() error {
		log.Info("starting drivepass verification server", "addr", cfg.Server.Addr, "store", string(cfg.Store.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildStores constructs the case and audit stores for the configured backend
// and returns a cleanup releasing its connections.
func buildStores(ctx context.Context, cfg config.Config) (store.Store, audit.Store, func(), error) {
	switch cfg.Store.Kind {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		for _, schema := range []string{store.Schema, audit.Schema} {
			if _, err := pool.Exec(ctx, schema); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		return store.NewPostgresStore(pool), audit.NewPostgresStore(pool), pool.Close, nil

	case config.StoreRedis:
		client, err := platformredis.New(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		// Audit history needs ordered range scans; keep it in memory until a
		// redis stream backend is worth the trouble.
		return store.NewRedisStore(client.Client), audit.NewInMemoryStore(), func() { _ = client.Close() }, nil

	default:
		return store.NewInMemoryStore(), audit.NewInMemoryStore(), func() {}, nil
	}
}
