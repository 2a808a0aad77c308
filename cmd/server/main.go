package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"kycgate/internal/application"
	appmetrics "kycgate/internal/application/metrics"
	"kycgate/internal/audit"
	"kycgate/internal/document"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/metrics"
	platformredis "kycgate/internal/platform/redis"
	"kycgate/internal/risk"
	"kycgate/internal/screening"
	screeningmetrics "kycgate/internal/screening/metrics"
	"kycgate/internal/verification"
	verificationmetrics "kycgate/internal/verification/metrics"
)

// main wires stores, engines and background workers. Business logic lives in
// the internal packages; this stays assembly only.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	// Audit sink: Kafka when brokers are configured, memory otherwise.
	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	} else {
		log.Warn("no kafka brokers configured, audit events stay in memory")
		auditStore = audit.NewInMemoryStore()
	}
	auditQueue := audit.NewQueue(auditStore, 1024)
	publisher := audit.NewPublisher(auditQueue)

	// Application store: postgres when configured, memory otherwise.
	var appStore application.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		pg := application.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema failed", "error", err)
			os.Exit(1)
		}
		appStore = pg
	} else {
		log.Warn("no database configured, applications stay in memory")
		appStore = application.NewInMemoryStore()
	}

	// Watchlists load from disk, fronted by Redis when available.
	var listStore screening.ListStore = screening.NewFileListStore(cfg.SanctionsListDir)
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		listStore = screening.NewCachedListStore(listStore, redisClient.Client, cfg.ListCacheTTL, log)
	}

	resultStore := screening.NewInMemoryResultStore()
	screener := screening.NewEngine(listStore, resultStore,
		screening.WithLogger(log),
		screening.WithMetrics(screeningmetrics.New(reg)),
		screening.WithAuditPublisher(publisher),
		screening.WithReporter(screening.NewMockFMUReporter()),
	)

	attemptStore := verification.NewInMemoryAttemptStore()
	verifyCfg := verification.DefaultConfig()
	verifyCfg.Timeout = cfg.ProviderTimeout
	verifier := verification.New(
		verification.MockIdentityProvider{Result: verification.IdentityResult{
			NameMatch: true, FatherNameMatch: true, DOBMatch: true, IDValid: true,
		}},
		verification.MockBiometricProvider{Score: 90},
		verification.MockLivenessProvider{Liveness: 85, FaceMatch: 88},
		attemptStore,
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New(reg)),
		verification.WithAuditPublisher(publisher),
		verification.WithConfig(verifyCfg),
	)

	svc := application.New(
		appStore,
		document.NewInMemoryStore(),
		application.NewInMemoryBlobStore(),
		screener,
		verifier,
		risk.NewEngine(),
		application.WithLogger(log),
		application.WithMetrics(appmetrics.New(reg)),
		application.WithAuditPublisher(publisher),
		application.WithOCRProvider(application.MockOCRProvider{}),
		application.WithCascades(resultStore, attemptStore),
	)

	processor := application.NewProcessor(svc, 256, log)

	metricsSrv := &http.Server{
		Addr:    ":9090",
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("pipeline worker started")
		err := processor.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("audit worker started")
		err := auditQueue.Worker().Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("metrics listener started", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	log.Info("kycgate started")
	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("kycgate stopped")
}
