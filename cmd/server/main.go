// Command server runs the LOS bridge: the HTTP API, the webhook delivery
// endpoint, and the wiring between the platform stores and the external
// system. Everything degrades to in-process implementations when its backing
// service is not configured, so a bare `go run ./cmd/server` boots a fully
// working bridge against the LOS stub.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"losbridge/internal/audit"
	"losbridge/internal/condition"
	"losbridge/internal/events"
	"losbridge/internal/link"
	"losbridge/internal/los"
	"losbridge/internal/mapping"
	"losbridge/internal/milestone"
	"losbridge/internal/platform/config"
	"losbridge/internal/platform/httpserver"
	"losbridge/internal/platform/logger"
	"losbridge/internal/platform/redis"
	syncsvc "losbridge/internal/sync"
	syncmetrics "losbridge/internal/sync/metrics"
	httptransport "losbridge/internal/transport/http"
	"losbridge/internal/webhook"
	webhookmetrics "losbridge/internal/webhook/metrics"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		linkStore  link.Store
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := applySchemas(ctx, db); err != nil {
			return err
		}
		linkStore = link.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		linkStore = link.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}
	auditor := audit.NewPublisher(auditStore)

	// Event bus: Kafka when brokers are configured.
	var bus events.Bus
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaBus, err := events.NewKafkaBus(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaBus.Close()
		bus = kafkaBus
		log.Info("using kafka event bus", "topic", cfg.Kafka.Topic)
	} else {
		bus = events.NewMemoryBus()
		log.Info("using in-memory event bus")
	}

	// External client: real HTTP client only with full credentials.
	var client los.Client
	if cfg.StubLOS() {
		client = los.NewStubClient()
		log.Warn("LOS credentials not configured, using stub client")
	} else {
		client = los.NewBreakerClient(
			los.NewHTTPClient(cfg.LOS.BaseURL, cfg.LOS.ClientID, cfg.LOS.ClientSecret, log), log)
		log.Info("using LOS HTTP client", "base_url", cfg.LOS.BaseURL)
	}

	var registryOpts []mapping.Option
	if len(cfg.Webhook.EncryptKey) > 0 {
		cipher, err := mapping.NewSecretboxCipher(cfg.Webhook.EncryptKey)
		if err != nil {
			return err
		}
		registryOpts = append(registryOpts, mapping.WithCipher(cipher))
	}
	engine, err := mapping.NewEngine(mapping.NewRegistry(registryOpts...), mapping.DefaultMappings())
	if err != nil {
		return err
	}

	linkSvc := link.NewService(linkStore, client, engine, cfg.LOS.Folder,
		link.WithLogger(log),
		link.WithEventBus(bus),
		link.WithAuditor(auditor))
	syncSvc := syncsvc.NewService(linkStore, client, engine,
		syncsvc.WithLogger(log),
		syncsvc.WithEventBus(bus),
		syncsvc.WithAuditor(auditor),
		syncsvc.WithMetrics(syncmetrics.New()))
	milestoneEng := milestone.NewEngine(milestone.DefaultRules(), linkStore, client,
		milestone.WithLogger(log),
		milestone.WithEventBus(bus),
		milestone.WithAuditor(auditor))
	conditionMgr := condition.NewManager(client,
		condition.WithLogger(log),
		condition.WithAuditor(auditor))

	// Webhook delivery dedupe: shared in Redis when configured.
	var deliveries webhook.DeliveryStore
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		deliveries = webhook.NewRedisDeliveryStore(redisClient, cfg.Webhook.DedupeTTL)
		log.Info("using redis delivery store")
	} else {
		deliveries = webhook.NewMemoryDeliveryStore()
		log.Info("using in-memory delivery store")
	}
	if cfg.Webhook.Secret == "" {
		log.Warn("WEBHOOK_SECRET not set, all deliveries will be rejected")
	}
	webhookMetrics := webhookmetrics.New()
	webhookHandler := webhook.NewHandler(
		webhook.NewVerifier(cfg.Webhook.Secret),
		deliveries,
		webhook.NewReconciler(linkStore, bus,
			webhook.WithLogger(log),
			webhook.WithMetrics(webhookMetrics)),
		webhook.WithHandlerLogger(log),
		webhook.WithHandlerMetrics(webhookMetrics),
	)

	api := httptransport.NewHandler(linkSvc, linkStore, syncSvc, milestoneEng, conditionMgr, log)
	router := httptransport.NewRouter(api, webhookHandler, log)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting losbridge", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func applySchemas(ctx context.Context, db *sql.DB) error {
	for _, schema := range []string{link.Schema, audit.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}
