package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "namereg/internal/jwt_token"
	"namereg/internal/platform/config"
	"namereg/internal/platform/httpserver"
	"namereg/internal/platform/logger"
	platformmetrics "namereg/internal/platform/metrics"
	"namereg/internal/platform/postgres"
	"namereg/internal/platform/redis"
	"namereg/internal/registry/events"
	"namereg/internal/registry/events/kafka"
	"namereg/internal/registry/events/relay"
	eventmemory "namereg/internal/registry/events/store/memory"
	eventpostgres "namereg/internal/registry/events/store/postgres"
	"namereg/internal/registry/handler"
	"namereg/internal/registry/hooks"
	"namereg/internal/registry/metrics"
	"namereg/internal/registry/seed"
	"namereg/internal/registry/service"
	"namereg/internal/registry/store/cache"
	domainstore "namereg/internal/registry/store/domain"
	"namereg/pkg/platform/circuit"
	"namereg/pkg/platform/httputil"
	"namereg/pkg/platform/tx"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in internal/registry.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("namereg stopped with error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	db       *sql.DB
	redis    *redis.Client
	registry *service.Service
	relay    *relay.Worker
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	a, cleanup, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Registry.SeedFile != "" {
		file, err := seed.Load(cfg.Registry.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.New(a.registry, log).Apply(ctx, file); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	router := chi.NewRouter()
	router.Get("/healthz", a.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	handler.New(
		a.registry,
		log,
		platformmetrics.New(prometheus.DefaultRegisterer),
		jwttoken.NewJWTServiceAdapter(tokens),
	).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting namereg",
			"addr", cfg.Server.Addr,
			"domain_duration", cfg.Registry.DomainDuration.String(),
			"postgres", a.db != nil,
			"redis", a.redis != nil,
			"kafka", a.relay != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox relay: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// build chooses the backing stores: Postgres with an outbox when
// DATABASE_URL is set, memory otherwise.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, func(), error) {
	a := &app{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*app, func(), error) {
		cleanup()
		return nil, nil, err
	}

	var (
		store     service.Store
		publisher *events.Publisher
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(db, log); err != nil {
			return fail(err)
		}
		a.db = db
		store = domainstore.NewPostgres(db)
		outbox := eventpostgres.New(db)
		publisher = events.NewPublisher(outbox)

		if len(cfg.Kafka.Brokers) > 0 {
			client, err := kafka.NewClient(cfg.Kafka.Brokers)
			if err != nil {
				return fail(err)
			}
			closers = append(closers, client.Close)
			if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.Replicas); err != nil {
				return fail(err)
			}
			a.relay = relay.NewWorker(outbox, kafka.NewPublisher(client, cfg.Kafka.Topic), tx.NewRunner(db),
				relay.WithInterval(cfg.Kafka.RelayInterval),
				relay.WithBatchSize(cfg.Kafka.RelayBatch),
				relay.WithLogger(log),
			)
		}
	} else {
		log.Warn("DATABASE_URL not set; registry state is kept in memory")
		store = domainstore.NewInMemory()
		publisher = events.NewPublisher(eventmemory.NewInMemoryStore(eventmemory.WithCapacity(cfg.Registry.EventBuffer)))
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		service.WithReceivers(hooks.NewReceivers()),
	}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
		a.redis = rc
		names := cache.NewRedisNames(rc.Client, cache.WithTTL(cfg.Redis.NameTTL))
		breaker := circuit.New("redis_names")
		opts = append(opts, service.WithNameCache(cache.NewGuarded(names, breaker, log)))
	}

	a.registry = service.New(store, publisher, cfg.Registry.DomainDuration, opts...)
	return a, cleanup, nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			status["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	httputil.WriteJSON(w, code, status)
}
