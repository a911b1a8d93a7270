package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"campaign/internal/cache"
	"campaign/internal/cache/epoch"
	"campaign/internal/cache/provider"
	pgprovider "campaign/internal/cache/provider/postgres"
	redisprovider "campaign/internal/cache/provider/redis"
	"campaign/internal/cache/provider/ristretto"
	catalogservice "campaign/internal/catalog/service"
	catalogstore "campaign/internal/catalog/store"
	dispatchmetrics "campaign/internal/dispatch/metrics"
	dispatchservice "campaign/internal/dispatch/service"
	dispatchstore "campaign/internal/dispatch/store"
	"campaign/internal/dispatch/transport"
	"campaign/internal/downloads"
	engagementservice "campaign/internal/engagement/service"
	engagementstore "campaign/internal/engagement/store"
	"campaign/internal/platform/config"
	"campaign/internal/platform/metrics"
	"campaign/internal/platform/postgres"
	"campaign/internal/platform/redis"
	recipientservice "campaign/internal/recipient/service"
	recipientstore "campaign/internal/recipient/store"
	"campaign/internal/scheduler"
	splittestmetrics "campaign/internal/splittest/metrics"
	splittestservice "campaign/internal/splittest/service"
	splitteststore "campaign/internal/splittest/store"
	"campaign/pkg/platform/audit"
	"campaign/pkg/platform/audit/publisher"
	auditmemory "campaign/pkg/platform/audit/store/memory"
	auditpostgres "campaign/pkg/platform/audit/store/postgres"
	"campaign/pkg/platform/circuit"
	txcontext "campaign/pkg/platform/tx"
)

const auditBufferSize = 256

// infra holds the external connections. Any of them may be nil when not
// configured; the server then falls back to in-process implementations.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *transport.Kafka
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	in.db = db
	if db != nil && cfg.Postgres.MigrateOnStart {
		if err := postgres.MigrateUp(db); err != nil {
			in.close(ctx)
			return nil, err
		}
		log.Info("database migrated")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close(ctx)
		return nil, err
	}
	in.redis = rc

	if len(cfg.Kafka.Brokers) > 0 {
		k, err := transport.NewKafka(ctx, transport.KafkaConfig{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			ClientID:          cfg.Kafka.ClientID,
			SendTimeout:       cfg.Kafka.SendTimeout,
			EnsureTopic:       cfg.Kafka.EnsureTopic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.Replications,
		}, log)
		if err != nil {
			in.close(ctx)
			return nil, err
		}
		in.kafka = k
	}
	return in, nil
}

func (in *infra) close(ctx context.Context) {
	if in.kafka != nil {
		_ = in.kafka.Close(ctx)
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

type app struct {
	catalog    *catalogservice.Service
	downloads  *downloads.Tracker
	recipients *recipientservice.Service
	dispatch   *dispatchservice.Service
	splitTests *splittestservice.Service
	engagement *engagementservice.Reporter
	scheduler  *scheduler.Scheduler
	janitor    *cache.Janitor
	audit      *publisher.Publisher
	cache      provider.Provider
}

func (a *app) close() {
	a.audit.Close()
	_ = a.cache.Close(context.Background())
}

func buildApp(cfg config.Config, in *infra, reg *metrics.Registry, log *slog.Logger) (*app, error) {
	a := &app{}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if in.db != nil {
		auditStore = auditpostgres.New(in.db)
	}
	a.audit = publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)

	backend, janitor, err := buildCache(cfg, in, reg, log)
	if err != nil {
		return nil, err
	}
	a.cache = backend.Provider
	a.janitor = janitor

	memDocs := catalogstore.NewInMemoryStore()
	var (
		docs       catalogservice.Store    = memDocs
		counter    downloads.Counter       = memDocs
		recipients recipientservice.Store  = recipientstore.NewInMemoryStore()
		jobs       dispatchservice.Store   = dispatchstore.NewInMemoryStore()
		tests      splittestservice.Store  = splitteststore.NewInMemoryStore()
		events     engagementservice.Store = engagementstore.NewInMemoryStore()
		tx         txcontext.Runner        = txcontext.NopRunner{}
	)
	if in.db != nil {
		pgDocs := catalogstore.NewPostgres(in.db)
		docs, counter = pgDocs, pgDocs
		recipients = recipientstore.NewPostgres(in.db)
		jobs = dispatchstore.NewPostgres(in.db)
		tests = splitteststore.NewPostgres(in.db)
		events = engagementstore.NewPostgres(in.db)
		tx = txcontext.SQLRunner{DB: in.db}
	}

	a.catalog, err = catalogservice.New(docs, backend,
		catalogservice.WithLogger(log),
		catalogservice.WithAuditPublisher(a.audit),
		catalogservice.WithTTLs(cfg.Cache.DocumentTTL, cfg.Cache.AggregateTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	a.downloads = downloads.NewTracker(counter, backend.Groups(),
		downloads.WithLogger(log),
		downloads.WithMetrics(downloads.NewMetrics(reg)),
	)

	a.recipients = recipientservice.New(recipients,
		recipientservice.WithLogger(log),
		recipientservice.WithAuditPublisher(a.audit),
	)

	a.dispatch, err = dispatchservice.New(jobs, a.recipients, buildTransport(cfg, in, log),
		dispatchservice.WithLogger(log),
		dispatchservice.WithMetrics(dispatchmetrics.New(reg)),
		dispatchservice.WithAuditPublisher(a.audit),
	)
	if err != nil {
		return nil, fmt.Errorf("dispatch service: %w", err)
	}

	a.engagement, err = engagementservice.New(events,
		engagementservice.WithLogger(log),
		engagementservice.WithMetrics(engagementservice.NewMetrics(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("engagement reporter: %w", err)
	}

	a.splitTests, err = splittestservice.New(tests, a.recipients, a.dispatch, a.engagement,
		splittestservice.WithLogger(log),
		splittestservice.WithMetrics(splittestmetrics.New(reg)),
		splittestservice.WithAuditPublisher(a.audit),
		splittestservice.WithTxRunner(newBoundedTx(tx)),
	)
	if err != nil {
		return nil, fmt.Errorf("split test service: %w", err)
	}

	a.scheduler, err = scheduler.New(a.dispatch, scheduler.Config{
		Interval:         cfg.Scheduler.Interval,
		MinChunkInterval: cfg.Scheduler.MinChunkInterval,
		JobsPerTick:      cfg.Scheduler.JobsPerTick,
	},
		scheduler.WithLogger(log),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
		scheduler.WithReconciler(a.splitTests),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return a, nil
}

// buildCache picks the cache provider from config and the epoch store from
// the most widely shared backend available: Redis, then Postgres, then local.
func buildCache(cfg config.Config, in *infra, reg *metrics.Registry, log *slog.Logger) (cache.Backend, *cache.Janitor, error) {
	cacheMetrics := cache.NewMetrics(reg)
	backend := cache.Backend{Logger: log, Metrics: cacheMetrics}

	switch {
	case in.redis != nil:
		backend.Epochs = epoch.NewRedis(in.redis.Client, "campaign")
	case in.db != nil:
		backend.Epochs = epoch.NewPostgres(in.db)
	default:
		backend.Epochs = epoch.NewLocal()
	}

	var janitor *cache.Janitor
	switch cfg.Cache.Provider {
	case "redis":
		p, err := redisprovider.New(in.redis.Client, "campaign:cache:")
		if err != nil {
			return cache.Backend{}, nil, fmt.Errorf("redis cache provider: %w", err)
		}
		backend.Provider = p
	case "postgres":
		p := pgprovider.New(in.db)
		backend.Provider = p
		janitor = cache.NewJanitor(p, cfg.Cache.JanitorInterval, log, cacheMetrics)
	default:
		p, err := ristretto.New(ristretto.Config{
			NumCounters: cfg.Cache.NumCounters,
			MaxCost:     cfg.Cache.MaxCost,
		})
		if err != nil {
			return cache.Backend{}, nil, fmt.Errorf("ristretto cache provider: %w", err)
		}
		backend.Provider = p
	}
	return backend, janitor, nil
}

// buildTransport produces to Kafka when brokers are configured and logs
// otherwise. Either way a circuit breaker fails sends fast while the
// downstream is unhealthy.
func buildTransport(cfg config.Config, in *infra, log *slog.Logger) dispatchservice.Transport {
	var next transport.Transport = transport.NewLog(log)
	if in.kafka != nil {
		next = in.kafka
	}
	breaker := circuit.New("mail-transport",
		circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Breaker.SuccessThreshold),
		circuit.WithCooldown(cfg.Breaker.Cooldown),
	)
	return transport.NewBreaker(next, breaker, log)
}
