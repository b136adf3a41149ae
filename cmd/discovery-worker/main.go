// Command discovery-worker serves the search, autocomplete, recommendation,
// interaction and indexing job types over Zeebe.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"discovery-workers/internal/analytics"
	"discovery-workers/internal/cache"
	"discovery-workers/internal/catalog"
	"discovery-workers/internal/common/aws"
	"discovery-workers/internal/common/camunda"
	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/database"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/observability"
	"discovery-workers/internal/common/ops"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/discovery"
	"discovery-workers/internal/index"
	"discovery-workers/internal/interactions"
	"discovery-workers/internal/recommend"
	"discovery-workers/internal/search"
	"discovery-workers/pkg/registry"

	ac "discovery-workers/internal/workers/discovery/autocomplete-query"
	ri "discovery-workers/internal/workers/discovery/recommend-items"
	rin "discovery-workers/internal/workers/discovery/record-interaction"
	sd "discovery-workers/internal/workers/discovery/search-documents"
	idx "discovery-workers/internal/workers/catalog/index-documents"
)

const shutdownTimeout = 30 * time.Second

// retryWithBackoff attempts operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	boot := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("discovery worker stopped with error", zap.Error(err))
	}
}

// app holds everything that needs an ordered shutdown.
type app struct {
	workers  []*camunda.CamundaWorker
	queue    *cache.Queue
	recorder *analytics.Recorder
	zeebe    *camunda.Client
	redis    *database.RedisClient
	pg       *database.PostgresClient
	ops      *ops.Server
	obs      *observability.Observability
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx := context.Background()
	a := &app{}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	a.obs = obs

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return err
	}
	log.Info("Elasticsearch connected successfully", nil)

	gateway := index.NewElasticsearchGateway(esClient.Client, config.GetDuration(cfg.Database.Elasticsearch.RequestTimeout), index.BreakerSettings{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         config.GetDuration(cfg.Breaker.Interval),
		Timeout:          config.GetDuration(cfg.Breaker.Timeout),
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, log)

	// --- Redis ---
	a.redis = database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return a.redis.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return err
	}
	log.Info("Redis connected successfully", nil)

	var layer *cache.Layer
	if cfg.Cache.Enabled {
		store := cache.NewRedisStore(a.redis.Client, cfg.Database.Redis.KeyPrefix+"cache:", config.GetDuration(cfg.Cache.OperationTimeout))
		a.queue = cache.NewQueue(store, cfg.Cache.InvalidationQueueSize, config.GetDuration(cfg.Cache.OperationTimeout), log)
		layer = cache.NewLayer(store, a.queue, log)
	}

	// --- Interaction log ---
	var (
		interactionLog interactions.Log
		schemas        []discovery.SchemaEnsurer
	)
	switch cfg.Interactions.Backend {
	case "postgres":
		err = retryWithBackoff(func() error {
			var err error
			a.pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return a.pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return err
		}
		log.Info("PostgreSQL connected successfully", nil)
		pgLog := interactions.NewPostgresLog(a.pg.DB)
		interactionLog, schemas = pgLog, append(schemas, pgLog)
	default:
		esLog := interactions.NewIndexLog(gateway, cfg.Database.Elasticsearch.InteractionsIndex)
		interactionLog, schemas = esLog, append(schemas, esLog)
	}
	store := interactions.NewStore(interactionLog, layer, interactions.StoreConfig{
		Window:   cfg.Interactions.Window,
		CacheTTL: config.GetTTL(cfg.Interactions.CacheTTL),
	}, log)

	// --- Core services ---
	searchCfg := search.ConfigFrom(cfg)
	searcher := search.NewCachedService(search.NewService(gateway, searchCfg, log), layer, searchCfg)

	recCfg := recommend.ConfigFrom(cfg)
	recommender := recommend.NewCachedService(recommend.NewService(gateway, store, recCfg, log), layer, recCfg)

	docSchemas, err := validation.LoadDocumentSchemas()
	if err != nil {
		return fmt.Errorf("document schemas: %w", err)
	}
	indexer := catalog.NewIndexer(gateway, docSchemas, catalog.Config{
		Index:     cfg.Database.Elasticsearch.CatalogIndex,
		BatchSize: cfg.Catalog.BatchSize,
	}, log)

	deps := discovery.Deps{
		Search:       searcher,
		Recommender:  recommender,
		Interactions: store,
		Indexer:      indexer,
		Schemas:      schemas,
	}
	if cfg.Analytics.Enabled {
		redisSink := analytics.NewRedisSink(a.redis.Client, cfg.Database.Redis.KeyPrefix+cfg.Analytics.KeyPrefix)
		sinks := []analytics.Sink{redisSink}
		if cfg.Analytics.SNS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Analytics.SNS.Region, cfg.Analytics.SNS.TopicARN)
			if err != nil {
				return fmt.Errorf("sns client: %w", err)
			}
			sinks = append(sinks, analytics.NewSNSSink(snsClient))
		}
		a.recorder = analytics.NewRecorder(sinks, cfg.Analytics.QueueSize, config.GetDuration(cfg.Analytics.SinkTimeout), log)
		deps.Analytics = a.recorder
		deps.Popular = redisSink
	}
	facade := discovery.New(deps, log)

	if err := facade.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	// --- Zeebe ---
	a.zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		return err
	}
	log.Info("Zeebe client connected successfully", nil)

	// --- Ops ---
	checks := map[string]ops.Check{
		"elasticsearch": gateway.Ping,
		"redis":         a.redis.Ping,
		"zeebe":         a.zeebe.HealthCheck,
	}
	if a.pg != nil {
		checks["postgres"] = a.pg.Ping
	}
	a.ops = ops.NewServer(cfg.Ops.Address, checks, log)
	a.ops.Start()

	// --- Workers ---
	if err := a.startWorkers(cfg, facade, log); err != nil {
		a.shutdown(log)
		return err
	}
	log.Info("all workers registered", map[string]interface{}{"count": len(a.workers)})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})

	a.shutdown(log)
	return nil
}

func (a *app) startWorkers(cfg *config.Config, facade *discovery.Facade, log logger.Logger) error {
	reg, err := registry.Load()
	if err != nil {
		return err
	}

	handlers := map[string]func(*registry.InputValidator) camunda.JobHandler{
		sd.TaskType: func(s *registry.InputValidator) camunda.JobHandler {
			return sd.NewHandler(sd.LoadConfig(cfg), facade, s, a.obs, log)
		},
		ac.TaskType: func(s *registry.InputValidator) camunda.JobHandler {
			return ac.NewHandler(ac.LoadConfig(cfg), facade, s, a.obs, log)
		},
		ri.TaskType: func(s *registry.InputValidator) camunda.JobHandler {
			return ri.NewHandler(ri.LoadConfig(cfg), facade, s, a.obs, log)
		},
		rin.TaskType: func(s *registry.InputValidator) camunda.JobHandler {
			return rin.NewHandler(rin.LoadConfig(cfg), facade, s, a.obs, log)
		},
		idx.TaskType: func(s *registry.InputValidator) camunda.JobHandler {
			return idx.NewHandler(idx.LoadConfig(cfg), facade, s, a.obs, log)
		},
	}

	for _, taskType := range reg.TaskTypes() {
		build, ok := handlers[taskType]
		if !ok {
			return fmt.Errorf("registered task type %q has no handler", taskType)
		}
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		schema, err := reg.Validator(taskType)
		if err != nil {
			return err
		}
		a.workers = append(a.workers, camunda.NewWorker(
			a.zeebe.GetClient(), cfg.App.Name, taskType, config.GetWorkerConfig(cfg, taskType), build(schema), log,
		))
	}
	return nil
}

// shutdown stops intake first, drains queued cache and analytics writes, then
// releases clients.
func (a *app) shutdown(log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	camunda.StopAll(ctx, a.workers)

	if a.queue != nil {
		if err := a.queue.Close(ctx); err != nil {
			log.Warn("cache queue did not drain", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			log.Warn("analytics queue did not drain", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.zeebe != nil {
		if err := a.zeebe.Close(); err != nil {
			log.Error("error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.ops != nil {
		if err := a.ops.Shutdown(ctx); err != nil {
			log.Warn("ops server shutdown", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.obs != nil {
		_ = a.obs.Shutdown(ctx)
	}
	log.Info("discovery worker stopped", nil)
}
