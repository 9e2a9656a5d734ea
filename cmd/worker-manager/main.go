// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mindfork-recommender/internal/cache"
	"mindfork-recommender/internal/catalog"
	"mindfork-recommender/internal/common/camunda"
	"mindfork-recommender/internal/common/config"
	"mindfork-recommender/internal/common/database"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/common/observability"
	"mindfork-recommender/internal/engine/macro"
	"mindfork-recommender/internal/engine/nutrient"
	"mindfork-recommender/internal/engine/preference"
	"mindfork-recommender/internal/engine/recommendation"
	"mindfork-recommender/internal/engine/scoring"
	"mindfork-recommender/internal/store"

	fl "mindfork-recommender/internal/workers/recommendation/food-logged"
	gr "mindfork-recommender/internal/workers/recommendation/get-recommendations"
	ri "mindfork-recommender/internal/workers/recommendation/record-interaction"
	sf "mindfork-recommender/internal/workers/recommendation/scanned-food"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting recommendation worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	} else {
		obs.AttachTracing(tracing)
		defer tracing.Shutdown(context.Background())
	}

	ctx := context.Background()
	checks := map[string]checker{}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping

	db := store.New(pg.DB, log)
	if err := db.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	// --- Food source: Elasticsearch when enabled, else the foods table ---
	var foods store.FoodSource = db
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = es.Ping
		foods = store.NewFoodIndex(es.Client, cfg.Database.Elasticsearch.FoodIndex, log)
	}

	// --- Durable cache tier ---
	var durable cache.Tier
	switch cfg.Recommendation.DurableCache {
	case config.DurableCachePostgres:
		durable = cache.NewPostgresTier(pg.DB, nil)
	case config.DurableCacheRedis:
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb.Ping
		durable = cache.NewRedisTier(rdb.Client, nil)
	}
	zapLog.Info("Storage initialized",
		zap.String("durableCache", cfg.Recommendation.DurableCache),
		zap.Bool("elasticsearch", cfg.Database.Elasticsearch.Enabled),
	)

	service := buildService(cfg, db, foods, cache.NewTwoTier(cache.NewMemoryTierWithLimit(nil, cfg.Recommendation.LocalCacheSize), durable, nil), obs, log)

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks["zeebe"] = zeebe.HealthCheck

	workers := camunda.NewWorkerSet(zeebe.GetClient(), log)
	if err := registerWorkers(cfg, workers, service, log); err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.Running()))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.App.HealthAddr,
		Handler:           newHealthMux(checks, workers.Running, time.Now),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HealthAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully",
		zap.Int("postgresOpenConnections", pg.Stats().OpenConnections),
	)
}

// buildService assembles the engine around the given storage.
func buildService(cfg *config.Config, db recommendation.Store, foods store.FoodSource, tiers recommendation.Cache, obs *observability.Observability, log logger.Logger) *recommendation.Service {
	rc := cfg.Recommendation
	loc := rc.Location()
	c := catalog.Default()
	classifier := catalog.NewKeywordClassifier(c)

	return recommendation.New(recommendation.Dependencies{
		Store:         db,
		Foods:         foods,
		Cache:         tiers,
		Catalog:       c,
		Classifier:    classifier,
		Macro:         macro.New(db, log, macro.Options{BedtimeHour: rc.BedtimeHour, Location: loc}),
		Filter:        preference.New(c, classifier, log),
		Nutrients:     nutrient.New(db, c, log, nutrient.Options{CacheSize: rc.GapCacheSize, Location: loc}),
		Scorer:        scoring.New(c, classifier, log, nil),
		Observability: obs,
		Logger:        log,
	}, recommendation.Options{
		MaxResults:     rc.MaxResults,
		CandidateLimit: rc.CandidateLimit,
		CacheTTL:       rc.CacheTTL(),
	})
}

// registerWorkers starts every enabled recommendation worker.
func registerWorkers(cfg *config.Config, workers *camunda.WorkerSet, service *recommendation.Service, log logger.Logger) error {
	if wcfg := config.GetWorkerConfig(cfg, gr.TaskType); wcfg.Enabled {
		handler, err := gr.NewHandler(gr.ConfigFrom(wcfg), service, log)
		if err != nil {
			return err
		}
		workers.Start(gr.TaskType, wcfg, handler)
	}

	if wcfg := config.GetWorkerConfig(cfg, sf.TaskType); wcfg.Enabled {
		handler, err := sf.NewHandler(sf.ConfigFrom(wcfg), service, log)
		if err != nil {
			return err
		}
		workers.Start(sf.TaskType, wcfg, handler)
	}

	if wcfg := config.GetWorkerConfig(cfg, fl.TaskType); wcfg.Enabled {
		handler, err := fl.NewHandler(fl.ConfigFrom(wcfg), service, log)
		if err != nil {
			return err
		}
		workers.Start(fl.TaskType, wcfg, handler)
	}

	if wcfg := config.GetWorkerConfig(cfg, ri.TaskType); wcfg.Enabled {
		handler, err := ri.NewHandler(ri.ConfigFrom(wcfg), service, log)
		if err != nil {
			return err
		}
		workers.Start(ri.TaskType, wcfg, handler)
	}
	return nil
}
