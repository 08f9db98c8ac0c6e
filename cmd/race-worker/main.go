package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/ev"
	"github.com/radieske/race-trading-pipeline/internal/notify"
	"github.com/radieske/race-trading-pipeline/internal/predictor"
	"github.com/radieske/race-trading-pipeline/internal/race"
	"github.com/radieske/race-trading-pipeline/internal/scraper"
	"github.com/radieske/race-trading-pipeline/internal/shared/cache"
	"github.com/radieske/race-trading-pipeline/internal/shared/config"
	"github.com/radieske/race-trading-pipeline/internal/shared/db"
	"github.com/radieske/race-trading-pipeline/internal/shared/kafka"
	"github.com/radieske/race-trading-pipeline/internal/shared/logger"
	"github.com/radieske/race-trading-pipeline/internal/shared/metrics"
	"github.com/radieske/race-trading-pipeline/internal/store"
	"github.com/radieske/race-trading-pipeline/internal/worker"
	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "race-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var checks []metrics.HealthCheck

	// Redis é opcional: sem ele não há cache de features nem feed do painel
	var redisClient *redis.Client
	if rc, err := cache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
		log.Warn("redis unavailable, running without feature cache and bet broadcast", zap.Error(err))
	} else {
		redisClient = rc
		defer redisClient.Close()
		checks = append(checks, metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	// store escolhido uma vez no startup
	var st worker.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemory()
		log.Info("using in-memory store")
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		checks = append(checks, metrics.HealthCheck{Name: "postgres", Check: pg.PingContext})

		var backend store.Backend = store.NewPostgres(pg)
		if redisClient != nil {
			backend = store.NewCached(backend, store.NewFeatureCache(redisClient, cfg.FeatureCacheTTL), log)
		}
		st = backend
	}

	var notifier worker.Notifier = notify.Nop{}
	if redisClient != nil {
		notifier = notify.NewRedisBroadcaster(redisClient, cfg.RedisBetsChannel)
	}

	var model predictor.Predictor = predictor.Uniform{}
	if cfg.PredictorURL != "" {
		model = predictor.NewHTTP(cfg.PredictorURL, cfg.FetchTimeout)
	} else {
		log.Warn("PREDICTOR_URL not set, using uniform distribution")
	}

	m := metrics.NewWorker(prometheus.DefaultRegisterer)
	router := worker.NewRouter(worker.Deps{
		Upstream:  scraper.New(cfg.UpstreamBaseURL, cfg.FetchTimeout, cfg.Location(), log),
		Store:     st,
		Predictor: model,
		Notifier:  notifier,
		Policy:    ev.Policy{Threshold: cfg.EVThreshold, Stake: cfg.StakeAmount},
		Log:       log,
		Hooks: worker.Hooks{
			OnEvent:       func(t events.Type) { m.Events.WithLabelValues(t.String()).Inc() },
			OnError:       func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
			OnBetsPlaced:  func(n int) { m.BetsPlaced.Add(float64(n)) },
			OnBetsSettled: func(s race.BetStatus, n int) { m.BetsSettled.WithLabelValues(string(s)).Add(float64(n)) },
		},
	})

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	// ingress por push HTTP
	ingress := worker.NewIngress(router, log, cfg.EventTimeout)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           ingress.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("event ingress listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// consumer Kafka (consumer group race-worker)
	done := make(chan struct{})
	if cfg.EventSink == "kafka" {
		reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRaceEvents, "race-worker")
		defer reader.Close()
		dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRaceEventsDLQ)
		defer dlq.Close()

		consumer := &worker.Consumer{
			Log:     log,
			Reader:  reader,
			DLQ:     dlq,
			Router:  router,
			Timeout: cfg.EventTimeout,
			OnError: func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
		}
		go func() {
			defer close(done)
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("consumer stopped with error", zap.Error(err))
			}
		}()
	} else {
		close(done)
	}

	log.Info("race-worker started", zap.String("store", cfg.StoreBackend), zap.String("sink", cfg.EventSink))
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	<-done
	ingress.Wait()
	log.Info("race-worker stopped")
}
