package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/dashboard"
	"github.com/radieske/race-trading-pipeline/internal/shared/cache"
	"github.com/radieske/race-trading-pipeline/internal/shared/config"
	"github.com/radieske/race-trading-pipeline/internal/shared/db"
	"github.com/radieske/race-trading-pipeline/internal/shared/logger"
	"github.com/radieske/race-trading-pipeline/internal/shared/metrics"
	"github.com/radieske/race-trading-pipeline/internal/store"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dashboard-api"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var checks []metrics.HealthCheck

	var bets dashboard.BetReader
	switch cfg.StoreBackend {
	case "memory":
		// processo separado do worker: só útil para subir o painel vazio
		bets = store.NewMemory()
		log.Warn("dashboard on in-memory store, reports will be empty")
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		checks = append(checks, metrics.HealthCheck{Name: "postgres", Check: pg.PingContext})
		bets = store.NewPostgres(pg)
	}

	allowAll := len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*"
	hub := dashboard.NewHub(func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range cfg.CORSOrigins {
			if o == origin {
				return true
			}
		}
		return false
	})

	api := &dashboard.API{
		Bets:     bets,
		CacheTTL: cfg.DashboardCacheTTL,
		Hub:      hub,
		Origins:  cfg.CORSOrigins,
		Log:      log,
	}

	// Redis: cache de respostas + feed de apostas do worker
	if redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
		log.Warn("redis unavailable, serving without cache and live feed", zap.Error(err))
	} else {
		defer redisClient.Close()
		checks = append(checks, metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		api.Cache = dashboard.NewCache(redisClient)
		dashboard.StartRedisSubscriber(ctx, redisClient, cfg.RedisBetsChannel, hub, log, func(ctx context.Context) {
			if err := api.Cache.Invalidate(ctx); err != nil {
				log.Debug("dashboard cache invalidate failed", zap.Error(err))
			}
		})
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("dashboard api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("dashboard-api stopped")
}
