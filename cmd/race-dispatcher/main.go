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
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/dispatcher"
	"github.com/radieske/race-trading-pipeline/internal/scraper"
	"github.com/radieske/race-trading-pipeline/internal/shared/config"
	"github.com/radieske/race-trading-pipeline/internal/shared/logger"
	"github.com/radieske/race-trading-pipeline/internal/shared/metrics"
	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "race-dispatcher"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	// fonte do cartão do dia
	card := scraper.New(cfg.UpstreamBaseURL, cfg.FetchTimeout, cfg.Location(), log)

	// destino dos eventos: Kafka ou só log
	var pub dispatcher.Publisher = dispatcher.LogPublisher{Log: log}
	if cfg.EventSink == "kafka" {
		kp := dispatcher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicRaceEvents, cfg.Env, log)
		defer kp.Close()
		pub = kp
	}

	m := metrics.NewDispatcher(prometheus.DefaultRegisterer)
	d := dispatcher.New(card, pub, log, dispatcher.Hooks{
		OnPass:         func() { m.Passes.Inc() },
		OnEvent:        func(t events.Type) { m.Events.WithLabelValues(t.String()).Inc() },
		OnPublishError: func(error) { m.PublishErrors.Inc() },
	})
	trigger := dispatcher.NewTrigger(d, log, cfg.EventTimeout)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           trigger.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("dispatch trigger listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.DispatchInterval > 0 {
		log.Info("self-trigger enabled", zap.Duration("interval", cfg.DispatchInterval))
		go trigger.Run(ctx, cfg.DispatchInterval)
	}

	log.Info("race-dispatcher started", zap.String("sink", cfg.EventSink))
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	trigger.Wait()
	log.Info("race-dispatcher stopped")
}
