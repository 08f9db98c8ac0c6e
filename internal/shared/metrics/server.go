package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthCheck é uma dependência verificada pelo /healthz (postgres, redis, ...)
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler monta o mux com /metrics e /healthz.
func Handler(checks ...HealthCheck) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("%s unhealthy: %v", c.Name, err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// StartMetricsServer sobe um servidor HTTP leve só pra /metrics e /healthz,
// em goroutine própria. O chamador faz Shutdown no encerramento.
func StartMetricsServer(port string, log *zap.Logger, checks ...HealthCheck) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}
