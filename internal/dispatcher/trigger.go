package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Trigger expõe o gatilho sem argumentos: agenda uma passada e responde na hora
type Trigger struct {
	d       *Dispatcher
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// NewTrigger cria o gatilho; timeout limita cada passada agendada
func NewTrigger(d *Dispatcher, log *zap.Logger, timeout time.Duration) *Trigger {
	return &Trigger{d: d, log: log, timeout: timeout, now: time.Now}
}

func (t *Trigger) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/dispatch", t.dispatch)
	return r
}

func (t *Trigger) dispatch(w http.ResponseWriter, _ *http.Request) {
	t.Schedule()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "scheduled"})
}

// Schedule dispara uma passada em background, desacoplada do request
func (t *Trigger) Schedule() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if _, err := t.d.RunOnce(ctx, t.now()); err != nil {
			t.log.Error("dispatch pass failed", zap.Error(err))
		}
	}()
}

// Run agenda uma passada a cada interval até ctx encerrar (DISPATCH_INTERVAL)
func (t *Trigger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Schedule()
		}
	}
}

// Wait bloqueia até as passadas em andamento terminarem (shutdown)
func (t *Trigger) Wait() { t.wg.Wait() }
