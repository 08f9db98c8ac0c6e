package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatcher agrupa os contadores do race-dispatcher
type Dispatcher struct {
	Passes        prometheus.Counter
	Events        *prometheus.CounterVec // por type
	PublishErrors prometheus.Counter
}

func NewDispatcher(reg prometheus.Registerer) *Dispatcher {
	m := &Dispatcher{
		Passes:        prometheus.NewCounter(prometheus.CounterOpts{Name: "race_dispatch_passes_total", Help: "passadas do dispatcher"}),
		Events:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_dispatch_events_total", Help: "eventos emitidos por tipo"}, []string{"type"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{Name: "race_dispatch_publish_errors_total", Help: "falhas ao publicar evento"}),
	}
	reg.MustRegister(m.Passes, m.Events, m.PublishErrors)
	return m
}

// Worker agrupa os contadores do race-worker
type Worker struct {
	Events      *prometheus.CounterVec // por type
	Errors      *prometheus.CounterVec // por stage
	BetsPlaced  prometheus.Counter
	BetsSettled *prometheus.CounterVec // por status
}

func NewWorker(reg prometheus.Registerer) *Worker {
	m := &Worker{
		Events:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_worker_events_total", Help: "eventos processados por tipo"}, []string{"type"}),
		Errors:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_worker_errors_total", Help: "erros por estágio"}, []string{"stage"}),
		BetsPlaced:  prometheus.NewCounter(prometheus.CounterOpts{Name: "race_worker_bets_placed_total", Help: "apostas gravadas no predict_final"}),
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "race_worker_bets_settled_total", Help: "apostas liquidadas por status"}, []string{"status"}),
	}
	reg.MustRegister(m.Events, m.Errors, m.BetsPlaced, m.BetsSettled)
	return m
}
