package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

const maxEnvelopeBytes = 64 << 10

// Ingress recebe eventos por push HTTP. Valida o envelope, responde na hora
// e processa em background; falha no processamento não muda a resposta enviada.
type Ingress struct {
	router  *Router
	log     *zap.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewIngress(router *Router, log *zap.Logger, timeout time.Duration) *Ingress {
	return &Ingress{router: router, log: log, timeout: timeout}
}

func (in *Ingress) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/events", in.receive)
	return r
}

// pushEnvelope é o formato de push subscription: {"message":{"data":"<base64>"}}
type pushEnvelope struct {
	Message *struct {
		Data string `json:"data"`
	} `json:"message"`
}

// unwrap devolve o envelope do evento, aceitando o JSON cru ou o formato push
func unwrap(body []byte) ([]byte, error) {
	var push pushEnvelope
	if err := json.Unmarshal(body, &push); err != nil || push.Message == nil {
		return body, nil
	}
	data, err := base64.StdEncoding.DecodeString(push.Message.Data)
	if err != nil {
		return nil, errors.Join(events.ErrInvalidEnvelope, err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (in *Ingress) receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	raw, err := unwrap(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	e, err := events.Decode(raw)
	switch {
	case errors.Is(err, events.ErrUnknownType):
		// tag desconhecida: aceita e descarta, sem retry
		in.log.Warn("unknown race event type, dropping", zap.Error(err))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "dropped"})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
		defer cancel()
		_ = in.router.Handle(ctx, e) // Handle já registra log e métrica
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Wait bloqueia até os eventos aceitos terminarem (shutdown e testes)
func (in *Ingress) Wait() { in.wg.Wait() }
