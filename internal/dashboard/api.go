package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// API expõe os relatórios do painel e o feed WebSocket de apostas.
// Cache é opcional; sem ele toda requisição vai ao store.
type API struct {
	Bets     BetReader
	Cache    *Cache
	CacheTTL time.Duration
	Hub      *Hub
	Origins  []string
	Log      *zap.Logger

	now func() time.Time
}

func (a *API) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Router retorna o roteador HTTP do painel
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.Origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/balance", a.balance) // saldo acumulado por dia
		r.Get("/bets", a.recentBets) // últimas apostas
	})
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type balanceResponse struct {
	History []Point `json:"history"`
}

type betsResponse struct {
	Bets []BetView `json:"bets"`
}

func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	var cached balanceResponse
	if a.fromCache(r, "balance", &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	history, err := BalanceHistory(r.Context(), a.Bets, a.clock())
	if err != nil {
		a.Log.Error("balance history failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp := balanceResponse{History: history}
	a.toCache(r, "balance", resp)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) recentBets(w http.ResponseWriter, r *http.Request) {
	var cached betsResponse
	if a.fromCache(r, "bets", &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	bets, err := RecentBets(r.Context(), a.Bets)
	if err != nil {
		a.Log.Error("recent bets failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp := betsResponse{Bets: bets}
	a.toCache(r, "bets", resp)
	writeJSON(w, http.StatusOK, resp)
}

// fromCache trata erro do Redis como miss
func (a *API) fromCache(r *http.Request, name string, dst any) bool {
	if a.Cache == nil {
		return false
	}
	ok, err := a.Cache.Get(r.Context(), name, dst)
	if err != nil {
		a.Log.Debug("dashboard cache read failed", zap.String("name", name), zap.Error(err))
		return false
	}
	return ok
}

func (a *API) toCache(r *http.Request, name string, v any) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.Set(r.Context(), name, v, a.CacheTTL); err != nil {
		a.Log.Debug("dashboard cache write failed", zap.String("name", name), zap.Error(err))
	}
}
