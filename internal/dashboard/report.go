package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

const (
	// BalanceWindow é o período coberto pelo gráfico de saldo
	BalanceWindow = 30 * 24 * time.Hour
	// RecentLimit é o tamanho da lista de apostas recentes
	RecentLimit = 50
)

// BetReader é a visão de leitura do store usada pelos relatórios
type BetReader interface {
	BetsSince(ctx context.Context, since time.Time) ([]race.Bet, error)
	RecentBets(ctx context.Context, limit int) ([]race.Bet, error)
}

// Point é o saldo acumulado ao fim de um dia de corridas
type Point struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// BetView é a aposta no formato exposto ao painel
type BetView struct {
	Key          string     `json:"key"`
	Date         string     `json:"date"`
	VenueID      int        `json:"venue_id"`
	RaceNumber   int        `json:"race_number"`
	Combination  string     `json:"combination"`
	Amount       float64    `json:"amount"`
	Odds         float64    `json:"odds"`
	EVPercent    float64    `json:"ev_percent"`
	Status       string     `json:"status"`
	ReturnAmount float64    `json:"return_amount"`
	CreatedAt    time.Time  `json:"created_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
}

func dateOf(id race.ID) string { return id.Date.Format("2006-01-02") }

func viewOf(b race.Bet) BetView {
	return BetView{
		Key:          b.Key(),
		Date:         dateOf(b.Race),
		VenueID:      b.Race.VenueID,
		RaceNumber:   b.Race.RaceNumber,
		Combination:  string(b.Combination),
		Amount:       b.Stake,
		Odds:         b.Price,
		EVPercent:    b.EVPercent,
		Status:       string(b.Status),
		ReturnAmount: b.Return,
		CreatedAt:    b.CreatedAt,
		SettledAt:    b.SettledAt,
	}
}

// BalanceHistory soma retorno - stake por data da corrida (apostas criadas nos
// últimos 30 dias) e devolve o saldo acumulado em ordem de data.
// Aposta pending entra com retorno 0.
func BalanceHistory(ctx context.Context, r BetReader, now time.Time) ([]Point, error) {
	bets, err := r.BetsSince(ctx, now.Add(-BalanceWindow))
	if err != nil {
		return nil, err
	}

	daily := map[string]float64{}
	for _, b := range bets {
		daily[dateOf(b.Race)] += b.Return - b.Stake
	}
	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]Point, 0, len(dates))
	var cumulative float64
	for _, d := range dates {
		cumulative += daily[d]
		out = append(out, Point{Date: d, Balance: cumulative})
	}
	return out, nil
}

// RecentBets devolve as últimas apostas criadas, mais novas primeiro
func RecentBets(ctx context.Context, r BetReader) ([]BetView, error) {
	bets, err := r.RecentBets(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	out := make([]BetView, 0, len(bets))
	for _, b := range bets {
		out = append(out, viewOf(b))
	}
	return out, nil
}
