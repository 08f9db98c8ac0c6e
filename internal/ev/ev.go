package ev

import (
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Policy guarda os parâmetros fixos de seleção, vindos da configuração
type Policy struct {
	Threshold float64 // ev_percent mínimo para apostar (ex.: 110 = retorno esperado de 110 por 100)
	Stake     float64 // valor fixo por aposta
}

// Score avalia cada cotação presente no snapshot de mercado.
// Combinação sem probabilidade no modelo conta como 0; combinação sem cotação não é avaliada.
func Score(quotes []race.OddsQuote, probabilities map[race.Combination]float64) []race.Scored {
	out := make([]race.Scored, 0, len(quotes))
	for _, q := range quotes {
		p := probabilities[q.Combination]
		out = append(out, race.Scored{
			Combination: q.Combination,
			Probability: p,
			Price:       q.Price,
			EVPercent:   p * q.Price * 100,
		})
	}
	return out
}

// Select materializa em apostas pending os registros com ev_percent >= Threshold.
// Preço e EV ficam congelados no momento da seleção.
func (p Policy) Select(id race.ID, scored []race.Scored, now time.Time) []race.Bet {
	var bets []race.Bet
	for _, s := range scored {
		if s.EVPercent < p.Threshold {
			continue
		}
		bets = append(bets, race.Bet{
			Race:        id,
			Combination: s.Combination,
			Stake:       p.Stake,
			Price:       s.Price,
			EVPercent:   s.EVPercent,
			Status:      race.BetPending,
			CreatedAt:   now,
		})
	}
	return bets
}
