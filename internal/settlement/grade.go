package settlement

import (
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Grade liquida as apostas pending de uma corrida contra o resultado oficial.
// Acerto: won com retorno stake * payout/100. Demais: lost com retorno 0.
// Apostas já liquidadas não são tocadas; só as que mudaram de estado são devolvidas.
//
// result.Void é apenas repassado (fica gravado no documento da corrida): a política
// de devolução proporcional por barco ainda não foi definida, então nada é estornado aqui.
func Grade(result race.Result, bets []race.Bet, now time.Time) []race.Bet {
	var graded []race.Bet
	for _, b := range bets {
		if b.Status.Terminal() {
			continue
		}
		if b.Combination == result.Combination {
			b.Status = race.BetWon
			b.Return = b.Stake * (float64(result.Payout) / 100)
		} else {
			b.Status = race.BetLost
			b.Return = 0
		}
		settledAt := now
		b.SettledAt = &settledAt
		graded = append(graded, b)
	}
	return graded
}
