package dispatcher

import (
	"time"

	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

// Window é um intervalo semiaberto [Low, High) de diff = deadline - now
type Window struct {
	Low, High time.Duration
	Type      events.Type
}

// Windows não se sobrepõem nem se tocam; a mais estreita tem 60s
var Windows = []Window{
	{Low: 360 * time.Second, High: 420 * time.Second, Type: events.ScrapeInfo},
	{Low: 300 * time.Second, High: 360 * time.Second, Type: events.PredictPreview},
	{Low: 60 * time.Second, High: 120 * time.Second, Type: events.PredictFinal},
	{Low: -1260 * time.Second, High: -1200 * time.Second, Type: events.CheckResult},
}

// Classify decide o evento de uma corrida só pelo diff até o deadline.
// Fora de todas as janelas retorna false.
func Classify(diff time.Duration) (events.Type, bool) {
	for _, w := range Windows {
		if diff >= w.Low && diff < w.High {
			return w.Type, true
		}
	}
	return 0, false
}
