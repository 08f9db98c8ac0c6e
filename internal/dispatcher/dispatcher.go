package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

// CardSource entrega o cartão de corridas do dia
type CardSource interface {
	FetchCard(ctx context.Context, now time.Time) (race.Card, error)
}

// Publisher entrega o evento na fila (at-least-once)
type Publisher interface {
	Publish(ctx context.Context, e events.RaceEvent) error
}

// Hooks permite acoplar métricas sem o dispatcher conhecer prometheus
type Hooks struct {
	OnPass         func()
	OnEvent        func(t events.Type)
	OnPublishError func(err error)
}

// Dispatcher classifica o cartão contra o relógio e emite no máximo
// um evento por corrida por passada. Não deduplica: a idempotência fica no worker.
type Dispatcher struct {
	card  CardSource
	pub   Publisher
	log   *zap.Logger
	hooks Hooks
	clock func() time.Time
}

func New(card CardSource, pub Publisher, log *zap.Logger, hooks Hooks) *Dispatcher {
	return &Dispatcher{card: card, pub: pub, log: log, hooks: hooks, clock: time.Now}
}

// RunOnce executa uma passada e retorna quantos eventos foram publicados.
// Cartão indisponível não é fatal (0 eventos, sem erro); falha de publicação
// de uma corrida não impede as demais e volta agregada no erro.
// now avança pelo tempo gasto buscando o cartão antes da classificação.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (int, error) {
	log := d.log.With(zap.String("pass_id", uuid.NewString()))
	if d.hooks.OnPass != nil {
		d.hooks.OnPass()
	}

	start := d.clock()
	card, err := d.card.FetchCard(ctx, now)
	if err != nil {
		log.Warn("race card unavailable, skipping pass", zap.Error(err))
		return 0, nil
	}
	if took := d.clock().Sub(start); took > 0 {
		now = now.Add(took)
	}
	for _, is := range card.Issues {
		log.Debug("race card entry skipped", zap.String("field", is.Field), zap.String("reason", is.Reason))
	}

	emitted := 0
	var errs []error
	for _, r := range card.Races {
		t, ok := Classify(r.Deadline.Sub(now))
		if !ok {
			continue
		}
		e := events.RaceEvent{Type: t, VenueID: r.VenueID, RaceNumber: r.RaceNumber, Deadline: r.Deadline}
		if err := e.Validate(); err != nil {
			log.Warn("invalid race on card", zap.Int("venue_id", r.VenueID), zap.Int("race_number", r.RaceNumber), zap.Error(err))
			continue
		}

		if err := d.pub.Publish(ctx, e); err != nil {
			if d.hooks.OnPublishError != nil {
				d.hooks.OnPublishError(err)
			}
			errs = append(errs, fmt.Errorf("publish %s %s: %w", t, e.RaceID().Key(), err))
			continue
		}
		emitted++
		if d.hooks.OnEvent != nil {
			d.hooks.OnEvent(t)
		}
		log.Info("race event dispatched",
			zap.String("type", t.String()),
			zap.String("race_key", e.RaceID().Key()),
			zap.Time("deadline", r.Deadline),
		)
	}

	log.Info("dispatch pass done", zap.Int("races", len(card.Races)), zap.Int("emitted", emitted))
	return emitted, errors.Join(errs...)
}
