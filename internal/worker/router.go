package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/race-trading-pipeline/internal/ev"
	"github.com/radieske/race-trading-pipeline/internal/features"
	"github.com/radieske/race-trading-pipeline/internal/notify"
	"github.com/radieske/race-trading-pipeline/internal/predictor"
	"github.com/radieske/race-trading-pipeline/internal/race"
	"github.com/radieske/race-trading-pipeline/internal/settlement"
	"github.com/radieske/race-trading-pipeline/internal/shared/logger"
	"github.com/radieske/race-trading-pipeline/pkg/contracts/events"
)

// Upstream busca os documentos de uma corrida; falha/timeout => race.ErrNoData
type Upstream interface {
	FetchEntrants(ctx context.Context, id race.ID) (race.RawStats, error)
	FetchOdds(ctx context.Context, id race.ID) ([]race.OddsQuote, error)
	FetchResult(ctx context.Context, id race.ID) (race.Result, error)
}

// Store é o document store com upsert last-write-wins por chave
type Store interface {
	SaveFeatures(ctx context.Context, id race.ID, f race.Features) error
	LoadFeatures(ctx context.Context, id race.ID) (race.Features, error)
	SavePrediction(ctx context.Context, id race.ID, rec race.PredictionRecord) error
	SaveResult(ctx context.Context, id race.ID, res race.Result) error
	UpsertBets(ctx context.Context, bets []race.Bet) error
	ListBets(ctx context.Context, id race.ID) ([]race.Bet, error)
	SettleBets(ctx context.Context, bets []race.Bet) (int, error)
}

// Notifier avisa o dashboard sobre apostas novas/liquidadas (best effort)
type Notifier interface {
	PublishBets(ctx context.Context, kind string, bets []race.Bet) error
}

// HandlerFunc processa um evento já validado
type HandlerFunc func(ctx context.Context, e events.RaceEvent) error

// Hooks permite acoplar métricas sem o router conhecer prometheus
type Hooks struct {
	OnEvent       func(t events.Type)
	OnError       func(stage string)
	OnBetsPlaced  func(n int)
	OnBetsSettled func(status race.BetStatus, n int)
}

// Deps são os colaboradores injetados no router
type Deps struct {
	Upstream  Upstream
	Store     Store
	Predictor predictor.Predictor
	Notifier  Notifier // opcional
	Policy    ev.Policy
	Log       *zap.Logger
	Hooks     Hooks
}

// Router roteia cada evento para exatamente um handler.
// Cada handler é idempotente na chave de gravação; nenhum faz retry local.
type Router struct {
	upstream  Upstream
	store     Store
	predictor predictor.Predictor
	notifier  Notifier
	policy    ev.Policy
	log       *zap.Logger
	hooks     Hooks
	now       func() time.Time

	handlers map[events.Type]HandlerFunc
}

func NewRouter(d Deps) *Router {
	r := &Router{
		upstream: d.Upstream,
		store:    d.Store,
		notifier: d.Notifier,
		policy:   d.Policy,
		log:      d.Log,
		hooks:    d.Hooks,
		now:      time.Now,
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	primary := d.Predictor
	if primary == nil {
		primary = predictor.Uniform{}
	}
	// modelo indisponível degrada para distribuição uniforme
	r.predictor = predictor.Fallback{
		Primary:    primary,
		Log:        d.Log,
		OnFallback: func(error) { r.onError("predict") },
	}
	r.handlers = map[events.Type]HandlerFunc{
		events.ScrapeInfo:     r.scrapeInfo,
		events.PredictPreview: r.predict(race.StagePreview),
		events.PredictFinal:   r.predict(race.StageFinal),
		events.CheckResult:    r.checkResult,
	}
	return r
}

// stageError marca em qual etapa o handler abortou (label da métrica de erro)
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stageErr(stage string, err error) error { return &stageError{stage: stage, err: err} }

func (r *Router) onError(stage string) {
	if r.hooks.OnError != nil {
		r.hooks.OnError(stage)
	}
}

// Handle valida e processa um evento. O erro volta para quem entregou o evento
// (consumer/ingress), que só registra: a reentrega ou a próxima janela é o retry.
func (r *Router) Handle(ctx context.Context, e events.RaceEvent) error {
	log := r.log.With(logger.RaceFields(e.Type.String(), e.RaceID().Key())...)

	h, ok := r.handlers[e.Type]
	if !ok {
		log.Warn("unknown race event type, dropping")
		return nil
	}
	if err := e.Validate(); err != nil {
		r.onError("validate")
		return err
	}
	if r.hooks.OnEvent != nil {
		r.hooks.OnEvent(e.Type)
	}

	start := time.Now()
	if err := h(ctx, e); err != nil {
		stage := e.Type.String()
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		r.onError(stage)
		log.Warn("race event aborted", zap.String("stage", stage), zap.Error(err))
		return err
	}
	log.Info("race event handled", zap.Duration("took", time.Since(start)))
	return nil
}

// scrapeInfo: participantes -> features -> upsert. Falha na busca não grava nada.
func (r *Router) scrapeInfo(ctx context.Context, e events.RaceEvent) error {
	id := e.RaceID()
	stats, err := r.upstream.FetchEntrants(ctx, id)
	if err != nil {
		return stageErr("fetch", err)
	}
	if len(stats.Issues) > 0 {
		r.log.Debug("entrant extraction issues",
			zap.String("race_key", id.Key()), zap.Int("count", len(stats.Issues)))
	}

	f := features.Engineer(stats.Values)
	if err := r.store.SaveFeatures(ctx, id, f); err != nil {
		return stageErr("store", err)
	}
	return nil
}

// predict: odds + features (em paralelo) -> modelo -> EV -> snapshot do estágio.
// Só o estágio final seleciona e grava apostas.
func (r *Router) predict(stage race.Stage) HandlerFunc {
	return func(ctx context.Context, e events.RaceEvent) error {
		id := e.RaceID()

		var (
			quotes []race.OddsQuote
			feats  race.Features
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			q, err := r.upstream.FetchOdds(gctx, id)
			if err != nil {
				return stageErr("fetch", err)
			}
			quotes = q
			return nil
		})
		g.Go(func() error {
			f, err := r.store.LoadFeatures(gctx, id)
			if err != nil {
				// sem features não há previsão; sem backfill síncrono
				return stageErr("features", err)
			}
			feats = f
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		probs, err := r.predictor.Predict(ctx, feats)
		if err != nil {
			return stageErr("predict", err)
		}

		now := r.now()
		scored := ev.Score(quotes, probs)
		rec := race.PredictionRecord{Stage: stage, Entries: scored, CreatedAt: now}
		if err := r.store.SavePrediction(ctx, id, rec); err != nil {
			return stageErr("store", err)
		}
		if stage != race.StageFinal {
			return nil
		}

		bets := r.policy.Select(id, scored, now)
		if len(bets) == 0 {
			r.log.Info("no combination above threshold",
				zap.String("race_key", id.Key()), zap.Float64("threshold", r.policy.Threshold))
			return nil
		}
		if err := r.store.UpsertBets(ctx, bets); err != nil {
			return stageErr("store", err)
		}
		if r.hooks.OnBetsPlaced != nil {
			r.hooks.OnBetsPlaced(len(bets))
		}
		r.log.Info("bets placed", zap.String("race_key", id.Key()), zap.Int("count", len(bets)))
		r.notify(ctx, notify.KindPlaced, bets)
		return nil
	}
}

// checkResult: resultado -> grava no documento -> liquida as pending.
// Sem resultado publicado as apostas ficam pending até a próxima entrega.
func (r *Router) checkResult(ctx context.Context, e events.RaceEvent) error {
	id := e.RaceID()
	res, err := r.upstream.FetchResult(ctx, id)
	if err != nil {
		return stageErr("result", err)
	}
	if err := r.store.SaveResult(ctx, id, res); err != nil {
		return stageErr("store", err)
	}
	if res.Void {
		r.log.Warn("race flagged void; refund policy undefined, grading as-is", zap.String("race_key", id.Key()))
	}

	bets, err := r.store.ListBets(ctx, id)
	if err != nil {
		return stageErr("store", err)
	}
	graded := settlement.Grade(res, bets, r.now())
	if len(graded) == 0 {
		return nil
	}
	n, err := r.store.SettleBets(ctx, graded)
	if err != nil {
		return stageErr("store", fmt.Errorf("settled %d of %d: %w", n, len(graded), err))
	}

	if r.hooks.OnBetsSettled != nil {
		counts := map[race.BetStatus]int{}
		for _, b := range graded {
			counts[b.Status]++
		}
		for status, c := range counts {
			r.hooks.OnBetsSettled(status, c)
		}
	}
	r.log.Info("bets settled",
		zap.String("race_key", id.Key()),
		zap.String("combination", string(res.Combination)),
		zap.Int("payout", res.Payout),
		zap.Int("settled", n),
	)
	r.notify(ctx, notify.KindSettled, graded)
	return nil
}

func (r *Router) notify(ctx context.Context, kind string, bets []race.Bet) {
	if err := r.notifier.PublishBets(ctx, kind, bets); err != nil {
		r.onError("notify")
		r.log.Warn("bet broadcast failed", zap.String("kind", kind), zap.Error(err))
	}
}
