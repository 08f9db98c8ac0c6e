package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// RaceDoc é o documento da corrida mantido em memória
type RaceDoc struct {
	ID          race.ID
	Features    race.Features
	Predictions map[race.Stage]race.PredictionRecord
	Result      *race.Result
	UpdatedAt   time.Time
}

// Memory é o backend em processo (dev/testes); mesmas regras de upsert do Postgres
type Memory struct {
	mu    sync.RWMutex
	races map[string]*RaceDoc
	bets  map[string]race.Bet
	now   func() time.Time
}

// NewMemory cria um store vazio
func NewMemory() *Memory {
	return &Memory{
		races: make(map[string]*RaceDoc),
		bets:  make(map[string]race.Bet),
		now:   time.Now,
	}
}

// doc retorna (criando se preciso) o documento; chamar com o lock de escrita
func (m *Memory) doc(id race.ID) *RaceDoc {
	d, ok := m.races[id.Key()]
	if !ok {
		d = &RaceDoc{ID: id, Predictions: make(map[race.Stage]race.PredictionRecord)}
		m.races[id.Key()] = d
	}
	d.UpdatedAt = m.now()
	return d
}

func (m *Memory) SaveFeatures(_ context.Context, id race.ID, f race.Features) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc(id).Features = f.Clone()
	return nil
}

func (m *Memory) LoadFeatures(_ context.Context, id race.ID) (race.Features, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.races[id.Key()]
	if !ok || len(d.Features) == 0 {
		return nil, race.ErrFeaturesMissing
	}
	return d.Features.Clone(), nil
}

func (m *Memory) SavePrediction(_ context.Context, id race.ID, rec race.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Entries = append([]race.Scored(nil), rec.Entries...)
	m.doc(id).Predictions[rec.Stage] = rec
	return nil
}

func (m *Memory) SaveResult(_ context.Context, id race.ID, res race.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc(id).Result = &res
	return nil
}

func (m *Memory) UpsertBets(_ context.Context, bets []race.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bets {
		cur, ok := m.bets[b.Key()]
		if !ok {
			b.Status = race.BetPending
			b.Return = 0
			b.SettledAt = nil
			m.bets[b.Key()] = b
			continue
		}
		if cur.Status != race.BetPending {
			continue
		}
		cur.Stake, cur.Price, cur.EVPercent = b.Stake, b.Price, b.EVPercent
		m.bets[b.Key()] = cur
	}
	return nil
}

func (m *Memory) ListBets(_ context.Context, id race.ID) ([]race.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []race.Bet
	for _, b := range m.bets {
		if b.Race.Key() == id.Key() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Combination < out[j].Combination })
	return out, nil
}

func (m *Memory) SettleBets(_ context.Context, bets []race.Bet) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settled := 0
	for _, b := range bets {
		cur, ok := m.bets[b.Key()]
		if !ok || cur.Status != race.BetPending {
			continue
		}
		cur.Status, cur.Return, cur.SettledAt = b.Status, b.Return, b.SettledAt
		m.bets[b.Key()] = cur
		settled++
	}
	return settled, nil
}

func (m *Memory) BetsSince(_ context.Context, since time.Time) ([]race.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []race.Bet
	for _, b := range m.bets {
		if !b.CreatedAt.Before(since) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) RecentBets(_ context.Context, limit int) ([]race.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]race.Bet, 0, len(m.bets))
	for _, b := range m.bets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Race devolve uma cópia do documento da corrida (inspeção/testes)
func (m *Memory) Race(id race.ID) (RaceDoc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.races[id.Key()]
	if !ok {
		return RaceDoc{}, false
	}
	cp := *d
	cp.Features = d.Features.Clone()
	cp.Predictions = make(map[race.Stage]race.PredictionRecord, len(d.Predictions))
	for k, v := range d.Predictions {
		cp.Predictions[k] = v
	}
	return cp, true
}
