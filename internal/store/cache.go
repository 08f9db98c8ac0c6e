package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// FeatureCache guarda as features recém-gravadas no Redis com TTL
// As passadas de previsão leem daqui antes de ir ao banco
type FeatureCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewFeatureCache cria o cache com TTL configurável
func NewFeatureCache(c *redis.Client, ttl time.Duration) *FeatureCache {
	return &FeatureCache{Client: c, TTL: ttl}
}

func featureKey(id race.ID) string { return "race:features:" + id.Key() }

// Get retorna (features, true) no hit; miss não é erro
func (c *FeatureCache) Get(ctx context.Context, id race.ID) (race.Features, bool, error) {
	b, err := c.Client.Get(ctx, featureKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var f race.Features
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (c *FeatureCache) Set(ctx context.Context, id race.ID, f race.Features) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, featureKey(id), b, c.TTL).Err()
}

// Backend é o conjunto de operações que o Cached delega
type Backend interface {
	SaveFeatures(ctx context.Context, id race.ID, f race.Features) error
	LoadFeatures(ctx context.Context, id race.ID) (race.Features, error)
	SavePrediction(ctx context.Context, id race.ID, rec race.PredictionRecord) error
	SaveResult(ctx context.Context, id race.ID, res race.Result) error
	UpsertBets(ctx context.Context, bets []race.Bet) error
	ListBets(ctx context.Context, id race.ID) ([]race.Bet, error)
	SettleBets(ctx context.Context, bets []race.Bet) (int, error)
}

// Cached coloca o FeatureCache na frente de um Backend.
// O banco continua sendo a fonte de verdade; falha no Redis só gera log.
type Cached struct {
	Backend
	cache *FeatureCache
	log   *zap.Logger
}

func NewCached(b Backend, c *FeatureCache, log *zap.Logger) *Cached {
	return &Cached{Backend: b, cache: c, log: log}
}

func (c *Cached) SaveFeatures(ctx context.Context, id race.ID, f race.Features) error {
	if err := c.Backend.SaveFeatures(ctx, id, f); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, id, f); err != nil {
		c.log.Warn("feature cache set failed", zap.String("race_key", id.Key()), zap.Error(err))
	}
	return nil
}

func (c *Cached) LoadFeatures(ctx context.Context, id race.ID) (race.Features, error) {
	f, ok, err := c.cache.Get(ctx, id)
	if err != nil {
		c.log.Warn("feature cache get failed", zap.String("race_key", id.Key()), zap.Error(err))
	}
	if ok && len(f) > 0 {
		return f, nil
	}
	return c.Backend.LoadFeatures(ctx, id)
}
