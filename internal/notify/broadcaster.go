package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Tipos de atualização de aposta enviados ao dashboard
const (
	KindPlaced  = "placed"
	KindSettled = "settled"
)

// BetUpdate é o payload publicado no canal de broadcast e repassado ao WebSocket
type BetUpdate struct {
	Kind    string   `json:"kind"`
	RaceKey string   `json:"race_key"`
	Bet     race.Bet `json:"bet"`
}

// RedisBroadcaster publica atualizações de apostas via Redis Pub/Sub
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// PublishBets envia uma mensagem por aposta; para na primeira falha
func (b *RedisBroadcaster) PublishBets(ctx context.Context, kind string, bets []race.Bet) error {
	for _, bet := range bets {
		payload, err := json.Marshal(BetUpdate{Kind: kind, RaceKey: bet.Race.Key(), Bet: bet})
		if err != nil {
			return err
		}
		if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Nop descarta as atualizações (sem Redis configurado)
type Nop struct{}

func (Nop) PublishBets(context.Context, string, []race.Bet) error { return nil }
