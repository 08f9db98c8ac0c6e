package dashboard

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/notify"
)

// StartRedisSubscriber escuta o canal de apostas e repassa cada atualização ao Hub.
// onUpdate (opcional) roda antes do broadcast, ex.: invalidar o cache de respostas.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger, onUpdate func(context.Context)) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var upd notify.BetUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("bet update unmarshal failed", zap.Error(err))
					continue
				}
				if onUpdate != nil {
					onUpdate(ctx)
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
