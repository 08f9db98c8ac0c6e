package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda as respostas agregadas do painel por alguns segundos
type Cache struct{ R *redis.Client }

func NewCache(r *redis.Client) *Cache { return &Cache{R: r} }

func cacheKey(name string) string { return "dashboard:" + name }

func (c *Cache) Get(ctx context.Context, name string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, cacheKey(name)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(ctx context.Context, name string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, cacheKey(name), b, ttl).Err()
}

// Invalidate apaga as respostas em cache; chamado quando chega aposta nova ou liquidada
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, cacheKey("balance"), cacheKey("bets")).Err()
}
