package cache

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

const catalogKey = "catalog:products"

type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

// 接続確認込みでクライアントを作る
func NewClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *RedisProductCache) Get(ctx context.Context) ([]model.Product, bool, error) {
	raw, err := c.client.Get(ctx, catalogKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []model.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		// 壊れたエントリは捨ててミス扱い
		_ = c.client.Del(ctx, catalogKey).Err()
		return nil, false, nil
	}
	return products, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, products []model.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, raw, c.ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
