// Package cache wraps the Redis client used for device caching, rate
// caching and the payment event channels.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fossa/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

const deviceCacheTTL = 5 * time.Minute

func deviceKey(id string) string {
	return "fossa:device:" + id
}

// DeviceCache is a read-through cache for device lookups. Every LNURL scan
// hits the device row, so the hot path is served from Redis.
type DeviceCache struct {
	client *redis.Client
}

func NewDeviceCache(client *redis.Client) *DeviceCache {
	return &DeviceCache{client: client}
}

func (c *DeviceCache) Get(ctx context.Context, id string) (*models.Device, error) {
	raw, err := c.client.Get(ctx, deviceKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var device models.Device
	if err := json.Unmarshal(raw, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *DeviceCache) Set(ctx context.Context, device *models.Device) error {
	raw, err := json.Marshal(device)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, deviceKey(device.ID), raw, deviceCacheTTL).Err()
}

func (c *DeviceCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, deviceKey(id)).Err()
}
