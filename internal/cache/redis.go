package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type RedisCache struct {
	client      *redis.Client
	vehiclesTTL time.Duration
	lockTTL     time.Duration
	lockWait    time.Duration
	retryEvery  time.Duration
	newToken    func() string
}

type Options struct {
	VehiclesTTL time.Duration
	LockTTL     time.Duration
	LockWait    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, opts Options) *RedisCache {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return NewRedisCacheWithClient(client, opts)
}

func NewRedisCacheWithClient(client *redis.Client, opts Options) *RedisCache {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 3 * time.Second
	}
	return &RedisCache{
		client:      client,
		vehiclesTTL: opts.VehiclesTTL,
		lockTTL:     opts.LockTTL,
		lockWait:    opts.LockWait,
		retryEvery:  25 * time.Millisecond,
		newToken:    uuid.NewString,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetVehicles returns nil, nil on a cache miss.
func (c *RedisCache) GetVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	data, err := c.client.Get(ctx, vehiclesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var vehicles []domain.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (c *RedisCache) SetVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	payload, err := json.Marshal(vehicles)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, vehiclesKey(), payload, c.vehiclesTTL).Err()
}

// LockVehicle takes the per-vehicle advisory lock, polling until lockWait elapses.
// The lock expires after lockTTL so a crashed holder cannot wedge the vehicle.
func (c *RedisCache) LockVehicle(ctx context.Context, vehicleID string) (func(), error) {
	key := vehicleLockKey(vehicleID)
	token := c.newToken()

	waitCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()

	for {
		ok, err := c.client.SetNX(waitCtx, key, token, c.lockTTL).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, domain.ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire vehicle lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, domain.ErrLockTimeout
		case <-time.After(c.retryEvery):
		}
	}

	return func() {
		// Release must not inherit a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}, nil
}

func vehiclesKey() string {
	return "cache:vehicles"
}

func vehicleLockKey(vehicleID string) string {
	return fmt.Sprintf("lock:vehicle:%s", vehicleID)
}
