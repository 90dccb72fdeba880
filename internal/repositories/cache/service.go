package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coursewallet/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Balance caching. Balances are cached per owner and invalidated on every
// ledger mutation that touches them.
func (s *CacheService) CacheBalance(ctx context.Context, balance *models.Balance) error {
	key := s.GenerateKey("balance", "owner", balance.OwnerID)
	return s.Set(ctx, key, balance)
}

func (s *CacheService) GetBalance(ctx context.Context, ownerID uint) (*models.Balance, error) {
	key := s.GenerateKey("balance", "owner", ownerID)
	var balance models.Balance
	found, err := s.Get(ctx, key, &balance)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, redis.Nil
	}
	return &balance, nil
}

func (s *CacheService) InvalidateBalance(ctx context.Context, ownerID uint) error {
	return s.Delete(ctx, s.GenerateKey("balance", "owner", ownerID))
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// HealthCheck verifies the redis connection is alive.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
