package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps redis for provider-response caching and API read
// caching. It satisfies ffa.ResponseCache via SetSimple/GetSimple.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{
		client: client,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key not found")
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (s *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return val > 0, nil
}

// Cache key generators
func ManagersCacheKey() string {
	return "api:managers"
}

func ManagerCacheKey(userID string) string {
	return fmt.Sprintf("api:manager:%s", userID)
}

func PlayerWarCacheKey(playerID string) string {
	return fmt.Sprintf("api:player:war:%s", playerID)
}

func ReplacementCacheKey(season, week int) string {
	return fmt.Sprintf("api:replacement:%d:%d", season, week)
}

// APICacheKeys lists the derived-read keys invalidated after an update run.
func APICacheKeys() []string {
	return []string{ManagersCacheKey()}
}

// Convenience methods without context (use background context)
func (s *CacheService) SetSimple(key string, value interface{}, expiration time.Duration) error {
	return s.Set(context.Background(), key, value, expiration)
}

func (s *CacheService) GetSimple(key string, dest interface{}) error {
	return s.Get(context.Background(), key, dest)
}

// Flush clears all cache entries
func (s *CacheService) Flush() error {
	return s.client.FlushDB(context.Background()).Err()
}
