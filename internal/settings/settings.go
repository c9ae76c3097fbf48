// Package settings persists the flat string-keyed configuration map that
// lives outside the main record store for the lifetime of the install.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Recognized keys.
const (
	KeyThisStoreID          = "ThisStoreID"
	KeyThisStoreNameID      = "ThisStoreNameID"
	KeySyncURL              = "SyncURL"
	KeySyncIsInitialised    = "SyncIsInitialised"
	KeyAppVersion           = "AppVersion"
	KeySupplyingStoreID     = "SupplyingStoreID"
	KeySupplyingStoreNameID = "SupplyingStoreNameID"
)

// Settings is the persisted key/value map. Get returns "" for a missing key.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

const redisPrefix = "settings:"

// RedisSettings stores keys in redis under a fixed prefix.
type RedisSettings struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed settings store.
func NewRedis(client *redis.Client) *RedisSettings {
	return &RedisSettings{client: client}
}

func (s *RedisSettings) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisSettings) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSettings) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return fmt.Errorf("settings: delete %s: %w", key, err)
	}
	return nil
}

// MemorySettings is an in-process settings map for tests and embedded use.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory constructs an empty in-memory settings store.
func NewMemory() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemorySettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemorySettings) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
