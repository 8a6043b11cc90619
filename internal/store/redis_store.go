package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Sink using Redis
// Each result is stored under its own key so other services can look IPs up
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis sink
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string if no password)
//   - db: Redis database number (0-15, default is 0)
//   - ttl: key expiry (0 means no expiration)
//
// Returns:
//   - *RedisStore: pointer to the created store
//   - error: any error that occurred during connection
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// redisKey builds the key of an IP
// Redis Key Format: geo:<ip_address>
// Example: geo:8.8.8.8
func redisKey(ip string) string {
	return fmt.Sprintf("geo:%s", ip)
}

// Write implements the Sink interface
// Value: JSON-encoded GeoResult; all keys are written in one pipeline
func (s *RedisStore) Write(ctx context.Context, results []models.GeoResult) error {
	if len(results) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, result := range results {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result for %s: %w", result.IP, err)
		}
		pipe.Set(ctx, redisKey(result.IP), data, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}

	return nil
}

// Get returns the stored JSON of an IP
func (s *RedisStore) Get(ctx context.Context, ip string) (map[string]string, error) {
	val, err := s.client.Get(ctx, redisKey(ip)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("IP address not found")
		}
		return nil, fmt.Errorf("Redis query failed: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(val), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}

	return fields, nil
}

func (s *RedisStore) String() string {
	return fmt.Sprintf("redis://%s", s.client.Options().Addr)
}

// Close closes the Redis connection
// Should be called when the application shuts down
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
