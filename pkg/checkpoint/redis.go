// Redis-backed ResolvedSet for batch runs spread across machines.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis resolved-set backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all keys (e.g., "arenaflow:resolved:")
	Prefix string

	// TTL is the time-to-live for outcome keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:      address,
		Prefix:       "arenaflow:resolved:",
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisSet stores outcomes in Redis, one key per record.
type RedisSet struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisSet connects to Redis and verifies the connection.
func NewRedisSet(cfg RedisConfig) (*RedisSet, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSet{cfg: cfg, client: client}, nil
}

func (s *RedisSet) key(record string) string {
	return s.cfg.Prefix + record
}

// Contains implements ResolvedSet.
func (s *RedisSet) Contains(ctx context.Context, record string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(record)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Mark implements ResolvedSet.
func (s *RedisSet) Mark(ctx context.Context, outcome Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(outcome.Record), data, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Outcomes implements ResolvedSet. SCAN is used rather than KEYS so a
// large set does not block the server.
func (s *RedisSet) Outcomes(ctx context.Context) ([]Outcome, error) {
	var outcomes []Outcome
	iter := s.client.Scan(ctx, 0, s.cfg.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var o Outcome
		if err := json.Unmarshal(data, &o); err != nil {
			continue
		}
		outcomes = append(outcomes, o)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return outcomes, nil
}

// Close implements ResolvedSet.
func (s *RedisSet) Close() error {
	return s.client.Close()
}
