package redis

import (
	"context"
	"strings"
	"time"

	"github.com/deepgram/schwab-mcp/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Service struct {
	client *redis.Client
}

// compareAndDelete removes a key only while it still holds the caller's value.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewService connects to Redis. It returns nil when Redis is not configured
// or unreachable, in which case callers fall back to process-local behaviour.
func NewService(cfg config.RedisConfig) *Service {
	if cfg.URL == "" {
		log.Debug().Msg("Redis URL not configured - shared refresh lock disabled")
		return nil
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Invalid Redis URL")
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", opts.Addr).
			Msg("Failed to establish Redis connection")
		client.Close()
		return nil
	}

	return &Service{
		client: client,
	}
}

func clientOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       0,
	}, nil
}

// SetNX stores value only if key does not exist yet.
func (s *Service) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("expiration", expiration).
			Msg("Critical Redis SETNX operation failed")
		return false, err
	}
	return ok, nil
}

// Get retrieves a value from Redis
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Critical Redis GET operation failed")
		return "", err
	}
	return val, err
}

// CompareAndDelete deletes key if it holds value and reports whether it did.
func (s *Service) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, value).Int()
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Redis compare-and-delete failed")
		return false, err
	}
	return n == 1, nil
}

// Ping checks if Redis is accessible
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Service) Close() error {
	return s.client.Close()
}
