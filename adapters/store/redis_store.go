package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bahodir0902/blogclient/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the CredentialStore interface, for
// deployments where several processes share one session (workers behind a
// single platform account).
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store. All keys are namespaced under the
// given prefix so multiple accounts can share one Redis instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "blogclient:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) accessKey() string  { return s.prefix + "access" }
func (s *RedisStore) refreshKey() string { return s.prefix + "refresh" }

// Save writes both slots in a single round trip.
func (s *RedisStore) Save(ctx context.Context, access, refresh string) error {
	if err := s.client.MSet(ctx, s.accessKey(), access, s.refreshKey(), refresh).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Read returns the current slots. Missing keys read as empty strings.
func (s *RedisStore) Read(ctx context.Context) (string, string, error) {
	values, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", "", fmt.Errorf("failed to read credentials: %w", err)
	}

	var access, refresh string
	if len(values) > 0 {
		if v, ok := values[0].(string); ok {
			access = v
		}
	}
	if len(values) > 1 {
		if v, ok := values[1].(string); ok {
			refresh = v
		}
	}

	return access, refresh, nil
}

// Clear removes both slots.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

var _ ports.CredentialStore = (*RedisStore)(nil)
