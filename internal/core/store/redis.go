package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lunaalba-client/internal/shared/logs"
)

// RedisStore backs the Store interface with Redis, for deployments where the
// client core runs server-side and state must outlive the process.
type RedisStore struct {
	client *redis.Client
}

// ConnectRedis dials Redis with a bounded retry loop and returns a store on success.
func ConnectRedis(redisURL string) (*RedisStore, error) {
	retryCount := 5
	retryDelay := 5 * time.Second

	for i := 0; i < retryCount; i++ {
		client := redis.NewClient(&redis.Options{
			Addr: redisURL,
		})

		err := client.Ping(context.Background()).Err()
		if err == nil {
			logs.Info(fmt.Sprintf("Connected to Redis on attempt %d/%d", i+1, retryCount))
			return &RedisStore{client: client}, nil
		}
		logs.Error(fmt.Sprintf("Failed to connect to Redis. Attempt %d/%d. Error: %v", i+1, retryCount, err))
		time.Sleep(retryDelay)
	}

	message := fmt.Sprintf("Failed to connect to Redis after %d attempts", retryCount)
	logs.Error(message)
	return nil, errors.New(message)
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := rs.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	return rs.client.Set(ctx, key, value, 0).Err()
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, key).Err()
}

// Close releases the underlying Redis connection.
func (rs *RedisStore) Close() error {
	if rs.client == nil {
		return nil
	}
	return rs.client.Close()
}
