package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	re "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Cache is the shared cache for resolved rows, scores, and statuses. Values
// are JSON-encoded; keys are namespaced per deployment.
type Cache interface {
	Set(ctx context.Context, key string, value any, expireTime time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Config is read from viper under "redis.*".
type Config struct {
	Address   string
	Namespace string
}

func ReadConfig() *Config {
	viper.BindEnv("redis.address", "REDIS_ADDRESS")

	return &Config{
		Address:   viper.GetString("redis.address"),
		Namespace: viper.GetString("redis.namespace"),
	}
}

type redis struct {
	redis     *re.Client
	namespace string
}

func New(enable bool, cfg *Config) Cache {
	if !enable {
		return Dummy()
	}

	return &redis{
		redis: re.NewClient(&re.Options{
			Addr: cfg.Address,
		}),
		namespace: cfg.Namespace,
	}
}

func (r *redis) withNamespace(key string) string {
	return fmt.Sprintf("%s:%s", r.namespace, key)
}

func (r *redis) Set(ctx context.Context, key string, value any, expireTime time.Duration) (bool, error) {
	namespacedKey := r.withNamespace(key)
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := r.redis.Set(ctx, namespacedKey, string(jsonData), expireTime).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redis) Get(ctx context.Context, key string) ([]byte, error) {
	namespacedKey := r.withNamespace(key)
	val, err := r.redis.Get(ctx, namespacedKey).Result()
	if err == re.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (r *redis) Delete(ctx context.Context, key string) (bool, error) {
	namespacedKey := r.withNamespace(key)
	result, err := r.redis.Del(ctx, namespacedKey).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// DeletePrefix removes every key under the given prefix. Used for scope
// invalidation, where dropping too much is acceptable and dropping too
// little is a correctness bug.
func (r *redis) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	pattern := r.withNamespace(prefix) + "*"
	var deleted int64
	var cursor uint64
	for {
		keys, next, err := r.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := r.redis.Del(ctx, keys...).Result()
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
