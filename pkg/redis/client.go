package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the counter store adapter over Redis. Every method is a single
// command or a MULTI/EXEC transaction, so each key mutation is atomic.
type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Bounded timeouts; the core never retries on its own
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get returns the value stored at key. found is false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		c.observe("redis_get", key, start, nil, zap.Bool("found", false))
		return "", false, nil
	}
	c.observe("redis_get", key, start, err)
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// GetMultiple reads several keys in one round trip. Absent keys are left out of the map.
func (c *Client) GetMultiple(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	start := time.Now()
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	c.observe("redis_mget", keys[0], start, err, zap.Int("keys", len(keys)))
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		if s, ok := v.(string); ok {
			result[keys[i]] = s
		}
	}
	return result, nil
}

// Set stores a value without expiry
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithExpiry(ctx, key, value, 0)
}

// SetWithExpiry stores a value with TTL; a zero ttl means no expiry
func (c *Client) SetWithExpiry(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.observe("redis_set", key, start, err, zap.Duration("ttl", ttl))
	return err
}

// SetMultiple sets multiple key-value pairs with the same TTL
func (c *Client) SetMultiple(ctx context.Context, kvPairs map[string]interface{}, ttl time.Duration) error {
	start := time.Now()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range kvPairs {
			pipe.Set(ctx, key, value, ttl)
		}
		return nil
	})
	c.observe("redis_set_multiple", "", start, err, zap.Int("keys", len(kvPairs)))
	return err
}

// Delete removes keys from Redis
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.observe("redis_del", keys[0], start, err, zap.Int("keys", len(keys)))
	return err
}

// Exists returns how many of the given keys exist
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Exists(ctx, keys...).Result()
	c.observe("redis_exists", "", start, err, zap.Int64("result", n), zap.Int("keys", len(keys)))
	return n, err
}

// Incr increments a counter
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	v, err := c.rdb.Incr(ctx, key).Result()
	c.observe("redis_incr", key, start, err, zap.Int64("value", v))
	return v, err
}

// IncrThenExpire increments key and (re)sets its TTL inside one MULTI/EXEC,
// so a counter can never be left without an expiry.
func (c *Client) IncrThenExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	start := time.Now()
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		c.observe("redis_incr_expire", key, start, err)
		return 0, err
	}
	c.observe("redis_incr_expire", key, start, nil, zap.Int64("value", incr.Val()), zap.Duration("ttl", ttl))
	return incr.Val(), nil
}

// Expire sets a TTL on a key
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Expire(ctx, key, ttl).Err()
	c.observe("redis_expire", key, start, err, zap.Duration("ttl", ttl))
	return err
}

// AddToSet adds member to the set at key and reports whether it was newly added.
func (c *Client) AddToSet(ctx context.Context, key, member string) (bool, error) {
	start := time.Now()
	n, err := c.rdb.SAdd(ctx, key, member).Result()
	c.observe("redis_sadd", key, start, err, zap.Bool("added", n > 0))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetSize returns the cardinality of the set at key (0 when absent)
func (c *Client) SetSize(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.SCard(ctx, key).Result()
	c.observe("redis_scard", key, start, err, zap.Int64("result", n))
	return n, err
}

// PushAndTrim prepends value to the list at key and keeps only the newest maxLength entries.
func (c *Client) PushAndTrim(ctx context.Context, key, value string, maxLength int64) error {
	if maxLength <= 0 {
		return fmt.Errorf("maxLength must be positive, got %d", maxLength)
	}
	start := time.Now()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, maxLength-1)
		return nil
	})
	c.observe("redis_push_trim", key, start, err, zap.Int64("max_length", maxLength))
	return err
}

// ListRange returns list entries between start and stop (inclusive, LRANGE semantics)
func (c *Client) ListRange(ctx context.Context, key string, startIdx, stopIdx int64) ([]string, error) {
	start := time.Now()
	vals, err := c.rdb.LRange(ctx, key, startIdx, stopIdx).Result()
	c.observe("redis_lrange", key, start, err, zap.Int("entries", len(vals)))
	return vals, err
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	c.observe("redis_ping", "", start, err)
	return err
}

// observe logs one store command: failures at info, successes at debug.
func (c *Client) observe(op, key string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if key != "" {
		fields = append(fields, zap.String("key_prefix", prefixForLog(key)))
	}
	if err != nil {
		c.log.Info(op, append(fields, zap.Error(err))...)
		return
	}
	c.log.Debug(op, fields...)
}

// prefixForLog returns a safe prefix of a key to avoid logging PII
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
