// Package redis implements the key-value store backing Stillmind Hub.
// All user state - meditation stats and reminder preferences - lives here as
// JSON blobs; the process keeps no cache of its own, every operation reads
// authoritative state.
//
// Key layout:
//   - stats:<namespace>:<fid>  -> meditation ledger record
//   - reminder:<fid>           -> reminder preference record
//   - subscribers:reminder     -> set of currently opted-in fids (index)
//   - notify:<fid>             -> delivery address written by the frame host
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrKeyMiss is returned when the requested key does not exist.
	ErrKeyMiss = errors.New("kv: key not found")

	// ErrConnection is returned when Redis is unreachable.
	ErrConnection = errors.New("kv: connection failed")

	// ErrSerialization is returned when (de)serialization fails.
	ErrSerialization = errors.New("kv: serialization failed")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("kv: key cannot be empty")
)

// Key prefixes for namespacing Redis keys.
const (
	// PrefixStats is the prefix for meditation ledger keys.
	PrefixStats = "stats:"

	// PrefixReminder is the prefix for reminder preference keys.
	PrefixReminder = "reminder:"

	// PrefixNotify is the prefix for frame-host delivery address keys.
	PrefixNotify = "notify:"

	// KeySubscribers is the set of currently opted-in fids.
	KeySubscribers = "subscribers:reminder"
)

// ══════════════════════════════════════════════════════════════════════════════
// KV CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// KV is a thin typed wrapper over the Redis client. It handles JSON
// serialization and maps redis.Nil onto ErrKeyMiss.
type KV struct {
	client *redis.Client
	config Config
}

// NewKV creates a KV store client and verifies connectivity.
func NewKV(cfg Config) (*KV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return &KV{client: client, config: cfg}, nil
}

// Close closes the Redis connection.
func (kv *KV) Close() error {
	return kv.client.Close()
}

// Ping checks if Redis is reachable.
func (kv *KV) Ping(ctx context.Context) error {
	return kv.client.Ping(ctx).Err()
}

// Set stores a value under key. The value is serialized to JSON. A zero ttl
// means the key never expires - all user records are persistent.
func (kv *KV) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return kv.client.Set(ctx, key, data, ttl).Err()
}

// Get retrieves and deserializes a value by key.
// Returns ErrKeyMiss if the key does not exist.
func (kv *KV) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrKeyEmpty
	}

	data, err := kv.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKeyMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return nil
}

// ScanKeys returns all keys matching a pattern using SCAN iteration.
func (kv *KV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, ErrKeyEmpty
	}

	var keys []string
	iter := kv.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET OPERATIONS (subscriber index)
// ══════════════════════════════════════════════════════════════════════════════

// SAdd adds members to a set.
func (kv *KV) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return kv.client.SAdd(ctx, key, members...).Err()
}

// SRem removes members from a set.
func (kv *KV) SRem(ctx context.Context, key string, members ...interface{}) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return kv.client.SRem(ctx, key, members...).Err()
}

// SIsMember checks if a member exists in a set.
func (kv *KV) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	return kv.client.SIsMember(ctx, key, member).Result()
}

// SMembers returns all members of a set.
func (kv *KV) SMembers(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	return kv.client.SMembers(ctx, key).Result()
}

// SCard returns the number of members in a set.
func (kv *KV) SCard(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrKeyEmpty
	}
	return kv.client.SCard(ctx, key).Result()
}

// ══════════════════════════════════════════════════════════════════════════════
// KEY HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// StatsKey generates the ledger key for a user within a namespace.
func StatsKey(namespace, fid string) string {
	return PrefixStats + namespace + ":" + fid
}

// ReminderKey generates the preference key for a user.
func ReminderKey(fid string) string {
	return PrefixReminder + fid
}

// NotifyKey generates the frame-host delivery address key for a user.
func NotifyKey(fid string) string {
	return PrefixNotify + fid
}
