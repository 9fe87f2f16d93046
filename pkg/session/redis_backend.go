package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend using Redis. It mirrors the file
// layout under a key prefix, one JSON value per session, and suits
// setups where the chat history should outlive the local machine.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for session records (default:
	// "parley:chat:").
	Prefix string
	// SessionTTL is the record expiry duration (0 = never expire).
	SessionTTL time.Duration
}

// NewRedisBackend creates a Redis storage backend and verifies the
// connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{
		client: client,
		prefix: prefixOrDefault(cfg.Prefix),
		ttl:    cfg.SessionTTL,
	}, nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing
// client. This is useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: prefixOrDefault(prefix),
		ttl:    ttl,
	}
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return "parley:chat:"
	}
	return prefix
}

func (b *RedisBackend) key(id string) string {
	return b.prefix + id
}

// Save writes the session under its key, overwriting any existing
// record.
func (b *RedisBackend) Save(ctx context.Context, sess *Session) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStorageClosed
	}
	if err := validateID(sess.ChatID); err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := b.client.Set(ctx, b.key(sess.ChatID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

// Load retrieves a session record by ID.
func (b *RedisBackend) Load(ctx context.Context, id string) (*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session record: %w", err)
	}
	return &sess, nil
}

// Delete removes a session record.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrStorageClosed
	}
	if err := validateID(id); err != nil {
		return err
	}

	n, err := b.client.Del(ctx, b.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// List scans for session keys under the prefix, sorted ascending.
// Keys that don't parse as session identifiers are skipped.
func (b *RedisBackend) List(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	ids := make([]string, 0)
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), b.prefix)
		if !ValidID(id) {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan session keys: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Close releases the Redis client.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}
