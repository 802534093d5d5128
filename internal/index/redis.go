package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "lexvault:"
	resetBatchSize     = 500
)

// Redis keeps the index in Redis sets, one set per hash:
// <prefix>hash:<digest> -> {file ids}.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	r := NewRedisWithClient(redis.NewClient(opts), prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return r, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// PrefixForDir derives a key prefix from the absolute path of a data
// directory, so stores sharing one Redis server keep separate indexes.
func PrefixForDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	sum := sha256.Sum256([]byte(abs))
	return DefaultRedisPrefix + hex.EncodeToString(sum[:6]) + ":"
}

func (r *Redis) key(hash string) string {
	return r.prefix + "hash:" + hash
}

func (r *Redis) Add(ctx context.Context, hash, fileID string) error {
	if err := r.client.SAdd(ctx, r.key(hash), fileID).Err(); err != nil {
		return fmt.Errorf("index add %s: %w", hash, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, hash, fileID string) error {
	if err := r.client.SRem(ctx, r.key(hash), fileID).Err(); err != nil {
		return fmt.Errorf("index remove %s: %w", hash, err)
	}
	return nil
}

func (r *Redis) Members(ctx context.Context, hash string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("index members %s: %w", hash, err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Redis) Count(ctx context.Context, hash string) (int, error) {
	n, err := r.client.SCard(ctx, r.key(hash)).Result()
	if err != nil {
		return 0, fmt.Errorf("index count %s: %w", hash, err)
	}
	return int(n), nil
}

// Reset drops every hash key under the prefix and loads entries in pipelines.
// Other stores must use a different prefix.
func (r *Redis) Reset(ctx context.Context, entries map[string][]string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"hash:*", resetBatchSize).Result()
		if err != nil {
			return fmt.Errorf("index scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("index clear: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	pipe := r.client.Pipeline()
	queued := 0
	for hash, ids := range entries {
		if len(ids) == 0 {
			continue
		}
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, r.key(hash), members...)
		queued++
		if queued >= resetBatchSize {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("index load: %w", err)
			}
			queued = 0
		}
	}
	if queued > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("index load: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
