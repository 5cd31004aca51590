package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dupehound/dupehound/internal/models"
)

// RedisIndex is the shared index backend for multi-worker deployments.
// Member sets are Redis sets; SADD gives the idempotent set-insert semantics
// the retry model depends on, and EXPIRE implements the recent-PR window for
// LSH buckets.
type RedisIndex struct {
	client    *redis.Client
	bucketTTL time.Duration
	logger    *slog.Logger
}

// NewRedisIndex connects and pings the server so a misconfigured index
// fails at startup, not mid-analysis.
func NewRedisIndex(ctx context.Context, host string, port int, password string, bucketTTL time.Duration, logger *slog.Logger) (*RedisIndex, error) {
	if host == "" {
		return nil, fmt.Errorf("redis host missing")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisIndex{
		client:    client,
		bucketTTL: bucketTTL,
		logger:    logger,
	}, nil
}

func (r *RedisIndex) AddExactHash(ctx context.Context, repo string, sigVersion int, hash string, head models.PRHead) error {
	return r.add(ctx, "dupehound:exact:"+hashKey(repo, sigVersion, hash), head, 0)
}

func (r *RedisIndex) LookupExactHash(ctx context.Context, repo string, sigVersion int, hash string) ([]models.PRHead, error) {
	return r.members(ctx, []string{"dupehound:exact:" + hashKey(repo, sigVersion, hash)})
}

func (r *RedisIndex) AddBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string, head models.PRHead) error {
	for _, id := range bucketIDs {
		if err := r.add(ctx, "dupehound:lsh:"+bucketKey(repo, sigVersion, id), head, r.bucketTTL); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisIndex) LookupBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string) ([]models.PRHead, error) {
	keys := make([]string, len(bucketIDs))
	for i, id := range bucketIDs {
		keys[i] = "dupehound:lsh:" + bucketKey(repo, sigVersion, id)
	}
	return r.members(ctx, keys)
}

func (r *RedisIndex) AddPaths(ctx context.Context, repo string, paths []string, head models.PRHead) error {
	for _, p := range paths {
		if err := r.add(ctx, "dupehound:path:"+pathKey(repo, p), head, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisIndex) LookupPaths(ctx context.Context, repo string, paths []string) ([]models.PRHead, error) {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = "dupehound:path:" + pathKey(repo, p)
	}
	return r.members(ctx, keys)
}

func (r *RedisIndex) AddSymbols(ctx context.Context, repo string, symbols []string, head models.PRHead) error {
	for _, s := range symbols {
		if err := r.add(ctx, "dupehound:symbol:"+symbolKey(repo, s), head, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisIndex) LookupSymbols(ctx context.Context, repo string, symbols []string) ([]models.PRHead, error) {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = "dupehound:symbol:" + symbolKey(repo, s)
	}
	return r.members(ctx, keys)
}

// Close closes the client connection.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}

func (r *RedisIndex) add(ctx context.Context, key string, head models.PRHead, ttl time.Duration) error {
	if err := r.client.SAdd(ctx, key, encodeMember(head)).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	if ttl > 0 {
		// Refresh the window on every insert; members of an active bucket
		// stay retrievable as long as new heads keep landing in it.
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

func (r *RedisIndex) members(ctx context.Context, keys []string) ([]models.PRHead, error) {
	var heads []models.PRHead
	for _, key := range keys {
		raw, err := r.client.SMembers(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("smembers %s: %w", key, err)
		}
		for _, m := range raw {
			if head, ok := decodeMember(m); ok {
				heads = append(heads, head)
			}
		}
	}
	return dedupeHeads(heads), nil
}
