// Package cache holds document metadata close to the API. Signed URLs never pass through it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/docflow-server/internal/config"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// DefaultTTL applies when the configured TTL is not positive.
const DefaultTTL = 600 * time.Second

// ErrMiss is returned by GetDocument when the key is absent.
var ErrMiss = errors.New("cache miss")

// Documents caches document metadata by id.
type Documents interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	SetDocument(ctx context.Context, doc *store.Document) error
	Invalidate(ctx context.Context, id string) error
	Close() error
}

// Key returns the cache key of a document.
func Key(id string) string {
	return "doc:" + id
}

// Redis implements Documents with go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: rdb, ttl: ttl}, nil
}

func (r *Redis) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	raw, err := r.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode cached document: %w", err)
	}
	return &doc, nil
}

func (r *Redis) SetDocument(ctx context.Context, doc *store.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.client.Set(ctx, Key(doc.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is used when caching is disabled; every lookup misses.
type Nop struct{}

func (Nop) GetDocument(context.Context, string) (*store.Document, error) { return nil, ErrMiss }
func (Nop) SetDocument(context.Context, *store.Document) error          { return nil }
func (Nop) Invalidate(context.Context, string) error                    { return nil }
func (Nop) Close() error                                                { return nil }
