// Package cache holds the optional cache of public post listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/redis/go-redis/v9"
)

// ListTTL is how long a cached listing stays valid.
const ListTTL = 5 * time.Minute

// ListCache stores the published post listing of every locale.
//
// Get returns nil posts on a miss, together with the generation of the listings.
// Set only stores posts if no Invalidate happened since that generation was read,
// so a listing read from the store before a change never outlives it.
type ListCache interface {
	Get(ctx context.Context, lang dardanova.Locale) ([]*dardanova.Post, int64, error)
	Set(ctx context.Context, lang dardanova.Locale, gen int64, posts []*dardanova.Post) error
	Invalidate(ctx context.Context) error
}

var _ ListCache = &RedisCache{}

type RedisCache struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisCache{rdb}, nil
}

const genKey = "posts:published:gen"

var errStale = errors.New("listing generation changed")

func listKey(lang dardanova.Locale) string {
	return "posts:published:" + string(lang)
}

func (c *RedisCache) Get(ctx context.Context, lang dardanova.Locale) ([]*dardanova.Post, int64, error) {
	vals, err := c.client.MGet(ctx, genKey, listKey(lang)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get from cache: %w", err)
	}

	var gen int64
	if s, ok := vals[0].(string); ok {
		gen, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid cache generation: %w", err)
		}
	}
	data, ok := vals[1].(string)
	if !ok {
		return nil, gen, nil
	}

	var posts []*dardanova.Post
	if err := json.Unmarshal([]byte(data), &posts); err != nil {
		return nil, gen, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	if posts == nil {
		posts = []*dardanova.Post{}
	}
	return posts, gen, nil
}

func (c *RedisCache) Set(ctx context.Context, lang dardanova.Locale, gen int64, posts []*dardanova.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("failed to marshal posts: %w", err)
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey(lang), data, ListTTL)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Invalidate drops the listings of all locales and bumps the generation.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(dardanova.Locales))
	for _, lang := range dardanova.Locales {
		keys = append(keys, listKey(lang))
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ ListCache = Noop{}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, dardanova.Locale) ([]*dardanova.Post, int64, error) { return nil, 0, nil }
func (Noop) Set(context.Context, dardanova.Locale, int64, []*dardanova.Post) error   { return nil }
func (Noop) Invalidate(context.Context) error                                        { return nil }
