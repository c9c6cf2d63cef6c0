// Package cache provides the Redis-backed feed cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/observability"
)

const (
	feedKey    = "engigrow:feed:all"
	DefaultTTL = 30 * time.Second
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.CacheErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.CacheErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect dials Redis from a redis:// URL or a bare host:port and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// FeedCache keeps a serialized copy of the full feed. A nil *FeedCache is
// valid and always reads through to the source.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

func NewFeedCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &FeedCache{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "feed_cache"),
	}
}

// Feed returns the cached feed, or calls fetch on a miss and stores its result.
// Cache failures degrade to a read-through.
func (c *FeedCache) Feed(ctx context.Context, fetch func(context.Context) ([]domain.Post, error)) ([]domain.Post, error) {
	if c == nil || c.client == nil {
		return fetch(ctx)
	}

	raw, err := c.client.Get(ctx, feedKey).Bytes()
	switch {
	case err == nil:
		var posts []domain.Post
		if err := json.Unmarshal(raw, &posts); err == nil {
			observability.FeedCacheResults.WithLabelValues("hit").Inc()
			return posts, nil
		}
		c.logger.WithError(err).Warn("discarding undecodable feed entry")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).Warn("feed cache read failed")
	}
	observability.FeedCacheResults.WithLabelValues("miss").Inc()

	posts, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(posts)
	if err != nil {
		c.logger.WithError(err).Warn("encode feed")
		return posts, nil
	}
	if err := c.client.Set(ctx, feedKey, encoded, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("feed cache write failed")
	}
	return posts, nil
}

// Invalidate drops the cached feed. Called after every post mutation.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, feedKey).Err(); err != nil {
		return fmt.Errorf("invalidate feed cache: %w", err)
	}
	return nil
}
