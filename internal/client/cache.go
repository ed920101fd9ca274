package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedDirectory is a read-through Redis cache in front of another
// Directory. Misses are never cached, so a client created after a failed
// lookup is visible immediately. A nil Redis client disables caching.
type CachedDirectory struct {
	rdb  *redis.Client
	next Directory
	ttl  time.Duration
	log  *logrus.Logger
}

func NewCachedDirectory(rdb *redis.Client, next Directory, ttl time.Duration, log *logrus.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{rdb: rdb, next: next, ttl: ttl, log: log}
}

func cacheKey(id string) string { return "client:" + id }

func (c *CachedDirectory) Lookup(ctx context.Context, id string) (*Client, error) {
	if c.rdb == nil {
		return c.next.Lookup(ctx, id)
	}

	val, err := c.rdb.Get(ctx, cacheKey(id)).Result()
	switch {
	case err == nil:
		var cl Client
		if jerr := json.Unmarshal([]byte(val), &cl); jerr == nil {
			return &cl, nil
		}
	case !errors.Is(err, redis.Nil):
		c.warn(id, "redis get failed", err)
	}

	cl, err := c.next.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, jerr := json.Marshal(cl); jerr == nil {
		if serr := c.rdb.Set(ctx, cacheKey(id), b, c.ttl).Err(); serr != nil {
			c.warn(id, "redis set failed", serr)
		}
	}
	return cl, nil
}

func (c *CachedDirectory) warn(id, msg string, err error) {
	if c.log == nil {
		return
	}
	c.log.WithFields(logrus.Fields{
		"module":   "client",
		"funcName": "CachedDirectory.Lookup",
		"clientId": id,
	}).WithError(err).Warn(msg)
}
