package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/unicode/norm"
)

// RedisCache caches recommendation answers. Every operation gets a short
// timeout; failures bypass the cache and are warned about once.
type RedisCache struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	shortTO time.Duration
	log     *log.Logger

	warnOnce sync.Once
}

// NewRedisCache returns nil when rdb is nil. A nil *RedisCache is a valid,
// always-missing cache.
func NewRedisCache(rdb *redis.Client, ttl time.Duration, l *log.Logger) *RedisCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if l == nil {
		l = log.Default()
	}
	return &RedisCache{rdb: rdb, prefix: "rec:v1:", ttl: ttl, shortTO: 150 * time.Millisecond, log: l}
}

// cacheKey folds width and case so "Ｇｏ 入門" and "go 入門" share an entry.
func cacheKey(prefix, query string) string {
	q := strings.ToLower(norm.NFKC.String(strings.TrimSpace(query)))
	q = strings.Join(strings.Fields(q), " ")
	sum := sha256.Sum256([]byte(q))
	return prefix + hex.EncodeToString(sum[:16])
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]Recommendation, bool) {
	if c == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.shortTO)
	defer cancel()

	b, err := c.rdb.Get(ctx, cacheKey(c.prefix, query)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.warn("get failed: %v; bypassing cache", err)
		return nil, false
	}
	var recs []Recommendation
	if err := json.Unmarshal(b, &recs); err != nil {
		c.warn("corrupt entry: %v", err)
		return nil, false
	}
	return recs, true
}

func (c *RedisCache) Put(ctx context.Context, query string, recs []Recommendation) {
	if c == nil {
		return
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.shortTO)
	defer cancel()
	if err := c.rdb.SetEx(ctx, cacheKey(c.prefix, query), b, c.ttl).Err(); err != nil {
		c.warn("set failed: %v (muted next)", err)
	}
}

func (c *RedisCache) warn(format string, args ...any) {
	c.warnOnce.Do(func() {
		c.log.Printf("[cache] "+format, args...)
	})
}
