package chess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-coach/internal/chess/uci"
)

// SearchCache stores finished analysis searches. Get returns nil on a miss.
type SearchCache interface {
	Get(ctx context.Context, key string) (*CachedSearch, error)
	Set(ctx context.Context, key string, v *CachedSearch) error
}

type CachedSearch struct {
	BestMove   string          `json:"best_move"`
	Candidates []uci.Candidate `json:"candidates"`
	StoredAt   time.Time       `json:"stored_at"`
}

const defaultSearchCacheTTL = 24 * time.Hour

type RedisSearchCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisSearchCache(rdb *redis.Client, ttl time.Duration) *RedisSearchCache {
	if ttl <= 0 {
		ttl = defaultSearchCacheTTL
	}
	return &RedisSearchCache{rdb: rdb, ttl: ttl, prefix: "coach:search:v2:"}
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (*CachedSearch, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v CachedSearch
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached search: %w", err)
	}
	return &v, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, v *CachedSearch) error {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

// searchCacheKey ignores the move counters so transpositions share entries.
func searchCacheKey(fen string, p DifficultyPreset) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	raw := fmt.Sprintf("%s|%s|skill=%d|d=%d|mt=%d|n=%d|pv=%d",
		strings.Join(fields, " "), p.Name, p.SkillLevel, p.DepthCap, p.MoveTimeMillis, p.NodeCap, p.MultiPV)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
