package chess

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/domain"
)

func newMiniCache(t *testing.T, ttl time.Duration) (*RedisSearchCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSearchCache(rdb, ttl), mr
}

func TestRedisSearchCacheMissAndHit(t *testing.T) {
	cache, mr := newMiniCache(t, time.Hour)
	ctx := context.Background()

	got, err := cache.Get(ctx, "absent")
	if err != nil || got != nil {
		t.Fatalf("miss = %+v, %v", got, err)
	}

	entry := &CachedSearch{
		BestMove:   "e2e4",
		Candidates: []uci.Candidate{{Move: "e2e4", Score: uci.Score{CP: 31, Scored: true}, Depth: 12}},
		StoredAt:   time.Now(),
	}
	if err := cache.Set(ctx, "k1", entry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = cache.Get(ctx, "k1")
	if err != nil || got == nil {
		t.Fatalf("Get: %+v, %v", got, err)
	}
	if got.BestMove != "e2e4" || len(got.Candidates) != 1 || got.Candidates[0].Score.CP != 31 {
		t.Fatalf("cached = %+v", got)
	}
	if ttl := mr.TTL("coach:search:v2:k1"); ttl != time.Hour {
		t.Fatalf("ttl = %s", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if got, _ := cache.Get(ctx, "k1"); got != nil {
		t.Fatalf("entry should have expired")
	}
}

func TestRedisSearchCacheCorruptEntry(t *testing.T) {
	cache, mr := newMiniCache(t, 0)
	if err := mr.Set("coach:search:v2:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := cache.Get(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSearchCacheKeyIgnoresClocks(t *testing.T) {
	p, _ := GetPreset(AnalysisPreset)
	a := searchCacheKey("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", p)
	b := searchCacheKey("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 3 9", p)
	if a != b {
		t.Fatalf("keys differ by move counters")
	}
	full, _ := GetPreset(FullPreset)
	if searchCacheKey("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", full) == a {
		t.Fatalf("keys must differ by preset")
	}
}

func TestEngineServesAnalysisFromCache(t *testing.T) {
	cache, _ := newMiniCache(t, time.Hour)
	e := newTestEngine(t, cache)
	ctx := context.Background()

	analysis, err := GetPreset(AnalysisPreset)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	start := domain.StartPosition()
	seeded := &CachedSearch{
		BestMove:   "g1f3",
		Candidates: []uci.Candidate{{Move: "g1f3", Score: uci.Score{CP: 777, Scored: true}}},
	}
	if err := cache.Set(ctx, searchCacheKey(start.FEN, analysis), seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := e.Evaluate(ctx, start, "e2e4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Before.CP != 777 || res.BestMove != "g1f3" {
		t.Fatalf("before = %+v best = %s, want cached search", res.Before, res.BestMove)
	}

	// The after-move search was stored for the next visit.
	hit, err := cache.Get(ctx, searchCacheKey(res.Position.FEN, analysis))
	if err != nil || hit == nil {
		t.Fatalf("after-move search not cached: %+v, %v", hit, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@cache.local:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "cache.local:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := ParseRedisURL("http://nope"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
