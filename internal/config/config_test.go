package config

import (
	"testing"
	"time"
)

var allKeys = []string{
	"HTTP_ADDR", "CORS_ALLOW_ORIGIN", "STOCKFISH_PATH", "PLAYER_COLOR", "CHESS_REPLY_PRESET",
	"CHESS_ANALYSIS_MOVETIME_MS", "CHESS_ENGINE_TIMEOUT", "ENGINE_POOL_CAPACITY",
	"QUALITY_BEST_CP", "QUALITY_GOOD_CP", "QUALITY_INACCURACY_CP", "QUALITY_MISTAKE_CP",
	"OLLAMA_ENDPOINT", "OLLAMA_MODEL", "OLLAMA_TIMEOUT", "COMMENTARY_DISABLED", "MESSAGES_FILE",
	"REDIS_URL", "EVAL_CACHE_TTL", "DATABASE_URL", "HISTORY_LIMIT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresStockfish(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without STOCKFISH_PATH")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFISH_PATH", "/usr/bin/stockfish")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:8000" || cfg.CORSAllowOrigin != "*" {
		t.Fatalf("unexpected http defaults: %+v", cfg)
	}
	if cfg.PlayerColor != "white" || cfg.ChessReplyPreset != "full" || cfg.ChessAnalysisMoveTime != 100 {
		t.Fatalf("unexpected engine defaults: %+v", cfg)
	}
	if cfg.QualityBestCP != 10 || cfg.QualityGoodCP != 30 || cfg.QualityInaccuracyCP != 100 || cfg.QualityMistakeCP != 300 {
		t.Fatalf("unexpected thresholds: %+v", cfg)
	}
	if cfg.OllamaEndpoint != "http://localhost:11434" || cfg.OllamaModel != "llama3" || cfg.OllamaTimeout != 30*time.Second {
		t.Fatalf("unexpected ollama defaults: %+v", cfg)
	}
	if cfg.EvalCacheTTL != 24*time.Hour || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFISH_PATH", "stockfish")
	t.Setenv("PLAYER_COLOR", "Black")
	t.Setenv("CHESS_ENGINE_TIMEOUT", "5")
	t.Setenv("OLLAMA_TIMEOUT", "2s")
	t.Setenv("OLLAMA_ENDPOINT", "http://ollama:11434/")
	t.Setenv("QUALITY_BEST_CP", "0")
	t.Setenv("COMMENTARY_DISABLED", "true")
	t.Setenv("HISTORY_LIMIT", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayerColor != "black" {
		t.Fatalf("player color = %q", cfg.PlayerColor)
	}
	if cfg.ChessEngineTimeout != 5*time.Second || cfg.OllamaTimeout != 2*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.ChessEngineTimeout, cfg.OllamaTimeout)
	}
	if cfg.OllamaEndpoint != "http://ollama:11434" {
		t.Fatalf("endpoint = %q", cfg.OllamaEndpoint)
	}
	if cfg.QualityBestCP != 0 || !cfg.CommentaryDisabled || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadRejectsDescendingThresholds(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFISH_PATH", "stockfish")
	t.Setenv("QUALITY_GOOD_CP", "500")
	if _, err := Load(); err == nil {
		t.Fatal("expected threshold error")
	}
}
