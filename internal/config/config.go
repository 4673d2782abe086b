package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr        string
	CORSAllowOrigin string

	StockfishPath         string
	PlayerColor           string
	ChessReplyPreset      string
	ChessAnalysisMoveTime int
	ChessEngineTimeout    time.Duration
	EnginePoolCapacity    int
	QualityBestCP         int
	QualityGoodCP         int
	QualityInaccuracyCP   int
	QualityMistakeCP      int

	OllamaEndpoint     string
	OllamaModel        string
	OllamaTimeout      time.Duration
	CommentaryDisabled bool
	MessagesFile       string

	RedisURL     string
	EvalCacheTTL time.Duration
	DatabaseURL  string
	HistoryLimit int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:              "127.0.0.1:8000",
		CORSAllowOrigin:       "*",
		PlayerColor:           "white",
		ChessReplyPreset:      "full",
		ChessAnalysisMoveTime: 100,
		ChessEngineTimeout:    10 * time.Second,
		QualityBestCP:         10,
		QualityGoodCP:         30,
		QualityInaccuracyCP:   100,
		QualityMistakeCP:      300,
		OllamaEndpoint:        "http://localhost:11434",
		OllamaModel:           "llama3",
		OllamaTimeout:         30 * time.Second,
		EvalCacheTTL:          24 * time.Hour,
		HistoryLimit:          50,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGIN")); v != "" {
		cfg.CORSAllowOrigin = v
	}

	// Engine
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("PLAYER_COLOR"))); v == "white" || v == "black" {
		cfg.PlayerColor = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_REPLY_PRESET")); v != "" {
		cfg.ChessReplyPreset = v
	}
	positiveInt("CHESS_ANALYSIS_MOVETIME_MS", &cfg.ChessAnalysisMoveTime)
	positiveDuration("CHESS_ENGINE_TIMEOUT", &cfg.ChessEngineTimeout)
	positiveInt("ENGINE_POOL_CAPACITY", &cfg.EnginePoolCapacity)

	// Classifier thresholds; 0 is a legal bound for "best".
	nonNegativeInt("QUALITY_BEST_CP", &cfg.QualityBestCP)
	nonNegativeInt("QUALITY_GOOD_CP", &cfg.QualityGoodCP)
	nonNegativeInt("QUALITY_INACCURACY_CP", &cfg.QualityInaccuracyCP)
	nonNegativeInt("QUALITY_MISTAKE_CP", &cfg.QualityMistakeCP)

	// Commentary
	if v := strings.TrimSpace(os.Getenv("OLLAMA_ENDPOINT")); v != "" {
		cfg.OllamaEndpoint = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_MODEL")); v != "" {
		cfg.OllamaModel = v
	}
	positiveDuration("OLLAMA_TIMEOUT", &cfg.OllamaTimeout)
	if v := strings.TrimSpace(os.Getenv("COMMENTARY_DISABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CommentaryDisabled = b
		}
	}
	cfg.MessagesFile = strings.TrimSpace(os.Getenv("MESSAGES_FILE"))

	// Storage
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	positiveDuration("EVAL_CACHE_TTL", &cfg.EvalCacheTTL)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	positiveInt("HISTORY_LIMIT", &cfg.HistoryLimit)

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	if !(cfg.QualityBestCP <= cfg.QualityGoodCP &&
		cfg.QualityGoodCP <= cfg.QualityInaccuracyCP &&
		cfg.QualityInaccuracyCP <= cfg.QualityMistakeCP) {
		return nil, errors.New("QUALITY_*_CP thresholds must be ascending")
	}

	return cfg, nil
}

func positiveInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func nonNegativeInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

// positiveDuration accepts "30s" style durations or plain seconds.
func positiveDuration(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
	}
}
