package coachbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/archive"
	corechess "github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/commentary"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/render"
	"github.com/park285/chess-coach/internal/service/coach"
)

const redisPingTimeout = 3 * time.Second

type Deps struct {
	Service *coach.Service
	Engine  *corechess.Engine
	Catalog *msgcat.Catalog
	Repo    archive.Repository
	Redis   *redis.Client

	// EngineTimeout is the per-move engine budget actually in use.
	EngineTimeout time.Duration
}

// New wires the engine, optional Redis cache, archive, commentary and the
// coach service from cfg. Redis and Postgres are optional.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
	}

	if err := corechess.SetPresetMoveTime(corechess.AnalysisPreset, cfg.ChessAnalysisMoveTime); err != nil {
		return nil, fmt.Errorf("analysis move time: %w", err)
	}

	deps := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = deps.Close()
		}
	}()

	// Cache (Redis optional)
	var cache corechess.SearchCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := corechess.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = rdb
		cache = corechess.NewRedisSearchCache(rdb, cfg.EvalCacheTTL)
		logger.Info("search cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.EvalCacheTTL))
	}

	engine, err := corechess.NewEngine(corechess.Config{
		BinaryPath:   cfg.StockfishPath,
		PoolCapacity: cfg.EnginePoolCapacity,
		ReplyPreset:  cfg.ChessReplyPreset,
		Cache:        cache,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	deps.Engine = engine

	// Repository (Postgres optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.Repo = repo
	} else {
		deps.Repo = archive.NewMemoryRepository()
	}

	catalog, err := msgcat.New(cfg.MessagesFile)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Catalog = catalog

	var model commentary.Model
	if !cfg.CommentaryDisabled {
		model = commentary.NewOllamaClient(cfg.OllamaEndpoint, cfg.OllamaModel, commentary.WithTimeout(cfg.OllamaTimeout))
	}
	generator := commentary.NewGenerator(model, catalog, cfg.OllamaTimeout, logger)

	color, valid := domain.ParseColor(cfg.PlayerColor)
	if !valid {
		color = domain.White
	}

	// One Evaluate runs three searches; never time out below that.
	timeout := cfg.ChessEngineTimeout
	if budget := engine.SearchBudget(); timeout < budget {
		timeout = budget
	}
	deps.EngineTimeout = timeout

	service, err := coach.NewService(engine, generator, deps.Repo, render.NewPNGRenderer(), coach.NewSession(color), coach.Config{
		Thresholds: coach.Thresholds{
			Best:       cfg.QualityBestCP,
			Good:       cfg.QualityGoodCP,
			Inaccuracy: cfg.QualityInaccuracyCP,
			Mistake:    cfg.QualityMistakeCP,
		},
		EngineTimeout: timeout,
		ReplyPreset:   engine.ReplyPreset(),
		HistoryLimit:  cfg.HistoryLimit,
	}, logger)
	if err != nil {
		return nil, err
	}
	deps.Service = service

	if color == domain.Black {
		if _, err := service.Reset(ctx, color); err != nil {
			return nil, fmt.Errorf("engine opening move: %w", err)
		}
	}

	logger.Info("coach ready",
		zap.String("player_color", string(color)),
		zap.String("reply_preset", engine.ReplyPreset()),
		zap.Duration("engine_timeout", timeout),
		zap.Bool("commentary", model != nil),
		zap.Bool("postgres", strings.TrimSpace(cfg.DatabaseURL) != ""),
		zap.Bool("redis", deps.Redis != nil))

	ok = true
	return deps, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}
