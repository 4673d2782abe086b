// Package server exposes the coach over HTTP with fasthttp.
package server

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/service/coach"
)

// Coach is the part of coach.Service the HTTP layer needs.
type Coach interface {
	Play(ctx context.Context, req coach.MoveRequest) (*coach.MoveResult, error)
	State() coach.Snapshot
	Reset(ctx context.Context, color domain.Color) (*coach.ResetResult, error)
	Games(ctx context.Context, limit int) ([]*domain.ArchivedGame, error)
	Board(ctx context.Context) ([]byte, error)
}

type Config struct {
	CORSAllowOrigin string
	Catalog         *msgcat.Catalog
	// EngineStats feeds /healthz. Optional.
	EngineStats func() []uci.BucketStats
}

type Server struct {
	coach   Coach
	cfg     Config
	catalog *msgcat.Catalog
	logger  *zap.Logger
}

func New(c Coach, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.CORSAllowOrigin) == "" {
		cfg.CORSAllowOrigin = "*"
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	return &Server{coach: c, cfg: cfg, catalog: catalog, logger: logger}
}

// Handler routes requests; every response carries the CORS headers.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.setCORS(ctx)
		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		switch string(ctx.Path()) {
		case "/api/move", "/analyze_and_move":
			if !ctx.IsPost() {
				s.methodNotAllowed(ctx)
				return
			}
			s.handleMove(ctx)

		case "/api/state":
			if !ctx.IsGet() {
				s.methodNotAllowed(ctx)
				return
			}
			s.handleState(ctx)

		case "/api/reset":
			if !ctx.IsPost() {
				s.methodNotAllowed(ctx)
				return
			}
			s.handleReset(ctx)

		case "/api/games":
			if !ctx.IsGet() {
				s.methodNotAllowed(ctx)
				return
			}
			s.handleGames(ctx)

		case "/api/board.png":
			if !ctx.IsGet() {
				s.methodNotAllowed(ctx)
				return
			}
			s.handleBoard(ctx)

		case "/healthz":
			s.handleHealth(ctx)

		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

func (s *Server) setCORS(ctx *fasthttp.RequestCtx) {
	h := &ctx.Response.Header
	h.Set("Access-Control-Allow-Origin", s.cfg.CORSAllowOrigin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) methodNotAllowed(ctx *fasthttp.RequestCtx) {
	ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
}
