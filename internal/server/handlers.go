package server

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/service/coach"
	"github.com/park285/chess-coach/pkg/coachdto"
)

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req coachdto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", false)
		return
	}
	if strings.TrimSpace(req.MoveText()) == "" {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", false)
		return
	}

	res, err := s.coach.Play(ctx, coach.MoveRequest{Move: req.MoveText(), ExpectedFEN: req.FEN})
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, moveResponse(res))
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, stateResponse(s.coach.State()))
}

func (s *Server) handleReset(ctx *fasthttp.RequestCtx) {
	var req coachdto.ResetRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", false)
			return
		}
	}
	color := domain.White
	if raw := strings.ToLower(strings.TrimSpace(req.Color)); raw != "" {
		parsed, ok := domain.ParseColor(raw)
		if !ok {
			s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", false)
			return
		}
		color = parsed
	}

	res, err := s.coach.Reset(ctx, color)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	out := coachdto.ResetResponse{State: stateResponse(res.State), ArchivedGameID: res.ArchivedID}
	if res.Reply != nil {
		out.AIMove = res.Reply.Move.UCI
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleGames(ctx *fasthttp.RequestCtx) {
	limit := ctx.QueryArgs().GetUintOrZero("limit")
	games, err := s.coach.Games(ctx, limit)
	if err != nil {
		s.writeDomainError(ctx, err)
		return
	}
	out := coachdto.GamesResponse{Games: make([]coachdto.ArchivedGame, 0, len(games))}
	for _, g := range games {
		out.Games = append(out.Games, archivedGame(g))
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	data, err := s.coach.Board(ctx)
	if err != nil {
		s.logger.Warn("board render failed", zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "internal", false)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetContentType("image/png")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(data)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	out := coachdto.HealthResponse{Status: "ok"}
	if s.cfg.EngineStats != nil {
		for _, b := range s.cfg.EngineStats() {
			out.Engines = append(out.Engines, coachdto.EngineStats{Options: b.Key, Total: b.Total, Idle: b.Idle})
		}
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

type errorMapping struct {
	status    int
	code      string
	retryable bool
}

// errorTable is checked in order; ErrEngineTimeout wraps ErrEngineUnavailable.
var errorTable = []struct {
	target error
	errorMapping
}{
	{domain.ErrIllegalMove, errorMapping{fasthttp.StatusUnprocessableEntity, "illegal_move", false}},
	{domain.ErrNotPlayerTurn, errorMapping{fasthttp.StatusConflict, "not_player_turn", false}},
	{domain.ErrStalePosition, errorMapping{fasthttp.StatusConflict, "stale_position", false}},
	{domain.ErrGameOver, errorMapping{fasthttp.StatusConflict, "game_over", false}},
	{domain.ErrConcurrentUpdate, errorMapping{fasthttp.StatusConflict, "concurrent_update", true}},
	{domain.ErrEngineUnavailable, errorMapping{fasthttp.StatusServiceUnavailable, "engine_unavailable", true}},
	{domain.ErrArchiveUnavailable, errorMapping{fasthttp.StatusServiceUnavailable, "archive_unavailable", true}},
}

func mapError(err error) errorMapping {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.errorMapping
		}
	}
	return errorMapping{fasthttp.StatusInternalServerError, "internal", false}
}

func (s *Server) writeDomainError(ctx *fasthttp.RequestCtx, err error) {
	m := mapError(err)
	if m.status >= 500 {
		s.logger.Warn("request failed",
			zap.ByteString("path", ctx.Path()),
			zap.String("code", m.code),
			zap.Error(err))
	}
	s.writeError(ctx, m.status, m.code, m.retryable)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code string, retryable bool) {
	msg, err := s.catalog.Render("http."+code, nil)
	if err != nil || strings.TrimSpace(msg) == "" {
		msg = code
	}
	writeJSON(ctx, status, coachdto.DomainError{Code: code, Message: msg, Retryable: retryable})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
