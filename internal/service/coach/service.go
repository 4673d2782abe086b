// Package coach turns a submitted move into graded feedback and an engine reply.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/archive"
	corechess "github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/render"
)

const (
	defaultEngineTimeout = 10 * time.Second
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 200
	archiveTimeout       = 5 * time.Second
)

// Evaluator is the engine side: legality, before/after evaluation and the reply.
type Evaluator interface {
	Evaluate(ctx context.Context, pos domain.Position, move string) (domain.MoveEvaluation, error)
	Reply(ctx context.Context, pos domain.Position) (*domain.Reply, error)
}

// Commentator phrases a comment. It must always return text.
type Commentator interface {
	Comment(ctx context.Context, label domain.QualityLabel, c domain.CommentContext) domain.Commentary
}

type Config struct {
	Thresholds    Thresholds
	EngineTimeout time.Duration
	ReplyPreset   string
	HistoryLimit  int
}

type Service struct {
	// mu serializes moves and resets.
	mu sync.Mutex

	engine      Evaluator
	commentator Commentator
	repo        archive.Repository
	renderer    render.BoardRenderer
	session     *Session
	cfg         Config
	logger      *zap.Logger
}

type MoveRequest struct {
	Move string
	// ExpectedFEN is the position the caller believes is current. Optional.
	ExpectedFEN string
}

type MoveResult struct {
	Record     domain.MoveRecord
	Label      domain.QualityLabel
	Commentary domain.Commentary
	Evaluation domain.MoveEvaluation
	State      Snapshot
	ArchivedID string
}

type ResetResult struct {
	State      Snapshot
	Reply      *domain.Reply
	ArchivedID string
}

func NewService(engine Evaluator, commentator Commentator, repo archive.Repository, renderer render.BoardRenderer, session *Session, cfg Config, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("chess engine evaluator is required")
	}
	if commentator == nil {
		return nil, fmt.Errorf("commentator is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if repo == nil {
		repo = archive.NewMemoryRepository()
	}
	if renderer == nil {
		renderer = render.NewPNGRenderer()
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if !cfg.Thresholds.Valid() {
		return nil, fmt.Errorf("quality thresholds must be ascending: %+v", cfg.Thresholds)
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = defaultEngineTimeout
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:      engine,
		commentator: commentator,
		repo:        repo,
		renderer:    renderer,
		session:     session,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Play validates and grades one player move, applies the engine reply and
// records the result. On any error the session is left untouched.
func (s *Service) Play(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	moveText := strings.TrimSpace(req.Move)
	if moveText == "" {
		return nil, fmt.Errorf("%w: empty move", domain.ErrIllegalMove)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.session.Snapshot()
	if snap.Outcome.Finished() {
		return nil, domain.ErrGameOver
	}
	if snap.Position.Turn != snap.PlayerColor {
		return nil, domain.ErrNotPlayerTurn
	}
	if expected := strings.TrimSpace(req.ExpectedFEN); expected != "" && !sameFEN(expected, snap.Position.FEN) {
		return nil, domain.ErrStalePosition
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineTimeout)
	defer cancel()

	eval, err := s.engine.Evaluate(evalCtx, snap.Position, moveText)
	if err != nil {
		logFn := s.logger.Warn
		if errors.Is(err, domain.ErrIllegalMove) {
			logFn = s.logger.Info
		}
		logFn("move rejected",
			zap.String("session_id", snap.ID),
			zap.String("move", moveText),
			zap.Int("ply", snap.Position.Ply()),
			zap.Duration("timeout", s.cfg.EngineTimeout),
			zap.Error(err))
		return nil, err
	}

	label := Classify(eval.Before, eval.After, s.cfg.Thresholds)
	change := EvalChange(eval.Before, eval.After)

	outcome := eval.Outcome
	if eval.Reply != nil {
		outcome = eval.Reply.Outcome
	}
	commentary := s.commentator.Comment(ctx, label, domain.CommentContext{
		Move:       eval.Move,
		Phase:      eval.Phase,
		EvalChange: change,
		Opening:    eval.Opening,
		Outcome:    outcome,
	})

	record := domain.MoveRecord{
		Ply:         snap.Position.Ply() + 1,
		Move:        eval.Move.UCI,
		SAN:         eval.Move.SAN,
		Piece:       eval.Move.Piece,
		Phase:       eval.Phase,
		Quality:     label,
		EvalChange:  change,
		Explanation: commentary.Text,
		PlayedAt:    time.Now(),
	}
	if eval.Reply != nil {
		record.Reply = eval.Reply.Move.UCI
	}

	if err := s.session.Replace(snap.Version, eval.Final(), outcome, &record); err != nil {
		return nil, err
	}
	state := s.session.Snapshot()

	s.logger.Info("move graded",
		zap.String("session_id", state.ID),
		zap.String("move", record.SAN),
		zap.String("quality", string(label)),
		zap.Int("eval_change", change),
		zap.String("reply", record.Reply),
		zap.String("commentary_source", string(commentary.Source)),
		zap.Duration("engine_time", eval.EngineTime))

	result := &MoveResult{
		Record:     record,
		Label:      label,
		Commentary: commentary,
		Evaluation: eval,
		State:      state,
	}
	if outcome.Finished() {
		result.ArchivedID = s.archiveGame(ctx, state)
		result.State = s.session.Snapshot()
	}
	return result, nil
}

// State returns the current session.
func (s *Service) State() Snapshot {
	return s.session.Snapshot()
}

// Reset archives the current game if it has moves, then starts over with the
// player on color. When the player is black the engine opens; if it cannot,
// the current game is left as it was.
func (s *Service) Reset(ctx context.Context, color domain.Color) (*ResetResult, error) {
	if color != domain.White && color != domain.Black {
		color = domain.White
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.session.Snapshot()
	start := domain.StartPosition()

	result := &ResetResult{}
	if color == domain.Black {
		replyCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineTimeout)
		defer cancel()
		reply, err := s.engine.Reply(replyCtx, start)
		if err != nil {
			s.logger.Warn("opening reply failed", zap.String("session_id", prev.ID), zap.Error(err))
			return nil, err
		}
		start = reply.Position
		result.Reply = reply
	}

	if prev.Position.Ply() > 0 {
		result.ArchivedID = s.archiveGame(ctx, prev)
	}
	result.State = s.session.Reset(color, start)
	s.logger.Info("session reset",
		zap.String("session_id", result.State.ID),
		zap.String("color", string(color)),
		zap.Int("ply", result.State.Position.Ply()))
	return result, nil
}

// Games lists archived games, latest first.
func (s *Service) Games(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	games, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveUnavailable, err)
	}
	return games, nil
}

// Board renders the current position from the player's side, marking the
// last player move and the engine reply.
func (s *Service) Board(ctx context.Context) ([]byte, error) {
	snap := s.session.Snapshot()
	opts := render.Options{
		Flip:   snap.PlayerColor == domain.Black,
		Header: boardHeader(snap),
	}
	if n := len(snap.History); n > 0 {
		last := snap.History[n-1]
		opts.PlayerMove = highlightOf(last.Move)
		opts.ReplyMove = highlightOf(last.Reply)
		opts.Footer = last.Explanation
	}
	return s.renderer.RenderPNG(ctx, snap.Position.FEN, opts)
}

func (s *Service) archiveGame(ctx context.Context, snap Snapshot) string {
	if !s.session.MarkArchived(snap.ID) {
		return ""
	}
	san, pgn, err := corechess.SANMoves(snap.Position)
	if err != nil {
		s.logger.Warn("archive skipped", zap.String("session_id", snap.ID), zap.Error(err))
		return ""
	}
	result, method := snap.Outcome.Result, snap.Outcome.Method
	if !snap.Outcome.Finished() {
		result, method = "*", "abandoned"
	}
	labels := make(map[domain.QualityLabel]int)
	for _, rec := range snap.History {
		labels[rec.Quality]++
	}
	game := &domain.ArchivedGame{
		ID:           uuid.NewString(),
		SessionID:    snap.ID,
		PlayerColor:  snap.PlayerColor,
		ReplyPreset:  s.cfg.ReplyPreset,
		Result:       result,
		ResultMethod: method,
		MovesUCI:     append([]string(nil), snap.Position.Moves...),
		MovesSAN:     san,
		PGN:          pgn,
		Labels:       labels,
		StartedAt:    snap.StartedAt,
		EndedAt:      time.Now(),
	}

	// A cancelled request still archives a finished game.
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.repo.Insert(archiveCtx, game); err != nil {
		s.logger.Warn("archive insert failed", zap.String("session_id", snap.ID), zap.Error(err))
		return ""
	}
	s.logger.Info("game archived",
		zap.String("game_id", game.ID),
		zap.String("session_id", snap.ID),
		zap.String("result", result),
		zap.Int("plies", len(game.MovesUCI)))
	return game.ID
}

// sameFEN compares placement, side to move and castling rights. En passant
// and the clocks differ between FEN writers.
func sameFEN(a, b string) bool {
	fa, fb := strings.Fields(a), strings.Fields(b)
	if len(fa) < 3 || len(fb) < 3 {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	for i := 0; i < 3; i++ {
		if fa[i] != fb[i] {
			return false
		}
	}
	return true
}

func highlightOf(uciMove string) *render.Highlight {
	if len(uciMove) < 4 {
		return nil
	}
	return &render.Highlight{From: uciMove[0:2], To: uciMove[2:4]}
}

func boardHeader(snap Snapshot) string {
	switch {
	case snap.Outcome.Finished():
		return fmt.Sprintf("Game over: %s (%s)", snap.Outcome.Result, snap.Outcome.Method)
	case snap.PlayerToMove():
		return fmt.Sprintf("Move %d - %s to play", snap.Position.Ply()/2+1, snap.PlayerColor)
	default:
		return fmt.Sprintf("Move %d - engine to play", snap.Position.Ply()/2+1)
	}
}
