package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/domain"
)

type Config struct {
	BinaryPath   string
	PoolCapacity int
	// AnalysisPreset grades moves; ReplyPreset chooses the engine's answer.
	AnalysisPreset string
	ReplyPreset    string
	Cache          SearchCache
}

// Engine is the adapter between the coach and a pool of UCI processes.
type Engine struct {
	pool     *uci.Pool
	cache    SearchCache
	analysis string
	reply    string
	book     *opening.BookECO
	logger   *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

var errNoCandidates = errors.New("engine returned no candidates")

func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	analysis := strings.TrimSpace(cfg.AnalysisPreset)
	if analysis == "" {
		analysis = AnalysisPreset
	}
	reply := normalizePresetName(cfg.ReplyPreset)
	for _, name := range []string{analysis, reply} {
		p, err := GetPreset(name)
		if err != nil {
			return nil, err
		}
		if err := ValidatePreset(p); err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
	}

	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.BinaryPath, PerOptionsCapacity: cfg.PoolCapacity})
	if err != nil {
		return nil, err
	}
	return &Engine{
		pool:     pool,
		cache:    cfg.Cache,
		analysis: analysis,
		reply:    reply,
		book:     opening.NewBookECO(),
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Evaluate checks move against pos, grades it with the analysis preset and
// lets the reply preset answer. Nothing is returned unless every step worked.
func (e *Engine) Evaluate(ctx context.Context, pos domain.Position, moveText string) (domain.MoveEvaluation, error) {
	start := time.Now()

	game, err := ReplayMoves(pos.Moves)
	if err != nil {
		return domain.MoveEvaluation{}, fmt.Errorf("replay position: %w", err)
	}
	if game.Outcome() != nchess.NoOutcome {
		return domain.MoveEvaluation{}, domain.ErrGameOver
	}

	before := game.Position()
	move, err := DecodeMove(before, moveText)
	if err != nil {
		return domain.MoveEvaluation{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, strings.TrimSpace(moveText))
	}
	info := describeMove(before, move)
	if err := game.Move(move, nil); err != nil {
		return domain.MoveEvaluation{}, fmt.Errorf("%w: %s", domain.ErrIllegalMove, strings.TrimSpace(moveText))
	}
	phase := PhaseOf(game.Position().Board())
	afterMoves := append(append([]string{}, pos.Moves...), info.UCI)

	analysis, err := GetPreset(e.analysis)
	if err != nil {
		return domain.MoveEvaluation{}, err
	}

	beforeResp, err := e.search(ctx, analysis, pos.Moves, pos.FEN, true)
	if err != nil {
		return domain.MoveEvaluation{}, err
	}
	beforeBest, _ := beforeResp.Best()

	result := domain.MoveEvaluation{
		Move:     info,
		Before:   evalFromScore(beforeBest.Score),
		BestMove: beforeResp.BestMove,
		Position: positionFromGame(game, afterMoves),
		Outcome:  outcomeOf(game),
		Phase:    phase,
		Opening:  e.openingOf(game),
	}

	if result.Outcome.Finished() {
		result.After = terminalEval(game)
		result.EngineTime = time.Since(start)
		return result, nil
	}

	afterResp, err := e.search(ctx, analysis, afterMoves, result.Position.FEN, true)
	if err != nil {
		return domain.MoveEvaluation{}, err
	}
	afterBest, _ := afterResp.Best()
	result.After = evalFromScore(afterBest.Score).Negate()

	reply, err := e.replyTo(ctx, game, afterMoves)
	if err != nil {
		return domain.MoveEvaluation{}, err
	}
	result.Reply = reply
	result.EngineTime = time.Since(start)

	e.logger.Debug("engine_evaluate",
		zap.String("move", info.UCI),
		zap.String("best", result.BestMove),
		zap.Int("before_cp", result.Before.CP),
		zap.Int("after_cp", result.After.CP),
		zap.String("reply", reply.Move.UCI),
		zap.Duration("elapsed", result.EngineTime))
	return result, nil
}

// Reply asks the engine to move in pos, where the engine is the side to move.
func (e *Engine) Reply(ctx context.Context, pos domain.Position) (*domain.Reply, error) {
	game, err := ReplayMoves(pos.Moves)
	if err != nil {
		return nil, fmt.Errorf("replay position: %w", err)
	}
	if game.Outcome() != nchess.NoOutcome {
		return nil, domain.ErrGameOver
	}
	return e.replyTo(ctx, game, pos.Moves)
}

func (e *Engine) replyTo(ctx context.Context, game *nchess.Game, moves []string) (*domain.Reply, error) {
	preset, err := GetPreset(e.reply)
	if err != nil {
		return nil, err
	}
	resp, err := e.search(ctx, preset, moves, game.FEN(), false)
	if err != nil {
		return nil, err
	}

	chosen, err := replyCandidate(preset, resp, e.random())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	pos := game.Position()
	move, err := nchess.UCINotation{}.Decode(pos, chosen.Move)
	if err != nil {
		return nil, fmt.Errorf("%w: decode engine move %s: %v", domain.ErrEngineUnavailable, chosen.Move, err)
	}
	info := describeMove(pos, move)
	if err := game.Move(move, nil); err != nil {
		return nil, fmt.Errorf("%w: apply engine move %s: %v", domain.ErrEngineUnavailable, chosen.Move, err)
	}
	replyMoves := append(append([]string{}, moves...), info.UCI)

	reply := &domain.Reply{
		Move:       info,
		Position:   positionFromGame(game, replyMoves),
		Evaluation: evalFromScore(chosen.Score).Negate(),
		Outcome:    outcomeOf(game),
	}
	if reply.Outcome.Finished() {
		reply.Evaluation = terminalEval(game).Negate()
	}
	return reply, nil
}

// replyCandidate plays the engine's bestmove at full strength and lets the
// weighted choice decide for weaker presets.
func replyCandidate(preset DifficultyPreset, resp uci.SearchResponse, r *rand.Rand) (uci.Candidate, error) {
	if preset.PrimaryChoices > 1 || resp.BestMove == "" {
		return SelectCandidate(preset, resp.Candidates, r)
	}
	if best, ok := resp.Best(); ok && best.Move == resp.BestMove {
		return best, nil
	}
	// bestmove without its own info line; the top line still scores the position
	chosen := uci.Candidate{Move: resp.BestMove}
	if len(resp.Candidates) > 0 {
		chosen.Score = resp.Candidates[0].Score
	}
	return chosen, nil
}

func (e *Engine) search(ctx context.Context, preset DifficultyPreset, moves []string, fen string, cacheable bool) (uci.SearchResponse, error) {
	var key string
	if cacheable && e.cache != nil {
		key = searchCacheKey(fen, preset)
		hit, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn("search cache read failed", zap.Error(err))
		} else if hit != nil && len(hit.Candidates) > 0 {
			return uci.SearchResponse{BestMove: hit.BestMove, Candidates: hit.Candidates}, nil
		}
	}

	goTokens, err := BuildGoCommand(preset)
	if err != nil {
		return uci.SearchResponse{}, err
	}

	session, err := e.pool.Acquire(ctx, optionsFromPreset(preset))
	if err != nil {
		e.logger.Warn("engine acquire failed", zap.String("preset", preset.Name), zap.Error(err))
		return uci.SearchResponse{}, mapEngineError(err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:         "startpos",
		Moves:       moves,
		Limits:      limitsFromPreset(preset),
		GoOverrides: goTokens,
	})
	if err != nil {
		releaseErr = err
		e.logger.Warn("engine search failed",
			zap.String("preset", preset.Name),
			zap.Int("ply", len(moves)),
			zap.Error(err))
		return uci.SearchResponse{}, mapEngineError(err)
	}
	if len(resp.Candidates) == 0 {
		return uci.SearchResponse{}, mapEngineError(errNoCandidates)
	}

	if key != "" {
		entry := &CachedSearch{BestMove: resp.BestMove, Candidates: resp.Candidates, StoredAt: time.Now()}
		if err := e.cache.Set(ctx, key, entry); err != nil {
			e.logger.Warn("search cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

func (e *Engine) openingOf(game *nchess.Game) *domain.Opening {
	if e.book == nil {
		return nil
	}
	if eco := e.book.Find(game.Moves()); eco != nil {
		return &domain.Opening{ECO: eco.Code(), Name: eco.Title()}
	}
	return nil
}

// mapEngineError folds transport failures into the domain taxonomy.
func mapEngineError(err error) error {
	if err == nil {
		return domain.ErrEngineUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrEngineTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
}

// SearchBudget returns the time one Evaluate call needs: two analysis
// searches and one reply search.
func (e *Engine) SearchBudget() time.Duration {
	analysis, err := GetPreset(e.analysis)
	if err != nil {
		return 3 * searchBudgetFallback
	}
	reply, err := GetPreset(e.reply)
	if err != nil {
		return 3 * searchBudgetFallback
	}
	return 2*SearchBudget(analysis) + SearchBudget(reply)
}

func (e *Engine) ReplyPreset() string { return e.reply }

func (e *Engine) Stats() []uci.BucketStats {
	return e.pool.Stats()
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}
