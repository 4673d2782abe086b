package chess

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/chess/uci/ucitest"
	"github.com/park285/chess-coach/internal/domain"
)

func TestMain(m *testing.M) {
	ucitest.MaybeRun()
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, cache SearchCache) *Engine {
	t.Helper()
	t.Setenv(ucitest.EnvEnable, "1")
	e, err := NewEngine(Config{BinaryPath: os.Args[0], PoolCapacity: 1, ReplyPreset: FullPreset, Cache: cache}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func mustPosition(t *testing.T, moves ...string) domain.Position {
	t.Helper()
	pos, err := PositionFromMoves(moves)
	if err != nil {
		t.Fatalf("PositionFromMoves(%v): %v", moves, err)
	}
	return pos
}

func TestEvaluateRejectsIllegalMove(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, mv := range []string{"e2e5", "zz", "Ke2", "e7e5"} {
		_, err := e.Evaluate(context.Background(), domain.StartPosition(), mv)
		if !errors.Is(err, domain.ErrIllegalMove) {
			t.Fatalf("Evaluate(%q) err = %v, want illegal move", mv, err)
		}
	}
}

func TestEvaluateAppliesMoveAndReply(t *testing.T) {
	t.Setenv(ucitest.EnvBestMove, "e7e5")
	e := newTestEngine(t, nil)

	res, err := e.Evaluate(context.Background(), domain.StartPosition(), "e4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Move.UCI != "e2e4" || res.Move.SAN != "e4" || res.Move.Piece != "pawn" {
		t.Fatalf("move = %+v", res.Move)
	}
	if res.Position.Ply() != 1 || res.Position.Turn != domain.Black {
		t.Fatalf("position after move = %+v", res.Position)
	}
	if res.Reply == nil || res.Reply.Move.UCI != "e7e5" {
		t.Fatalf("reply = %+v", res.Reply)
	}
	final := res.Final()
	if final.Ply() != 2 || final.Turn != domain.White {
		t.Fatalf("final = %+v", final)
	}
	if res.Phase != domain.PhaseOpening {
		t.Fatalf("phase = %s", res.Phase)
	}
}

func TestEvaluateReportsMoverPerspective(t *testing.T) {
	t.Setenv(ucitest.EnvWhiteCP, "-200")
	e := newTestEngine(t, nil)

	res, err := e.Evaluate(context.Background(), domain.StartPosition(), "d2d4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Before.CP != -200 || res.After.CP != -200 {
		t.Fatalf("before=%d after=%d, want -200 for white both times", res.Before.CP, res.After.CP)
	}

	// Same engine verdict, black moving: black is +200.
	res, err = e.Evaluate(context.Background(), mustPosition(t, "d2d4"), "d7d5")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Before.CP != 200 || res.After.CP != 200 {
		t.Fatalf("before=%d after=%d, want 200 for black", res.Before.CP, res.After.CP)
	}
}

func TestEvaluateMateScore(t *testing.T) {
	t.Setenv(ucitest.EnvMate, "3")
	e := newTestEngine(t, nil)

	res, err := e.Evaluate(context.Background(), domain.StartPosition(), "e2e4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Before.Mate || res.Before.MateIn != 3 || res.Before.CP != domain.MateScore-3 {
		t.Fatalf("before = %+v", res.Before)
	}
	// The opponent now "mates in 3" from its side.
	if !res.After.Mate || res.After.MateIn != -3 {
		t.Fatalf("after = %+v", res.After)
	}
}

func TestEvaluateWithoutScoreIsUnscored(t *testing.T) {
	t.Setenv(ucitest.EnvNoScore, "1")
	e := newTestEngine(t, nil)

	res, err := e.Evaluate(context.Background(), domain.StartPosition(), "e2e4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Before.Scored || res.After.Scored {
		t.Fatalf("before=%+v after=%+v, want unscored", res.Before, res.After)
	}
	if res.Reply == nil {
		t.Fatalf("reply should still be played")
	}
}

func TestEvalFromScore(t *testing.T) {
	if ev := evalFromScore(uci.Score{}); ev.Scored {
		t.Fatalf("empty score = %+v", ev)
	}
	if ev := evalFromScore(uci.Score{CP: 0, Scored: true}); !ev.Scored || ev.CP != 0 {
		t.Fatalf("cp 0 = %+v", ev)
	}
	if ev := evalFromScore(uci.Score{Mate: true, MateIn: 2, Scored: true}); !ev.Mate || ev.CP != domain.MateScore-2 {
		t.Fatalf("mate 2 = %+v", ev)
	}
}

func TestEvaluateCheckmateSkipsReply(t *testing.T) {
	e := newTestEngine(t, nil)
	pos := mustPosition(t, "f2f3", "e7e5", "g2g4")

	res, err := e.Evaluate(context.Background(), pos, "d8h4")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Reply != nil {
		t.Fatalf("unexpected reply after mate: %+v", res.Reply)
	}
	if res.Outcome.Result != "0-1" || res.Outcome.Method != "checkmate" {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if !res.After.Mate || res.After.CP != domain.MateScore {
		t.Fatalf("after = %+v", res.After)
	}

	if _, err := e.Evaluate(context.Background(), res.Position, "a2a3"); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("move after mate err = %v", err)
	}
}

func TestEvaluateTimesOutWhenEngineHangs(t *testing.T) {
	t.Setenv(ucitest.EnvHang, "1")
	e := newTestEngine(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := e.Evaluate(ctx, domain.StartPosition(), "e2e4")
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("err = %v, want engine unavailable", err)
	}
	if !errors.Is(err, domain.ErrEngineTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestNewEngineMissingBinary(t *testing.T) {
	if _, err := NewEngine(Config{BinaryPath: "/nonexistent/stockfish", PoolCapacity: 1}, nil); err == nil {
		t.Fatalf("expected binary check error")
	}
}

func TestReplyOpensAsWhite(t *testing.T) {
	t.Setenv(ucitest.EnvBestMove, "d2d4")
	e := newTestEngine(t, nil)

	reply, err := e.Reply(context.Background(), domain.StartPosition())
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Move.UCI != "d2d4" || reply.Position.Ply() != 1 || reply.Position.Turn != domain.Black {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestReplyCandidatePrefersBestMove(t *testing.T) {
	full, _ := GetPreset(FullPreset)
	top := uci.Score{CP: 35, Scored: true}

	got, err := replyCandidate(full, uci.SearchResponse{
		BestMove:   "d2d4",
		Candidates: []uci.Candidate{{Move: "e2e4", Score: top}},
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("replyCandidate: %v", err)
	}
	if got.Move != "d2d4" || got.Score != top {
		t.Fatalf("got %+v, want bestmove d2d4 scored by the top line", got)
	}

	got, _ = replyCandidate(full, uci.SearchResponse{
		BestMove:   "g1f3",
		Candidates: []uci.Candidate{{Move: "e2e4"}, {Move: "g1f3", Score: top}},
	}, nil)
	if got.Move != "g1f3" || got.Score != top {
		t.Fatalf("got %+v, want the g1f3 line", got)
	}

	weak, _ := GetPreset("level1")
	cands := []uci.Candidate{{Move: "e2e4"}, {Move: "d2d4"}, {Move: "c2c4"}}
	got, _ = replyCandidate(weak, uci.SearchResponse{BestMove: "e2e4", Candidates: cands}, rand.New(rand.NewSource(5)))
	if got.Move != "e2e4" && got.Move != "d2d4" && got.Move != "c2c4" {
		t.Fatalf("weak preset picked %s", got.Move)
	}
}

func TestNewEngineRejectsUnknownPreset(t *testing.T) {
	if _, err := NewEngine(Config{BinaryPath: os.Args[0], ReplyPreset: "level99"}, nil); err == nil {
		t.Fatalf("expected preset error")
	}
}

func TestSearchBudgetCoversThreeSearches(t *testing.T) {
	e := newTestEngine(t, nil)
	analysis, _ := GetPreset(AnalysisPreset)
	full, _ := GetPreset(FullPreset)
	want := 2*SearchBudget(analysis) + SearchBudget(full)
	if got := e.SearchBudget(); got != want {
		t.Fatalf("SearchBudget = %s, want %s", got, want)
	}
}
