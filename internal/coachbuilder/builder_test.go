package coachbuilder

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/park285/chess-coach/internal/chess/uci/ucitest"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/service/coach"
)

func TestMain(m *testing.M) {
	ucitest.MaybeRun()
	os.Exit(m.Run())
}

func testConfig(t *testing.T, color string) *config.AppConfig {
	t.Helper()
	t.Setenv(ucitest.EnvEnable, "1")
	return &config.AppConfig{
		StockfishPath:         os.Args[0],
		PlayerColor:           color,
		ChessReplyPreset:      "full",
		ChessAnalysisMoveTime: 10,
		ChessEngineTimeout:    10 * time.Second,
		EnginePoolCapacity:    1,
		QualityBestCP:         10,
		QualityGoodCP:         30,
		QualityInaccuracyCP:   100,
		QualityMistakeCP:      300,
		OllamaTimeout:         time.Second,
		CommentaryDisabled:    true,
		HistoryLimit:          10,
	}
}

func TestNewRequiresStockfish(t *testing.T) {
	if _, err := New(context.Background(), &config.AppConfig{}, nil); err == nil {
		t.Fatalf("expected error without STOCKFISH_PATH")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewPlaysMoveEndToEnd(t *testing.T) {
	deps, err := New(context.Background(), testConfig(t, "white"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	res, err := deps.Service.Play(context.Background(), coach.MoveRequest{Move: "e2e4"})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Record.SAN != "e4" {
		t.Fatalf("san = %q", res.Record.SAN)
	}
	// The fake engine scores every position alike, so the move loses nothing.
	if res.Label != domain.LabelBest {
		t.Fatalf("label = %s", res.Label)
	}
	if res.Commentary.Source != domain.CommentaryFromFallback || res.Commentary.Text == "" {
		t.Fatalf("commentary = %+v", res.Commentary)
	}
	if got := res.State.Position.Ply(); got != 2 {
		t.Fatalf("ply = %d, want 2", got)
	}
	if res.State.Position.Turn != domain.White {
		t.Fatalf("turn = %s", res.State.Position.Turn)
	}
}

func TestNewAsBlackLetsEngineOpen(t *testing.T) {
	deps, err := New(context.Background(), testConfig(t, "black"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	state := deps.Service.State()
	if state.PlayerColor != domain.Black {
		t.Fatalf("player color = %s", state.PlayerColor)
	}
	if state.Position.Ply() != 1 || !state.PlayerToMove() {
		t.Fatalf("expected engine opening, got %+v", state.Position)
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig(t, "white")
	cfg.RedisURL = "ftp://nowhere"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected redis url error")
	}
}

func TestNewUnscoredSearchGivesUnknown(t *testing.T) {
	cfg := testConfig(t, "white")
	t.Setenv(ucitest.EnvNoScore, "1")
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	res, err := deps.Service.Play(context.Background(), coach.MoveRequest{Move: "e2e4"})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Label != domain.LabelUnknown {
		t.Fatalf("label = %s, want unknown", res.Label)
	}
	if res.Commentary.Text == "" {
		t.Fatalf("commentary must not be empty")
	}
}

func TestNewRaisesEngineTimeoutToSearchBudget(t *testing.T) {
	cfg := testConfig(t, "white")
	cfg.ChessEngineTimeout = time.Millisecond
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	if want := deps.Engine.SearchBudget(); deps.EngineTimeout != want {
		t.Fatalf("engine timeout = %s, want search budget %s", deps.EngineTimeout, want)
	}
}
