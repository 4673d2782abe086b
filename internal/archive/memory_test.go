package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/chess-coach/internal/domain"
)

func archived(id string, ended time.Time) *domain.ArchivedGame {
	return &domain.ArchivedGame{
		ID:          id,
		SessionID:   "s-" + id,
		PlayerColor: domain.White,
		Result:      "1-0",
		MovesUCI:    []string{"e2e4", "e7e5"},
		Labels:      map[domain.QualityLabel]int{domain.LabelBest: 1},
		EndedAt:     ended,
	}
}

func TestMemoryInsertAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Insert(ctx, archived(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	games, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 2 || games[0].ID != "c" || games[1].ID != "b" {
		t.Fatalf("unexpected order: %v", ids(games))
	}
}

func TestMemoryRejectsDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	g := archived("a", time.Now())
	if err := repo.Insert(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := repo.Insert(ctx, g); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("err = %v, want ErrDuplicateGame", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	g := archived("a", time.Now())
	if err := repo.Insert(ctx, g); err != nil {
		t.Fatal(err)
	}
	g.MovesUCI[0] = "d2d4"

	games, _ := repo.List(ctx, 0)
	games[0].Labels[domain.LabelBlunder] = 9

	again, _ := repo.List(ctx, 0)
	if again[0].MovesUCI[0] != "e2e4" {
		t.Fatal("stored game shares the caller's move slice")
	}
	if _, ok := again[0].Labels[domain.LabelBlunder]; ok {
		t.Fatal("stored game shares the returned label map")
	}
}

func TestOpenPostgresRequiresURL(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty DATABASE_URL")
	}
}

func ids(games []*domain.ArchivedGame) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.ID
	}
	return out
}
