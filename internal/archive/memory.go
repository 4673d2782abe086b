package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-coach/internal/domain"
)

// memrepo is the in-process archive used when no database is configured.
type memrepo struct {
	mu    sync.RWMutex
	byID  map[string]*domain.ArchivedGame
	games []*domain.ArchivedGame
}

func NewMemoryRepository() Repository {
	return &memrepo{byID: make(map[string]*domain.ArchivedGame)}
}

func (m *memrepo) Insert(ctx context.Context, game *domain.ArchivedGame) error {
	if game == nil {
		return ErrDuplicateGame
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[game.ID]; exists {
		return ErrDuplicateGame
	}
	dup := cloneGame(game)
	m.byID[game.ID] = dup
	m.games = append(m.games, dup)
	return nil
}

func (m *memrepo) List(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	m.mu.RLock()
	items := make([]*domain.ArchivedGame, 0, len(m.games))
	for _, g := range m.games {
		items = append(items, cloneGame(g))
	}
	m.mu.RUnlock()

	// latest first; insertion order breaks ties
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EndedAt.After(items[j].EndedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Close() error { return nil }

func cloneGame(g *domain.ArchivedGame) *domain.ArchivedGame {
	dup := *g
	dup.MovesUCI = append([]string(nil), g.MovesUCI...)
	dup.MovesSAN = append([]string(nil), g.MovesSAN...)
	if g.Labels != nil {
		dup.Labels = make(map[domain.QualityLabel]int, len(g.Labels))
		for k, v := range g.Labels {
			dup.Labels[k] = v
		}
	}
	return &dup
}
