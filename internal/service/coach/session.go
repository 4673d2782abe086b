package coach

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-coach/internal/domain"
)

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID          string
	PlayerColor domain.Color
	Position    domain.Position
	Outcome     domain.Outcome
	History     []domain.MoveRecord
	Version     uint64
	Archived    bool
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// PlayerToMove reports whether the position waits for the player.
func (s Snapshot) PlayerToMove() bool {
	return !s.Outcome.Finished() && s.Position.Turn == s.PlayerColor
}

// Session owns the one authoritative position of a game. Every change goes
// through Replace or Reset; readers get copies.
type Session struct {
	mu sync.RWMutex

	id          string
	playerColor domain.Color
	position    domain.Position
	outcome     domain.Outcome
	history     []domain.MoveRecord
	version     uint64
	archived    bool
	startedAt   time.Time
	updatedAt   time.Time
}

func NewSession(color domain.Color) *Session {
	s := &Session{}
	s.reset(color, domain.StartPosition())
	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:          s.id,
		PlayerColor: s.playerColor,
		Position:    s.position.Clone(),
		Outcome:     s.outcome,
		History:     append([]domain.MoveRecord(nil), s.history...),
		Version:     s.version,
		Archived:    s.archived,
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
}

// Replace swaps in pos if the session is still at version. A nil record
// leaves the history alone.
func (s *Session) Replace(version uint64, pos domain.Position, outcome domain.Outcome, record *domain.MoveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return domain.ErrConcurrentUpdate
	}
	s.position = pos.Clone()
	s.outcome = outcome
	if record != nil {
		s.history = append(s.history, *record)
	}
	s.version++
	s.updatedAt = time.Now()
	return nil
}

// MarkArchived flags the game as stored; it reports false if it already was.
func (s *Session) MarkArchived(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != id || s.archived {
		return false
	}
	s.archived = true
	return true
}

// Reset starts a new game with a fresh id.
func (s *Session) Reset(color domain.Color, pos domain.Position) Snapshot {
	s.mu.Lock()
	s.reset(color, pos)
	s.mu.Unlock()
	return s.Snapshot()
}

func (s *Session) reset(color domain.Color, pos domain.Position) {
	if color != domain.Black {
		color = domain.White
	}
	now := time.Now()
	s.id = uuid.NewString()
	s.playerColor = color
	s.position = pos.Clone()
	s.outcome = domain.Outcome{}
	s.history = nil
	s.version++
	s.archived = false
	s.startedAt = now
	s.updatedAt = now
}
