// Package archive stores finished coaching games.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-coach/internal/domain"
)

var ErrDuplicateGame = errors.New("archived game already exists")

const defaultListLimit = 10

type Repository interface {
	Insert(ctx context.Context, game *domain.ArchivedGame) error
	List(ctx context.Context, limit int) ([]*domain.ArchivedGame, error)
	Close() error
}

type postgresRepository struct {
	db *sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS coach_games (
		id            UUID PRIMARY KEY,
		session_id    UUID NOT NULL,
		player_color  TEXT NOT NULL,
		reply_preset  TEXT NOT NULL,
		result        TEXT NOT NULL,
		result_method TEXT NOT NULL,
		moves_uci     JSONB NOT NULL,
		moves_san     JSONB NOT NULL,
		pgn           TEXT NOT NULL,
		labels        JSONB NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		ended_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS coach_games_ended_at_idx ON coach_games (ended_at DESC);`

// OpenPostgres connects, pings and makes sure the table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create coach_games: %w", err)
	}
	return &postgresRepository{db: db}, nil
}

func (r *postgresRepository) Insert(ctx context.Context, game *domain.ArchivedGame) error {
	if game == nil {
		return fmt.Errorf("nil archived game payload")
	}
	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}
	labels, err := json.Marshal(game.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	const query = `
		INSERT INTO coach_games (
			id,
			session_id,
			player_color,
			reply_preset,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			labels,
			started_at,
			ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10::jsonb, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		game.ID,
		game.SessionID,
		string(game.PlayerColor),
		game.ReplyPreset,
		game.Result,
		game.ResultMethod,
		movesUCI,
		movesSAN,
		game.PGN,
		labels,
		game.StartedAt,
		game.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archived game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateGame
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT
			id,
			session_id,
			player_color,
			reply_preset,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			labels,
			started_at,
			ended_at
		FROM coach_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select archived games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.ArchivedGame, 0, limit)
	for rows.Next() {
		var (
			game         domain.ArchivedGame
			color        string
			movesUCIJSON []byte
			movesSANJSON []byte
			labelsJSON   []byte
		)
		if err := rows.Scan(
			&game.ID,
			&game.SessionID,
			&color,
			&game.ReplyPreset,
			&game.Result,
			&game.ResultMethod,
			&movesUCIJSON,
			&movesSANJSON,
			&game.PGN,
			&labelsJSON,
			&game.StartedAt,
			&game.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archived game: %w", err)
		}
		game.PlayerColor = domain.Color(color)
		if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
			return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
		}
		if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		if err := json.Unmarshal(labelsJSON, &game.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
		games = append(games, &game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived games: %w", err)
	}
	return games, nil
}

func (r *postgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
