package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-coach/internal/chess/uci"
	"github.com/park285/chess-coach/internal/domain"
)

// ReplayMoves rebuilds a game from UCI moves played from the start position.
func ReplayMoves(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		move, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return game, nil
}

var errEmptyMove = errors.New("empty move")

// DecodeMove accepts SAN first and falls back to UCI.
func DecodeMove(pos *nchess.Position, text string) (*nchess.Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmptyMove
	}
	move, err := nchess.AlgebraicNotation{}.Decode(pos, text)
	if err == nil {
		return move, nil
	}
	return nchess.UCINotation{}.Decode(pos, strings.ToLower(text))
}

func describeMove(pos *nchess.Position, mv *nchess.Move) domain.MoveInfo {
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	info := domain.MoveInfo{
		UCI:     strings.ToLower(nchess.UCINotation{}.Encode(pos, mv)),
		SAN:     san,
		Piece:   PieceName(pos.Board().Piece(mv.S1()).Type()),
		Capture: mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
		Check:   strings.ContainsAny(san, "+#"),
	}
	if promo := mv.Promo(); promo != nchess.NoPieceType {
		info.Promotion = PieceName(promo)
	}
	return info
}

func PieceName(pt nchess.PieceType) string {
	switch pt {
	case nchess.Pawn:
		return "pawn"
	case nchess.Knight:
		return "knight"
	case nchess.Bishop:
		return "bishop"
	case nchess.Rook:
		return "rook"
	case nchess.Queen:
		return "queen"
	case nchess.King:
		return "king"
	}
	return "piece"
}

// PhaseOf buckets the board by how many minor and major pieces remain.
func PhaseOf(board *nchess.Board) domain.GamePhase {
	count := 0
	for _, piece := range board.SquareMap() {
		switch piece.Type() {
		case nchess.Knight, nchess.Bishop, nchess.Rook, nchess.Queen:
			count++
		}
	}
	switch {
	case count > 10:
		return domain.PhaseOpening
	case count > 4:
		return domain.PhaseMiddlegame
	default:
		return domain.PhaseEndgame
	}
}

func colorOf(c nchess.Color) domain.Color {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func positionFromGame(game *nchess.Game, moves []string) domain.Position {
	return domain.Position{
		FEN:   game.FEN(),
		Moves: append([]string{}, moves...),
		Turn:  colorOf(game.Position().Turn()),
	}
}

func outcomeOf(game *nchess.Game) domain.Outcome {
	if game.Outcome() == nchess.NoOutcome {
		return domain.Outcome{}
	}
	return domain.Outcome{
		Result: game.Outcome().String(),
		Method: strings.ToLower(game.Method().String()),
	}
}

// terminalEval scores a finished game for the side that just moved.
func terminalEval(game *nchess.Game) domain.Evaluation {
	if game.Method() == nchess.Checkmate {
		return domain.MateEval(0).Negate()
	}
	return domain.CentipawnEval(0)
}

func evalFromScore(s uci.Score) domain.Evaluation {
	if !s.Scored {
		return domain.Evaluation{}
	}
	if s.Mate {
		return domain.MateEval(s.MateIn)
	}
	return domain.CentipawnEval(s.CP)
}

// PositionFromMoves validates moves and returns the resulting position.
func PositionFromMoves(moves []string) (domain.Position, error) {
	game, err := ReplayMoves(moves)
	if err != nil {
		return domain.Position{}, err
	}
	return positionFromGame(game, moves), nil
}

// OutcomeOf reports the result of the game reached by pos.
func OutcomeOf(pos domain.Position) (domain.Outcome, error) {
	game, err := ReplayMoves(pos.Moves)
	if err != nil {
		return domain.Outcome{}, err
	}
	return outcomeOf(game), nil
}

// SANMoves converts the position's UCI history to SAN and returns the PGN.
func SANMoves(pos domain.Position) ([]string, string, error) {
	game, err := ReplayMoves(pos.Moves)
	if err != nil {
		return nil, "", err
	}
	positions := game.Positions()
	moves := game.Moves()
	notation := nchess.AlgebraicNotation{}
	san := make([]string, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			san[i] = notation.Encode(positions[i], mv)
		}
	}
	return san, game.String(), nil
}
