package domain

import (
	"strconv"
	"time"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MateScore is the centipawn value of an immediate mate.
const MateScore = 10000

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == Black {
		return White
	}
	return Black
}

func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	}
	return "", false
}

// Position is replaced as a whole; callers must not mutate Moves.
type Position struct {
	FEN   string   `json:"fen"`
	Moves []string `json:"moves"`
	Turn  Color    `json:"turn"`
}

func StartPosition() Position {
	return Position{FEN: StartFEN, Moves: []string{}, Turn: White}
}

func (p Position) Ply() int { return len(p.Moves) }

func (p Position) Clone() Position {
	dup := p
	dup.Moves = append([]string{}, p.Moves...)
	return dup
}

// Evaluation is a score from one side's point of view. A mate marker
// keeps its distance in MateIn; a positive distance means that side mates.
type Evaluation struct {
	CP     int  `json:"cp"`
	Mate   bool `json:"mate"`
	MateIn int  `json:"mate_in,omitempty"`
	Scored bool `json:"scored"`
}

func CentipawnEval(cp int) Evaluation {
	return Evaluation{CP: cp, Scored: true}
}

// MateEval builds a mate marker. n == 0 means the perspective side is mated.
func MateEval(n int) Evaluation {
	cp := -MateScore
	switch {
	case n > 0:
		cp = MateScore - n
	case n < 0:
		cp = -MateScore - n
	}
	return Evaluation{CP: cp, Mate: true, MateIn: n, Scored: true}
}

// Negate flips the perspective.
func (e Evaluation) Negate() Evaluation {
	return Evaluation{CP: -e.CP, Mate: e.Mate, MateIn: -e.MateIn, Scored: e.Scored}
}

func (e Evaluation) String() string {
	if !e.Scored {
		return "?"
	}
	if e.Mate {
		if e.MateIn == 0 {
			if e.CP > 0 {
				return "#"
			}
			return "#-"
		}
		return "#" + strconv.Itoa(e.MateIn)
	}
	sign := ""
	if e.CP > 0 {
		sign = "+"
	}
	return sign + strconv.FormatFloat(float64(e.CP)/100, 'f', 2, 64)
}

type QualityLabel string

const (
	LabelBest       QualityLabel = "best"
	LabelGood       QualityLabel = "good"
	LabelInaccuracy QualityLabel = "inaccuracy"
	LabelMistake    QualityLabel = "mistake"
	LabelBlunder    QualityLabel = "blunder"
	LabelUnknown    QualityLabel = "unknown"
)

// Severity orders labels from least to most severe; unknown sorts last.
func (l QualityLabel) Severity() int {
	switch l {
	case LabelBest:
		return 0
	case LabelGood:
		return 1
	case LabelInaccuracy:
		return 2
	case LabelMistake:
		return 3
	case LabelBlunder:
		return 4
	default:
		return 5
	}
}

type GamePhase string

const (
	PhaseOpening    GamePhase = "opening"
	PhaseMiddlegame GamePhase = "middlegame"
	PhaseEndgame    GamePhase = "endgame"
)

type MoveInfo struct {
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Piece     string `json:"piece"`
	Capture   bool   `json:"capture,omitempty"`
	Check     bool   `json:"check,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

type Outcome struct {
	Result string `json:"result"`
	Method string `json:"method"`
}

func (o Outcome) Finished() bool { return o.Result != "" && o.Result != "*" }

type Reply struct {
	Move       MoveInfo   `json:"move"`
	Position   Position   `json:"position"`
	Evaluation Evaluation `json:"evaluation"`
	Outcome    Outcome    `json:"outcome"`
}

// MoveEvaluation is what the engine adapter reports for one accepted move.
// Evaluations are from the mover's point of view.
type MoveEvaluation struct {
	Move       MoveInfo
	Before     Evaluation
	After      Evaluation
	BestMove   string
	Position   Position
	Outcome    Outcome
	Phase      GamePhase
	Opening    *Opening
	Reply      *Reply
	EngineTime time.Duration
}

// Final is the position the session must hold after the move.
func (m MoveEvaluation) Final() Position {
	if m.Reply != nil {
		return m.Reply.Position
	}
	return m.Position
}

type CommentContext struct {
	Move       MoveInfo
	Phase      GamePhase
	EvalChange int
	Opening    *Opening
	Outcome    Outcome
}

type CommentarySource string

const (
	CommentaryFromModel    CommentarySource = "model"
	CommentaryFromFallback CommentarySource = "fallback"
)

type Commentary struct {
	Text   string           `json:"text"`
	Source CommentarySource `json:"source"`
}

type MoveRecord struct {
	Ply         int          `json:"ply"`
	Move        string       `json:"move"`
	SAN         string       `json:"san"`
	Piece       string       `json:"piece"`
	Phase       GamePhase    `json:"phase"`
	Quality     QualityLabel `json:"quality"`
	EvalChange  int          `json:"eval_change"`
	Explanation string       `json:"explanation"`
	Reply       string       `json:"reply,omitempty"`
	PlayedAt    time.Time    `json:"played_at"`
}

type ArchivedGame struct {
	ID           string
	SessionID    string
	PlayerColor  Color
	ReplyPreset  string
	Result       string
	ResultMethod string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	Labels       map[QualityLabel]int
	StartedAt    time.Time
	EndedAt      time.Time
}
