package coachdto

import "time"

type Evaluation struct {
	CP      int    `json:"cp"`
	Mate    bool   `json:"mate"`
	MateIn  int    `json:"mate_in,omitempty"`
	Display string `json:"display"`
}

type Move struct {
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

// HistoryEntry is one player move in the session log.
type HistoryEntry struct {
	Ply         int       `json:"ply"`
	Move        string    `json:"move"`
	UCI         string    `json:"uci"`
	Piece       string    `json:"piece"`
	Phase       string    `json:"phase"`
	Quality     string    `json:"quality"`
	EvalChange  int       `json:"eval_change"`
	Explanation string    `json:"explanation"`
	Reply       string    `json:"reply,omitempty"`
	PlayedAt    time.Time `json:"played_at"`
}

type MoveResponse struct {
	FEN              string         `json:"fen"`
	Turn             string         `json:"turn"`
	Move             Move           `json:"move"`
	Label            string         `json:"label"`
	EvalBefore       Evaluation     `json:"eval_before"`
	EvalAfter        Evaluation     `json:"eval_after"`
	EvalChange       int            `json:"eval_change"`
	BestMove         string         `json:"best_move,omitempty"`
	Phase            string         `json:"phase"`
	Opening          *Opening       `json:"opening,omitempty"`
	AIMove           string         `json:"ai_move"`
	AIMoveSAN        string         `json:"ai_move_san,omitempty"`
	ReplyEvaluation  *Evaluation    `json:"reply_evaluation,omitempty"`
	Explanation      string         `json:"explanation"`
	CommentarySource string         `json:"commentary_source"`
	GameOver         bool           `json:"game_over"`
	Result           string         `json:"result,omitempty"`
	ResultMethod     string         `json:"result_method,omitempty"`
	ArchivedGameID   string         `json:"archived_game_id,omitempty"`
	History          []HistoryEntry `json:"history"`
}
