package coachdto

import "time"

type StateResponse struct {
	SessionID    string         `json:"session_id"`
	PlayerColor  string         `json:"player_color"`
	FEN          string         `json:"fen"`
	Turn         string         `json:"turn"`
	Moves        []string       `json:"moves"`
	PlayerToMove bool           `json:"player_to_move"`
	GameOver     bool           `json:"game_over"`
	Result       string         `json:"result,omitempty"`
	ResultMethod string         `json:"result_method,omitempty"`
	History      []HistoryEntry `json:"history"`
	StartedAt    time.Time      `json:"started_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ResetResponse struct {
	State          StateResponse `json:"state"`
	AIMove         string        `json:"ai_move,omitempty"`
	ArchivedGameID string        `json:"archived_game_id,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Engines []EngineStats `json:"engines,omitempty"`
}

type EngineStats struct {
	Options string `json:"options"`
	Total   int    `json:"total"`
	Idle    int    `json:"idle"`
}
