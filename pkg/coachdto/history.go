package coachdto

import "time"

type ArchivedGame struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	PlayerColor  string         `json:"player_color"`
	ReplyPreset  string         `json:"reply_preset"`
	Result       string         `json:"result"`
	ResultMethod string         `json:"result_method"`
	MovesUCI     []string       `json:"moves_uci"`
	MovesSAN     []string       `json:"moves_san"`
	PGN          string         `json:"pgn"`
	Labels       map[string]int `json:"labels"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
}

type GamesResponse struct {
	Games []ArchivedGame `json:"games"`
}
