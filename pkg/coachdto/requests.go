package coachdto

// MoveRequest is the body of POST /api/move. UserMove is the older field name.
type MoveRequest struct {
	Move     string `json:"move"`
	UserMove string `json:"user_move,omitempty"`
	FEN      string `json:"fen,omitempty"`
}

// MoveText returns whichever move field was filled.
func (r MoveRequest) MoveText() string {
	if r.Move != "" {
		return r.Move
	}
	return r.UserMove
}

type ResetRequest struct {
	Color string `json:"color"`
}
