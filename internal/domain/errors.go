package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrEngineUnavailable  = errors.New("engine unavailable")
	ErrEngineTimeout      = fmt.Errorf("%w: timeout", ErrEngineUnavailable)
	ErrNotPlayerTurn      = errors.New("not the player's turn")
	ErrStalePosition      = errors.New("position does not match the session")
	ErrGameOver           = errors.New("game is over")
	ErrConcurrentUpdate   = errors.New("session changed concurrently")
	ErrCommentaryFailed   = errors.New("commentary unavailable")
	ErrArchiveUnavailable = errors.New("archive unavailable")
)
