package types

import "errors"

// Domain errors for record validation
var (
	ErrMissingGameID   = errors.New("game id is required")
	ErrMissingPlayID   = errors.New("play id is required")
	ErrMissingVideoID  = errors.New("video id is required")
	ErrNonTerminalGame = errors.New("game status is not terminal")
	ErrNegativeClock   = errors.New("clock seconds must be >= 0")
	ErrInvalidRank     = errors.New("rank must be >= 1")
	ErrNegativeOffset  = errors.New("offset must be >= 0")
)
