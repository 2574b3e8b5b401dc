package blackjack

import "errors"

// Recoverable player-facing errors. Callers wrap these with context and
// match them with errors.Is.
var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrShoeExhausted       = errors.New("shoe exhausted")
)
