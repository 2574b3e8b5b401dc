package session

import "errors"

var (
	// ErrSessionNotFound is returned for ids the manager has never issued
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned for ids that were evicted by the janitor
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidBalance is returned when a session is opened with a balance
	// above the table maximum
	ErrInvalidBalance = errors.New("invalid balance")
)
