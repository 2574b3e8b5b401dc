// Package ledger records settled blackjack rounds. Recorders are write-only
// sinks; Readers serve round history back to the transport.
package ledger

import (
	"context"
	"errors"
	"time"
)

// HandRecord is one settled player hand
type HandRecord struct {
	Index   int    `json:"index"`
	Cards   string `json:"cards"`
	Total   int    `json:"total"`
	Bet     int64  `json:"bet"`
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
	Payout  int64  `json:"payout"`
	Result  string `json:"result"`
}

// Round is a settled round of one session
type Round struct {
	SessionID   string       `json:"sessionId"`
	Round       int          `json:"round"`
	Dealer      string       `json:"dealer"`
	DealerTotal int          `json:"dealerTotal"`
	Hands       []HandRecord `json:"hands"`
	Wagered     int64        `json:"wagered"`
	Returned    int64        `json:"returned"`
	Balance     int64        `json:"balance"`
	Generation  uint64       `json:"shoeGeneration"`
	SettledAt   time.Time    `json:"settledAt"`
}

// Net is the player's result for the round; the house net is its negation.
func (r Round) Net() int64 {
	return r.Returned - r.Wagered
}

// Recorder persists settled rounds
type Recorder interface {
	Record(ctx context.Context, round Round) error
	Close() error
}

// Reader returns the most recent rounds of a session, newest first
type Reader interface {
	History(ctx context.Context, sessionID string, limit int) ([]Round, error)
}

// Forgetter is implemented by recorders that hold per-session state in
// memory and can drop it once the session is gone.
type Forgetter interface {
	Forget(sessionID string)
}

// Discard drops every round
type Discard struct{}

func (Discard) Record(context.Context, Round) error { return nil }
func (Discard) Close() error                        { return nil }

// Tee fans a round out to several recorders. Every recorder is attempted;
// the errors are joined.
func Tee(recorders ...Recorder) Recorder {
	return tee(recorders)
}

type tee []Recorder

func (t tee) Record(ctx context.Context, round Round) error {
	var errs []error
	for _, r := range t {
		if err := r.Record(ctx, round); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, r := range t {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) Forget(sessionID string) {
	for _, r := range t {
		if f, ok := r.(Forgetter); ok {
			f.Forget(sessionID)
		}
	}
}
