package blackjack

import (
	"fmt"
	"strconv"
	"strings"
)

// Payout is a win ratio such as 3:2, applied to the bet on top of returning it.
type Payout struct {
	Num int64
	Den int64
}

// String renders the ratio as "num:den"
func (p Payout) String() string {
	return fmt.Sprintf("%d:%d", p.Num, p.Den)
}

// maxPayoutTerm bounds both sides of a payout ratio
const maxPayoutTerm = 100

// Apply returns bet*num/den rounded down to whole chips. The quotient and
// remainder are scaled separately so bet*num is never formed.
func (p Payout) Apply(bet int64) int64 {
	return bet/p.Den*p.Num + bet%p.Den*p.Num/p.Den
}

// ParsePayout parses "3:2" style ratios
func ParsePayout(s string) (Payout, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Payout{}, fmt.Errorf("payout %q must look like 3:2", s)
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return Payout{}, fmt.Errorf("payout %q: %w", s, err)
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil {
		return Payout{}, fmt.Errorf("payout %q: %w", s, err)
	}
	p := Payout{Num: n, Den: d}
	if p.Num <= 0 || p.Den <= 0 || p.Num > maxPayoutTerm || p.Den > maxPayoutTerm {
		return Payout{}, fmt.Errorf("payout %q terms must be between 1 and %d", s, maxPayoutTerm)
	}
	return p, nil
}

// Rules holds the table rules a session is played under
type Rules struct {
	Decks           int
	Reserve         int
	Reshuffle       bool
	DealerHitsSoft  bool
	BlackjackPayout Payout
}

// DefaultRules returns an eight-deck shoe reshuffled below 15 cards, dealer
// standing on all 17s and naturals paying 3:2.
func DefaultRules() Rules {
	return Rules{
		Decks:           8,
		Reserve:         15,
		Reshuffle:       true,
		DealerHitsSoft:  false,
		BlackjackPayout: Payout{Num: 3, Den: 2},
	}
}

// Validate checks the rules are playable
func (r Rules) Validate() error {
	if r.Decks < 1 || r.Decks > 16 {
		return fmt.Errorf("decks must be between 1 and 16, got %d", r.Decks)
	}
	if r.Reserve < 0 || r.Reserve >= r.Decks*cardsPerDeck {
		return fmt.Errorf("reshuffle reserve %d out of range for %d decks", r.Reserve, r.Decks)
	}
	p := r.BlackjackPayout
	if p.Num <= 0 || p.Den <= 0 || p.Num > maxPayoutTerm || p.Den > maxPayoutTerm {
		return fmt.Errorf("blackjack payout %s terms must be between 1 and %d", p, maxPayoutTerm)
	}
	return nil
}
