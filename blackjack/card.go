package blackjack

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades"}

// String returns the suit name used on the wire (e.g. "Spades")
func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return "?"
}

// Rank represents a card rank. Ace is 1, face cards follow Ten.
type Rank uint8

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankNames = [...]string{"?", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// String returns the rank label used on the wire (A, 2-10, J, Q, K)
func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "?"
}

// Points returns the blackjack value of the rank with aces counted high.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// Card is an immutable playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String renders the card as "<Value> of <Suit>", e.g. "K of Spades".
func (c Card) String() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// FormatCards joins cards with ", " in the order they were dealt.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// ParseCard parses a single "<Value> of <Suit>" string.
func ParseCard(s string) (Card, error) {
	value, suit, ok := strings.Cut(strings.TrimSpace(s), " of ")
	if !ok {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var c Card
	for r := Ace; r <= King; r++ {
		if strings.EqualFold(r.String(), value) {
			c.Rank = r
			break
		}
	}
	if c.Rank == 0 {
		return Card{}, fmt.Errorf("invalid rank %q in card %q", value, s)
	}

	found := false
	for i, name := range suitNames {
		if strings.EqualFold(name, suit) {
			c.Suit = Suit(i)
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid suit %q in card %q", suit, s)
	}
	return c, nil
}

// ParseCards parses a comma-space separated hand as produced by FormatCards.
func ParseCards(s string) ([]Card, error) {
	if strings.TrimSpace(s) == "" {
		return []Card{}, nil
	}
	parts := strings.Split(s, ", ")
	cards := make([]Card, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCard(p)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards parses cards and panics on error. Intended for tests.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}
