package blackjack

import (
	"fmt"
	rand "math/rand/v2"
)

const cardsPerDeck = 52

// Shoe is a multi-deck card supply dealt from a cursor.
type Shoe struct {
	cards      []Card
	next       int
	decks      int
	reserve    int
	reshuffle  bool
	generation uint64
	rng        *rand.Rand
}

// NewShoe creates a shuffled shoe with explicit RNG. reserve is the number of
// undealt cards below which PrepareRound reshuffles.
func NewShoe(decks, reserve int, reshuffle bool, rng *rand.Rand) (*Shoe, error) {
	if decks < 1 {
		return nil, fmt.Errorf("shoe needs at least one deck, got %d", decks)
	}
	if reserve < 0 || reserve >= decks*cardsPerDeck {
		return nil, fmt.Errorf("reshuffle reserve %d out of range for %d decks", reserve, decks)
	}
	if rng == nil {
		return nil, fmt.Errorf("shoe requires a random source")
	}

	s := &Shoe{
		cards:     make([]Card, 0, decks*cardsPerDeck),
		decks:     decks,
		reserve:   reserve,
		reshuffle: reshuffle,
		rng:       rng,
	}
	s.Shuffle()
	return s, nil
}

// NewStackedShoe returns a shoe that deals cards in exactly the given order and
// never reshuffles. Useful for replaying rounds and for tests.
func NewStackedShoe(cards ...Card) *Shoe {
	return &Shoe{
		cards: append([]Card(nil), cards...),
		decks: 1,
	}
}

// Shuffle restores the full multi-deck set and shuffles it using Fisher-Yates.
// Starts a new generation; previously drawn cards are forgotten.
func (s *Shoe) Shuffle() {
	s.cards = s.cards[:0]
	for range s.decks {
		for suit := Hearts; suit <= Spades; suit++ {
			for rank := Ace; rank <= King; rank++ {
				s.cards = append(s.cards, NewCard(rank, suit))
			}
		}
	}
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
	s.next = 0
	s.generation++
}

// PrepareRound reshuffles when fewer than reserve cards remain. It must only be
// called between rounds. Returns true if a reshuffle happened.
func (s *Shoe) PrepareRound() bool {
	if !s.reshuffle || s.Remaining() >= s.reserve {
		return false
	}
	s.Shuffle()
	return true
}

// Draw removes and returns the next card. An empty shoe is reshuffled
// transparently unless reshuffling is disabled.
func (s *Shoe) Draw() (Card, error) {
	if s.next >= len(s.cards) {
		if !s.reshuffle {
			return Card{}, ErrShoeExhausted
		}
		s.Shuffle()
	}
	c := s.cards[s.next]
	s.next++
	return c, nil
}

// Remaining returns the number of cards left before the shoe is empty
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.next
}

// Generation counts shuffles since the shoe was created
func (s *Shoe) Generation() uint64 {
	return s.generation
}

// Decks returns the number of decks the shoe is built from
func (s *Shoe) Decks() int {
	return s.decks
}

// Mark captures the shoe position so a rejected action can be rolled back.
type Mark struct {
	next       int
	generation uint64
}

// Mark records the current position
func (s *Shoe) Mark() Mark {
	return Mark{next: s.next, generation: s.generation}
}

// Rewind restores a position captured by Mark. Returns false if the shoe was
// reshuffled in between, in which case nothing is changed.
func (s *Shoe) Rewind(m Mark) bool {
	if m.generation != s.generation {
		return false
	}
	s.next = m.next
	return true
}
