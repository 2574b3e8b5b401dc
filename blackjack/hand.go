package blackjack

// HandStatus is the turn status of a single hand
type HandStatus uint8

const (
	Active HandStatus = iota
	Stood
	Busted
	Natural
	DoubledStood
)

// String returns the status name used on the wire
func (s HandStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Stood:
		return "stood"
	case Busted:
		return "busted"
	case Natural:
		return "blackjack"
	case DoubledStood:
		return "doubled_stood"
	default:
		return "unknown"
	}
}

// Hand is one player or dealer hand.
type Hand struct {
	Index     int
	Cards     []Card
	Bet       int64
	Status    HandStatus
	FromSplit bool

	// Filled in exactly once by Settle
	Settled bool
	Outcome Outcome
	Payout  int64
	Result  string
}

// NewHand creates an empty active hand carrying bet
func NewHand(index int, bet int64) *Hand {
	return &Hand{Index: index, Bet: bet, Cards: make([]Card, 0, 4)}
}

// Total returns the best total of the hand
func (h *Hand) Total() (int, bool) {
	return BestTotal(h.Cards)
}

// IsBust reports whether the hand has gone over 21
func (h *Hand) IsBust() bool {
	return IsBust(h.Cards)
}

// IsNatural reports a two-card 21 dealt before any split.
func (h *Hand) IsNatural() bool {
	return !h.FromSplit && IsBlackjack(h.Cards)
}

// Terminal reports whether the hand can no longer act
func (h *Hand) Terminal() bool {
	return h.Status != Active
}

// CanSplit reports whether the hand holds exactly two cards of equal rank
func (h *Hand) CanSplit() bool {
	return h.Status == Active && len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

// Add appends a card and moves the hand to Busted if it went over 21.
// Returns true on bust.
func (h *Hand) Add(c Card) bool {
	h.Cards = append(h.Cards, c)
	if h.IsBust() {
		h.Status = Busted
		return true
	}
	return false
}

// String renders the hand in wire format
func (h *Hand) String() string {
	return FormatCards(h.Cards)
}

// Clone returns a deep copy of the hand
func (h *Hand) Clone() *Hand {
	c := *h
	c.Cards = append(make([]Card, 0, cap(h.Cards)), h.Cards...)
	return &c
}
