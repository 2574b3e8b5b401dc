// Package blackjack implements the card-level rules of blackjack: cards, the
// multi-deck shoe, hand evaluation, the dealer draw rule and settlement.
//
// Everything here is single-threaded and free of I/O. Turn order, balances and
// locking live in the session package, which drives these primitives.
//
// # Hand totals
//
// Totals are always the single best value. Aces start at 11 and are demoted to
// 1 one at a time while the hand is over 21:
//
//	total, soft := blackjack.BestTotal(blackjack.MustParseCards("A of Spades, A of Hearts, 9 of Clubs"))
//	// total == 21, soft == true (one ace still counts as 11)
//
// # Deterministic dealing
//
// Shoes take an explicit *rand.Rand. For replaying a known sequence use
// NewStackedShoe, which deals cards in the order given and never reshuffles:
//
//	shoe := blackjack.NewStackedShoe(blackjack.MustParseCards("8 of Hearts, 6 of Clubs, 8 of Spades, 10 of Diamonds")...)
//
// # Wire format
//
// Cards render as "<Value> of <Suit>" and hands as those strings joined by
// ", ". Presentation layers depend on this format byte for byte.
package blackjack
