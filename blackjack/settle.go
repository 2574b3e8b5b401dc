package blackjack

// Outcome is the settled result of a player hand
type Outcome string

const (
	Win  Outcome = "win"
	Draw Outcome = "draw"
	Lose Outcome = "lose"
)

// Settlement is the outcome and total credit for one hand. Payout includes
// the returned stake.
type Settlement struct {
	Outcome Outcome
	Payout  int64
	Result  string
}

// Evaluate compares a finished player hand against the final dealer hand.
// It does not mutate anything.
func Evaluate(h *Hand, dealer []Card, payout Payout) Settlement {
	player, _ := h.Total()
	dealerTotal, _ := BestTotal(dealer)
	dealerNatural := IsBlackjack(dealer)

	switch {
	case h.Status == Busted || player > 21:
		return Settlement{Outcome: Lose, Payout: 0, Result: "Player busts, dealer wins!"}
	case h.IsNatural() && !dealerNatural:
		return Settlement{Outcome: Win, Payout: h.Bet + payout.Apply(h.Bet), Result: "Blackjack! Player wins!"}
	case dealerTotal > 21:
		return Settlement{Outcome: Win, Payout: 2 * h.Bet, Result: "Dealer busts, player wins!"}
	case player > dealerTotal:
		return Settlement{Outcome: Win, Payout: 2 * h.Bet, Result: "Player wins!"}
	case player == dealerTotal:
		return Settlement{Outcome: Draw, Payout: h.Bet, Result: "It's a draw!"}
	default:
		return Settlement{Outcome: Lose, Payout: 0, Result: "Dealer wins!"}
	}
}

// Settle evaluates h once and records the result on the hand. A hand that is
// already settled keeps its original result and Settle returns it with
// credited=false, so callers never pay a hand twice.
func Settle(h *Hand, dealer []Card, payout Payout) (s Settlement, credited bool) {
	if h.Settled {
		return Settlement{Outcome: h.Outcome, Payout: h.Payout, Result: h.Result}, false
	}
	s = Evaluate(h, dealer, payout)
	h.Settled = true
	h.Outcome = s.Outcome
	h.Payout = s.Payout
	h.Result = s.Result
	return s, true
}
