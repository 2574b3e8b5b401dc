package session

import (
	"github.com/lox/blackjackd/blackjack"
)

// MaskedCard replaces the dealer's hole card while the round is in play
const MaskedCard = "?"

// HandView is the rendered state of one player hand
type HandView struct {
	Index   int    `json:"index"`
	Cards   string `json:"cards"`
	Total   int    `json:"total"`
	Soft    bool   `json:"soft"`
	Bet     int64  `json:"bet"`
	Status  string `json:"status"`
	Bust    bool   `json:"bust"`
	Result  string `json:"result"`
	Outcome string `json:"outcome,omitempty"`
	Payout  int64  `json:"payout"`
}

// View is a consistent read of a session, taken under its lock.
type View struct {
	SessionID      string     `json:"sessionId"`
	Phase          Phase      `json:"phase"`
	Balance        int64      `json:"balance"`
	Round          int        `json:"round"`
	Dealer         string     `json:"dealer"`
	DealerTotal    int        `json:"dealerTotal,omitempty"`
	DealerRevealed bool       `json:"dealerRevealed"`
	Hands          []HandView `json:"hands"`
	ShoeRemaining  int        `json:"shoeRemaining"`
}

// View renders the session. The dealer's second card stays hidden until the
// dealer turn.
func (s *Session) View() View {
	v := View{
		SessionID:     s.ID,
		Phase:         s.phase,
		Balance:       s.balance,
		Round:         s.round,
		Hands:         make([]HandView, 0, len(s.hands)),
		ShoeRemaining: s.shoe.Remaining(),
	}

	switch {
	case len(s.dealer.Cards) == 0:
	case s.phase == PlayerTurn:
		v.Dealer = s.dealer.Cards[0].String() + ", " + MaskedCard
	default:
		v.Dealer = s.dealer.String()
		v.DealerTotal, _ = s.dealer.Total()
		v.DealerRevealed = true
	}

	for _, h := range s.hands {
		v.Hands = append(v.Hands, viewHand(h))
	}
	return v
}

func viewHand(h *blackjack.Hand) HandView {
	total, soft := h.Total()
	hv := HandView{
		Index:  h.Index,
		Cards:  h.String(),
		Total:  total,
		Soft:   soft,
		Bet:    h.Bet,
		Status: h.Status.String(),
		Bust:   h.Status == blackjack.Busted,
	}
	switch {
	case h.Settled:
		hv.Result = h.Result
		hv.Outcome = string(h.Outcome)
		hv.Payout = h.Payout
	case hv.Bust:
		hv.Result = BustText(h)
	}
	return hv
}

// BustText is the message for a hand that just went over 21: the rank of the
// card that busted it.
func BustText(h *blackjack.Hand) string {
	if h.Status != blackjack.Busted || len(h.Cards) == 0 {
		return ""
	}
	return h.Cards[len(h.Cards)-1].Rank.String() + " busts"
}
