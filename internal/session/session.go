// Package session holds the authoritative state of blackjack sessions: one
// player, one dealer, a shoe and a balance, driven through betting, player
// actions, the dealer turn and settlement.
package session

import (
	"fmt"
	"time"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/ledger"
)

// Phase is the turn state of a session
type Phase string

const (
	AwaitingBet Phase = "awaiting_bet"
	PlayerTurn  Phase = "player_turn"
	DealerTurn  Phase = "dealer_turn"
	Settled     Phase = "settled"
)

// Session is one player's table. It is not safe for concurrent use; the
// Manager serialises access with a per-session lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	rules   blackjack.Rules
	shoe    *blackjack.Shoe
	dealer  *blackjack.Hand
	hands   []*blackjack.Hand
	balance int64
	phase   Phase
	round   int

	// settled rounds not yet handed to the ledger
	completed []ledger.Round
	now       func() time.Time
}

// New creates a session awaiting its first bet
func New(id string, rules blackjack.Rules, shoe *blackjack.Shoe, balance int64) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		rules:     rules,
		shoe:      shoe,
		dealer:    blackjack.NewHand(0, 0),
		balance:   balance,
		phase:     AwaitingBet,
		now:       time.Now,
	}
}

// Balance returns the chips not currently escrowed
func (s *Session) Balance() int64 { return s.balance }

// Phase returns the current phase
func (s *Session) Phase() Phase { return s.phase }

// Round returns the number of rounds dealt so far
func (s *Session) Round() int { return s.round }

// Hands returns the player hands of the current round
func (s *Session) Hands() []*blackjack.Hand { return s.hands }

// Dealer returns the dealer hand, unmasked
func (s *Session) Dealer() *blackjack.Hand { return s.dealer }

// Hand returns the player hand at index i
func (s *Session) Hand(i int) (*blackjack.Hand, error) {
	if i < 0 || i >= len(s.hands) {
		return nil, fmt.Errorf("%w: hand index %d out of range", blackjack.ErrInvalidAction, i)
	}
	return s.hands[i], nil
}

// PlaceBet escrows amount and deals a new round. It is accepted before the
// first round and after a round has settled.
func (s *Session) PlaceBet(amount int64) error {
	if s.phase != AwaitingBet && s.phase != Settled {
		return fmt.Errorf("%w: round already in progress", blackjack.ErrInvalidAction)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: bet must be positive, got %d", blackjack.ErrInvalidBet, amount)
	}
	if amount > s.balance {
		return fmt.Errorf("%w: bet %d exceeds balance %d", blackjack.ErrInvalidBet, amount, s.balance)
	}

	return s.atomically(func() error {
		s.shoe.PrepareRound()

		s.balance -= amount
		s.round++
		s.phase = PlayerTurn
		player := blackjack.NewHand(0, amount)
		s.hands = []*blackjack.Hand{player}
		s.dealer = blackjack.NewHand(0, 0)

		// player, dealer, player, dealer
		for range 2 {
			if err := s.deal(player); err != nil {
				return err
			}
			if err := s.deal(s.dealer); err != nil {
				return err
			}
		}

		if player.IsNatural() {
			player.Status = blackjack.Natural
		}
		return s.advance()
	})
}

// Hit deals one card to hand i
func (s *Session) Hit(i int) error {
	h, err := s.playable(i)
	if err != nil {
		return err
	}
	return s.atomically(func() error {
		if err := s.deal(h); err != nil {
			return err
		}
		return s.advance()
	})
}

// Stand ends play on hand i. Once the round has settled Stand is a no-op,
// so a repeated request sees the same result and no balance change.
func (s *Session) Stand(i int) error {
	if s.phase == Settled {
		return nil
	}
	h, err := s.playable(i)
	if err != nil {
		return err
	}
	return s.atomically(func() error {
		h.Status = blackjack.Stood
		return s.advance()
	})
}

// DoubleDown doubles the bet on a two-card hand, deals exactly one more card
// and ends play on that hand.
func (s *Session) DoubleDown(i int) error {
	h, err := s.playable(i)
	if err != nil {
		return err
	}
	if len(h.Cards) != 2 {
		return fmt.Errorf("%w: double down needs exactly two cards, hand has %d", blackjack.ErrInvalidAction, len(h.Cards))
	}
	if s.balance < h.Bet {
		return fmt.Errorf("%w: double down needs %d, balance is %d", blackjack.ErrInsufficientBalance, h.Bet, s.balance)
	}

	return s.atomically(func() error {
		s.balance -= h.Bet
		h.Bet *= 2
		if err := s.deal(h); err != nil {
			return err
		}
		if h.Status == blackjack.Active {
			h.Status = blackjack.DoubledStood
		}
		return s.advance()
	})
}

// Split turns a pair into two hands, each carrying the original bet and
// topped up with one fresh card.
func (s *Session) Split(i int) error {
	h, err := s.playable(i)
	if err != nil {
		return err
	}
	if !h.CanSplit() {
		return fmt.Errorf("%w: split needs two cards of equal rank, hand is %s", blackjack.ErrInvalidAction, h)
	}
	if s.balance < h.Bet {
		return fmt.Errorf("%w: split needs %d, balance is %d", blackjack.ErrInsufficientBalance, h.Bet, s.balance)
	}

	return s.atomically(func() error {
		s.balance -= h.Bet

		second := blackjack.NewHand(i+1, h.Bet)
		second.FromSplit = true
		second.Cards = append(second.Cards, h.Cards[1])
		h.Cards = h.Cards[:1]
		h.FromSplit = true

		hands := make([]*blackjack.Hand, 0, len(s.hands)+1)
		hands = append(hands, s.hands[:i+1]...)
		hands = append(hands, second)
		hands = append(hands, s.hands[i+1:]...)
		for idx, hand := range hands {
			hand.Index = idx
		}
		s.hands = hands

		if err := s.deal(h); err != nil {
			return err
		}
		if err := s.deal(second); err != nil {
			return err
		}
		return s.advance()
	})
}

// TakeCompleted returns the rounds settled since the last call
func (s *Session) TakeCompleted() []ledger.Round {
	out := s.completed
	s.completed = nil
	return out
}

func (s *Session) playable(i int) (*blackjack.Hand, error) {
	if s.phase != PlayerTurn {
		return nil, fmt.Errorf("%w: no hand in play (phase %s)", blackjack.ErrInvalidAction, s.phase)
	}
	h, err := s.Hand(i)
	if err != nil {
		return nil, err
	}
	if h.Status != blackjack.Active {
		return nil, fmt.Errorf("%w: hand %d is %s", blackjack.ErrInvalidAction, i, h.Status)
	}
	return h, nil
}

func (s *Session) deal(h *blackjack.Hand) error {
	c, err := s.shoe.Draw()
	if err != nil {
		return err
	}
	h.Add(c)
	return nil
}

// advance runs the dealer turn and settles once no player hand is active.
func (s *Session) advance() error {
	for _, h := range s.hands {
		if h.Status == blackjack.Active {
			return nil
		}
	}

	s.phase = DealerTurn
	if s.anyLive() {
		for blackjack.DealerShouldDraw(s.dealer.Cards, s.rules.DealerHitsSoft) {
			if err := s.deal(s.dealer); err != nil {
				return err
			}
		}
	}
	s.settle()
	return nil
}

// anyLive reports whether some hand still needs the dealer to play out.
func (s *Session) anyLive() bool {
	for _, h := range s.hands {
		if h.Status != blackjack.Busted && h.Status != blackjack.Natural {
			return true
		}
	}
	return false
}

func (s *Session) settle() {
	dealerTotal, _ := s.dealer.Total()
	round := ledger.Round{
		SessionID:   s.ID,
		Round:       s.round,
		Dealer:      s.dealer.String(),
		DealerTotal: dealerTotal,
		Generation:  s.shoe.Generation(),
		SettledAt:   s.now(),
	}

	for _, h := range s.hands {
		result, credited := blackjack.Settle(h, s.dealer.Cards, s.rules.BlackjackPayout)
		if credited {
			s.balance += result.Payout
		}
		total, _ := h.Total()
		round.Wagered += h.Bet
		round.Returned += result.Payout
		round.Hands = append(round.Hands, ledger.HandRecord{
			Index:   h.Index,
			Cards:   h.String(),
			Total:   total,
			Bet:     h.Bet,
			Status:  h.Status.String(),
			Outcome: string(result.Outcome),
			Payout:  result.Payout,
			Result:  result.Result,
		})
	}

	round.Balance = s.balance
	s.phase = Settled
	s.completed = append(s.completed, round)
}

type snapshot struct {
	dealer    *blackjack.Hand
	hands     []*blackjack.Hand
	balance   int64
	phase     Phase
	round     int
	completed int
	mark      blackjack.Mark
}

func (s *Session) snapshot() snapshot {
	hands := make([]*blackjack.Hand, len(s.hands))
	for i, h := range s.hands {
		hands[i] = h.Clone()
	}
	return snapshot{
		dealer:    s.dealer.Clone(),
		hands:     hands,
		balance:   s.balance,
		phase:     s.phase,
		round:     s.round,
		completed: len(s.completed),
		mark:      s.shoe.Mark(),
	}
}

func (s *Session) restore(snap snapshot) {
	s.dealer = snap.dealer
	s.hands = snap.hands
	s.balance = snap.balance
	s.phase = snap.phase
	s.round = snap.round
	s.completed = s.completed[:snap.completed]
	// A reshuffle during the failed action cannot be undone; the fresh
	// shoe is kept.
	s.shoe.Rewind(snap.mark)
}

// atomically runs fn and puts the session back the way it was if fn fails.
func (s *Session) atomically(fn func() error) error {
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}
