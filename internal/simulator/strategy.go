package simulator

import (
	"fmt"

	"github.com/lox/blackjackd/blackjack"
)

// Move is a player decision
type Move uint8

const (
	Hit Move = iota
	Stand
	Double
	Split
)

func (m Move) String() string {
	switch m {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	default:
		return "unknown"
	}
}

// Decision is what a strategy sees when picking a move
type Decision struct {
	Hand      *blackjack.Hand
	Upcard    blackjack.Card
	CanDouble bool
	CanSplit  bool
}

// Strategy picks a move for one active hand. Moves that are not allowed by
// the Decision are downgraded by the simulator.
type Strategy func(d Decision) Move

// Strategy names accepted by StrategyByName
const (
	StrategyBasic  = "basic"
	StrategyDealer = "dealer"
	StrategyStand  = "stand"
)

// StrategyByName returns a built-in strategy
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case StrategyBasic, "":
		return BasicStrategy, nil
	case StrategyDealer:
		return MimicDealer, nil
	case StrategyStand:
		return func(Decision) Move { return Stand }, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// MimicDealer hits below 17 and never doubles or splits
func MimicDealer(d Decision) Move {
	if total, _ := d.Hand.Total(); total < 17 {
		return Hit
	}
	return Stand
}

// BasicStrategy is a condensed multi-deck basic strategy chart
func BasicStrategy(d Decision) Move {
	up := d.Upcard.Rank.Points()
	total, soft := d.Hand.Total()

	if d.CanSplit {
		if split(d.Hand.Cards[0].Rank, up) {
			return Split
		}
	}

	if soft {
		switch {
		case total >= 19:
			return Stand
		case total == 18:
			if up >= 3 && up <= 6 && d.CanDouble {
				return Double
			}
			if up >= 9 {
				return Hit
			}
			return Stand
		case total >= 15 && up >= 4 && up <= 6 && d.CanDouble:
			return Double
		case total >= 13 && up >= 5 && up <= 6 && d.CanDouble:
			return Double
		default:
			return Hit
		}
	}

	switch {
	case total >= 17:
		return Stand
	case total >= 13:
		if up <= 6 {
			return Stand
		}
		return Hit
	case total == 12:
		if up >= 4 && up <= 6 {
			return Stand
		}
		return Hit
	case total == 11:
		if d.CanDouble && up != 11 {
			return Double
		}
		return Hit
	case total == 10:
		if d.CanDouble && up <= 9 {
			return Double
		}
		return Hit
	case total == 9:
		if d.CanDouble && up >= 3 && up <= 6 {
			return Double
		}
		return Hit
	default:
		return Hit
	}
}

func split(r blackjack.Rank, up int) bool {
	switch r.Points() {
	case 11, 8:
		return true
	case 9:
		return up <= 9 && up != 7
	case 7:
		return up <= 7
	case 6:
		return up <= 6
	case 4:
		return up == 5 || up == 6
	case 2, 3:
		return up <= 7
	default:
		return false
	}
}
