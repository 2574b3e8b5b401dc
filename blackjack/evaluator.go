package blackjack

// BestTotal returns the best blackjack total of cards: the highest total not
// above 21 if one exists, otherwise the smallest overshoot. soft reports
// whether an ace is still counted as 11.
func BestTotal(cards []Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		total += c.Rank.Points()
		if c.IsAce() {
			aces++
		}
	}

	// Demote aces from 11 to 1 one at a time
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// IsBust reports whether the best total exceeds 21.
func IsBust(cards []Card) bool {
	total, _ := BestTotal(cards)
	return total > 21
}

// IsBlackjack reports a two-card 21. Whether it counts as a natural also
// depends on the hand not coming from a split; see Hand.IsNatural.
func IsBlackjack(cards []Card) bool {
	if len(cards) != 2 {
		return false
	}
	total, _ := BestTotal(cards)
	return total == 21
}

// DealerShouldDraw applies the fixed dealer rule: draw below 17, and on a soft
// 17 only when hitSoft17 is set.
func DealerShouldDraw(cards []Card, hitSoft17 bool) bool {
	total, soft := BestTotal(cards)
	if total < 17 {
		return true
	}
	return total == 17 && soft && hitSoft17
}
