package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		card Card
		want string
	}{
		{NewCard(King, Spades), "K of Spades"},
		{NewCard(Ace, Hearts), "A of Hearts"},
		{NewCard(Ten, Diamonds), "10 of Diamonds"},
		{NewCard(Two, Clubs), "2 of Clubs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.card.String())
	}
}

func TestFormatCards(t *testing.T) {
	t.Parallel()
	cards := []Card{NewCard(King, Spades), NewCard(Ace, Hearts), NewCard(Five, Clubs)}
	assert.Equal(t, "K of Spades, A of Hearts, 5 of Clubs", FormatCards(cards))
	assert.Equal(t, "", FormatCards(nil))
}

func TestParseCards(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    []Card
		wantErr bool
	}{
		{
			name:  "two cards",
			input: "K of Spades, A of Hearts",
			want:  []Card{NewCard(King, Spades), NewCard(Ace, Hearts)},
		},
		{
			name:  "ten",
			input: "10 of Diamonds",
			want:  []Card{NewCard(Ten, Diamonds)},
		},
		{
			name:  "case insensitive",
			input: "q of clubs",
			want:  []Card{NewCard(Queen, Clubs)},
		},
		{
			name:  "empty",
			input: "",
			want:  []Card{},
		},
		{name: "bad rank", input: "1 of Spades", wantErr: true},
		{name: "bad suit", input: "K of Swords", wantErr: true},
		{name: "no separator", input: "KS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Ace; rank <= King; rank++ {
			c := NewCard(rank, suit)
			got, err := ParseCard(c.String())
			require.NoError(t, err)
			assert.Equal(t, c, got)
		}
	}
}

func TestMustParseCardsPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParseCards("nonsense") })
}

func TestRankPoints(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 11, Ace.Points())
	assert.Equal(t, 2, Two.Points())
	assert.Equal(t, 9, Nine.Points())
	for _, r := range []Rank{Ten, Jack, Queen, King} {
		assert.Equal(t, 10, r.Points(), r.String())
	}
}
