package server

import (
	"github.com/lox/blackjackd/internal/ledger"
	"github.com/lox/blackjackd/internal/session"
)

// Action names shared by the HTTP routes and WebSocket message types
const (
	ActionCreateSession = "create_session"
	ActionStartGame     = "start_game"
	ActionHit           = "hit"
	ActionStand         = "stand"
	ActionDoubleDown    = "double_down"
	ActionSplit         = "split"
	ActionSession       = "session"
	ActionHistory       = "history"
)

// ActionRequest is the body of every action. SessionID may instead arrive
// in the X-Session-ID header.
type ActionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Balance   int64  `json:"balance,omitempty"`
	Bet       int64  `json:"bet,omitempty"`
	HandIndex int    `json:"handIndex,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// StartGameResponse is returned by start-game. The settlement fields are
// only present when a natural ended the round on the deal.
type StartGameResponse struct {
	SessionID string             `json:"sessionId"`
	Player    string             `json:"player"`
	Dealer    string             `json:"dealer"`
	Balance   int64              `json:"balance"`
	Phase     session.Phase      `json:"phase"`
	Hands     []session.HandView `json:"hands"`
	Result    string             `json:"result,omitempty"`
	Outcome   string             `json:"outcome,omitempty"`
	Payout    *int64             `json:"payout,omitempty"`
	Results   []session.HandView `json:"results,omitempty"`
}

// HitResponse is returned by hit
type HitResponse struct {
	SessionID string             `json:"sessionId"`
	Player    string             `json:"player"`
	Result    string             `json:"result"`
	Bust      bool               `json:"bust"`
	Hand      int                `json:"hand"`
	Total     int                `json:"total"`
	Balance   int64              `json:"balance"`
	Phase     session.Phase      `json:"phase"`
	Hands     []session.HandView `json:"hands"`

	// Set when the hit busted the last live hand and the round settled
	Dealer  string             `json:"dealer,omitempty"`
	Outcome string             `json:"outcome,omitempty"`
	Payout  *int64             `json:"payout,omitempty"`
	Results []session.HandView `json:"results,omitempty"`
}

// StandResponse is returned by stand. Dealer and outcome are omitted while
// other hands are still in play.
type StandResponse struct {
	SessionID   string             `json:"sessionId"`
	Dealer      string             `json:"dealer,omitempty"`
	DealerTotal int                `json:"dealerTotal,omitempty"`
	Result      string             `json:"result"`
	Outcome     string             `json:"outcome,omitempty"`
	Payout      *int64             `json:"payout,omitempty"`
	Results     []session.HandView `json:"results,omitempty"`
	Balance     int64              `json:"balance"`
	Phase       session.Phase      `json:"phase"`
	Hands       []session.HandView `json:"hands"`
}

// DoubleDownResponse is the hit shape plus the doubled bet, with the stand
// fields once the round completes. Result stays the bust text when the
// double busts.
type DoubleDownResponse struct {
	SessionID   string             `json:"sessionId"`
	Player      string             `json:"player"`
	Result      string             `json:"result"`
	Bust        bool               `json:"bust"`
	Hand        int                `json:"hand"`
	Total       int                `json:"total"`
	Bet         int64              `json:"bet"`
	Dealer      string             `json:"dealer,omitempty"`
	DealerTotal int                `json:"dealerTotal,omitempty"`
	Outcome     string             `json:"outcome,omitempty"`
	Payout      *int64             `json:"payout,omitempty"`
	Results     []session.HandView `json:"results,omitempty"`
	Balance     int64              `json:"balance"`
	Phase       session.Phase      `json:"phase"`
	Hands       []session.HandView `json:"hands"`
}

// SplitResponse is returned by split; Player holds the two resulting hands.
type SplitResponse struct {
	SessionID string             `json:"sessionId"`
	Player    []string           `json:"player"`
	Balance   int64              `json:"balance"`
	Phase     session.Phase      `json:"phase"`
	Hands     []session.HandView `json:"hands"`
}

// HistoryResponse lists recent settled rounds, newest first
type HistoryResponse struct {
	SessionID string         `json:"sessionId"`
	Rounds    []ledger.Round `json:"rounds"`
}

// settled carries the round-level fields once a round is over. The
// top-level outcome and payout are those of the hand the action named.
type settled struct {
	dealer      string
	dealerTotal int
	result      string
	outcome     string
	payout      *int64
	results     []session.HandView
}

func settlementOf(v session.View, hand int) (settled, bool) {
	if v.Phase != session.Settled || hand < 0 || hand >= len(v.Hands) {
		return settled{}, false
	}
	h := v.Hands[hand]
	payout := h.Payout
	return settled{
		dealer:      v.Dealer,
		dealerTotal: v.DealerTotal,
		result:      h.Result,
		outcome:     h.Outcome,
		payout:      &payout,
		results:     v.Hands,
	}, true
}

func handAt(v session.View, i int) session.HandView {
	if i >= 0 && i < len(v.Hands) {
		return v.Hands[i]
	}
	return session.HandView{}
}

func startGameResponse(v session.View) StartGameResponse {
	resp := StartGameResponse{
		SessionID: v.SessionID,
		Player:    handAt(v, 0).Cards,
		Dealer:    v.Dealer,
		Balance:   v.Balance,
		Phase:     v.Phase,
		Hands:     v.Hands,
	}
	if st, ok := settlementOf(v, 0); ok {
		resp.Result = st.result
		resp.Outcome = st.outcome
		resp.Payout = st.payout
		resp.Results = st.results
	}
	return resp
}

func hitResponse(v session.View, i int, bustText string) HitResponse {
	h := handAt(v, i)
	resp := HitResponse{
		SessionID: v.SessionID,
		Player:    h.Cards,
		Result:    bustText,
		Bust:      h.Bust,
		Hand:      i,
		Total:     h.Total,
		Balance:   v.Balance,
		Phase:     v.Phase,
		Hands:     v.Hands,
	}
	if st, ok := settlementOf(v, i); ok {
		resp.Dealer = st.dealer
		resp.Outcome = st.outcome
		resp.Payout = st.payout
		resp.Results = st.results
	}
	return resp
}

func standResponse(v session.View, i int) StandResponse {
	resp := StandResponse{
		SessionID: v.SessionID,
		Balance:   v.Balance,
		Phase:     v.Phase,
		Hands:     v.Hands,
	}
	if st, ok := settlementOf(v, i); ok {
		resp.Dealer = st.dealer
		resp.DealerTotal = st.dealerTotal
		resp.Result = st.result
		resp.Outcome = st.outcome
		resp.Payout = st.payout
		resp.Results = st.results
	}
	return resp
}

func doubleDownResponse(v session.View, i int, bustText string) DoubleDownResponse {
	h := handAt(v, i)
	resp := DoubleDownResponse{
		SessionID: v.SessionID,
		Player:    h.Cards,
		Result:    bustText,
		Bust:      h.Bust,
		Hand:      i,
		Total:     h.Total,
		Bet:       h.Bet,
		Balance:   v.Balance,
		Phase:     v.Phase,
		Hands:     v.Hands,
	}
	if st, ok := settlementOf(v, i); ok {
		resp.Dealer = st.dealer
		resp.DealerTotal = st.dealerTotal
		// A busting double keeps the hit-style "<rank> busts" text
		if !h.Bust {
			resp.Result = st.result
		}
		resp.Outcome = st.outcome
		resp.Payout = st.payout
		resp.Results = st.results
	}
	return resp
}

func splitResponse(v session.View, i int) SplitResponse {
	return SplitResponse{
		SessionID: v.SessionID,
		Player:    []string{handAt(v, i).Cards, handAt(v, i+1).Cards},
		Balance:   v.Balance,
		Phase:     v.Phase,
		Hands:     v.Hands,
	}
}
