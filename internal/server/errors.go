package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/session"
)

// Error codes returned in the code field of an error body
const (
	CodeInvalidBet          = "invalid_bet"
	CodeInvalidAction       = "invalid_action"
	CodeInsufficientBalance = "insufficient_balance"
	CodeSessionNotFound     = "session_not_found"
	CodeSessionExpired      = "session_expired"
	CodeShoeExhausted       = "shoe_exhausted"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal"
)

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, blackjack.ErrInvalidBet):
		return http.StatusBadRequest, CodeInvalidBet
	case errors.Is(err, blackjack.ErrInvalidAction):
		return http.StatusConflict, CodeInvalidAction
	case errors.Is(err, blackjack.ErrInsufficientBalance):
		return http.StatusPaymentRequired, CodeInsufficientBalance
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusGone, CodeSessionExpired
	case errors.Is(err, blackjack.ErrShoeExhausted):
		return http.StatusServiceUnavailable, CodeShoeExhausted
	case errors.Is(err, errBadRequest), errors.Is(err, session.ErrInvalidBalance):
		return http.StatusBadRequest, CodeBadRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func errorBody(err error) ErrorResponse {
	_, code := classify(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return ErrorResponse{Error: msg, Code: code}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Ignore write errors, client is gone
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorBody(err))
}
