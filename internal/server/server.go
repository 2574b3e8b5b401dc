package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lox/blackjackd/internal/ledger"
	"github.com/lox/blackjackd/internal/session"
	"github.com/lox/blackjackd/internal/sessionid"
)

// SessionHeader carries the session id when the body does not
const SessionHeader = "X-Session-ID"

// maxBodyBytes caps action request bodies
const maxBodyBytes = 64 << 10

// Server is the HTTP and WebSocket front end over the session manager
type Server struct {
	logger     zerolog.Logger
	manager    *session.Manager
	history    ledger.Reader
	corsOrigin string
	upgrader   websocket.Upgrader
	router     chi.Router

	mu          sync.Mutex
	httpServer  *http.Server
	connections map[*Connection]struct{}
}

// Option configures a Server
type Option func(*Server)

// WithCORSOrigin sets the Access-Control-Allow-Origin value
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithHistory sets where /history reads settled rounds from
func WithHistory(r ledger.Reader) Option {
	return func(s *Server) { s.history = r }
}

// NewServer creates a server over manager
func NewServer(logger zerolog.Logger, manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		logger:      logger.With().Str("component", "server").Logger(),
		manager:     manager,
		corsOrigin:  "*",
		connections: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.corsOrigin))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.handleWebSocket)

	r.Post("/sessions", s.action(ActionCreateSession))
	r.Post("/start-game", s.action(ActionStartGame))
	r.Post("/hit", s.action(ActionHit))
	r.Post("/stand", s.action(ActionStand))
	r.Post("/double-down", s.action(ActionDoubleDown))
	r.Post("/split", s.action(ActionSplit))
	r.Get("/session", s.action(ActionSession))
	r.Get("/history", s.action(ActionHistory))
	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("Listening")
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests and closes open WebSocket connections
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close() // Ignore close errors during shutdown
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.corsOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.corsOrigin
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK") // Ignore write errors for health check
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Stats())
}

// action adapts Dispatch to an HTTP handler. GET requests take their
// parameters from the query string.
func (s *Server) action(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		resp, err := s.Dispatch(r.Context(), name, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if id := sessionIDOf(resp); id != "" {
			w.Header().Set(SessionHeader, id)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func decodeRequest(r *http.Request) (ActionRequest, error) {
	var req ActionRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.SessionID = q.Get("sessionId")
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, fmt.Errorf("%w: limit must be a number", errBadRequest)
			}
			req.Limit = n
		}
	} else {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(SessionHeader)
	}
	return req, nil
}

// Dispatch runs one named action. It is shared by the HTTP routes and the
// WebSocket transport.
func (s *Server) Dispatch(ctx context.Context, name string, req ActionRequest) (any, error) {
	if name == ActionCreateSession {
		if req.Balance < 0 {
			return nil, fmt.Errorf("%w: balance must not be negative", errBadRequest)
		}
		return s.manager.Create(ctx, req.Balance)
	}

	if req.SessionID != "" {
		if err := sessionid.Validate(req.SessionID); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	if name == ActionStartGame {
		var resp StartGameResponse
		bet := func(sess *session.Session) error {
			if err := sess.PlaceBet(req.Bet); err != nil {
				return err
			}
			resp = startGameResponse(sess.View())
			return nil
		}
		// Without an id the session only exists if the bet is accepted
		if req.SessionID == "" {
			if req.Balance < 0 {
				return nil, fmt.Errorf("%w: balance must not be negative", errBadRequest)
			}
			_, err := s.manager.Open(ctx, req.Balance, bet)
			return resp, err
		}
		return resp, s.manager.Do(ctx, req.SessionID, bet)
	}

	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", errBadRequest)
	}

	switch name {
	case ActionHit:
		var resp HitResponse
		err := s.manager.Do(ctx, req.SessionID, func(sess *session.Session) error {
			if err := sess.Hit(req.HandIndex); err != nil {
				return err
			}
			h, _ := sess.Hand(req.HandIndex)
			resp = hitResponse(sess.View(), req.HandIndex, session.BustText(h))
			return nil
		})
		return resp, err

	case ActionStand:
		var resp StandResponse
		err := s.manager.Do(ctx, req.SessionID, func(sess *session.Session) error {
			if err := sess.Stand(req.HandIndex); err != nil {
				return err
			}
			resp = standResponse(sess.View(), req.HandIndex)
			return nil
		})
		return resp, err

	case ActionDoubleDown:
		var resp DoubleDownResponse
		err := s.manager.Do(ctx, req.SessionID, func(sess *session.Session) error {
			if err := sess.DoubleDown(req.HandIndex); err != nil {
				return err
			}
			h, _ := sess.Hand(req.HandIndex)
			resp = doubleDownResponse(sess.View(), req.HandIndex, session.BustText(h))
			return nil
		})
		return resp, err

	case ActionSplit:
		var resp SplitResponse
		err := s.manager.Do(ctx, req.SessionID, func(sess *session.Session) error {
			if err := sess.Split(req.HandIndex); err != nil {
				return err
			}
			resp = splitResponse(sess.View(), req.HandIndex)
			return nil
		})
		return resp, err

	case ActionSession:
		return s.manager.View(ctx, req.SessionID)

	case ActionHistory:
		// Resolve the session first so unknown and expired ids report properly
		if _, err := s.manager.View(ctx, req.SessionID); err != nil {
			return nil, err
		}
		resp := HistoryResponse{SessionID: req.SessionID, Rounds: []ledger.Round{}}
		if s.history == nil {
			return resp, nil
		}
		rounds, err := s.history.History(ctx, req.SessionID, req.Limit)
		if err != nil {
			return nil, err
		}
		if len(rounds) > 0 {
			resp.Rounds = rounds
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w: unknown action %q", errBadRequest, name)
}

func sessionIDOf(resp any) string {
	switch v := resp.(type) {
	case session.View:
		return v.SessionID
	case StartGameResponse:
		return v.SessionID
	case HitResponse:
		return v.SessionID
	case StandResponse:
		return v.SessionID
	case DoubleDownResponse:
		return v.SessionID
	case SplitResponse:
		return v.SessionID
	case HistoryResponse:
		return v.SessionID
	}
	return ""
}
