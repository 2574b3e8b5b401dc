package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/ledger"
	"github.com/lox/blackjackd/internal/randutil"
	"github.com/lox/blackjackd/internal/sessionid"
)

// DefaultMaxBalance caps the balance a session may be opened with
const DefaultMaxBalance = 1_000_000_000

// MaxBalanceLimit is the highest MaxBalance accepted. Doubled and split bets
// and their payouts stay far below int64 overflow under it.
const MaxBalanceLimit = math.MaxInt64 >> 10

// Config controls session defaults and lifetimes
type Config struct {
	Rules           blackjack.Rules
	StartingBalance int64
	MaxBalance      int64
	IdleTimeout     time.Duration
	SettledGrace    time.Duration
	SweepInterval   time.Duration
	Seed            int64
}

// DefaultConfig returns the defaults used when no config file is given
func DefaultConfig() Config {
	return Config{
		Rules:           blackjack.DefaultRules(),
		StartingBalance: 1000,
		MaxBalance:      DefaultMaxBalance,
		IdleTimeout:     30 * time.Minute,
		SettledGrace:    10 * time.Minute,
		SweepInterval:   time.Minute,
	}
}

// Option configures a Manager
type Option func(*Manager)

// WithConfig replaces the default config
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

// WithClock sets the clock used for expiry
func WithClock(clock quartz.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithRecorder sends settled rounds to rec
func WithRecorder(rec ledger.Recorder) Option {
	return func(m *Manager) { m.recorder = rec }
}

// WithShoeFactory overrides how shoes are built for new sessions
func WithShoeFactory(f func() (*blackjack.Shoe, error)) Option {
	return func(m *Manager) { m.newShoe = f }
}

type entry struct {
	mu         sync.Mutex
	session    *Session
	lastActive time.Time
	closed     bool
}

// Stats is a point-in-time summary of the manager
type Stats struct {
	LiveSessions    int   `json:"liveSessions"`
	CreatedSessions int64 `json:"createdSessions"`
	ExpiredSessions int64 `json:"expiredSessions"`
	Rounds          int64 `json:"rounds"`
	HandsWon        int64 `json:"handsWon"`
	HandsDrawn      int64 `json:"handsDrawn"`
	HandsLost       int64 `json:"handsLost"`
	Wagered         int64 `json:"wagered"`
	HouseNet        int64 `json:"houseNet"`
}

// Manager owns every live session. Actions on one session are serialised
// by that session's mutex; different sessions only share the map lookup.
type Manager struct {
	logger   zerolog.Logger
	config   Config
	clock    quartz.Clock
	recorder ledger.Recorder
	rngs     *randutil.Source
	newShoe  func() (*blackjack.Shoe, error)

	mu         sync.RWMutex
	sessions   map[string]*entry
	tombstones map[string]time.Time

	created  atomic.Int64
	expired  atomic.Int64
	rounds   atomic.Int64
	won      atomic.Int64
	drawn    atomic.Int64
	lost     atomic.Int64
	wagered  atomic.Int64
	houseNet atomic.Int64
}

// NewManager creates a Manager
func NewManager(logger zerolog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		logger:     logger.With().Str("component", "sessions").Logger(),
		config:     DefaultConfig(),
		clock:      quartz.NewReal(),
		recorder:   ledger.Discard{},
		sessions:   make(map[string]*entry),
		tombstones: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.config.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table rules: %w", err)
	}
	if m.config.MaxBalance == 0 {
		m.config.MaxBalance = DefaultMaxBalance
	}
	if m.config.MaxBalance < 0 || m.config.MaxBalance > MaxBalanceLimit {
		return nil, fmt.Errorf("max balance must be between 1 and %d, got %d", int64(MaxBalanceLimit), m.config.MaxBalance)
	}
	if m.config.StartingBalance > m.config.MaxBalance {
		return nil, fmt.Errorf("starting balance %d exceeds max balance %d", m.config.StartingBalance, m.config.MaxBalance)
	}
	m.rngs = randutil.NewSource(m.config.Seed)
	if m.newShoe == nil {
		rules := m.config.Rules
		m.newShoe = func() (*blackjack.Shoe, error) {
			return blackjack.NewShoe(rules.Decks, rules.Reserve, rules.Reshuffle, m.rngs.Child())
		}
	}
	return m, nil
}

// Config returns the manager's config
func (m *Manager) Config() Config { return m.config }

// Create starts a new session. A balance of zero or less uses the configured
// starting balance.
func (m *Manager) Create(ctx context.Context, balance int64) (View, error) {
	return m.Open(ctx, balance, nil)
}

// Open creates a session and runs fn on it before it becomes visible to
// other callers. If fn fails the session is dropped and never registered.
func (m *Manager) Open(ctx context.Context, balance int64, fn func(*Session) error) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	if balance <= 0 {
		balance = m.config.StartingBalance
	}
	if balance > m.config.MaxBalance {
		return View{}, fmt.Errorf("%w: %d exceeds the table maximum of %d", ErrInvalidBalance, balance, m.config.MaxBalance)
	}

	id, err := sessionid.Generate()
	if err != nil {
		return View{}, err
	}
	shoe, err := m.newShoe()
	if err != nil {
		return View{}, fmt.Errorf("create shoe: %w", err)
	}

	now := m.clock.Now()
	s := New(id, m.config.Rules, shoe, balance)
	s.CreatedAt = now
	s.now = func() time.Time { return m.clock.Now() }

	if fn != nil {
		if err := fn(s); err != nil {
			return View{}, err
		}
	}

	m.mu.Lock()
	m.sessions[id] = &entry{session: s, lastActive: now}
	m.mu.Unlock()
	m.created.Add(1)

	m.logger.Debug().Str("session_id", id).Int64("balance", balance).Msg("Session created")
	m.record(ctx, s.TakeCompleted())
	return s.View(), nil
}

// Do runs fn with exclusive access to the session. Rounds settled by fn are
// recorded after the lock is released.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	rounds, err := func() ([]ledger.Round, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return nil, fmt.Errorf("%w: %s", ErrSessionExpired, id)
		}
		err := fn(e.session)
		e.lastActive = m.clock.Now()
		return e.session.TakeCompleted(), err
	}()

	m.record(ctx, rounds)
	return err
}

// View returns the current view of a session
func (m *Manager) View(ctx context.Context, id string) (View, error) {
	var v View
	err := m.Do(ctx, id, func(s *Session) error {
		v = s.View()
		return nil
	})
	return v, err
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}
	if _, ok := m.tombstones[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, id)
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

func (m *Manager) record(ctx context.Context, rounds []ledger.Round) {
	if len(rounds) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, r := range rounds {
		m.rounds.Add(1)
		m.wagered.Add(r.Wagered)
		m.houseNet.Add(-r.Net())
		for _, h := range r.Hands {
			switch blackjack.Outcome(h.Outcome) {
			case blackjack.Win:
				m.won.Add(1)
			case blackjack.Draw:
				m.drawn.Add(1)
			case blackjack.Lose:
				m.lost.Add(1)
			}
		}

		if err := m.recorder.Record(ctx, r); err != nil {
			m.logger.Error().Err(err).
				Str("session_id", r.SessionID).
				Int("round", r.Round).
				Msg("Failed to record round")
		}
	}
}

// Sweep evicts sessions that have sat settled past the grace period or idle
// past the timeout. Sessions whose lock is held are skipped until the next
// sweep. Returns the number evicted.
func (m *Manager) Sweep() int {
	now := m.clock.Now()

	m.mu.RLock()
	candidates := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		candidates[id] = e
	}
	m.mu.RUnlock()

	var evicted []string
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		idle := now.Sub(e.lastActive)
		if idle >= m.config.IdleTimeout ||
			(e.session.Phase() == Settled && idle >= m.config.SettledGrace) {
			e.closed = true
			evicted = append(evicted, id)
		}
		e.mu.Unlock()
	}

	m.mu.Lock()
	for _, id := range evicted {
		delete(m.sessions, id)
		m.tombstones[id] = now
	}
	// Tombstones only need to outlive a client that gave up on its session
	for id, at := range m.tombstones {
		if now.Sub(at) >= m.tombstoneTTL() {
			delete(m.tombstones, id)
		}
	}
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.expired.Add(int64(len(evicted)))
		if f, ok := m.recorder.(ledger.Forgetter); ok {
			for _, id := range evicted {
				f.Forget(id)
			}
		}
		m.logger.Debug().Int("evicted", len(evicted)).Msg("Swept expired sessions")
	}
	return len(evicted)
}

func (m *Manager) tombstoneTTL() time.Duration {
	return 4 * max(m.config.IdleTimeout, m.config.SettledGrace)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	w := m.clock.TickerFunc(ctx, interval, func() error {
		m.Sweep()
		return nil
	}, "janitor")
	if err := w.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stats returns current counters
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	live := len(m.sessions)
	m.mu.RUnlock()

	return Stats{
		LiveSessions:    live,
		CreatedSessions: m.created.Load(),
		ExpiredSessions: m.expired.Load(),
		Rounds:          m.rounds.Load(),
		HandsWon:        m.won.Load(),
		HandsDrawn:      m.drawn.Load(),
		HandsLost:       m.lost.Load(),
		Wagered:         m.wagered.Load(),
		HouseNet:        m.houseNet.Load(),
	}
}
