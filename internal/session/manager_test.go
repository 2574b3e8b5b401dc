package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/ledger"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

func stackedFactory(cards string) Option {
	return WithShoeFactory(func() (*blackjack.Shoe, error) {
		return blackjack.NewStackedShoe(blackjack.MustParseCards(cards)...), nil
	})
}

func TestManagerCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, err := NewManager(testLogger())
	require.NoError(t, err)

	v, err := m.Create(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Balance, "default starting balance")
	assert.Equal(t, AwaitingBet, v.Phase)
	assert.Len(t, v.SessionID, 26)
	assert.Equal(t, 8*52, v.ShoeRemaining)

	v, err = m.Create(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), v.Balance)

	assert.Equal(t, 2, m.Stats().LiveSessions)
}

func TestManagerRejectsInvalidRules(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Rules.Decks = 0
	_, err := NewManager(testLogger(), WithConfig(cfg))
	assert.Error(t, err)
}

func TestManagerUnknownSession(t *testing.T) {
	t.Parallel()
	m, err := NewManager(testLogger())
	require.NoError(t, err)

	_, err = m.View(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerRecordsSettledRounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := ledger.NewMemory(10)
	m, err := NewManager(testLogger(),
		WithRecorder(mem),
		stackedFactory("10 of Spades, 10 of Hearts, 9 of Clubs, 8 of Diamonds"))
	require.NoError(t, err)

	v, err := m.Create(ctx, 100)
	require.NoError(t, err)
	id := v.SessionID

	require.NoError(t, m.Do(ctx, id, func(s *Session) error { return s.PlaceBet(10) }))
	history, err := mem.History(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, m.Do(ctx, id, func(s *Session) error { return s.Stand(0) }))
	// A repeated stand must not record twice
	require.NoError(t, m.Do(ctx, id, func(s *Session) error { return s.Stand(0) }))

	history, err = mem.History(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "win", history[0].Hands[0].Outcome)
	assert.Equal(t, int64(110), history[0].Balance)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Rounds)
	assert.Equal(t, int64(1), stats.HandsWon)
	assert.Equal(t, int64(10), stats.Wagered)
	assert.Equal(t, int64(-10), stats.HouseNet)
}

func TestManagerStampsRoundsWithClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	mem := ledger.NewMemory(10)
	m, err := NewManager(testLogger(),
		WithRecorder(mem),
		WithClock(clock),
		stackedFactory("A of Spades, 10 of Hearts, K of Hearts, 7 of Diamonds"))
	require.NoError(t, err)

	v, err := m.Open(ctx, 100, func(s *Session) error { return s.PlaceBet(10) })
	require.NoError(t, err)
	assert.Equal(t, Settled, v.Phase, "a natural settles on the deal")

	history, err := mem.History(ctx, v.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].SettledAt.Equal(clock.Now()), "settled at %v", history[0].SettledAt)
}

func TestManagerOpenDropsSessionOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, err := NewManager(testLogger())
	require.NoError(t, err)

	_, err = m.Open(ctx, 50, func(s *Session) error { return s.PlaceBet(0) })
	assert.ErrorIs(t, err, blackjack.ErrInvalidBet)

	_, err = m.Open(ctx, 50, func(s *Session) error { return s.PlaceBet(60) })
	assert.Error(t, err)

	stats := m.Stats()
	assert.Zero(t, stats.LiveSessions)
	assert.Zero(t, stats.CreatedSessions)
}

func TestManagerMaxBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, err := NewManager(testLogger())
	require.NoError(t, err)

	_, err = m.Create(ctx, DefaultMaxBalance+1)
	assert.ErrorIs(t, err, ErrInvalidBalance)
	_, err = m.Create(ctx, DefaultMaxBalance)
	assert.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxBalance = MaxBalanceLimit + 1
	_, err = NewManager(testLogger(), WithConfig(cfg))
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxBalance = 100
	cfg.StartingBalance = 200
	_, err = NewManager(testLogger(), WithConfig(cfg))
	assert.Error(t, err)
}

func TestManagerLargestBalanceDoesNotOverflow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxBalance = MaxBalanceLimit
	// Player 6,5 doubles into 20 against a dealer 17
	m, err := NewManager(testLogger(),
		WithConfig(cfg),
		stackedFactory("6 of Spades, 10 of Hearts, 5 of Clubs, 7 of Diamonds, 9 of Clubs"))
	require.NoError(t, err)

	v, err := m.Create(ctx, MaxBalanceLimit)
	require.NoError(t, err)
	bet := int64(MaxBalanceLimit / 2)

	require.NoError(t, m.Do(ctx, v.SessionID, func(s *Session) error {
		if err := s.PlaceBet(bet); err != nil {
			return err
		}
		return s.DoubleDown(0)
	}))

	v, err = m.View(ctx, v.SessionID)
	require.NoError(t, err)
	assert.Equal(t, Settled, v.Phase)
	assert.Equal(t, int64(MaxBalanceLimit)-2*bet+4*bet, v.Balance)
	assert.Positive(t, v.Balance)
}

func TestManagerExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	cfg := DefaultConfig()
	cfg.SettledGrace = 5 * time.Minute
	cfg.IdleTimeout = 30 * time.Minute

	m, err := NewManager(testLogger(),
		WithConfig(cfg),
		WithClock(clock),
		stackedFactory("10 of Spades, 10 of Hearts, 9 of Clubs, 8 of Diamonds"))
	require.NoError(t, err)

	settled, err := m.Create(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, m.Do(ctx, settled.SessionID, func(s *Session) error {
		if err := s.PlaceBet(10); err != nil {
			return err
		}
		return s.Stand(0)
	}))

	idle, err := m.Create(ctx, 100)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute).MustWait(ctx)
	assert.Equal(t, 0, m.Sweep())

	clock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, 1, m.Sweep(), "settled session past its grace period")

	_, err = m.View(ctx, settled.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = m.View(ctx, idle.SessionID)
	require.NoError(t, err, "awaiting-bet session is only subject to the idle timeout")

	clock.Advance(30 * time.Minute).MustWait(ctx)
	assert.Equal(t, 1, m.Sweep())
	_, err = m.View(ctx, idle.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	stats := m.Stats()
	assert.Equal(t, 0, stats.LiveSessions)
	assert.Equal(t, int64(2), stats.ExpiredSessions)
}

func TestManagerSweepSkipsBusySession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m, err := NewManager(testLogger(), WithClock(clock))
	require.NoError(t, err)

	v, err := m.Create(ctx, 100)
	require.NoError(t, err)
	clock.Advance(time.Hour).MustWait(ctx)

	require.NoError(t, m.Do(ctx, v.SessionID, func(s *Session) error {
		assert.Equal(t, 0, m.Sweep(), "locked session is skipped")
		return nil
	}))

	// The action refreshed its activity time
	assert.Equal(t, 0, m.Sweep())
	_, err = m.View(ctx, v.SessionID)
	assert.NoError(t, err)
}

func TestManagerConcurrentHits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const hits = 5
	m, err := NewManager(testLogger(), stackedFactory(
		"2 of Spades, 10 of Hearts, 2 of Hearts, 7 of Diamonds, "+
			"2 of Clubs, 2 of Diamonds, 3 of Spades, 3 of Hearts, 3 of Clubs"))
	require.NoError(t, err)

	v, err := m.Create(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, m.Do(ctx, v.SessionID, func(s *Session) error { return s.PlaceBet(10) }))

	var wg sync.WaitGroup
	errs := make(chan error, hits)
	for range hits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Do(ctx, v.SessionID, func(s *Session) error { return s.Hit(0) })
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	v, err = m.View(ctx, v.SessionID)
	require.NoError(t, err)
	require.Len(t, v.Hands, 1)
	assert.Equal(t, "2 of Spades, 2 of Hearts, 2 of Clubs, 2 of Diamonds, 3 of Spades, 3 of Hearts, 3 of Clubs", v.Hands[0].Cards)
	assert.Equal(t, 17, v.Hands[0].Total)
	assert.Equal(t, 0, v.ShoeRemaining)
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, err := NewManager(testLogger(), WithConfig(Config{
		Rules:           blackjack.DefaultRules(),
		StartingBalance: 500,
		IdleTimeout:     time.Minute,
		SettledGrace:    time.Minute,
		Seed:            42,
	}))
	require.NoError(t, err)

	a, err := m.Create(ctx, 0)
	require.NoError(t, err)
	b, err := m.Create(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, m.Do(ctx, a.SessionID, func(s *Session) error { return s.PlaceBet(100) }))

	va, err := m.View(ctx, a.SessionID)
	require.NoError(t, err)
	vb, err := m.View(ctx, b.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, AwaitingBet, va.Phase)
	assert.Equal(t, 1, va.Round)
	assert.Equal(t, int64(500), vb.Balance)
	assert.Equal(t, AwaitingBet, vb.Phase)
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	m, err := NewManager(testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
