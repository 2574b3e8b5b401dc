package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/session"
)

// Config holds configuration for running simulations
type Config struct {
	Rounds   int
	Workers  int
	Bet      int64
	Balance  int64
	Strategy string
	Timeout  time.Duration
}

// DefaultConfig returns the settings used by the simulate command
func DefaultConfig() Config {
	return Config{
		Rounds:   10000,
		Workers:  4,
		Bet:      10,
		Balance:  1000,
		Strategy: StrategyBasic,
		Timeout:  5 * time.Minute,
	}
}

// Result aggregates every round played
type Result struct {
	Rounds   int64         `json:"rounds"`
	Hands    int64         `json:"hands"`
	Won      int64         `json:"won"`
	Drawn    int64         `json:"drawn"`
	Lost     int64         `json:"lost"`
	Naturals int64         `json:"naturals"`
	Busts    int64         `json:"busts"`
	Doubles  int64         `json:"doubles"`
	Splits   int64         `json:"splits"`
	Sessions int64         `json:"sessions"`
	Wagered  int64         `json:"wagered"`
	Returned int64         `json:"returned"`
	Duration time.Duration `json:"duration"`
}

// HouseNet is what the house kept across all rounds
func (r Result) HouseNet() int64 {
	return r.Wagered - r.Returned
}

// HouseEdge is HouseNet as a fraction of the total wagered
func (r Result) HouseEdge() float64 {
	if r.Wagered == 0 {
		return 0
	}
	return float64(r.HouseNet()) / float64(r.Wagered)
}

func (r *Result) add(o Result) {
	r.Rounds += o.Rounds
	r.Hands += o.Hands
	r.Won += o.Won
	r.Drawn += o.Drawn
	r.Lost += o.Lost
	r.Naturals += o.Naturals
	r.Busts += o.Busts
	r.Doubles += o.Doubles
	r.Splits += o.Splits
	r.Sessions += o.Sessions
	r.Wagered += o.Wagered
	r.Returned += o.Returned
}

// Simulator plays rounds against a session manager with a fixed strategy
type Simulator struct {
	logger   zerolog.Logger
	manager  *session.Manager
	config   Config
	strategy Strategy
}

// New creates a simulator that plays through manager
func New(logger zerolog.Logger, manager *session.Manager, config Config) (*Simulator, error) {
	if config.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", config.Rounds)
	}
	if config.Bet <= 0 {
		return nil, fmt.Errorf("bet must be positive, got %d", config.Bet)
	}
	if config.Balance < config.Bet {
		return nil, fmt.Errorf("balance %d is below the bet %d", config.Balance, config.Bet)
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	strategy, err := StrategyByName(config.Strategy)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		logger:   logger.With().Str("component", "simulator").Logger(),
		manager:  manager,
		config:   config,
		strategy: strategy,
	}, nil
}

// Run plays all rounds across the configured workers
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		mu    sync.Mutex
		total Result
	)

	g, gctx := errgroup.WithContext(ctx)
	per := s.config.Rounds / s.config.Workers
	extra := s.config.Rounds % s.config.Workers
	for w := range s.config.Workers {
		rounds := per
		if w < extra {
			rounds++
		}
		if rounds == 0 {
			continue
		}
		g.Go(func() error {
			res, err := s.worker(gctx, w, rounds)
			mu.Lock()
			total.add(res)
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	total.Duration = time.Since(start)
	if errors.Is(err, context.DeadlineExceeded) {
		return total, fmt.Errorf("simulation timed out after %v with %d rounds played", s.config.Timeout, total.Rounds)
	}
	return total, err
}

// worker plays rounds on one session at a time, opening a new session when
// the balance can no longer cover the bet.
func (s *Simulator) worker(ctx context.Context, id, rounds int) (Result, error) {
	var res Result
	logger := s.logger.With().Int("worker", id).Logger()

	sessionID := ""
	for played := 0; played < rounds; {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if sessionID == "" {
			v, err := s.manager.Create(ctx, s.config.Balance)
			if err != nil {
				return res, fmt.Errorf("failed to create session: %w", err)
			}
			sessionID = v.SessionID
			res.Sessions++
		}

		broke := false
		err := s.manager.Do(ctx, sessionID, func(sess *session.Session) error {
			if sess.Balance() < s.config.Bet {
				broke = true
				return nil
			}
			if err := sess.PlaceBet(s.config.Bet); err != nil {
				return err
			}
			if err := s.play(sess, &res); err != nil {
				return err
			}
			tally(sess, &res)
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("round %d on session %s: %w", played+1, sessionID, err)
		}
		if broke {
			logger.Debug().Str("session_id", sessionID).Msg("Session out of funds")
			sessionID = ""
			continue
		}
		played++
	}
	return res, nil
}

// play drives every player hand until the round settles
func (s *Simulator) play(sess *session.Session, res *Result) error {
	for sess.Phase() == session.PlayerTurn {
		i := -1
		for idx, h := range sess.Hands() {
			if !h.Terminal() {
				i = idx
				break
			}
		}
		if i < 0 {
			return fmt.Errorf("%w: no active hand during player turn", blackjack.ErrInvalidAction)
		}

		h := sess.Hands()[i]
		d := Decision{
			Hand:      h,
			Upcard:    sess.Dealer().Cards[0],
			CanDouble: len(h.Cards) == 2 && sess.Balance() >= h.Bet,
			CanSplit:  h.CanSplit() && sess.Balance() >= h.Bet,
		}

		var err error
		switch move := s.strategy(d); {
		case move == Split && d.CanSplit:
			res.Splits++
			err = sess.Split(i)
		case move == Double && d.CanDouble:
			res.Doubles++
			err = sess.DoubleDown(i)
		case move == Hit || move == Double:
			err = sess.Hit(i)
		default:
			err = sess.Stand(i)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func tally(sess *session.Session, res *Result) {
	res.Rounds++
	for _, h := range sess.Hands() {
		res.Hands++
		res.Wagered += h.Bet
		res.Returned += h.Payout
		switch h.Outcome {
		case blackjack.Win:
			res.Won++
		case blackjack.Draw:
			res.Drawn++
		case blackjack.Lose:
			res.Lost++
		}
		switch h.Status {
		case blackjack.Natural:
			res.Naturals++
		case blackjack.Busted:
			res.Busts++
		}
	}
}

// PrintSummary writes a readable summary of res
func PrintSummary(w io.Writer, res Result, strategy string) {
	pct := func(n int64) float64 {
		if res.Hands == 0 {
			return 0
		}
		return float64(n) / float64(res.Hands) * 100
	}

	_, _ = fmt.Fprintf(w, "\n=== RESULTS (%s strategy) ===\n", strategy)
	_, _ = fmt.Fprintf(w, "Rounds played: %d across %d sessions in %v\n", res.Rounds, res.Sessions, res.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Hands: %d (won %d %.1f%%, drawn %d %.1f%%, lost %d %.1f%%)\n",
		res.Hands, res.Won, pct(res.Won), res.Drawn, pct(res.Drawn), res.Lost, pct(res.Lost))
	_, _ = fmt.Fprintf(w, "Naturals: %d, busts: %d, doubles: %d, splits: %d\n",
		res.Naturals, res.Busts, res.Doubles, res.Splits)
	_, _ = fmt.Fprintf(w, "Wagered: %d, returned: %d\n", res.Wagered, res.Returned)
	_, _ = fmt.Fprintf(w, "House net: %d (edge %.2f%%)\n", res.HouseNet(), res.HouseEdge()*100)
}
