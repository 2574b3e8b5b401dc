package main

import (
	"os"
	"time"

	"github.com/lox/blackjackd/cmd/blackjackd/shared"
	"github.com/lox/blackjackd/internal/config"
	"github.com/lox/blackjackd/internal/fileutil"
	"github.com/lox/blackjackd/internal/ledger"
	"github.com/lox/blackjackd/internal/randutil"
	"github.com/lox/blackjackd/internal/session"
	"github.com/lox/blackjackd/internal/simulator"
)

// SimulateCmd plays rounds through the session engine without a network
type SimulateCmd struct {
	Config   string        `kong:"default='blackjackd.hcl',help='Path to HCL config file for table rules'"`
	Rounds   int           `kong:"default='10000',help='Number of rounds to play'"`
	Workers  int           `kong:"default='4',help='Concurrent players'"`
	Bet      int64         `kong:"default='10',help='Bet per round'"`
	Balance  int64         `kong:"default='1000',help='Starting balance per session'"`
	Strategy string        `kong:"default='basic',enum='basic,dealer,stand',help='Player strategy (basic, dealer, stand)'"`
	Seed     *int64        `kong:"help='Deterministic RNG seed (optional)'"`
	Timeout  time.Duration `kong:"default='5m',help='Abort the run after this long'"`
	Record   string        `kong:"help='Append settled rounds to this JSONL file'"`
	Output   string        `kong:"help='Write the result as JSON to this file'"`
	Debug    bool          `kong:"help='Enable debug logging'"`
	LogJSON  bool          `kong:"name='log-json',help='Log structured JSON instead of console output'"`
}

func (c *SimulateCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, c.Debug, c.LogJSON)
	if err != nil {
		return err
	}

	seed := randutil.Seed(c.Seed)
	logger.Info().Int64("seed", seed).Msg("Using seed")
	sessCfg, err := cfg.SessionConfig(seed)
	if err != nil {
		return err
	}

	var recorder ledger.Recorder = ledger.Discard{}
	if c.Record != "" {
		file, err := ledger.OpenJSONL(c.Record)
		if err != nil {
			return err
		}
		recorder = file
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close ledger")
		}
	}()

	manager, err := session.NewManager(logger,
		session.WithConfig(sessCfg),
		session.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}

	sim, err := simulator.New(logger, manager, simulator.Config{
		Rounds:   c.Rounds,
		Workers:  c.Workers,
		Bet:      c.Bet,
		Balance:  c.Balance,
		Strategy: c.Strategy,
		Timeout:  c.Timeout,
	})
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	res, err := sim.Run(ctx)
	simulator.PrintSummary(os.Stdout, res, c.Strategy)
	if err != nil {
		return err
	}

	if c.Output != "" {
		if err := fileutil.WriteJSON(c.Output, res); err != nil {
			return err
		}
		logger.Info().Str("path", c.Output).Msg("Wrote simulation result")
	}
	return nil
}
