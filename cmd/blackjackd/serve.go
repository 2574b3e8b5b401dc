package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackd/cmd/blackjackd/shared"
	"github.com/lox/blackjackd/internal/config"
	"github.com/lox/blackjackd/internal/randutil"
	"github.com/lox/blackjackd/internal/server"
	"github.com/lox/blackjackd/internal/session"
)

// ServeCmd runs the HTTP and WebSocket server
type ServeCmd struct {
	Config    string `kong:"default='blackjackd.hcl',help='Path to HCL config file'"`
	Addr      string `kong:"help='Server address (overrides config)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
	LogJSON   bool   `kong:"name='log-json',help='Log structured JSON instead of console output'"`
	Seed      *int64 `kong:"help='Deterministic RNG seed for shoes (optional)'"`
	LedgerDSN string `kong:"name='ledger-dsn',env='BLACKJACKD_DATABASE_URL',help='Postgres DSN; selects the postgres ledger'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LedgerDSN != "" {
		cfg.Ledger.Driver = config.LedgerPostgres
		cfg.Ledger.DSN = c.LedgerDSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, c.Debug, c.LogJSON)
	if err != nil {
		return err
	}

	seed := randutil.Seed(c.Seed)
	sessCfg, err := cfg.SessionConfig(seed)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)

	recorder, history, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
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
	s := server.NewServer(logger, manager,
		server.WithCORSOrigin(cfg.Server.CORSOrigin),
		server.WithHistory(history),
	)

	logger.Info().
		Str("address", cfg.Server.Address).
		Int64("seed", seed).
		Int("decks", sessCfg.Rules.Decks).
		Int("reshuffle_reserve", sessCfg.Rules.Reserve).
		Bool("dealer_hits_soft_17", sessCfg.Rules.DealerHitsSoft).
		Str("blackjack_payout", sessCfg.Rules.BlackjackPayout.String()).
		Int64("starting_balance", sessCfg.StartingBalance).
		Dur("idle_timeout", sessCfg.IdleTimeout).
		Dur("settled_grace", sessCfg.SettledGrace).
		Str("ledger", cfg.Ledger.Driver).
		Msg("Starting blackjackd")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		if err := s.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
