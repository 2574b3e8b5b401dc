// Package config loads blackjackd's HCL configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjackd/blackjack"
	"github.com/lox/blackjackd/internal/session"
)

// DefaultFile is the config file looked up when none is given
const DefaultFile = "blackjackd.hcl"

// Config represents the complete service configuration
type Config struct {
	Server   *ServerSettings  `hcl:"server,block"`
	Rules    *RulesSettings   `hcl:"rules,block"`
	Sessions *SessionSettings `hcl:"sessions,block"`
	Ledger   *LedgerSettings  `hcl:"ledger,block"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address    string `hcl:"address,optional"`
	CORSOrigin string `hcl:"cors_origin,optional"`
	LogLevel   string `hcl:"log_level,optional"`
}

// RulesSettings are the table rules
type RulesSettings struct {
	Decks            int    `hcl:"decks,optional"`
	ReshuffleReserve *int   `hcl:"reshuffle_reserve,optional"`
	Reshuffle        *bool  `hcl:"reshuffle,optional"`
	DealerHitsSoft17 bool   `hcl:"dealer_hits_soft_17,optional"`
	BlackjackPayout  string `hcl:"blackjack_payout,optional"`
}

// SessionSettings control balances and expiry. Durations use Go syntax
// ("30m", "90s").
type SessionSettings struct {
	StartingBalance int64  `hcl:"starting_balance,optional"`
	MaxBalance      int64  `hcl:"max_balance,optional"`
	IdleTimeout     string `hcl:"idle_timeout,optional"`
	SettledGrace    string `hcl:"settled_grace,optional"`
	SweepInterval   string `hcl:"sweep_interval,optional"`
}

// LedgerSettings choose where settled rounds are written
type LedgerSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// Ledger drivers
const (
	LedgerNone     = "none"
	LedgerMemory   = "memory"
	LedgerJSONL    = "jsonl"
	LedgerPostgres = "postgres"
)

// Default returns the configuration used when no file exists
func Default() *Config {
	reserve := blackjack.DefaultRules().Reserve
	reshuffle := true
	return &Config{
		Server: &ServerSettings{
			Address:    ":8080",
			CORSOrigin: "*",
			LogLevel:   "info",
		},
		Rules: &RulesSettings{
			Decks:            blackjack.DefaultRules().Decks,
			ReshuffleReserve: &reserve,
			Reshuffle:        &reshuffle,
			BlackjackPayout:  blackjack.DefaultRules().BlackjackPayout.String(),
		},
		Sessions: &SessionSettings{
			StartingBalance: 1000,
			MaxBalance:      session.DefaultMaxBalance,
			IdleTimeout:     "30m",
			SettledGrace:    "10m",
			SweepInterval:   "1m",
		},
		Ledger: &LedgerSettings{
			Driver: LedgerMemory,
			Path:   "rounds.jsonl",
		},
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server == nil {
		c.Server = d.Server
	}
	if c.Rules == nil {
		c.Rules = d.Rules
	}
	if c.Sessions == nil {
		c.Sessions = d.Sessions
	}
	if c.Ledger == nil {
		c.Ledger = d.Ledger
	}

	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = d.Server.CORSOrigin
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}

	if c.Rules.Decks == 0 {
		c.Rules.Decks = d.Rules.Decks
	}
	if c.Rules.ReshuffleReserve == nil {
		c.Rules.ReshuffleReserve = d.Rules.ReshuffleReserve
	}
	if c.Rules.Reshuffle == nil {
		c.Rules.Reshuffle = d.Rules.Reshuffle
	}
	if c.Rules.BlackjackPayout == "" {
		c.Rules.BlackjackPayout = d.Rules.BlackjackPayout
	}

	if c.Sessions.StartingBalance == 0 {
		c.Sessions.StartingBalance = d.Sessions.StartingBalance
	}
	if c.Sessions.MaxBalance == 0 {
		c.Sessions.MaxBalance = d.Sessions.MaxBalance
	}
	if c.Sessions.IdleTimeout == "" {
		c.Sessions.IdleTimeout = d.Sessions.IdleTimeout
	}
	if c.Sessions.SettledGrace == "" {
		c.Sessions.SettledGrace = d.Sessions.SettledGrace
	}
	if c.Sessions.SweepInterval == "" {
		c.Sessions.SweepInterval = d.Sessions.SweepInterval
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = d.Ledger.Driver
	}
	if c.Ledger.Driver == LedgerJSONL && c.Ledger.Path == "" {
		c.Ledger.Path = d.Ledger.Path
	}
}

// TableRules converts the rules block
func (c *Config) TableRules() (blackjack.Rules, error) {
	payout, err := blackjack.ParsePayout(c.Rules.BlackjackPayout)
	if err != nil {
		return blackjack.Rules{}, err
	}
	rules := blackjack.Rules{
		Decks:           c.Rules.Decks,
		Reserve:         *c.Rules.ReshuffleReserve,
		Reshuffle:       *c.Rules.Reshuffle,
		DealerHitsSoft:  c.Rules.DealerHitsSoft17,
		BlackjackPayout: payout,
	}
	return rules, rules.Validate()
}

// SessionConfig builds the session manager config
func (c *Config) SessionConfig(seed int64) (session.Config, error) {
	rules, err := c.TableRules()
	if err != nil {
		return session.Config{}, err
	}
	idle, err := parseDuration("idle_timeout", c.Sessions.IdleTimeout)
	if err != nil {
		return session.Config{}, err
	}
	grace, err := parseDuration("settled_grace", c.Sessions.SettledGrace)
	if err != nil {
		return session.Config{}, err
	}
	sweep, err := parseDuration("sweep_interval", c.Sessions.SweepInterval)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Rules:           rules,
		StartingBalance: c.Sessions.StartingBalance,
		MaxBalance:      c.Sessions.MaxBalance,
		IdleTimeout:     idle,
		SettledGrace:    grace,
		SweepInterval:   sweep,
		Seed:            seed,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.SessionConfig(0); err != nil {
		return err
	}
	if c.Sessions.StartingBalance <= 0 {
		return fmt.Errorf("starting balance must be positive, got %d", c.Sessions.StartingBalance)
	}
	if c.Sessions.MaxBalance <= 0 || c.Sessions.MaxBalance > session.MaxBalanceLimit {
		return fmt.Errorf("max balance must be between 1 and %d, got %d", int64(session.MaxBalanceLimit), c.Sessions.MaxBalance)
	}
	if c.Sessions.StartingBalance > c.Sessions.MaxBalance {
		return fmt.Errorf("starting balance %d exceeds max balance %d", c.Sessions.StartingBalance, c.Sessions.MaxBalance)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	switch c.Ledger.Driver {
	case LedgerNone, LedgerMemory:
	case LedgerJSONL:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger driver jsonl needs a path")
		}
	case LedgerPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger driver postgres needs a dsn")
		}
	default:
		return fmt.Errorf("invalid ledger driver: %s", c.Ledger.Driver)
	}
	return nil
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, s)
	}
	return d, nil
}
