package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/blackjack"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjackd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	rules, err := cfg.TableRules()
	require.NoError(t, err)
	assert.Equal(t, blackjack.DefaultRules(), rules)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, LedgerMemory, cfg.Ledger.Driver)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server {
  address     = "127.0.0.1:9000"
  cors_origin = "https://example.com"
  log_level   = "debug"
}

rules {
  decks               = 6
  reshuffle_reserve   = 52
  dealer_hits_soft_17 = true
  blackjack_payout    = "6:5"
}

sessions {
  starting_balance = 500
  max_balance      = 5000
  idle_timeout     = "5m"
}

ledger {
  driver = "jsonl"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "https://example.com", cfg.Server.CORSOrigin)

	rules, err := cfg.TableRules()
	require.NoError(t, err)
	assert.Equal(t, 6, rules.Decks)
	assert.Equal(t, 52, rules.Reserve)
	assert.True(t, rules.Reshuffle, "unset reshuffle keeps the default")
	assert.True(t, rules.DealerHitsSoft)
	assert.Equal(t, blackjack.Payout{Num: 6, Den: 5}, rules.BlackjackPayout)

	sc, err := cfg.SessionConfig(7)
	require.NoError(t, err)
	assert.Equal(t, int64(500), sc.StartingBalance)
	assert.Equal(t, int64(5000), sc.MaxBalance)
	assert.Equal(t, 5*time.Minute, sc.IdleTimeout)
	assert.Equal(t, 10*time.Minute, sc.SettledGrace)
	assert.Equal(t, int64(7), sc.Seed)

	assert.Equal(t, "rounds.jsonl", cfg.Ledger.Path)
}

func TestLoadReshuffleDisabled(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
rules {
  decks             = 1
  reshuffle         = false
  reshuffle_reserve = 0
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	rules, err := cfg.TableRules()
	require.NoError(t, err)
	assert.False(t, rules.Reshuffle)
	assert.Equal(t, 0, rules.Reserve)
}

func TestLoadParseError(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `server {`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `unknown_block {}`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad payout", func(c *Config) { c.Rules.BlackjackPayout = "3" }},
		{"too many decks", func(c *Config) { c.Rules.Decks = 17 }},
		{"bad duration", func(c *Config) { c.Sessions.IdleTimeout = "soon" }},
		{"negative duration", func(c *Config) { c.Sessions.SettledGrace = "-1m" }},
		{"zero balance", func(c *Config) { c.Sessions.StartingBalance = 0 }},
		{"starting above max", func(c *Config) { c.Sessions.MaxBalance = c.Sessions.StartingBalance - 1 }},
		{"max above limit", func(c *Config) { c.Sessions.MaxBalance = math.MaxInt64 }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"unknown ledger", func(c *Config) { c.Ledger.Driver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Ledger.Driver = LedgerPostgres }},
		{"jsonl without path", func(c *Config) { c.Ledger.Driver = LedgerJSONL; c.Ledger.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
