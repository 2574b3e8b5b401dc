package main

import (
	"context"
	"fmt"

	"github.com/lox/blackjackd/internal/config"
	"github.com/lox/blackjackd/internal/ledger"
)

// openLedger builds the recorder for the configured driver and the reader
// that backs /history. The file driver keeps a memory copy for reads.
func openLedger(ctx context.Context, settings *config.LedgerSettings) (ledger.Recorder, ledger.Reader, error) {
	switch settings.Driver {
	case config.LedgerNone:
		return ledger.Discard{}, nil, nil

	case config.LedgerMemory:
		mem := ledger.NewMemory(ledger.DefaultMemoryDepth)
		return mem, mem, nil

	case config.LedgerJSONL:
		file, err := ledger.OpenJSONL(settings.Path)
		if err != nil {
			return nil, nil, err
		}
		mem := ledger.NewMemory(ledger.DefaultMemoryDepth)
		return ledger.Tee(mem, file), mem, nil

	case config.LedgerPostgres:
		pg, err := ledger.OpenPostgres(ctx, settings.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	}
	return nil, nil, fmt.Errorf("invalid ledger driver: %s", settings.Driver)
}
