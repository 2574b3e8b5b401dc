package ledger

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// Postgres stores rounds in the rounds table
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the schema
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate applies the embedded schema; it is safe to run repeatedly.
func (p *Postgres) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, round Round) error {
	hands, err := json.Marshal(round.Hands)
	if err != nil {
		return fmt.Errorf("encode hands: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO rounds(session_id, round, dealer, dealer_total, wagered, returned, balance, shoe_generation, hands, settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (session_id, round) DO NOTHING
	`, round.SessionID, round.Round, round.Dealer, round.DealerTotal, round.Wagered,
		round.Returned, round.Balance, int64(round.Generation), hands, round.SettledAt)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, sessionID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = DefaultMemoryDepth
	}
	rows, err := p.pool.Query(ctx, `
		SELECT session_id, round, dealer, dealer_total, wagered, returned, balance, shoe_generation, hands, settled_at
		  FROM rounds
		 WHERE session_id = $1
		 ORDER BY round DESC
		 LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var (
			r     Round
			gen   int64
			hands []byte
		)
		if err := rows.Scan(&r.SessionID, &r.Round, &r.Dealer, &r.DealerTotal, &r.Wagered,
			&r.Returned, &r.Balance, &gen, &hands, &r.SettledAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.Generation = uint64(gen)
		if err := json.Unmarshal(hands, &r.Hands); err != nil {
			return nil, fmt.Errorf("decode hands: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
