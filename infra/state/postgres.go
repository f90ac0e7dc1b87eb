package state

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fenrir/domain/match"
)

const fillSchema = `
CREATE TABLE IF NOT EXISTS order_fill_state (
	order_hash    BYTEA PRIMARY KEY,
	filled_amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
	cancelled     BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres backs fill state with a pgx pool. Each Apply runs in one
// transaction, giving the same all-or-nothing guarantee as the pebble
// batch. The store owns its own session; callers hand it no context.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, fillSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) FillState(hash common.Hash) (match.FillState, error) {
	var (
		filled    string
		cancelled bool
	)
	err := p.pool.QueryRow(context.Background(),
		`SELECT filled_amount::text, cancelled FROM order_fill_state WHERE order_hash = $1`,
		hash.Bytes(),
	).Scan(&filled, &cancelled)
	if errors.Is(err, pgx.ErrNoRows) {
		return match.FillState{FilledTakerAssetAmount: new(big.Int)}, nil
	}
	if err != nil {
		return match.FillState{}, err
	}

	amount, ok := new(big.Int).SetString(filled, 10)
	if !ok {
		return match.FillState{}, errors.New("state: malformed filled_amount")
	}
	return match.FillState{FilledTakerAssetAmount: amount, Cancelled: cancelled}, nil
}

func (p *Postgres) Apply(updates []match.FillUpdate) error {
	ctx := context.Background()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_fill_state (order_hash, filled_amount, updated_at)
			 VALUES ($1, $2::numeric, now())
			 ON CONFLICT (order_hash) DO UPDATE
			 SET filled_amount = EXCLUDED.filled_amount, updated_at = now()`,
			u.OrderHash.Bytes(), u.FilledTakerAssetAmount.String(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Cancel(hash common.Hash) error {
	_, err := p.pool.Exec(context.Background(),
		`INSERT INTO order_fill_state (order_hash, cancelled, updated_at)
		 VALUES ($1, TRUE, now())
		 ON CONFLICT (order_hash) DO UPDATE
		 SET cancelled = TRUE, updated_at = now()`,
		hash.Bytes(),
	)
	return err
}
