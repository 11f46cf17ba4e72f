package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpIncentives/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS reward_runs (
	week BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	window_week BIGINT NOT NULL,
	window_start_ts BIGINT NOT NULL,
	window_end_ts BIGINT NOT NULL,
	category TEXT NOT NULL,
	trades INTEGER NOT NULL,
	holders INTEGER NOT NULL,
	root TEXT NOT NULL,
	content_pointer TEXT NOT NULL,
	cid TEXT NOT NULL,
	total NUMERIC NOT NULL,
	tx_hash TEXT NOT NULL,
	dry_run BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (week, pool_address)
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	week BIGINT NOT NULL,
	holder TEXT NOT NULL,
	category TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (week, holder, category)
);
CREATE TABLE IF NOT EXISTS incentive_state (
	name TEXT PRIMARY KEY,
	last_committed_week BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store provides Postgres persistence for reward runs and committed-week state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutRun upserts the run summary and the ledger rows of its week in one transaction.
func (s *Store) PutRun(ctx context.Context, run model.RunRecord, entries []model.LedgerEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := upsertEntries(ctx, tx, run.Week, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}
	return nil
}

func upsertRun(ctx context.Context, tx pgx.Tx, run model.RunRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reward_runs (
			week, pool_address, window_week, window_start_ts, window_end_ts, category,
			trades, holders, root, content_pointer, cid, total, tx_hash, dry_run, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::text::numeric,$13,$14,$15,now())
		ON CONFLICT (week, pool_address)
		DO UPDATE SET
			window_week = EXCLUDED.window_week,
			window_start_ts = EXCLUDED.window_start_ts,
			window_end_ts = EXCLUDED.window_end_ts,
			category = EXCLUDED.category,
			trades = EXCLUDED.trades,
			holders = EXCLUDED.holders,
			root = EXCLUDED.root,
			content_pointer = EXCLUDED.content_pointer,
			cid = EXCLUDED.cid,
			total = EXCLUDED.total,
			tx_hash = EXCLUDED.tx_hash,
			dry_run = EXCLUDED.dry_run,
			updated_at = now()
	`,
		int64(run.Week),
		run.Pool.String(),
		int64(run.WindowWeek),
		int64(run.WindowStart),
		int64(run.WindowEnd),
		run.Category,
		run.Trades,
		run.Holders,
		run.Root,
		run.ContentPointer,
		run.CID,
		run.Total,
		run.TxHash,
		run.DryRun,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

func upsertEntries(ctx context.Context, tx pgx.Tx, week uint64, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO ledger_entries (week, holder, category, amount, updated_at)
			VALUES ($1, $2, $3, $4::text::numeric, now())
			ON CONFLICT (week, holder, category)
			DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		`,
			int64(week),
			e.Holder.String(),
			e.Category,
			e.Amount,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert ledger entry: %w", err)
		}
	}
	return nil
}

// LoadState returns the last committed week recorded under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var week int64
	row := s.pool.QueryRow(ctx, `SELECT last_committed_week FROM incentive_state WHERE name=$1`, name)
	if err := row.Scan(&week); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(week), true, nil
}

// SaveState upserts the last committed week for name.
func (s *Store) SaveState(ctx context.Context, name string, week uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO incentive_state (name, last_committed_week, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_committed_week = EXCLUDED.last_committed_week, updated_at = now()
	`, name, int64(week))
	return err
}
