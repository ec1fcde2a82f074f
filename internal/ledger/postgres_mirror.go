package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresMirror mirrors trades.jsonl into a Postgres table when
// PAPERTICK_POSTGRES_DSN is set. JSONL stays the canonical trade log; the
// mirror is a secondary sink for ad-hoc SQL analysis and is never
// read back by the core pipeline. Modeled on cryptorun's
// internal/persistence/postgres/trades_repo.go insert shape, narrowed
// to this engine's open/close event schema.
type PostgresMirror struct {
	db      *sqlx.DB
	timeout time.Duration
}

const createTradesMirrorTable = `
CREATE TABLE IF NOT EXISTS papertick_trades (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	event TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// OpenPostgresMirror connects to dsn and ensures the mirror table
// exists. Callers should treat a non-nil error as "run without the
// mirror" rather than fatal — the mirror is optional infrastructure.
func OpenPostgresMirror(dsn string, timeout time.Duration) (*PostgresMirror, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect postgres mirror: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, createTradesMirrorTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create mirror table: %w", err)
	}
	return &PostgresMirror{db: db, timeout: timeout}, nil
}

func (m *PostgresMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// MirrorOpen inserts an open event. Failures are logged by the caller
// via the returned error; they never block the canonical JSONL append
// that must already have succeeded before this is called.
func (m *PostgresMirror) MirrorOpen(ctx context.Context, ev OpenEvent) error {
	return m.insert(ctx, "open", ev.Symbol, ev.Timeframe, ev.Ts, ev)
}

func (m *PostgresMirror) MirrorClose(ctx context.Context, ev CloseEvent) error {
	return m.insert(ctx, "close", ev.Symbol, ev.Timeframe, ev.Ts, ev)
}

func (m *PostgresMirror) insert(ctx context.Context, event, symbol, timeframe string, ts time.Time, payload any) error {
	if m == nil || m.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ledger: marshal mirror payload: %w", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO papertick_trades (ts, event, symbol, timeframe, payload) VALUES ($1, $2, $3, $4, $5)`,
		ts, event, symbol, timeframe, raw)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("ledger: insert mirror row: %w", err)
	}
	return nil
}

// LogFailure is a convenience the pipeline calls unconditionally;
// logging happens here so call sites stay single-line.
func (m *PostgresMirror) LogFailure(err error, event string) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("event", event).Msg("ledger: postgres mirror write failed")
}
