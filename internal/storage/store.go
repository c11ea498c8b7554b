// Package storage provides the optional SQLite archive of delivered events.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgiraldo/eventscope/internal/event"
)

// Store wraps SQLite-backed persistence of captured events.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite database and runs minimal schema setup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS events (
  id               INTEGER PRIMARY KEY AUTOINCREMENT,
  chain_id         INTEGER NOT NULL,
  chain_name       TEXT NOT NULL,
  block_number     INTEGER NOT NULL,
  transaction_hash TEXT NOT NULL,
  log_index        INTEGER NOT NULL,
  contract_address TEXT NOT NULL,
  topics_json      TEXT NOT NULL,
  data             TEXT NOT NULL,
  event_signature  TEXT,
  captured_at      TEXT NOT NULL,
  created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(transaction_hash, log_index)
);

CREATE INDEX IF NOT EXISTS idx_events_block ON events(block_number, log_index);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertEvent records one captured event. The (tx_hash, log_index) unique
// constraint makes re-insertion of the same log a no-op.
func (s *Store) InsertEvent(ctx context.Context, ev event.LogEvent, topicsJSON string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO events (chain_id, chain_name, block_number, transaction_hash, log_index,
                    contract_address, topics_json, data, event_signature, captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(transaction_hash, log_index) DO NOTHING;
`, ev.ChainID, ev.ChainName, ev.BlockNumber, ev.TransactionHash, ev.LogIndex,
		ev.ContractAddress, topicsJSON, ev.Data, nullString(ev.EventSignature), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountEvents returns the number of archived events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// LatestBlock returns the highest archived block number, or ok=false when
// the archive is empty.
func (s *Store) LatestBlock(ctx context.Context) (uint64, bool, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM events;`).Scan(&n)
	if err != nil {
		return 0, false, fmt.Errorf("latest archived block: %w", err)
	}
	if !n.Valid {
		return 0, false, nil
	}
	return uint64(n.Int64), true, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
