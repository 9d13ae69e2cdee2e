// Package ledger persists dispatch outcomes and periodic counter snapshots
// to a local SQLite database: a write-only audit trail the hot path never
// reads back.
package ledger

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// Outcome classifies a dispatch attempt's terminal state.
type Outcome string

const (
	OutcomeSent               Outcome = "sent"
	OutcomeSimulationRejected Outcome = "simulation_rejected"
	OutcomeNotConfirmed       Outcome = "not_confirmed"
	OutcomeProviderError      Outcome = "provider_error"
)

// Ledger wraps a SQLite connection holding the dispatch-record and
// counter-snapshot tables.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// its schema exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "open ledger db", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatch_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			signature TEXT NOT NULL,
			tag TEXT NOT NULL,
			confidence REAL NOT NULL,
			mint TEXT,
			outcome TEXT NOT NULL,
			submitted_signature TEXT,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_dispatch_records_signature ON dispatch_records(signature);
		CREATE TABLE IF NOT EXISTS counter_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			received INTEGER NOT NULL,
			matches INTEGER NOT NULL,
			unresolved INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			taken_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, errkind.Wrap(errkind.ConfigInvalid, "create ledger schema", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// RecordDispatch writes one DispatchRecord (§3) for a single execution
// attempt. originSig is the signature that triggered the dispatch;
// submittedSig is the buy transaction's own signature, if one was sent.
// This is write-only: the hot path never reads it back (§2 "Data flows
// one-way").
func (l *Ledger) RecordDispatch(ctx context.Context, r model.TagResult, outcome Outcome, originSig, submittedSig, detail string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO dispatch_records (signature, tag, confidence, mint, outcome, submitted_signature, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		originSig, string(r.Tag), r.Confidence, r.Mint, string(outcome), submittedSig, detail,
	)
	if err != nil {
		return errkind.Wrap(errkind.ProviderError, "insert dispatch record", err)
	}
	return nil
}

// CounterSnapshot is a single per-source counter reading, persisted
// alongside the live Prometheus counters for historical querying.
type CounterSnapshot struct {
	Source     model.ProgramAlias
	Received   uint64
	Matches    uint64
	Unresolved uint64
	Failures   uint64
}

// RecordCounterSnapshot persists one counter snapshot per configured
// source (§7 "Per-program counters ... emitted at a fixed interval").
func (l *Ledger) RecordCounterSnapshot(ctx context.Context, s CounterSnapshot) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO counter_snapshots (source, received, matches, unresolved, failures) VALUES (?, ?, ?, ?, ?)`,
		string(s.Source), s.Received, s.Matches, s.Unresolved, s.Failures,
	)
	if err != nil {
		return errkind.Wrap(errkind.ProviderError, "insert counter snapshot", err)
	}
	return nil
}

// PruneOlderThan deletes dispatch records and counter snapshots older than
// the given age, keeping the ledger bounded for long-running processes.
func (l *Ledger) PruneOlderThan(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().Add(-age).UTC().Format("2006-01-02 15:04:05")
	if _, err := l.db.ExecContext(ctx, `DELETE FROM dispatch_records WHERE created_at < ?`, cutoff); err != nil {
		return errkind.Wrap(errkind.ProviderError, "prune dispatch records", err)
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM counter_snapshots WHERE taken_at < ?`, cutoff); err != nil {
		return errkind.Wrap(errkind.ProviderError, "prune counter snapshots", err)
	}
	return nil
}
