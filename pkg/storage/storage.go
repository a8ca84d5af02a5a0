// Package storage provides SQLite-backed persistence for oracle monitoring
// events.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tc.com/price-oracle/pkg/oracle"
)

// Journal wraps a SQLite database recording every health transition,
// deviation, and fallback the oracle emits. It is the durable record an
// external monitor reads back after the fact.
type Journal struct {
	db        *sql.DB
	maxEvents int
}

// StoredEvent is one persisted oracle event.
type StoredEvent struct {
	ID           int64     `json:"id"`
	Pair         string    `json:"pair"`
	Type         string    `json:"type"`
	FromState    string    `json:"from_state,omitempty"`
	ToState      string    `json:"to_state,omitempty"`
	Primary      string    `json:"primary,omitempty"`
	Secondary    string    `json:"secondary,omitempty"`
	Price        string    `json:"price,omitempty"`
	DeviationBps string    `json:"deviation_bps,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/price-oracle/events.db.
func New(maxEvents int, dbPath string) (*Journal, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "price-oracle", "events.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	j := &Journal{db: db, maxEvents: maxEvents}
	if err := j.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS oracle_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			pair          TEXT NOT NULL,
			type          TEXT NOT NULL,
			from_state    TEXT,
			to_state      TEXT,
			primary_px    TEXT,
			secondary_px  TEXT,
			price         TEXT,
			deviation_bps TEXT,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oracle_events_created_at ON oracle_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_oracle_events_type ON oracle_events(type)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddEvent persists an oracle event and rotates the table down to maxEvents.
func (j *Journal) AddEvent(ev oracle.Event) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO oracle_events
			(pair, type, from_state, to_state, primary_px, secondary_px, price, deviation_bps, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		ev.Pair, string(ev.Type), ev.FromState, ev.ToState,
		decimalOrEmpty(ev.Primary), decimalOrEmpty(ev.Secondary),
		decimalOrEmpty(ev.Price), decimalOrEmpty(ev.DeviationBps),
		ev.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if j.maxEvents > 0 {
		if _, err = tx.Exec(`
			DELETE FROM oracle_events WHERE id NOT IN (
				SELECT id FROM oracle_events ORDER BY created_at DESC, id DESC LIMIT ?
			)`, j.maxEvents); err != nil {
			return fmt.Errorf("failed to enforce event cap: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns up to limit events, newest first.
func (j *Journal) RecentEvents(limit int) ([]StoredEvent, error) {
	rows, err := j.db.Query(`
		SELECT id, pair, type, from_state, to_state, primary_px, secondary_px, price, deviation_bps, created_at
		FROM oracle_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var createdAtNano int64
		err := rows.Scan(
			&ev.ID, &ev.Pair, &ev.Type, &ev.FromState, &ev.ToState,
			&ev.Primary, &ev.Secondary, &ev.Price, &ev.DeviationBps,
			&createdAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.CreatedAt = time.Unix(0, createdAtNano)
		events = append(events, ev)
	}
	if events == nil {
		events = []StoredEvent{}
	}
	return events, rows.Err()
}

// CountEvents returns the number of stored events.
func (j *Journal) CountEvents() (int, error) {
	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM oracle_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// decimalOrEmpty renders a decimal, keeping the zero value as an empty string
// so absent fields stay distinguishable from genuine zeros.
func decimalOrEmpty(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
