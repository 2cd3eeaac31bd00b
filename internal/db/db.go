// Package db stores capture sessions and the transactions decoded from the
// bus in a local sqlite database.
package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/buswatch/internal/i2c"
)

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if necessary) the capture database at path and
// applies the base schema. Versioned upgrades beyond the base schema run
// through MigrateUp. Timestamps are stored as unix seconds.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			source            TEXT,
			scl_bit           INTEGER,
			sda_bit           INTEGER,
			started_at        INTEGER
		);
		CREATE TABLE IF NOT EXISTS transactions (
			transaction_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT,
			tick              BIGINT,
			byte_count        INTEGER,
			payload           TEXT,
			rendered          TEXT,
			captured_at       INTEGER,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, path: path}, nil
}

// Session is one run of the capture daemon against one bus.
type Session struct {
	ID        string    `json:"session_id"`
	Source    string    `json:"source"`
	SCLBit    uint8     `json:"scl_bit"`
	SDABit    uint8     `json:"sda_bit"`
	StartedAt time.Time `json:"started_at"`
}

// RecordSession inserts the session row at daemon startup.
func (db *DB) RecordSession(s Session) error {
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, source, scl_bit, sda_bit, started_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.SCLBit, s.SDABit, s.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", s.ID, err)
	}
	return nil
}

// Sessions returns recorded sessions, most recent first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`SELECT session_id, source, scl_bit, sda_bit, started_at
		FROM sessions ORDER BY started_at DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedAtUnix int64
		if err := rows.Scan(&s.ID, &s.Source, &s.SCLBit, &s.SDABit, &startedAtUnix); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(startedAtUnix, 0)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// TransactionRecord is one decoded transaction as stored. Payload is the
// hex-encoded byte values; Rendered is the human-readable "[01+02-]" form,
// which also preserves the ACK/NAK statuses.
type TransactionRecord struct {
	ID         int64     `json:"transaction_id"`
	SessionID  string    `json:"session_id"`
	Tick       uint32    `json:"tick"`
	ByteCount  int       `json:"byte_count"`
	Payload    string    `json:"payload"`
	Rendered   string    `json:"rendered"`
	CapturedAt time.Time `json:"captured_at"`
}

// RecordTransaction stores one completed transaction. tick is the report
// tick at which the STOP condition was observed.
func (db *DB) RecordTransaction(sessionID string, tick uint32, tx *i2c.Transaction) error {
	_, err := db.Exec(
		`INSERT INTO transactions (session_id, tick, byte_count, payload, rendered, captured_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, tick, len(tx.Bytes), hex.EncodeToString(tx.Payload()), tx.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// Transactions returns the most recently captured transactions across all
// sessions, newest first.
func (db *DB) Transactions(limit int) ([]TransactionRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.Query(`SELECT transaction_id, session_id, tick, byte_count, payload, rendered, captured_at
		FROM transactions ORDER BY transaction_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// SessionTransactions returns the transactions captured in one session, in
// capture order.
func (db *DB) SessionTransactions(sessionID string) ([]TransactionRecord, error) {
	rows, err := db.Query(`SELECT transaction_id, session_id, tick, byte_count, payload, rendered, captured_at
		FROM transactions WHERE session_id = ? ORDER BY transaction_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]TransactionRecord, error) {
	var records []TransactionRecord
	for rows.Next() {
		var r TransactionRecord
		var capturedAtUnix int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Tick, &r.ByteCount, &r.Payload, &r.Rendered, &capturedAtUnix); err != nil {
			return nil, err
		}
		r.CapturedAt = time.Unix(capturedAtUnix, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// SessionActivity is the transaction count for one session, used by the
// activity chart tool.
type SessionActivity struct {
	SessionID string `json:"session_id"`
	Count     int64  `json:"count"`
}

// SessionActivities returns per-session transaction counts, oldest session
// first.
func (db *DB) SessionActivities() ([]SessionActivity, error) {
	rows, err := db.Query(`SELECT s.session_id, COUNT(t.transaction_id)
		FROM sessions s LEFT JOIN transactions t ON t.session_id = s.session_id
		GROUP BY s.session_id ORDER BY s.started_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionActivity
	for rows.Next() {
		var a SessionActivity
		if err := rows.Scan(&a.SessionID, &a.Count); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
