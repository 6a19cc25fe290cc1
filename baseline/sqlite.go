package baseline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/c360studio/hexguard/rule"
)

const schema = `
CREATE TABLE IF NOT EXISTS baseline_rules (
	rule_id   TEXT PRIMARY KEY,
	frozen_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS baseline_violations (
	rule_id TEXT NOT NULL REFERENCES baseline_rules(rule_id) ON DELETE CASCADE,
	class   TEXT NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (rule_id, class, message)
);
`

// SQLiteStore keeps all records in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create baseline directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open baseline database: %w", err)
	}
	// Layers save concurrently; a single connection serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping baseline database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize baseline schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the record of ruleID.
func (s *SQLiteStore) Load(ctx context.Context, ruleID string) (*Record, error) {
	var frozen string
	err := s.db.QueryRowContext(ctx,
		`SELECT frozen_at FROM baseline_rules WHERE rule_id = ?`, ruleID).Scan(&frozen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query baseline rule: %w", err)
	}

	rec := &Record{RuleID: ruleID}
	if rec.FrozenAt, err = time.Parse(time.RFC3339Nano, frozen); err != nil {
		return nil, fmt.Errorf("parse frozen_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT class, message FROM baseline_violations WHERE rule_id = ? ORDER BY class, message`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("query baseline violations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v rule.Violation
		if err := rows.Scan(&v.Class, &v.Message); err != nil {
			return nil, fmt.Errorf("scan baseline violation: %w", err)
		}
		rec.Violations = append(rec.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baseline violations: %w", err)
	}
	return rec, nil
}

// Save replaces the record of rec.RuleID in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM baseline_violations WHERE rule_id = ?`, rec.RuleID); err != nil {
		return fmt.Errorf("clear baseline violations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO baseline_rules (rule_id, frozen_at) VALUES (?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET frozen_at = excluded.frozen_at`,
		rec.RuleID, rec.FrozenAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert baseline rule: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO baseline_violations (rule_id, class, message) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare violation insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range rec.Violations {
		if _, err := stmt.ExecContext(ctx, rec.RuleID, v.Class, v.Message); err != nil {
			return fmt.Errorf("insert baseline violation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}
	return nil
}
