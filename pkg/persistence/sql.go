// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLDialect names which relational backend a SQLStore talks to; the three
// teacher-carried drivers (sqlite3 for local dev, postgres and mysql for
// production) share the same schema and differ in placeholder syntax, the
// CREATE TABLE IF NOT EXISTS dialect for the autoincrement key, and the
// upsert statement SaveSnapshot uses.
type SQLDialect string

const (
	DialectSQLite   SQLDialect = "sqlite3"
	DialectPostgres SQLDialect = "postgres"
	DialectMySQL    SQLDialect = "mysql"
)

// SQLStore is a Store backed by database/sql against one of the three
// registered relational drivers.
type SQLStore struct {
	db      *sql.DB
	dialect SQLDialect
}

// OpenSQL opens (and migrates) a SQLStore. dsn is passed verbatim to the
// driver named by dialect.
func OpenSQL(dialect SQLDialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("persistence: ping %s: %w", dialect, err)
	}
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	autoIncrement := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DialectPostgres {
		autoIncrement = "SERIAL PRIMARY KEY"
	} else if s.dialect == DialectMySQL {
		autoIncrement = "INTEGER PRIMARY KEY AUTO_INCREMENT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS events (
			id %s,
			workflow_id VARCHAR(255) NOT NULL,
			seq BIGINT NOT NULL,
			kind VARCHAR(255) NOT NULL,
			payload BLOB,
			recorded_at TIMESTAMP NOT NULL
		)`, autoIncrement),
		`CREATE TABLE IF NOT EXISTS snapshots (
			workflow_id VARCHAR(255) PRIMARY KEY,
			version BIGINT NOT NULL,
			payload BLOB,
			saved_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("persistence: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Append(ctx context.Context, e Event) error {
	var nextSeq int64
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE workflow_id = %s", s.placeholder(1)),
		e.WorkflowID)
	if err := row.Scan(&nextSeq); err != nil {
		return fmt.Errorf("persistence: next seq: %w", err)
	}
	q := fmt.Sprintf(
		"INSERT INTO events (workflow_id, seq, kind, payload, recorded_at) VALUES (%s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))
	_, err := s.db.ExecContext(ctx, q, e.WorkflowID, nextSeq, e.Kind, e.Payload, time.Now())
	if err != nil {
		return fmt.Errorf("persistence: append: %w", err)
	}
	return nil
}

func (s *SQLStore) Events(ctx context.Context, workflowID string, sinceSeq int64) ([]Event, error) {
	q := fmt.Sprintf(
		"SELECT workflow_id, seq, kind, payload, recorded_at FROM events WHERE workflow_id = %s AND seq > %s ORDER BY seq ASC",
		s.placeholder(1), s.placeholder(2))
	rows, err := s.db.QueryContext(ctx, q, workflowID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("persistence: events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.WorkflowID, &e.Seq, &e.Kind, &e.Payload, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("persistence: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	var q string
	switch s.dialect {
	case DialectPostgres:
		q = `INSERT INTO snapshots (workflow_id, version, payload, saved_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (workflow_id) DO UPDATE SET version = $2, payload = $3, saved_at = $4`
	default:
		q = `INSERT INTO snapshots (workflow_id, version, payload, saved_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE version = VALUES(version), payload = VALUES(payload), saved_at = VALUES(saved_at)`
		if s.dialect == DialectSQLite {
			q = `INSERT INTO snapshots (workflow_id, version, payload, saved_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(workflow_id) DO UPDATE SET version = excluded.version, payload = excluded.payload, saved_at = excluded.saved_at`
		}
	}
	_, err := s.db.ExecContext(ctx, q, snap.WorkflowID, snap.Version, snap.Payload, time.Now())
	if err != nil {
		return fmt.Errorf("persistence: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) LatestSnapshot(ctx context.Context, workflowID string) (Snapshot, bool, error) {
	q := fmt.Sprintf("SELECT workflow_id, version, payload, saved_at FROM snapshots WHERE workflow_id = %s", s.placeholder(1))
	row := s.db.QueryRowContext(ctx, q, workflowID)
	var snap Snapshot
	if err := row.Scan(&snap.WorkflowID, &snap.Version, &snap.Payload, &snap.SavedAt); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("persistence: latest snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
