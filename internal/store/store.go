//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
// Package store keeps harvested records, resumption checkpoints and a log of
// harvest runs in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miku/oaiharvest"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Run is one harvest of an endpoint, prefix and set.
type Run struct {
	ID         string
	Endpoint   string
	Prefix     string
	Set        string
	StartedAt  string
	FinishedAt string
	Records    int
	Err        string
}

// Open creates a new database connection and initializes the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer, sqlite would answer SQLITE_BUSY otherwise
	conn.SetMaxOpenConns(1)
	for _, schema := range []string{createRecordsTable, createCheckpointsTable, createRunsTable} {
		if _, err := conn.Exec(schema); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// SaveRecords inserts or replaces records in a single transaction. The
// latest harvest of an identifier wins.
func (s *Store) SaveRecords(ctx context.Context, endpoint, prefix string, records []oaiharvest.Record) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			endpoint,
			prefix,
			r.Header.Identifier,
			r.Header.Datestamp,
			string(r.Header.Status),
			strings.Join(r.Header.SetSpecs, " "),
			r.Raw,
			ts,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.Header.Identifier, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountRecords returns the number of stored records for endpoint and prefix.
func (s *Store) CountRecords(ctx context.Context, endpoint, prefix string) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, selectRecordCount, endpoint, prefix).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Key identifies a list harvest. A cursor is only valid for the exact
// arguments that produced it.
type Key struct {
	Endpoint string
	Prefix   string
	Set      string
	From     string
	Until    string
}

func (k Key) args() []any {
	return []any{k.Endpoint, k.Prefix, k.Set, k.From, k.Until}
}

// SaveCheckpoint remembers the cursor of the last completed page, so an
// interrupted harvest can continue from there.
func (s *Store) SaveCheckpoint(ctx context.Context, k Key, c oaiharvest.Cursor) error {
	var expires string
	if !c.Expires.IsZero() {
		expires = c.Expires.UTC().Format(time.RFC3339)
	}
	args := append(k.args(), c.Token, nullInt(c.Position), nullInt(c.CompleteListSize),
		expires, s.timestamp())
	_, err := s.conn.ExecContext(ctx, insertCheckpoint, args...)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Checkpoint returns the stored cursor, nil if there is none.
func (s *Store) Checkpoint(ctx context.Context, k Key) (*oaiharvest.Cursor, error) {
	var (
		c         oaiharvest.Cursor
		pos, size sql.NullInt64
		expires   string
	)
	err := s.conn.QueryRowContext(ctx, selectCheckpoint, k.args()...).
		Scan(&c.Token, &pos, &size, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if pos.Valid {
		n := int(pos.Int64)
		c.Position = &n
	}
	if size.Valid {
		n := int(size.Int64)
		c.CompleteListSize = &n
	}
	if expires != "" {
		if t, err := time.Parse(time.RFC3339, expires); err == nil {
			c.Expires = t
		}
	}
	c.Prefix = k.Prefix
	return &c, nil
}

// ClearCheckpoint removes the cursor after a harvest completed.
func (s *Store) ClearCheckpoint(ctx context.Context, k Key) error {
	if _, err := s.conn.ExecContext(ctx, deleteCheckpoint, k.args()...); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// BeginRun records the start of a harvest and returns its id.
func (s *Store) BeginRun(ctx context.Context, endpoint, prefix, set string) (string, error) {
	id := uuid.NewString()
	if _, err := s.conn.ExecContext(ctx, insertRun, id, endpoint, prefix, set, s.timestamp()); err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a harvest.
func (s *Store) FinishRun(ctx context.Context, id string, records int, runErr error) error {
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.conn.ExecContext(ctx, updateRun, s.timestamp(), records, msg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no such run: %s", id)
	}
	return nil
}

// Run returns a recorded run.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.conn.QueryRowContext(ctx, selectRun, id).Scan(&r.ID, &r.Endpoint, &r.Prefix,
		&r.Set, &r.StartedAt, &r.FinishedAt, &r.Records, &r.Err)
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	return &r, nil
}
