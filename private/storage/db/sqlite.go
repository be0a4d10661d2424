// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver
)

// Reader is the read-only subset of *sql.DB.
type Reader interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Stats() sql.DBStats
}

// Sqlite is a sqlite database opened twice: a single-connection pool for
// writes and a larger pool for reads. WAL journaling keeps readers from
// blocking the writer.
type Sqlite struct {
	writer *sql.DB
	reader *sql.DB
}

// OpenSqlite opens the database file at path. In-memory databases are
// rejected since the two pools would see different databases.
func OpenSqlite(path string) (*Sqlite, error) {
	if path == "" || strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("sqlite needs a database file, got %q", path)
	}
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(1000)")
	params.Add("_pragma", "synchronous(NORMAL)")
	dsn := "file:" + strings.TrimPrefix(path, "file:") + "?" + params.Encode()

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(max(4, runtime.NumCPU()))
	return &Sqlite{writer: writer, reader: reader}, nil
}

// Reader returns the read pool.
func (s *Sqlite) Reader() Reader { return s.reader }

// Migrate creates the schema in an empty database and records its version in
// user_version. A database at another version is refused.
func (s *Sqlite) Migrate(schema string, version int) error {
	var have int
	if err := s.writer.QueryRow("PRAGMA user_version").Scan(&have); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if have == version {
		return nil
	}
	if have != 0 {
		return fmt.Errorf("schema version %d, want %d", have, version)
	}
	return s.WriteTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	})
}

// WriteTx runs fn in a write transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Errors of fn are returned unchanged;
// failures to begin or commit are reported as ErrTx.
func (s *Sqlite) WriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return NewTxError("begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return NewTxError("commit", err)
	}
	return nil
}

// SetMaxOpenConns limits the read pool.
func (s *Sqlite) SetMaxOpenConns(n int) { s.reader.SetMaxOpenConns(n) }

// SetMaxIdleConns limits idle connections of the read pool.
func (s *Sqlite) SetMaxIdleConns(n int) { s.reader.SetMaxIdleConns(n) }

func (s *Sqlite) Close() error {
	return errors.Join(s.writer.Close(), s.reader.Close())
}
