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

// Package sqlite implements the trust settings backend on top of sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/storage/db"
)

const (
	// SchemaVersion is the version of the SQLite schema understood by this backend.
	// Whenever changes to the schema are made, this version number should be increased
	// to prevent data corruption between incompatible database schemas.
	SchemaVersion = 1
	// Schema is the SQLite database layout.
	Schema = `CREATE TABLE trust_records(
		fingerprint BLOB NOT NULL,
		policy_oid BLOB NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (fingerprint, policy_oid)
	);`
)

var _ trust.DB = (*Backend)(nil)

// Backend is the sqlite backend.
type Backend struct {
	db *db.Sqlite
}

// New opens the database at path and creates the schema if needed.
func New(path string) (*Backend, error) {
	s, err := db.OpenSqlite(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(Schema, SchemaVersion); err != nil {
		s.Close()
		return nil, err
	}
	return &Backend{db: s}, nil
}

// SetMaxOpenConns sets the maximal number of open read connections.
func (b *Backend) SetMaxOpenConns(n int) { b.db.SetMaxOpenConns(n) }

// SetMaxIdleConns sets the maximal number of idle read connections.
func (b *Backend) SetMaxIdleConns(n int) { b.db.SetMaxIdleConns(n) }

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// ReadRecord implements trust.DB.
func (b *Backend) ReadRecord(ctx context.Context, key trust.Key) ([]byte, error) {
	const query = `SELECT payload FROM trust_records WHERE fingerprint=? AND policy_oid=?`
	var payload []byte
	err := b.db.Reader().QueryRowContext(ctx, query, key.Fingerprint, key.PolicyOID).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, trust.ErrNotFound
	}
	if err != nil {
		return nil, db.NewReadError("reading trust record", err, "key", key)
	}
	return payload, nil
}

// WriteRecord implements trust.DB.
func (b *Backend) WriteRecord(ctx context.Context, key trust.Key, payload []byte) error {
	const query = `INSERT INTO trust_records (fingerprint, policy_oid, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint, policy_oid) DO UPDATE SET payload=excluded.payload`
	return b.db.WriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, key.Fingerprint, key.PolicyOID, payload)
		if err != nil {
			return db.NewWriteError("writing trust record", err, "key", key)
		}
		return nil
	})
}

// Records implements trust.DB.
func (b *Backend) Records(ctx context.Context) ([]trust.StoredRecord, error) {
	const query = `SELECT fingerprint, policy_oid, payload FROM trust_records
		ORDER BY fingerprint, policy_oid`
	rows, err := b.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, db.NewReadError("listing trust records", err)
	}
	defer rows.Close()
	var res []trust.StoredRecord
	for rows.Next() {
		var r trust.StoredRecord
		if err := rows.Scan(&r.Key.Fingerprint, &r.Key.PolicyOID, &r.Payload); err != nil {
			return nil, db.NewReadError("scanning trust record", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.NewReadError("iterating trust records", err)
	}
	return res, nil
}
