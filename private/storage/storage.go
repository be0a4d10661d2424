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

// Package storage provides factories for the securityd storage backends.
package storage

import (
	"io"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/config"
	"github.com/securityd/securityd/private/storage/db"
	fstrustdb "github.com/securityd/securityd/private/storage/trust/fs"
	trustmetrics "github.com/securityd/securityd/private/storage/trust/metrics"
	sqlitetrustdb "github.com/securityd/securityd/private/storage/trust/sqlite"
)

// Backend indicates the database backend type.
type Backend string

const (
	// BackendSqlite indicates an sqlite backend.
	BackendSqlite Backend = "sqlite"
	// BackendFS indicates a directory with one file per record.
	BackendFS Backend = "fs"

	// DefaultTrustDBPath is the default sqlite database location.
	DefaultTrustDBPath = "/var/db/securityd/trust.db"
)

var _ config.Config = (*DBConfig)(nil)

// DBConfig is the configuration for the connection to a database.
type DBConfig struct {
	Backend      Backend `toml:"backend,omitempty"`
	Connection   string  `toml:"connection,omitempty"`
	MaxOpenConns int     `toml:"max_open_conns,omitempty"`
	MaxIdleConns int     `toml:"max_idle_conns,omitempty"`
}

// InitDefaults sets the sqlite backend at the default location.
func (cfg *DBConfig) InitDefaults() {
	if cfg.Backend == "" {
		cfg.Backend = BackendSqlite
	}
	if cfg.Connection == "" {
		cfg.Connection = DefaultTrustDBPath
	}
}

// Validate checks the backend type.
func (cfg *DBConfig) Validate() error {
	switch cfg.Backend {
	case BackendSqlite, BackendFS:
		return nil
	default:
		return serrors.New("unsupported trust db backend", "backend", cfg.Backend)
	}
}

// Sample writes a config sample to the writer.
func (cfg *DBConfig) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, trustDBSample)
}

// ConfigName is the key in the toml file.
func (cfg *DBConfig) ConfigName() string {
	return "trust_db"
}

// SetConnLimits sets the maximum number of open and idle connections based on the configuration.
// Limits of 0 mean the Go default will be used.
func SetConnLimits(d db.LimitSetter, c DBConfig) {
	if c.MaxOpenConns != 0 {
		d.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns != 0 {
		d.SetMaxIdleConns(c.MaxIdleConns)
	}
}

// NewTrustStorage opens the configured trust backend. If m is not nil, the
// backend reports metrics and tracing spans.
func NewTrustStorage(c DBConfig, m *trustmetrics.Metrics) (trust.DB, error) {
	log.Info("Connecting TrustDB", "backend", c.Backend, "connection", c.Connection)
	var backend trust.DB
	switch c.Backend {
	case BackendSqlite, "":
		sdb, err := sqlitetrustdb.New(c.Connection)
		if err != nil {
			return nil, err
		}
		SetConnLimits(sdb, c)
		backend = sdb
	case BackendFS:
		fdb, err := fstrustdb.New(c.Connection)
		if err != nil {
			return nil, err
		}
		backend = fdb
	default:
		return nil, serrors.New("unsupported trust db backend", "backend", c.Backend)
	}
	if m == nil {
		return backend, nil
	}
	return &trustmetrics.DB{Backend: backend, Metrics: m}, nil
}

const trustDBSample = `
# The trust settings backend, either "sqlite" or "fs". (default sqlite)
backend = "sqlite"

# The sqlite database file, or the record directory for the fs backend.
# (default /var/db/securityd/trust.db)
connection = "/var/db/securityd/trust.db"

# The maximum number of open read connections. 0 uses the default.
max_open_conns = 0

# The maximum number of idle read connections. 0 uses the default.
max_idle_conns = 0
`
