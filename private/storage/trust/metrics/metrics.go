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

// Package metrics wraps a trust.DB with Prometheus metrics and tracing spans.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/prom"
	"github.com/securityd/securityd/pkg/trust"
	dblib "github.com/securityd/securityd/private/storage/db"
	"github.com/securityd/securityd/private/tracing"
)

const (
	promOpRead    = "read_record"
	promOpWrite   = "write_record"
	promOpRecords = "records"
)

// Metrics are the counters of a wrapped DB.
type Metrics struct {
	QueriesTotal metrics.Counter
	ResultsTotal metrics.Counter
}

// NewMetrics creates Prometheus backed counters, labeled with the name of
// the backend.
func NewMetrics(backend string, opts ...metrics.Option) *Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	m := &Metrics{
		QueriesTotal: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "securityd_trustdb_queries_total",
			Help: "Total queries to the trust database.",
		}, []string{"backend", prom.LabelOperation})),
		ResultsTotal: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "securityd_trustdb_results_total",
			Help: "Results of trust database operations.",
		}, []string{"backend", prom.LabelOperation, prom.LabelResult})),
	}
	m.QueriesTotal = m.QueriesTotal.With("backend", backend)
	m.ResultsTotal = m.ResultsTotal.With("backend", backend)
	return m
}

// Observe runs the action inside a span and records its result.
func (m *Metrics) Observe(ctx context.Context, op string, action func(context.Context) error) {
	if m == nil {
		_ = action(ctx)
		return
	}
	span, ctx := tracing.CtxWith(ctx, fmt.Sprintf("trustdb.%s", op))
	defer span.Finish()

	metrics.CounterInc(metrics.CounterWith(m.QueriesTotal, prom.LabelOperation, op))
	err := action(ctx)

	label := errToLabel(err)
	tracing.Error(span, err)
	tracing.ResultLabel(span, label)

	metrics.CounterInc(metrics.CounterWith(m.ResultsTotal,
		prom.LabelOperation, op, prom.LabelResult, label))
}

func errToLabel(err error) string {
	if errors.Is(err, trust.ErrNotFound) {
		return prom.ErrNotFound
	}
	return dblib.ErrToMetricLabel(err)
}

var _ trust.DB = (*DB)(nil)

// DB is a trust.DB that reports metrics.
type DB struct {
	Backend trust.DB
	Metrics *Metrics
}

// SetMaxOpenConns forwards to the backend if it supports connection limits.
func (db *DB) SetMaxOpenConns(maxOpenConns int) {
	if ls, ok := db.Backend.(dblib.LimitSetter); ok {
		ls.SetMaxOpenConns(maxOpenConns)
	}
}

// SetMaxIdleConns forwards to the backend if it supports connection limits.
func (db *DB) SetMaxIdleConns(maxIdleConns int) {
	if ls, ok := db.Backend.(dblib.LimitSetter); ok {
		ls.SetMaxIdleConns(maxIdleConns)
	}
}

func (db *DB) Close() error {
	return db.Backend.Close()
}

func (db *DB) ReadRecord(ctx context.Context, key trust.Key) ([]byte, error) {
	var ret []byte
	var err error
	db.Metrics.Observe(ctx, promOpRead, func(ctx context.Context) error {
		ret, err = db.Backend.ReadRecord(ctx, key)
		return err
	})
	return ret, err
}

func (db *DB) WriteRecord(ctx context.Context, key trust.Key, payload []byte) error {
	var err error
	db.Metrics.Observe(ctx, promOpWrite, func(ctx context.Context) error {
		err = db.Backend.WriteRecord(ctx, key, payload)
		return err
	})
	return err
}

func (db *DB) Records(ctx context.Context) ([]trust.StoredRecord, error) {
	var ret []trust.StoredRecord
	var err error
	db.Metrics.Observe(ctx, promOpRecords, func(ctx context.Context) error {
		ret, err = db.Backend.Records(ctx)
		return err
	})
	return ret, err
}
