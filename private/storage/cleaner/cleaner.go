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

// Package cleaner provides a periodic task that purges expired entries from
// a store.
package cleaner

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/private/periodic"
)

// ExpiredDeleter deletes expired entries and returns how many were removed.
type ExpiredDeleter func(ctx context.Context) (int, error)

var _ periodic.Task = (*Cleaner)(nil)

// Cleaner is a periodic.Task that deletes expired entries.
type Cleaner struct {
	deleter   ExpiredDeleter
	subsystem string
	metrics   Metrics
}

// Metrics contains the metrics for a cleaner. All fields are optional.
type Metrics struct {
	ErrorsTotal  metrics.Counter
	RunsTotal    metrics.Counter
	DeletedTotal metrics.Counter
}

// NewMetrics creates Prometheus backed cleaner metrics for the subsystem.
func NewMetrics(subsystem string, opts ...metrics.Option) Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	counter := func(name, help string) metrics.Counter {
		return metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("securityd_%s_cleaner_%s", subsystem, name),
			Help: help,
		}, []string{}))
	}
	return Metrics{
		ErrorsTotal:  counter("errors_total", "Total number of failed cleaner runs."),
		RunsTotal:    counter("runs_total", "Total number of successful cleaner runs."),
		DeletedTotal: counter("deleted_total", "Total number of deleted entries."),
	}
}

// New returns a cleaner task for the subsystem.
func New(deleter ExpiredDeleter, subsystem string, m Metrics) *Cleaner {
	return &Cleaner{
		deleter:   deleter,
		subsystem: subsystem,
		metrics:   m,
	}
}

// Name returns the task name.
func (c *Cleaner) Name() string {
	return fmt.Sprintf("%s_cleaner", c.subsystem)
}

// Run deletes expired entries once.
func (c *Cleaner) Run(ctx context.Context) {
	count, err := c.deleter(ctx)
	logger := log.FromCtx(ctx)
	if err != nil {
		logger.Error("Failed to delete expired entries", "subsystem", c.subsystem, "err", err)
		metrics.CounterInc(c.metrics.ErrorsTotal)
		return
	}
	if count > 0 {
		logger.Debug("Deleted expired entries", "subsystem", c.subsystem, "count", count)
		metrics.CounterAdd(c.metrics.DeletedTotal, float64(count))
	}
	metrics.CounterInc(c.metrics.RunsTotal)
}
