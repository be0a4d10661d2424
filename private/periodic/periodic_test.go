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

package periodic_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/xtest"
	"github.com/securityd/securityd/private/periodic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testMetrics() (*periodic.Metrics, *metrics.TestCounter) {
	events := metrics.NewTestCounter()
	return &periodic.Metrics{
		Events: func(s string) metrics.Counter {
			return events.With("event_type", s)
		},
		Period:    metrics.NewTestGauge(),
		Runtime:   metrics.NewTestGauge(),
		StartTime: metrics.NewTestGauge(),
	}, events
}

func TestRunsRepeatedly(t *testing.T) {
	m, _ := testMetrics()
	runs := make(chan struct{}, 10)
	task := periodic.Func{
		TaskName: "repeat",
		Task: func(ctx context.Context) {
			select {
			case runs <- struct{}{}:
			default:
			}
		},
	}
	p := 10 * time.Millisecond
	r := periodic.StartWithMetrics(task, m, p, time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			<-runs
		}
	}()
	xtest.AssertReadReturnsBefore(t, done, time.Second)
	r.Stop()

	assert.Equal(t, float64(1), metrics.CounterValue(m.Events(periodic.EventStop)))
	assert.Equal(t, float64(0), metrics.CounterValue(m.Events(periodic.EventKill)))
	assert.Equal(t, p.Seconds(), metrics.GaugeValue(m.Period))
}

func TestKillCancelsRun(t *testing.T) {
	m, _ := testMetrics()
	started := make(chan struct{})
	errs := make(chan error, 1)
	task := periodic.Func{
		TaskName: "long",
		Task: func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			errs <- ctx.Err()
		},
	}
	r := periodic.StartWithMetrics(task, m, time.Hour, time.Hour)
	xtest.AssertReadReturnsBefore(t, started, time.Second)
	r.Kill()

	assert.Equal(t, context.Canceled, <-errs)
	assert.Equal(t, float64(1), metrics.CounterValue(m.Events(periodic.EventKill)))
}

func TestTriggerRun(t *testing.T) {
	m, _ := testMetrics()
	var count atomic.Int32
	task := periodic.Func{
		TaskName: "trigger",
		Task:     func(context.Context) { count.Add(1) },
	}
	r := periodic.StartWithMetrics(task, m, time.Hour, time.Second)
	for i := 0; i < 3; i++ {
		r.TriggerRun()
	}
	r.Stop()

	// The initial run plus one per trigger.
	assert.Equal(t, int32(4), count.Load())
	assert.Equal(t, float64(3), metrics.CounterValue(m.Events(periodic.EventTrigger)))
}
