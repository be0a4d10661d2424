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

// Package periodic runs tasks at a fixed interval.
package periodic

import (
	"context"
	"fmt"
	"time"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/metrics"
)

// Event labels reported through Metrics.Events.
const (
	EventStop    = "stop"
	EventKill    = "kill"
	EventTrigger = "triggered"
)

// Task is a task that is run periodically.
type Task interface {
	// Run runs the task. The context is canceled when the task is killed or
	// when the run exceeds its timeout.
	Run(context.Context)
	// Name returns the name of the task for logging and metrics.
	Name() string
}

// Func implements Task for a plain function.
type Func struct {
	Task     func(context.Context)
	TaskName string
}

// Run calls the function.
func (f Func) Run(ctx context.Context) {
	f.Task(ctx)
}

// Name returns the task name.
func (f Func) Name() string {
	return f.TaskName
}

// Metrics are the metrics of a runner. All fields are optional.
type Metrics struct {
	Events    func(string) metrics.Counter
	Period    metrics.Gauge
	Runtime   metrics.Gauge
	StartTime metrics.Gauge
}

func (m *Metrics) event(e string) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(e))
}

// Runner runs a task periodically.
type Runner struct {
	task    Task
	ticker  *time.Ticker
	timeout time.Duration
	stop    chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancelF context.CancelFunc
	trigger chan struct{}
	logger  log.Logger
	metrics *Metrics
}

// Start creates and starts a new Runner that runs the task every period. The
// first run happens immediately. Each run is bounded by timeout.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start and additionally reports metrics.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	logger := log.New("debug_id", fmt.Sprintf("%x", time.Now().UnixNano()&0xffffffff))
	ctx = log.CtxWith(ctx, logger)
	r := &Runner{
		task:    task,
		ticker:  time.NewTicker(period),
		timeout: timeout,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancelF: cancelF,
		trigger: make(chan struct{}),
		logger:  logger,
		metrics: m,
	}
	logger.Info("Starting periodic task", "task", task.Name())
	if m != nil {
		metrics.GaugeSet(m.Period, period.Seconds())
		metrics.GaugeSet(m.StartTime, float64(time.Now().Unix()))
	}
	go func() {
		defer log.HandlePanic()
		r.runLoop()
	}()
	return r
}

// Stop stops the runner and waits for the current run to finish.
func (r *Runner) Stop() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	<-r.done
	r.metrics.event(EventStop)
}

// Kill stops the runner, cancels the current run and waits for it to return.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.done
	r.metrics.event(EventKill)
}

// TriggerRun runs the task immediately, blocking until the runner picks up
// the trigger.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	}
}

func (r *Runner) runLoop() {
	defer close(r.done)
	defer r.logger.Info("Stopped periodic task", "task", r.task.Name())
	r.onTick()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
	defer cancelF()
	start := time.Now()
	r.task.Run(ctx)
	if r.metrics != nil {
		metrics.GaugeSet(r.metrics.Runtime, time.Since(start).Seconds())
	}
}
