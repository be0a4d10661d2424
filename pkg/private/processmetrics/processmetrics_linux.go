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

//go:build linux

package processmetrics

import (
	"os"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/securityd/securityd/pkg/private/serrors"
)

const nanosPerSecond = 1e9

var (
	runningDesc = prometheus.NewDesc(
		"process_running_seconds_total",
		"Time all threads of the process spent running.",
		nil, nil,
	)
	waitingDesc = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"Time all threads of the process spent runnable but not scheduled.",
		nil, nil,
	)
	threadsDesc = prometheus.NewDesc(
		"process_threads",
		"Number of OS threads of the process.",
		nil, nil,
	)
	fdsDesc = prometheus.NewDesc(
		"securityd_open_descriptors",
		"Number of open file descriptors, including IPC connections.",
		nil, nil,
	)
	maxProcsDesc = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
)

type sample struct {
	running float64
	waiting float64
	threads int
	fds     int
}

// collector reads /proc/<pid>/task/*/schedstat on every scrape.
type collector struct {
	fs  procfs.FS
	pid int

	mu   sync.Mutex
	last sample
}

func newCollector(pid int) (*collector, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, serrors.Wrap("opening procfs", err)
	}
	return &collector{fs: fs, pid: pid}, nil
}

func (c *collector) read() (sample, error) {
	threads, err := c.fs.AllThreads(c.pid)
	if err != nil {
		return sample{}, serrors.Wrap("listing threads", err, "pid", c.pid)
	}
	var s sample
	s.threads = len(threads)
	for _, t := range threads {
		stat, err := t.Schedstat()
		if err != nil {
			// The thread exited between listing and reading.
			continue
		}
		s.running += float64(stat.RunningNanoseconds) / nanosPerSecond
		s.waiting += float64(stat.WaitingNanoseconds) / nanosPerSecond
	}
	proc, err := c.fs.Proc(c.pid)
	if err != nil {
		return sample{}, serrors.Wrap("opening process", err, "pid", c.pid)
	}
	if s.fds, err = proc.FileDescriptorsLen(); err != nil {
		return sample{}, serrors.Wrap("counting descriptors", err, "pid", c.pid)
	}
	return s, nil
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect reports the latest readable sample. On a read failure the previous
// sample is reported again so that counters never decrease.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	if s, err := c.read(); err == nil {
		c.last = s
	}
	s := c.last
	c.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(runningDesc, prometheus.CounterValue, s.running)
	ch <- prometheus.MustNewConstMetric(waitingDesc, prometheus.CounterValue, s.waiting)
	ch <- prometheus.MustNewConstMetric(threadsDesc, prometheus.GaugeValue, float64(s.threads))
	ch <- prometheus.MustNewConstMetric(fdsDesc, prometheus.GaugeValue, float64(s.fds))
	ch <- prometheus.MustNewConstMetric(maxProcsDesc, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
}

// Register adds the process collector to reg. It fails if /proc cannot be
// read or if a collector was already registered with reg.
func Register(reg prometheus.Registerer) error {
	c, err := newCollector(os.Getpid())
	if err != nil {
		return err
	}
	if _, err := c.read(); err != nil {
		return err
	}
	if err := reg.Register(c); err != nil {
		return serrors.Wrap("registering process collector", err)
	}
	return nil
}

// Init registers the process collector with the default registry.
func Init() error {
	return Register(prometheus.DefaultRegisterer)
}
