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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/securityd/securityd/pkg/metrics"
)

func TestNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.CounterInc(nil)
		metrics.CounterAdd(nil, 2)
		metrics.GaugeSet(nil, 1)
		metrics.HistogramObserve(nil, 1)
		assert.Nil(t, metrics.CounterWith(nil, "a", "b"))
	})
}

func TestTestCounterLabels(t *testing.T) {
	c := metrics.NewTestCounter()
	metrics.CounterInc(c.With("result", "ok"))
	metrics.CounterInc(c.With("result", "ok"))
	metrics.CounterInc(c.With("result", "err"))

	assert.Equal(t, float64(2), metrics.CounterValue(c.With("result", "ok")))
	assert.Equal(t, float64(1), metrics.CounterValue(c.With("result", "err")))
	assert.Equal(t, float64(0), metrics.CounterValue(c))
}

func TestPromCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	cv := metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto().NewCounterVec(
		prometheus.CounterOpts{Name: "test_total", Help: "test"},
		[]string{"result"},
	)
	c := metrics.NewPromCounter(cv)
	metrics.CounterAdd(c.With("result", "ok"), 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(cv.WithLabelValues("ok")))
}

func TestPromGaugeOddLabels(t *testing.T) {
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "g", Help: "g"}, []string{"k"})
	g := metrics.NewPromGauge(gv)
	metrics.GaugeSet(g.With("k"), 5)
	assert.Equal(t, float64(5), testutil.ToFloat64(gv.WithLabelValues("unknown")))
}

func TestPromHistogram(t *testing.T) {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "h", Help: "h"},
		[]string{"result"})
	h := metrics.NewPromHistogram(hv)
	metrics.HistogramObserve(metrics.HistogramWith(h, "result", "ok"), 0.5)
	metrics.HistogramObserve(metrics.HistogramWith(h, "result", "ok"), 1.5)
	assert.Equal(t, 1, testutil.CollectAndCount(hv))
	assert.Nil(t, metrics.HistogramWith(nil, "result", "ok"))
}
