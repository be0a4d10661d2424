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

package metrics

import "github.com/prometheus/client_golang/prometheus"

// labels accumulates alternating label names and values across With calls.
// A dangling name gets the value "unknown".
type labels []string

func (l labels) with(kv []string) labels {
	out := make(labels, 0, len(l)+len(kv)+1)
	out = append(append(out, l...), kv...)
	if len(kv)%2 == 1 {
		out = append(out, "unknown")
	}
	return out
}

func (l labels) prom() prometheus.Labels {
	m := make(prometheus.Labels, len(l)/2)
	for i := 0; i+1 < len(l); i += 2 {
		m[l[i]] = l[i+1]
	}
	return m
}

// NewPromCounter adapts a counter vector. A nil vector yields a nil Counter.
func NewPromCounter(cv *prometheus.CounterVec) Counter {
	if cv == nil {
		return nil
	}
	return promCounter{vec: cv}
}

// NewPromGauge adapts a gauge vector. A nil vector yields a nil Gauge.
func NewPromGauge(gv *prometheus.GaugeVec) Gauge {
	if gv == nil {
		return nil
	}
	return promGauge{vec: gv}
}

// NewPromHistogram adapts a histogram vector. A nil vector yields a nil
// Histogram.
func NewPromHistogram(hv *prometheus.HistogramVec) Histogram {
	if hv == nil {
		return nil
	}
	return promHistogram{vec: hv}
}

type promCounter struct {
	vec *prometheus.CounterVec
	l   labels
}

func (c promCounter) With(kv ...string) Counter { return promCounter{c.vec, c.l.with(kv)} }
func (c promCounter) Add(delta float64)         { c.vec.With(c.l.prom()).Add(delta) }

type promGauge struct {
	vec *prometheus.GaugeVec
	l   labels
}

func (g promGauge) With(kv ...string) Gauge { return promGauge{g.vec, g.l.with(kv)} }
func (g promGauge) Set(v float64)           { g.vec.With(g.l.prom()).Set(v) }
func (g promGauge) Add(delta float64)       { g.vec.With(g.l.prom()).Add(delta) }

type promHistogram struct {
	vec *prometheus.HistogramVec
	l   labels
}

func (h promHistogram) With(kv ...string) Histogram { return promHistogram{h.vec, h.l.with(kv)} }
func (h promHistogram) Observe(v float64)           { h.vec.With(h.l.prom()).Observe(v) }
