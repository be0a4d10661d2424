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

package revocation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/prom"
)

// Metrics counts verdicts of the checker and times chain checks. A nil
// *Metrics is valid.
type Metrics struct {
	Checks        metrics.Counter
	ChainDuration metrics.Histogram
}

// NewMetrics creates Prometheus backed checker metrics.
func NewMetrics(opts ...metrics.Option) *Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	return &Metrics{
		Checks: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "securityd_revocation_checks_total",
			Help: "Total number of revocation checks by source and final state.",
		}, []string{"source", "state"})),
		ChainDuration: metrics.NewPromHistogram(auto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "securityd_revocation_chain_check_seconds",
			Help:    "Duration of whole-chain revocation checks by verdict.",
			Buckets: prom.DefaultLatencyBuckets,
		}, []string{prom.LabelResult})),
	}
}

func (m *Metrics) observe(src Source, s State) {
	if m == nil {
		return
	}
	metrics.CounterInc(metrics.CounterWith(m.Checks, "source", src.String(), "state", s.String()))
}

func (m *Metrics) observeChain(res ChainResult, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := prom.Success
	switch {
	case err != nil:
		result = prom.ErrTimeout
	case res.Revoked:
		result = prom.ErrRevoked
	case !res.Accepted:
		result = prom.ErrDenied
	}
	metrics.HistogramObserve(metrics.HistogramWith(m.ChainDuration, prom.LabelResult, result),
		d.Seconds())
}
