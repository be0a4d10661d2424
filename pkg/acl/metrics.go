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

package acl

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/prom"
)

// Metrics are the metrics of ACL evaluations. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Decisions counts evaluations, labeled by result.
	Decisions metrics.Counter
	// Validations counts subject validations, labeled by kind and result.
	Validations metrics.Counter
}

// NewMetrics creates Prometheus backed metrics.
func NewMetrics(opts ...metrics.Option) *Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	return &Metrics{
		Decisions: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "securityd_acl_decisions_total",
			Help: "Total number of ACL evaluations.",
		}, []string{prom.LabelResult})),
		Validations: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "securityd_acl_subject_validations_total",
			Help: "Total number of subject validations.",
		}, []string{prom.LabelKind, prom.LabelResult})),
	}
}

func (m *Metrics) observeDecision(d Decision) {
	if m == nil {
		return
	}
	result := prom.Success
	if d != Granted {
		result = prom.ErrDenied
	}
	metrics.CounterInc(metrics.CounterWith(m.Decisions, prom.LabelResult, result))
}

func (m *Metrics) observeValidation(s Subject, ok bool) {
	if m == nil {
		return
	}
	result := prom.Success
	if !ok {
		result = prom.ErrDenied
	}
	metrics.CounterInc(metrics.CounterWith(m.Validations,
		prom.LabelKind, s.Kind().String(), prom.LabelResult, result))
}
