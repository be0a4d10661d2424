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

// Package prom holds the label names and result values shared by the
// securityd Prometheus metrics.
package prom

// Label names.
const (
	LabelResult    = "result"
	LabelOperation = "op"
	LabelKind      = "kind"
)

// Result values. Successful outcomes start with "ok_", failures with "err_".
const (
	Success          = "ok_success"
	ErrDB            = "err_db"
	ErrDenied        = "err_denied"
	ErrNotClassified = "err_not_classified"
	ErrNotFound      = "err_not_found"
	ErrParse         = "err_parse"
	ErrRevoked       = "err_revoked"
	ErrTimeout       = "err_timeout"
)

// DefaultLatencyBuckets doubles from 10ms to 10.24s.
var DefaultLatencyBuckets = []float64{0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64,
	1.28, 2.56, 5.12, 10.24}
