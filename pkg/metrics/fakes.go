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

import (
	"sort"
	"strings"
	"sync"
)

// node is a tree of labeled values. Each With call descends into a child
// identified by the full label set.
type node struct {
	mtx      sync.Mutex
	v        float64
	children map[string]*node
}

func (n *node) child(lvs labels) *node {
	pairs := make([]string, 0, len(lvs)/2)
	for i := 0; i+1 < len(lvs); i += 2 {
		pairs = append(pairs, lvs[i]+"="+lvs[i+1])
	}
	sort.Strings(pairs)
	key := strings.Join(pairs, ",")

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[key]
	if !ok {
		c = &node{}
		n.children[key] = c
	}
	return c
}

func (n *node) add(delta float64, canBeNegative bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	n.v += delta
}

func (n *node) set(v float64) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.v = v
}

func (n *node) value() float64 {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.v
}

// TestCounter is a Counter for use in tests.
type TestCounter struct {
	root *node
	*node
	lvs labels
}

// NewTestCounter creates a new TestCounter.
func NewTestCounter() *TestCounter {
	n := &node{}
	return &TestCounter{root: n, node: n}
}

// With returns the counter for the combined label set. Calling With with the
// same labels twice returns counters sharing the same value.
func (c *TestCounter) With(labelValues ...string) Counter {
	lvs := c.lvs.with(labelValues)
	return &TestCounter{root: c.root, node: c.root.child(lvs), lvs: lvs}
}

// Add implements Counter.
func (c *TestCounter) Add(delta float64) {
	c.add(delta, false)
}

// CounterValue returns the value of a TestCounter.
func CounterValue(c Counter) float64 {
	return c.(*TestCounter).value()
}

// TestGauge is a Gauge for use in tests.
type TestGauge struct {
	root *node
	*node
	lvs labels
}

// NewTestGauge creates a new TestGauge.
func NewTestGauge() *TestGauge {
	n := &node{}
	return &TestGauge{root: n, node: n}
}

// With implements Gauge.
func (g *TestGauge) With(labelValues ...string) Gauge {
	lvs := g.lvs.with(labelValues)
	return &TestGauge{root: g.root, node: g.root.child(lvs), lvs: lvs}
}

// Set implements Gauge.
func (g *TestGauge) Set(v float64) {
	g.set(v)
}

// Add implements Gauge.
func (g *TestGauge) Add(delta float64) {
	g.add(delta, true)
}

// GaugeValue returns the value of a TestGauge.
func GaugeValue(g Gauge) float64 {
	return g.(*TestGauge).value()
}
