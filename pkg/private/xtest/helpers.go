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

// Package xtest contains helpers shared by tests.
package xtest

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TempPath returns a fresh path for name in a per-test temporary directory.
// The test name is folded into the file name so that socket paths remain
// recognizable in failure output.
func TempPath(t testing.TB, name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, t.Name())
	return filepath.Join(t.TempDir(), safe+"_"+name)
}

// AssertReadReturnsBefore fails the test if ch does not yield before timeout.
func AssertReadReturnsBefore(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("no signal within %s", timeout)
	}
}
