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

package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/private/util"
)

func TestParseDuration(t *testing.T) {
	testCases := map[string]struct {
		input     string
		expected  time.Duration
		assertErr assert.ErrorAssertionFunc
	}{
		"seconds":   {input: "90s", expected: 90 * time.Second, assertErr: assert.NoError},
		"composite": {input: "1h30m", expected: 90 * time.Minute, assertErr: assert.NoError},
		"days":      {input: "2d", expected: 48 * time.Hour, assertErr: assert.NoError},
		"weeks":     {input: "1w", expected: 7 * 24 * time.Hour, assertErr: assert.NoError},
		"garbage":   {input: "soon", assertErr: assert.Error},
		"bad days":  {input: "xd", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d, err := util.ParseDuration(tc.input)
			tc.assertErr(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}

func TestDurWrapText(t *testing.T) {
	var d util.DurWrap
	require.NoError(t, d.UnmarshalText([]byte("3d")))
	assert.Equal(t, 72*time.Hour, d.Duration)
	raw, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "3d", string(raw))
	assert.Equal(t, "1m0s", util.FmtDuration(time.Minute))
}
