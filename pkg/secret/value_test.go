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

package secret_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/secret"
)

func TestGet(t *testing.T) {
	testCases := map[string]struct {
		value     secret.Value
		typ       secret.Type
		expected  string
		assertErr assert.ErrorAssertionFunc
	}{
		"matching": {
			value:     secret.NewValue(secret.TypeString, "login"),
			typ:       secret.TypeString,
			expected:  "login",
			assertErr: assert.NoError,
		},
		"wrong tag": {
			value:     secret.NewValue(secret.TypeBytes, "login"),
			typ:       secret.TypeString,
			assertErr: assert.Error,
		},
		"wrong go type": {
			value:     secret.NewValue(secret.TypeString, uint32(7)),
			typ:       secret.TypeString,
			assertErr: assert.Error,
		},
		"nil": {
			typ:       secret.TypeString,
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v, err := secret.Get[string](tc.value, tc.typ)
			tc.assertErr(t, err)
			if err != nil {
				assert.True(t, errors.Is(err, secret.ErrTypeMismatch))
			}
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestGetBytesSecret(t *testing.T) {
	s := secret.NewBytes([]byte("hunter2"))
	raw, err := secret.Get[[]byte](s, secret.TypeSecret)
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), raw)
}

func TestBytes(t *testing.T) {
	input := []byte("hunter2")
	s := secret.NewBytes(input)
	input[0] = 'X'
	assert.True(t, s.Equal([]byte("hunter2")), "secret must own a copy")
	assert.False(t, s.Equal([]byte("hunter3")))
	assert.True(t, s.EqualSecret(s.Clone()))

	assert.NotContains(t, fmt.Sprintf("%v %s %#v", s, s, s), "hunter2")

	exported := s.Export()
	s.Destroy()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Equal([]byte("hunter2")))
	assert.Equal(t, []byte("hunter2"), exported)
}

func TestTypedDestroy(t *testing.T) {
	payload := []byte{1, 2, 3}
	v := secret.NewValue(secret.TypeSignature, payload)
	v.Destroy()
	assert.Nil(t, v.Value())
	assert.Equal(t, []byte{0, 0, 0}, payload)
}

func TestFind(t *testing.T) {
	vals := []secret.Value{
		secret.NewValue(secret.TypeString, "a"),
		secret.NewBytes([]byte("b")),
	}
	v, ok := secret.Find(vals, secret.TypeSecret)
	require.True(t, ok)
	assert.Equal(t, secret.TypeSecret, v.Type())
	_, ok = secret.Find(vals, secret.TypeUint32)
	assert.False(t, ok)
}
