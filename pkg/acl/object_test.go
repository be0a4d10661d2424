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

package acl_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/acl"
	"github.com/securityd/securityd/pkg/acl/mock_acl"
	"github.com/securityd/securityd/pkg/metrics"
	"github.com/securityd/securityd/pkg/private/prom"
)

func TestEvaluateShortCircuit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e1 := mock_acl.NewMockSubject(ctrl)
	e2 := mock_acl.NewMockSubject(ctrl)
	e3 := mock_acl.NewMockSubject(ctrl)
	skipped := mock_acl.NewMockSubject(ctrl)
	gomock.InOrder(
		e1.EXPECT().Validate(gomock.Any()).Return(false),
		e2.EXPECT().Validate(gomock.Any()).Return(true),
	)

	var a acl.ObjectACL
	require.NoError(t, a.Add(acl.Entry{Tag: "sign-only", Subject: skipped, Operations: acl.OpSign}))
	require.NoError(t, a.Add(acl.Entry{Tag: "e1", Subject: e1, Operations: acl.OpDecrypt}))
	require.NoError(t, a.Add(acl.Entry{Tag: "e2", Subject: e2, Operations: acl.OpAny}))
	require.NoError(t, a.Add(acl.Entry{Tag: "e3", Subject: e3, Operations: acl.OpAny}))

	assert.Equal(t, acl.Granted, a.Evaluate(acl.OpDecrypt, &acl.Context{}))
}

func TestEvaluate(t *testing.T) {
	newACL := func(t *testing.T) *acl.ObjectACL {
		a := &acl.ObjectACL{}
		require.NoError(t, a.Add(acl.Entry{
			Tag:        "owner",
			Subject:    acl.NewPassword([]byte("owner-pw")),
			Operations: acl.OpAny,
		}))
		require.NoError(t, a.Add(acl.Entry{
			Tag:        "readers",
			Subject:    acl.NewPassword([]byte("reader-pw")),
			Operations: acl.OpDecrypt | acl.OpLogin,
		}))
		return a
	}
	testCases := map[string]struct {
		op       acl.Operation
		password string
		expected acl.Decision
	}{
		"owner may delete": {
			op: acl.OpDelete, password: "owner-pw", expected: acl.Granted,
		},
		"reader may decrypt": {
			op: acl.OpDecrypt, password: "reader-pw", expected: acl.Granted,
		},
		"reader may not delete": {
			op: acl.OpDelete, password: "reader-pw", expected: acl.Denied,
		},
		"reader may not decrypt and sign": {
			op: acl.OpDecrypt | acl.OpSign, password: "reader-pw", expected: acl.Denied,
		},
		"wrong password": {
			op: acl.OpLogin, password: "guess", expected: acl.Denied,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			a := newACL(t)
			ctx := &acl.Context{Samples: []acl.Sample{passwordSample(tc.password)}}
			assert.Equal(t, tc.expected, a.Evaluate(tc.op, ctx))
		})
	}
}

func TestEvaluateEmpty(t *testing.T) {
	var a acl.ObjectACL
	assert.Equal(t, acl.Denied, a.Evaluate(acl.OpLogin, nil))
}

func TestAddDuplicateTag(t *testing.T) {
	var a acl.ObjectACL
	require.NoError(t, a.Add(acl.Entry{Tag: "t", Subject: acl.AnySubject{}, Operations: acl.OpSign}))
	err := a.Add(acl.Entry{Tag: "t", Subject: acl.NewPassword(nil), Operations: acl.OpAny})
	assert.ErrorIs(t, err, acl.ErrDuplicateTag)

	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, acl.KindAny, entries[0].Subject.Kind())
	assert.Equal(t, acl.OpSign, entries[0].Operations)
}

func TestAddNilSubject(t *testing.T) {
	var a acl.ObjectACL
	assert.ErrorIs(t, a.Add(acl.Entry{Tag: "t"}), acl.ErrBadFormat)
	assert.Equal(t, 0, a.Len())
}

func TestRemove(t *testing.T) {
	var a acl.ObjectACL
	for _, tag := range []string{"a", "b", "c"} {
		require.NoError(t, a.Add(acl.Entry{Tag: tag, Subject: acl.AnySubject{}}))
	}
	require.NoError(t, a.Remove("b"))
	assert.ErrorIs(t, a.Remove("b"), acl.ErrNotFound)

	var tags []string
	for _, e := range a.Entries() {
		tags = append(tags, e.Tag)
	}
	assert.Equal(t, []string{"a", "c"}, tags)
}

func TestExportImport(t *testing.T) {
	_, der := mustEd25519(t)
	key, err := acl.NewKey(der)
	require.NoError(t, err)
	threshold, err := acl.NewThreshold(1, acl.NewPassword([]byte("x")), key)
	require.NoError(t, err)

	var a acl.ObjectACL
	require.NoError(t, a.Add(acl.Entry{Tag: "note", Subject: &acl.CommentSubject{Comment: []byte("c")}}))
	require.NoError(t, a.Add(acl.Entry{Tag: "pw", Subject: acl.NewPassword([]byte("pw")), Operations: acl.OpDecrypt}))
	require.NoError(t, a.Add(acl.Entry{Tag: "quorum", Subject: threshold, Operations: acl.OpAny}))

	raw, err := a.Export()
	require.NoError(t, err)
	got, err := acl.ImportObjectACL(nil, raw)
	require.NoError(t, err)

	want, have := a.Entries(), got.Entries()
	require.Len(t, have, len(want))
	for i := range want {
		assert.Equal(t, want[i].Tag, have[i].Tag)
		assert.Equal(t, want[i].Operations, have[i].Operations)
		assert.True(t, want[i].Subject.Equal(have[i].Subject), "entry %d", i)
	}

	_, err = acl.ImportObjectACL(nil, raw[:len(raw)-1])
	assert.ErrorIs(t, err, acl.ErrBadFormat)
	_, err = acl.ImportObjectACL(nil, append(append([]byte(nil), raw...), 1))
	assert.ErrorIs(t, err, acl.ErrBadFormat)
}

func TestEntriesAreCopies(t *testing.T) {
	var a acl.ObjectACL
	require.NoError(t, a.Add(acl.Entry{Tag: "c", Subject: &acl.CommentSubject{Comment: []byte("abc")}}))
	entries := a.Entries()
	entries[0].Subject.(*acl.CommentSubject).Comment[0] = 'X'
	again := a.Entries()
	assert.Equal(t, []byte("abc"), again[0].Subject.(*acl.CommentSubject).Comment)
}

func TestEvaluateMetrics(t *testing.T) {
	decisions, validations := metrics.NewTestCounter(), metrics.NewTestCounter()
	a := acl.ObjectACL{Metrics: &acl.Metrics{Decisions: decisions, Validations: validations}}
	require.NoError(t, a.Add(acl.Entry{Tag: "pw", Subject: acl.NewPassword([]byte("x")), Operations: acl.OpAny}))

	a.Evaluate(acl.OpLogin, &acl.Context{Samples: []acl.Sample{passwordSample("x")}})
	a.Evaluate(acl.OpLogin, &acl.Context{})
	a.Evaluate(acl.OpLogin, &acl.Context{})

	assert.Equal(t, float64(1), metrics.CounterValue(
		decisions.With(prom.LabelResult, prom.Success)))
	assert.Equal(t, float64(2), metrics.CounterValue(
		decisions.With(prom.LabelResult, prom.ErrDenied)))
	assert.Equal(t, float64(2), metrics.CounterValue(
		validations.With(prom.LabelKind, "password", prom.LabelResult, prom.ErrDenied)))
}

func TestConcurrentAccess(t *testing.T) {
	var a acl.ObjectACL
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tag := fmt.Sprintf("tag-%d", i)
			assert.NoError(t, a.Add(acl.Entry{Tag: tag, Subject: acl.AnySubject{}, Operations: acl.OpSign}))
		}(i)
		go func() {
			defer wg.Done()
			a.Evaluate(acl.OpDecrypt, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, a.Len())
	assert.Equal(t, acl.Granted, a.Evaluate(acl.OpSign, nil))
}

func TestOperation(t *testing.T) {
	assert.True(t, acl.OpAny.Covers(acl.OpDelete|acl.OpSign))
	assert.False(t, acl.OpSign.Covers(acl.OpDelete|acl.OpSign))
	assert.Equal(t, "decrypt|sign", (acl.OpDecrypt | acl.OpSign).String())
	assert.Equal(t, "any", acl.OpAny.String())

	op, err := acl.ParseOperation("decrypt|sign")
	require.NoError(t, err)
	assert.Equal(t, acl.OpDecrypt|acl.OpSign, op)
	_, err = acl.ParseOperation("fly")
	assert.Error(t, err)
}
