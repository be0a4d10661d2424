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

package walker

import (
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleGraph returns a graph with three levels of references, two blobs and
// a node shared between a reference and a list.
func sampleGraph() *Node {
	leaf := NewNode(U16(0x0102), Blob([]byte("second blob")), U64(0x0102030405060708))
	mid := NewNode(U32(0xa1b2c3d4), Ref(leaf), Ref(nil))
	top := NewNode(U8(7), Ref(mid), Blob([]byte{0xde, 0xad, 0xbe, 0xef}))
	return NewNode(U16(2), Ref(top), List(mid, NewNode(U32(5)), nil))
}

func diff(want, got *Node) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}

func TestRoundTrip(t *testing.T) {
	want := sampleGraph()
	size, err := Size(want)
	require.NoError(t, err)

	testCases := map[string]struct {
		base uint64
		size uint32
		flip bool
	}{
		"exact":         {base: 0x7f0000001000, size: size},
		"exact flipped": {base: 0x7f0000001000, size: size, flip: true},
		"padded":        {base: 42, size: size + 64},
		"padded flip":   {base: 42, size: size + 64, flip: true},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			buf, err := Relocate(want, tc.base, tc.size, tc.flip)
			require.NoError(t, err)
			require.Len(t, buf, int(tc.size))
			got, err := Reconstitute(buf, tc.base, tc.size, tc.flip)
			require.NoError(t, err)
			assert.Empty(t, diff(want, got))

			// The shared node is decoded once.
			assert.Same(t, got.Fields[1].Ref.Fields[1].Ref, got.Fields[2].List[0])
		})
	}
}

func TestArenaIndependentOfBase(t *testing.T) {
	g := sampleGraph()
	size, err := Size(g)
	require.NoError(t, err)
	ref, err := Relocate(g, 0, size, false)
	require.NoError(t, err)

	testCases := map[string]struct {
		base uint64
	}{
		"low":       {base: 42},
		"high":      {base: 0x7f0000001000},
		"edge":      {base: math.MaxUint64 - uint64(size)},
		"unaligned": {base: 0x1003},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			buf, err := Relocate(g, tc.base, size, false)
			require.NoError(t, err)
			assert.Equal(t, ref, buf)
			got, err := Reconstitute(ref, tc.base, size, false)
			require.NoError(t, err)
			assert.Empty(t, diff(g, got))
		})
	}
}

func TestFlipSwapsScalars(t *testing.T) {
	g := sampleGraph()
	size, err := Size(g)
	require.NoError(t, err)
	plain, err := Relocate(g, 0, size, false)
	require.NoError(t, err)
	flipped, err := Relocate(g, 0, size, true)
	require.NoError(t, err)
	require.Len(t, flipped, len(plain))

	var spans []span
	_, err = reconstitute(plain, 0, size, false, func(s span) { spans = append(spans, s) })
	require.NoError(t, err)

	covered := make([]bool, size)
	var swapped, blobs int
	for _, s := range spans {
		a := plain[s.off : int(s.off)+s.width]
		b := flipped[s.off : int(s.off)+s.width]
		if s.blob || s.width == 1 {
			assert.Equal(t, a, b, "offset %d", s.off)
			if s.blob {
				blobs++
			}
		} else {
			assert.Equal(t, a, reversed(b), "offset %d", s.off)
			if !slices.Equal(a, b) {
				swapped++
			}
		}
		for i := range s.width {
			covered[int(s.off)+i] = true
		}
	}
	assert.NotContains(t, covered, false, "every arena byte is part of a field")
	assert.Equal(t, 2, blobs)
	assert.Positive(t, swapped)
}

func reversed(b []byte) []byte {
	r := slices.Clone(b)
	slices.Reverse(r)
	return r
}

func chain(depth int) *Node {
	n := NewNode(U8(0))
	for range depth {
		n = NewNode(Ref(n))
	}
	return n
}

func TestRelocateErrors(t *testing.T) {
	cyclic := NewNode(U8(1))
	cyclic.Fields = append(cyclic.Fields, Ref(NewNode(List(cyclic))))

	testCases := map[string]struct {
		root *Node
		base uint64
		size uint32
		err  error
	}{
		"too small":       {root: sampleGraph(), size: 8, err: ErrTruncated},
		"nil root":        {size: 1024, err: ErrInvalidGraph},
		"cycle":           {root: cyclic, size: 1024, err: ErrCycle},
		"too deep":        {root: chain(MaxDepth + 1), size: 1 << 16, err: ErrTooDeep},
		"u8 overflow":     {root: NewNode(Field{Kind: KindU8, Uint: 256}), size: 64, err: ErrInvalidGraph},
		"unknown kind":    {root: NewNode(Field{Kind: 99}), size: 64, err: ErrInvalidGraph},
		"region overflow": {root: sampleGraph(), base: ^uint64(0) - 10, size: 1024, err: ErrOutOfBounds},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Relocate(tc.root, tc.base, tc.size, false)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestMaxDepthAccepted(t *testing.T) {
	root := chain(MaxDepth)
	size, err := Size(root)
	require.NoError(t, err)
	buf, err := Relocate(root, 0, size, true)
	require.NoError(t, err)
	got, err := Reconstitute(buf, 0, size, true)
	require.NoError(t, err)
	assert.Empty(t, diff(root, got))
}

// arena builds a little endian arena from u8 and u32 values.
type arena []byte

func (a arena) u8(v uint8) arena   { return append(a, v) }
func (a arena) u32(v uint32) arena { return binary.LittleEndian.AppendUint32(a, v) }

func TestReconstituteAliasedBlobs(t *testing.T) {
	const fields = 2000
	a := arena{}.u32(fields)
	for range fields {
		a = a.u8(uint8(KindBlob)).u32(0).u32(uint32(4 + fields*9))
	}
	_, err := Reconstitute(a, 0, uint32(len(a)), false)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	// Blobs that together fill the arena exactly are fine.
	root := NewNode(Blob(make([]byte, 40)), Blob(make([]byte, 24)))
	size, err := Size(root)
	require.NoError(t, err)
	buf, err := Relocate(root, 0, size, false)
	require.NoError(t, err)
	got, err := Reconstitute(buf, 0, size, false)
	require.NoError(t, err)
	assert.Len(t, got.Fields[0].Blob, 40)
	assert.Len(t, got.Fields[1].Blob, 24)
}

func TestReconstituteBounds(t *testing.T) {
	deep := arena{}
	for i := range MaxDepth + 2 {
		deep = deep.u32(1).u8(uint8(KindRef)).u32(uint32(9 * (i + 1)))
	}
	deep = deep.u32(0)

	testCases := map[string]struct {
		buf  []byte
		size uint32
		err  error
	}{
		"ref past size": {
			buf: arena{}.u32(1).u8(uint8(KindRef)).u32(100),
			err: ErrOutOfBounds,
		},
		"ref into tail beyond size": {
			buf:  arena{}.u32(1).u8(uint8(KindRef)).u32(9).u32(0),
			size: 9,
			err:  ErrOutOfBounds,
		},
		"blob past size": {
			buf: arena{}.u32(1).u8(uint8(KindBlob)).u32(0).u32(100),
			err: ErrOutOfBounds,
		},
		"blob offset wraps": {
			buf: arena{}.u32(1).u8(uint8(KindBlob)).u32(0xfffffff0).u32(0x20),
			err: ErrOutOfBounds,
		},
		"field count": {
			buf: arena{}.u32(0xffffffff),
			err: ErrOutOfBounds,
		},
		"list count": {
			buf: arena{}.u32(1).u8(uint8(KindList)).u32(0x40000000),
			err: ErrOutOfBounds,
		},
		"scalar past end": {
			buf: arena{}.u32(1).u8(uint8(KindU64)).u32(0),
			err: ErrOutOfBounds,
		},
		"self reference": {
			buf: arena{}.u32(1).u8(uint8(KindRef)).u32(0),
			err: ErrCycle,
		},
		"unknown kind": {
			buf: arena{}.u32(1).u8(0).u32(0),
			err: ErrInvalidGraph,
		},
		"too deep": {
			buf: deep,
			err: ErrTooDeep,
		},
		"empty": {
			buf: nil,
			err: ErrOutOfBounds,
		},
		"short buffer": {
			buf:  arena{}.u32(0),
			size: 8,
			err:  ErrTruncated,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			size := tc.size
			if size == 0 {
				size = uint32(len(tc.buf))
			}
			_, err := Reconstitute(tc.buf, 0, size, false)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
