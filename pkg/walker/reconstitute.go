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

	"github.com/securityd/securityd/pkg/private/serrors"
)

// span is a decoded region of the arena.
type span struct {
	off   uint32
	width int
	blob  bool
}

type decoder struct {
	arena  []byte
	order  binary.ByteOrder
	nodes  map[uint32]*Node
	onPath map[uint32]bool
	// blobBudget is the number of blob bytes that may still be copied out.
	// A well formed arena stores every blob once, so the sum of all blob
	// lengths never exceeds the arena size.
	blobBudget uint64
	// visit, if set, is called for every scalar and blob read.
	visit func(span)
}

// Reconstitute rebuilds the graph from an arena of size bytes that starts at
// base. The root node is at offset 0. Every offset is checked against size
// and decoding stops at the first fault. References to the same offset yield
// the same *Node. The blobs of the graph may not add up to more than size
// bytes, so aliased blob ranges cannot inflate the decoded graph.
func Reconstitute(buf []byte, base uint64, size uint32, flip bool) (*Node, error) {
	return reconstitute(buf, base, size, flip, nil)
}

func reconstitute(buf []byte, base uint64, size uint32, flip bool,
	visit func(span)) (*Node, error) {

	if err := checkRegion(base, size); err != nil {
		return nil, err
	}
	if uint64(len(buf)) < uint64(size) {
		return nil, serrors.JoinNoStack(ErrTruncated, nil, "len", len(buf), "size", size)
	}
	d := &decoder{
		arena:  buf[:size],
		order:  byteOrder(flip),
		nodes:  make(map[uint32]*Node),
		onPath: make(map[uint32]bool),
		visit:  visit,

		blobBudget: uint64(size),
	}
	return d.node(0, 0)
}

// read returns n bytes at off, or ErrOutOfBounds.
func (d *decoder) read(off uint64, n uint64, blob bool) ([]byte, error) {
	end := off + n
	if off >= uint64(len(d.arena)) && n > 0 || end > uint64(len(d.arena)) || end < off {
		return nil, serrors.JoinNoStack(ErrOutOfBounds, nil,
			"offset", off, "len", n, "size", len(d.arena))
	}
	if d.visit != nil {
		d.visit(span{off: uint32(off), width: int(n), blob: blob})
	}
	return d.arena[off:end], nil
}

func (d *decoder) u32(off *uint64) (uint32, error) {
	b, err := d.read(*off, 4, false)
	if err != nil {
		return 0, err
	}
	*off += 4
	return d.order.Uint32(b), nil
}

func (d *decoder) ref(off uint32, depth int) (*Node, error) {
	if off == nilRef {
		return nil, nil
	}
	return d.node(off, depth)
}

func (d *decoder) node(off uint32, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, serrors.JoinNoStack(ErrTooDeep, nil, "max", MaxDepth)
	}
	if off >= uint32(len(d.arena)) {
		return nil, serrors.JoinNoStack(ErrOutOfBounds, nil, "offset", off, "size", len(d.arena))
	}
	if d.onPath[off] {
		return nil, serrors.JoinNoStack(ErrCycle, nil, "offset", off)
	}
	if n, ok := d.nodes[off]; ok {
		return n, nil
	}
	d.onPath[off] = true
	defer delete(d.onPath, off)

	pos := uint64(off)
	count, err := d.u32(&pos)
	if err != nil {
		return nil, err
	}
	// Every field takes at least two bytes.
	if uint64(count)*2 > uint64(len(d.arena))-pos {
		return nil, serrors.JoinNoStack(ErrOutOfBounds, nil, "offset", off, "fields", count)
	}
	n := &Node{Fields: make([]Field, 0, count)}
	for range count {
		kb, err := d.read(pos, 1, false)
		if err != nil {
			return nil, err
		}
		pos++
		f := Field{Kind: Kind(kb[0])}
		switch f.Kind {
		case KindU8, KindU16, KindU32, KindU64:
			w := f.Kind.width()
			b, err := d.read(pos, uint64(w), false)
			if err != nil {
				return nil, err
			}
			pos += uint64(w)
			switch f.Kind {
			case KindU8:
				f.Uint = uint64(b[0])
			case KindU16:
				f.Uint = uint64(d.order.Uint16(b))
			case KindU32:
				f.Uint = uint64(d.order.Uint32(b))
			case KindU64:
				f.Uint = d.order.Uint64(b)
			}
		case KindBlob:
			boff, err := d.u32(&pos)
			if err != nil {
				return nil, err
			}
			blen, err := d.u32(&pos)
			if err != nil {
				return nil, err
			}
			if uint64(blen) > d.blobBudget {
				return nil, serrors.JoinNoStack(ErrOutOfBounds, nil,
					"offset", boff, "len", blen, "reason", "blob bytes exceed arena")
			}
			d.blobBudget -= uint64(blen)
			if blen > 0 {
				b, err := d.read(uint64(boff), uint64(blen), true)
				if err != nil {
					return nil, err
				}
				f.Blob = append([]byte(nil), b...)
			}
		case KindRef:
			roff, err := d.u32(&pos)
			if err != nil {
				return nil, err
			}
			if f.Ref, err = d.ref(roff, depth+1); err != nil {
				return nil, err
			}
		case KindList:
			lcount, err := d.u32(&pos)
			if err != nil {
				return nil, err
			}
			if uint64(lcount)*4 > uint64(len(d.arena))-pos {
				return nil, serrors.JoinNoStack(ErrOutOfBounds, nil,
					"offset", pos, "elements", lcount)
			}
			f.List = make([]*Node, 0, lcount)
			for range lcount {
				eoff, err := d.u32(&pos)
				if err != nil {
					return nil, err
				}
				child, err := d.ref(eoff, depth+1)
				if err != nil {
					return nil, err
				}
				f.List = append(f.List, child)
			}
		default:
			return nil, serrors.JoinNoStack(ErrInvalidGraph, nil,
				"offset", pos-1, "kind", kb[0])
		}
		n.Fields = append(n.Fields, f)
	}
	d.nodes[off] = n
	return n, nil
}
