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

	"github.com/gopacket/gopacket"

	"github.com/securityd/securityd/pkg/private/serrors"
)

type blobKey struct {
	node  *Node
	field int
}

// item is a placed piece of the arena, either a node or a blob.
type item struct {
	node *Node
	blob []byte
}

// layout assigns arena offsets in traversal order.
type layout struct {
	size   uint64
	items  []item
	nodes  map[*Node]uint32
	blobs  map[blobKey]uint32
	onPath map[*Node]bool
}

func newLayout(root *Node) (*layout, error) {
	if root == nil {
		return nil, serrors.JoinNoStack(ErrInvalidGraph, nil, "reason", "nil root")
	}
	l := &layout{
		nodes:  make(map[*Node]uint32),
		blobs:  make(map[blobKey]uint32),
		onPath: make(map[*Node]bool),
	}
	if err := l.place(root, 0); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *layout) alloc(n uint64) (uint32, error) {
	off := l.size
	// nilRef must never be a valid offset.
	if off+n >= uint64(nilRef) {
		return 0, serrors.JoinNoStack(ErrOutOfBounds, nil, "size", off+n)
	}
	l.size += n
	return uint32(off), nil
}

func (l *layout) place(n *Node, depth int) error {
	if depth > MaxDepth {
		return serrors.JoinNoStack(ErrTooDeep, nil, "max", MaxDepth)
	}
	if l.onPath[n] {
		return ErrCycle
	}
	if _, ok := l.nodes[n]; ok {
		return nil
	}
	size, err := nodeSize(n)
	if err != nil {
		return err
	}
	off, err := l.alloc(size)
	if err != nil {
		return err
	}
	l.nodes[n] = off
	l.items = append(l.items, item{node: n})
	l.onPath[n] = true
	defer delete(l.onPath, n)

	for i, f := range n.Fields {
		switch f.Kind {
		case KindBlob:
			off, err := l.alloc(uint64(len(f.Blob)))
			if err != nil {
				return err
			}
			l.blobs[blobKey{node: n, field: i}] = off
			l.items = append(l.items, item{blob: f.Blob})
		case KindRef:
			if f.Ref == nil {
				continue
			}
			if err := l.place(f.Ref, depth+1); err != nil {
				return err
			}
		case KindList:
			for _, child := range f.List {
				if child == nil {
					continue
				}
				if err := l.place(child, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (l *layout) ref(n *Node) uint32 {
	if n == nil {
		return nilRef
	}
	return l.nodes[n]
}

func byteOrder(flip bool) binary.ByteOrder {
	if flip {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func putScalar(order binary.ByteOrder, b []byte, k Kind, v uint64) {
	switch k {
	case KindU8:
		b[0] = uint8(v)
	case KindU16:
		order.PutUint16(b, uint16(v))
	case KindU32:
		order.PutUint32(b, uint32(v))
	case KindU64:
		order.PutUint64(b, v)
	}
}

// write appends the arena to buf.
func (l *layout) write(buf gopacket.SerializeBuffer, order binary.ByteOrder) error {
	for _, it := range l.items {
		if it.node == nil {
			b, err := buf.AppendBytes(len(it.blob))
			if err != nil {
				return err
			}
			copy(b, it.blob)
			continue
		}
		size, err := nodeSize(it.node)
		if err != nil {
			return err
		}
		b, err := buf.AppendBytes(int(size))
		if err != nil {
			return err
		}
		order.PutUint32(b, uint32(len(it.node.Fields)))
		b = b[4:]
		for i, f := range it.node.Fields {
			b[0] = byte(f.Kind)
			b = b[1:]
			switch f.Kind {
			case KindBlob:
				order.PutUint32(b, l.blobs[blobKey{node: it.node, field: i}])
				order.PutUint32(b[4:], uint32(len(f.Blob)))
				b = b[8:]
			case KindRef:
				order.PutUint32(b, l.ref(f.Ref))
				b = b[4:]
			case KindList:
				order.PutUint32(b, uint32(len(f.List)))
				b = b[4:]
				for _, child := range f.List {
					order.PutUint32(b, l.ref(child))
					b = b[4:]
				}
			default:
				w := f.Kind.width()
				putScalar(order, b, f.Kind, f.Uint)
				b = b[w:]
			}
		}
	}
	return nil
}

// Size returns the number of arena bytes needed to relocate root. Graphs that
// do not fit 32-bit offsets fail with ErrTruncated.
func Size(root *Node) (uint32, error) {
	l, err := newLayout(root)
	if err != nil {
		return 0, err
	}
	if l.size > math.MaxUint32 {
		return 0, serrors.JoinNoStack(ErrTruncated, nil, "need", l.size)
	}
	return uint32(l.size), nil
}

func checkRegion(base uint64, size uint32) error {
	if base > math.MaxUint64-uint64(size) {
		return serrors.JoinNoStack(ErrOutOfBounds, nil, "base", base, "size", size)
	}
	return nil
}

// Relocate flattens the graph rooted at root into an arena of size bytes
// that starts at base. References are stored as offsets from the start of
// the arena, so the bytes do not depend on base. size must be
// at least Size(root); the remainder is zero filled. If flip is set, all
// multi-byte scalars are written in the opposite byte order.
func Relocate(root *Node, base uint64, size uint32, flip bool) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := relocateInto(buf, root, base, size, flip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func relocateInto(buf gopacket.SerializeBuffer, root *Node, base uint64,
	size uint32, flip bool) error {

	if err := checkRegion(base, size); err != nil {
		return err
	}
	l, err := newLayout(root)
	if err != nil {
		return err
	}
	if l.size > uint64(size) {
		return serrors.JoinNoStack(ErrTruncated, nil, "need", l.size, "size", size)
	}
	if err := l.write(buf, byteOrder(flip)); err != nil {
		return serrors.Wrap("writing arena", err)
	}
	if pad := int(uint64(size) - l.size); pad > 0 {
		b, err := buf.AppendBytes(pad)
		if err != nil {
			return serrors.Wrap("padding arena", err)
		}
		clear(b)
	}
	return nil
}
