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
	"bytes"
	"fmt"
	"strings"
)

// ElementType is the type of a canonical list element.
type ElementType uint8

const (
	ElementWord ElementType = iota
	ElementDatum
	ElementSublist
)

// Element is a single element of a canonical list.
type Element struct {
	Type    ElementType
	Word    uint32
	Datum   []byte
	Sublist List
}

// Word creates a word element.
func Word(w uint32) Element {
	return Element{Type: ElementWord, Word: w}
}

// Datum creates a datum element. The data is copied.
func Datum(b []byte) Element {
	return Element{Type: ElementDatum, Datum: append([]byte(nil), b...)}
}

// Sublist creates a sublist element.
func Sublist(l List) Element {
	return Element{Type: ElementSublist, Sublist: l}
}

// Equal reports whether both elements are structurally equal.
func (e Element) Equal(o Element) bool {
	if e.Type != o.Type {
		return false
	}
	switch e.Type {
	case ElementWord:
		return e.Word == o.Word
	case ElementDatum:
		return bytes.Equal(e.Datum, o.Datum)
	case ElementSublist:
		return e.Sublist.Equal(o.Sublist)
	}
	return false
}

// List is a canonical list. By convention the first element of a subject
// list is the kind word.
type List []Element

// Kind returns the kind word heading the list.
func (l List) Kind() (Kind, error) {
	if len(l) == 0 || l[0].Type != ElementWord {
		return 0, ErrBadFormat
	}
	return Kind(l[0].Word), nil
}

// Equal reports whether both lists are structurally equal.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (l List) String() string {
	parts := make([]string, 0, len(l))
	for _, e := range l {
		switch e.Type {
		case ElementWord:
			parts = append(parts, fmt.Sprint(e.Word))
		case ElementDatum:
			parts = append(parts, fmt.Sprintf("<%d bytes>", len(e.Datum)))
		case ElementSublist:
			parts = append(parts, e.Sublist.String())
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// listReader consumes typed elements of a list.
type listReader struct {
	l   List
	pos int
	err error
}

func newListReader(l List, kind Kind) *listReader {
	r := &listReader{l: l}
	if k, err := l.Kind(); err != nil || k != kind {
		r.err = ErrBadFormat
	}
	r.pos = 1
	return r
}

func (r *listReader) more() bool {
	return r.err == nil && r.pos < len(r.l)
}

func (r *listReader) next(t ElementType) (Element, bool) {
	if r.err != nil {
		return Element{}, false
	}
	if r.pos >= len(r.l) || r.l[r.pos].Type != t {
		r.err = ErrBadFormat
		return Element{}, false
	}
	e := r.l[r.pos]
	r.pos++
	return e, true
}

func (r *listReader) word() uint32 {
	e, _ := r.next(ElementWord)
	return e.Word
}

func (r *listReader) datum() []byte {
	e, _ := r.next(ElementDatum)
	return e.Datum
}

func (r *listReader) sublist() List {
	e, _ := r.next(ElementSublist)
	return e.Sublist
}

func (r *listReader) done() error {
	if r.err == nil && r.pos != len(r.l) {
		r.err = ErrBadFormat
	}
	return r.err
}
