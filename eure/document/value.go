// Copyright 2024 The EURE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package document

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"eure.sh/eure/literal"
)

// NodeValue is the sum type held by a Node's content: Hole, the primitive
// kinds, or one of the three container shapes.
type NodeValue interface {
	nodeValue()
}

// Hole is an unfilled placeholder (`!` or `!label` in source). A hole is
// always a validation error outside of schema documents, regardless of the
// expected type at that position.
type Hole struct {
	Label string
}

func (Hole) nodeValue() {}

// Null is the primitive null value.
type Null struct{}

func (Null) nodeValue() {}

// Bool is a boolean primitive.
type Bool bool

func (Bool) nodeValue() {}

// Integer is a primitive integer that fits in 64 bits.
type Integer int64

func (Integer) nodeValue() {}

// BigInt is a primitive integer outside the range of Integer.
type BigInt struct {
	V *big.Int
}

func (BigInt) nodeValue() {}

// F32 is a single-precision float primitive.
type F32 float32

func (F32) nodeValue() {}

// F64 is an arbitrary-precision decimal float primitive. apd backs this
// rather than float64 so range/comparison constraints in a schema's
// `$range` can be checked exactly rather than after lossy float rounding.
type F64 struct {
	V *apd.Decimal
}

func (F64) nodeValue() {}

// TextKind distinguishes how a Text primitive's content was written, which
// matters for round-tripping back to source.
type TextKind int

const (
	// TextPlain is an unquoted identifier-shaped text value.
	TextPlain TextKind = iota
	// TextQuoted is a quote-delimited string with escape processing applied.
	TextQuoted
	// TextCodeInline is `lang\`code\`` inline code; Lang is carried alongside.
	TextCodeInline
	// TextCodeBlock is a fenced ```lang\n...\n``` block; Lang is carried alongside.
	TextCodeBlock
)

// Text is a primitive string value, recording both its normalized content
// and how it was spelled in source.
type Text struct {
	Content string
	Kind    TextKind
	// Lang holds the code-block/inline language tag; empty when Kind is
	// TextPlain or TextQuoted.
	Lang string
}

func (Text) nodeValue() {}

// NewText returns a Text value with its content normalized to NFC.
func NewText(content string, kind TextKind, lang string) Text {
	return Text{Content: literal.NormalizeText(content), Kind: kind, Lang: lang}
}

// PathRef is a literal path value (`.a.b.c`), as opposed to a Path used to
// address a node during construction. It appears as ordinary node content
// when source writes a bare path where a value is expected — a reference
// for schema type links and similar cross-document pointers.
type PathRef struct {
	Segments Path
}

func (PathRef) nodeValue() {}

// Array is an ordered, densely indexed sequence of child nodes, grown only
// by appending or by explicit same-length extension.
type Array struct {
	elems []NodeId
}

func (*Array) nodeValue() {}

// Len reports the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// Get returns the element at index, and whether it existed.
func (a *Array) Get(index int) (NodeId, bool) {
	if index < 0 || index >= len(a.elems) {
		return 0, false
	}
	return a.elems[index], true
}

// Elems returns the elements in order. The caller must not mutate the
// returned slice.
func (a *Array) Elems() []NodeId { return a.elems }

// Tuple is an ordered, bounded-index (0..255) sequence of child nodes.
type Tuple struct {
	elems []NodeId
}

func (*Tuple) nodeValue() {}

// Len reports the number of elements.
func (t *Tuple) Len() int { return len(t.elems) }

// Get returns the element at index, and whether it existed.
func (t *Tuple) Get(index uint8) (NodeId, bool) {
	if int(index) >= len(t.elems) {
		return 0, false
	}
	return t.elems[index], true
}

// Elems returns the elements in order. The caller must not mutate the
// returned slice.
func (t *Tuple) Elems() []NodeId { return t.elems }

// ObjectKey is the key type for Map entries: string, bool, number, or a
// tuple of keys. Only String is permitted as a record field name.
type ObjectKey interface {
	objectKey()
	// equalKey reports structural equality with another ObjectKey.
	equalKey(ObjectKey) bool
}

// KeyString is a string-valued map key (the only kind valid for record
// fields).
type KeyString string

func (KeyString) objectKey() {}
func (k KeyString) equalKey(o ObjectKey) bool {
	ok, same := o.(KeyString)
	return same && ok == k
}

// KeyBool is a bool-valued map key.
type KeyBool bool

func (KeyBool) objectKey() {}
func (k KeyBool) equalKey(o ObjectKey) bool {
	ok, same := o.(KeyBool)
	return same && ok == k
}

// KeyNumber is a decimal-valued map key.
type KeyNumber struct {
	V *apd.Decimal
}

func (KeyNumber) objectKey() {}
func (k KeyNumber) equalKey(o ObjectKey) bool {
	ok, same := o.(KeyNumber)
	if !same {
		return false
	}
	if k.V == nil || ok.V == nil {
		return k.V == ok.V
	}
	return k.V.Cmp(ok.V) == 0
}

// KeyTuple is a tuple-of-keys map key.
type KeyTuple struct {
	Elems []ObjectKey
}

func (KeyTuple) objectKey() {}
func (k KeyTuple) equalKey(o ObjectKey) bool {
	ok, same := o.(KeyTuple)
	if !same || len(ok.Elems) != len(k.Elems) {
		return false
	}
	for i, e := range k.Elems {
		if !e.equalKey(ok.Elems[i]) {
			return false
		}
	}
	return true
}

// mapEntry is one ordered (key, child) pair of a Map.
type mapEntry struct {
	key   ObjectKey
	value NodeId
}

// Map is an ordered key→child map. Insertion order is preserved and
// observable; lookups are O(n) in the rare non-string-key case and O(1) for
// the common string-key case via the index.
type Map struct {
	entries []mapEntry
	index   map[string]int // KeyString fast path: name -> entries index
}

func (*Map) nodeValue() {}

func newMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Get returns the child for key, and whether it existed.
func (m *Map) Get(key ObjectKey) (NodeId, bool) {
	if ks, ok := key.(KeyString); ok {
		if i, found := m.index[string(ks)]; found {
			return m.entries[i].value, true
		}
		return 0, false
	}
	for _, e := range m.entries {
		if e.key.equalKey(key) {
			return e.value, true
		}
	}
	return 0, false
}

// Entries returns the (key, child) pairs in insertion order. The caller
// must not mutate the returned slice.
func (m *Map) Entries() []struct {
	Key   ObjectKey
	Value NodeId
} {
	out := make([]struct {
		Key   ObjectKey
		Value NodeId
	}, len(m.entries))
	for i, e := range m.entries {
		out[i].Key = e.key
		out[i].Value = e.value
	}
	return out
}

// add appends a new (key, child) entry; the caller is responsible for
// checking for an existing key first (AlreadyAssigned semantics live in
// document.go, not here).
func (m *Map) add(key ObjectKey, value NodeId) {
	if ks, ok := key.(KeyString); ok {
		m.index[string(ks)] = len(m.entries)
	}
	m.entries = append(m.entries, mapEntry{key: key, value: value})
}

// PathSegment is one step of a Path identifying a node inside a Document.
type PathSegment interface {
	pathSegment()
}

// SegIdent is a plain identifier key segment (`foo`).
type SegIdent struct {
	Name literal.Identifier
}

func (SegIdent) pathSegment() {}

// SegValue is an arbitrary-value key segment (quoted string, number, bool,
// or tuple-of-keys used as a map key).
type SegValue struct {
	Key ObjectKey
}

func (SegValue) pathSegment() {}

// SegExtension is an extension-namespace segment (`$variant`, `$optional`,
// …). Extension children live in a Node's Extensions map, not its content.
type SegExtension struct {
	Name literal.Identifier
}

func (SegExtension) pathSegment() {}

// SegArrayIndex addresses an array element. Index == nil means "push a new
// element"; Index != nil means "exactly this position, creating as needed".
type SegArrayIndex struct {
	Index *uint8
}

func (SegArrayIndex) pathSegment() {}

// SegTupleIndex addresses a tuple element by its fixed position.
type SegTupleIndex struct {
	Index uint8
}

func (SegTupleIndex) pathSegment() {}

// Path is an ordered sequence of segments from the document root.
type Path []PathSegment
