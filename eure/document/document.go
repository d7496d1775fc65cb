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

// Package document implements the semantic DOM layer: an arena of Nodes
// addressed by NodeId, a path-segment model unifying maps/arrays/tuples and
// extension namespaces, and the streaming DocumentConstructor that builds a
// Document from a sequence of path pushes and value binds.
package document

import (
	"fmt"

	"eure.sh/eure/literal"
)

// NodeId is an arena index into a Document, independent of any CST NodeId.
type NodeId int

// rootId is always the first node in a freshly created Document.
const rootId NodeId = 0

// Node is one entry in the document arena: its value content plus whatever
// extension-namespace children (`$variant`, `$optional`, …) it carries.
// Structural equality between documents ignores Extensions; they carry
// schema metadata, not literal value.
type Node struct {
	Content    NodeValue
	Extensions map[literal.Identifier]NodeId
}

// Document is the arena itself: an append-only vector of Nodes rooted at
// node 0.
type Document struct {
	nodes []Node
}

// New returns an empty Document whose root is Null, ready for construction.
func New() *Document {
	return &Document{nodes: []Node{{Content: Null{}, Extensions: map[literal.Identifier]NodeId{}}}}
}

// RootId returns the NodeId of the document root.
func (d *Document) RootId() NodeId { return rootId }

// Root returns the root Node.
func (d *Document) Root() *Node { return &d.nodes[rootId] }

// Node returns the node at id.
func (d *Document) Node(id NodeId) *Node { return &d.nodes[id] }

// createNode appends a new node with the given content and no extensions,
// returning its id.
func (d *Document) createNode(content NodeValue) NodeId {
	id := NodeId(len(d.nodes))
	d.nodes = append(d.nodes, Node{Content: content, Extensions: map[literal.Identifier]NodeId{}})
	return id
}

// AsMap returns n's content as a *Map, or nil if it isn't one.
func (n *Node) AsMap() *Map {
	if m, ok := n.Content.(*Map); ok {
		return m
	}
	return nil
}

// AsArray returns n's content as an *Array, or nil if it isn't one.
func (n *Node) AsArray() *Array {
	if a, ok := n.Content.(*Array); ok {
		return a
	}
	return nil
}

// AsTuple returns n's content as a *Tuple, or nil if it isn't one.
func (n *Node) AsTuple() *Tuple {
	if t, ok := n.Content.(*Tuple); ok {
		return t
	}
	return nil
}

// GetExtension returns the child under the named extension, if present.
func (n *Node) GetExtension(name literal.Identifier) (NodeId, bool) {
	id, ok := n.Extensions[name]
	return id, ok
}

// InsertErrorKind classifies a failure from an arena primitive or the
// constructor (spec §7's "Document insert errors").
type InsertErrorKind int

const (
	ExpectedMap InsertErrorKind = iota
	ExpectedArray
	ExpectedTuple
	AlreadyAssigned
	AlreadyAssignedExtension
	ArrayIndexInvalid
	TupleIndexInvalid
	BindingTargetHasValue
	PathConflict
	UnconsumedDeferredPath
	CannotPopRoot
	DepthMismatch
)

func (k InsertErrorKind) String() string {
	switch k {
	case ExpectedMap:
		return "ExpectedMap"
	case ExpectedArray:
		return "ExpectedArray"
	case ExpectedTuple:
		return "ExpectedTuple"
	case AlreadyAssigned:
		return "AlreadyAssigned"
	case AlreadyAssignedExtension:
		return "AlreadyAssignedExtension"
	case ArrayIndexInvalid:
		return "ArrayIndexInvalid"
	case TupleIndexInvalid:
		return "TupleIndexInvalid"
	case BindingTargetHasValue:
		return "BindingTargetHasValue"
	case PathConflict:
		return "PathConflict"
	case UnconsumedDeferredPath:
		return "UnconsumedDeferredPath"
	case CannotPopRoot:
		return "CannotPopRoot"
	case DepthMismatch:
		return "DepthMismatch"
	}
	return "InsertErrorKind(?)"
}

// InsertError reports a failed arena or constructor operation.
type InsertError struct {
	Kind InsertErrorKind
	Path Path
	// Found names the conflicting content kind for PathConflict ("value",
	// "array", "map", "tuple").
	Found string
	// Key/Index/ExpectedIndex/Identifier carry kind-specific detail.
	Key           ObjectKey
	Index         int
	ExpectedIndex int
	Identifier    literal.Identifier
	DepthExpected int
	DepthActual   int
}

// contentKindName names a NodeValue's shape for PathConflict-style
// messages ("value", "array", "map", "tuple").
func contentKindName(v NodeValue) string {
	switch v.(type) {
	case *Map:
		return "map"
	case *Array:
		return "array"
	case *Tuple:
		return "tuple"
	case Hole:
		return "hole"
	default:
		return "value"
	}
}

// KindName names the shape of a node's content ("map", "array", "tuple",
// "hole", or "value" for any primitive). Used by consumers outside this
// package (typed-value parsers, validators) to render diagnostics.
func KindName(v NodeValue) string {
	return contentKindName(v)
}

func (e *InsertError) Error() string {
	switch e.Kind {
	case ExpectedMap, ExpectedArray, ExpectedTuple, PathConflict:
		expected := "map"
		switch e.Kind {
		case ExpectedArray:
			expected = "array"
		case ExpectedTuple:
			expected = "tuple"
		}
		return fmt.Sprintf("path conflict: expected %s but found %s at %v", expected, e.Found, e.Path)
	case AlreadyAssigned:
		return fmt.Sprintf("already assigned: %v", e.Path)
	case AlreadyAssignedExtension:
		return fmt.Sprintf("extension %q already assigned at %v", e.Identifier, e.Path)
	case ArrayIndexInvalid:
		return fmt.Sprintf("invalid array index %d (expected %d) at %v", e.Index, e.ExpectedIndex, e.Path)
	case TupleIndexInvalid:
		return fmt.Sprintf("invalid tuple index %d (expected %d) at %v", e.Index, e.ExpectedIndex, e.Path)
	case BindingTargetHasValue:
		return fmt.Sprintf("binding target already has a value at %v", e.Path)
	case UnconsumedDeferredPath:
		return "unconsumed deferred path remains: the last segment was never bound"
	case CannotPopRoot:
		return "cannot pop from root (stack is empty)"
	case DepthMismatch:
		return fmt.Sprintf("stack depth mismatch: expected %d, got %d", e.DepthExpected, e.DepthActual)
	default:
		return fmt.Sprintf("%s at %v", e.Kind, e.Path)
	}
}

// AddMapChild ensures parent is a Map and inserts a fresh child under key,
// returning its id. Fails ExpectedMap if parent holds incompatible content,
// AlreadyAssigned if key is already present.
func (d *Document) AddMapChild(parent NodeId, key ObjectKey, path Path) (NodeId, error) {
	n := d.Node(parent)
	m, ok := n.Content.(*Map)
	if !ok {
		if _, isNull := n.Content.(Null); isNull {
			m = newMap()
			n.Content = m
		} else {
			return 0, &InsertError{Kind: ExpectedMap, Path: path, Found: contentKindName(n.Content)}
		}
	}
	if _, exists := m.Get(key); exists {
		return 0, &InsertError{Kind: AlreadyAssigned, Path: path, Key: key}
	}
	child := d.createNode(Null{})
	m.add(key, child)
	return child, nil
}

// AddExtension ensures a child exists under parent's extension namespace
// `name`, inserting a fresh Null node if absent. Fails
// AlreadyAssignedExtension if `name` is already bound.
func (d *Document) AddExtension(parent NodeId, name literal.Identifier, path Path) (NodeId, error) {
	n := d.Node(parent)
	if _, exists := n.Extensions[name]; exists {
		return 0, &InsertError{Kind: AlreadyAssignedExtension, Path: path, Identifier: name}
	}
	child := d.createNode(Null{})
	n.Extensions[name] = child
	return child, nil
}

// AddTupleElement appends a new child to parent's Tuple content at
// `index`, which must equal the tuple's current length. Fails
// TupleIndexInvalid otherwise, or ExpectedTuple if parent isn't a tuple (or
// Null, which is upgraded to an empty tuple).
func (d *Document) AddTupleElement(parent NodeId, index uint8, path Path) (NodeId, error) {
	n := d.Node(parent)
	t, ok := n.Content.(*Tuple)
	if !ok {
		if _, isNull := n.Content.(Null); isNull {
			t = &Tuple{}
			n.Content = t
		} else {
			return 0, &InsertError{Kind: ExpectedTuple, Path: path, Found: contentKindName(n.Content)}
		}
	}
	if int(index) != len(t.elems) {
		return 0, &InsertError{Kind: TupleIndexInvalid, Path: path, Index: int(index), ExpectedIndex: len(t.elems)}
	}
	child := d.createNode(Null{})
	t.elems = append(t.elems, child)
	return child, nil
}

// AddArrayElement appends (index == nil) or inserts at the exact next
// position (index == current length) a new child to parent's Array
// content. Fails ArrayIndexInvalid if index skips ahead, ExpectedArray if
// parent isn't an array or Null.
func (d *Document) AddArrayElement(parent NodeId, index *int, path Path) (NodeId, error) {
	n := d.Node(parent)
	a, ok := n.Content.(*Array)
	if !ok {
		if _, isNull := n.Content.(Null); isNull {
			a = &Array{}
			n.Content = a
		} else {
			return 0, &InsertError{Kind: ExpectedArray, Path: path, Found: contentKindName(n.Content)}
		}
	}
	if index != nil && *index != len(a.elems) {
		return 0, &InsertError{Kind: ArrayIndexInvalid, Path: path, Index: *index, ExpectedIndex: len(a.elems)}
	}
	child := d.createNode(Null{})
	a.elems = append(a.elems, child)
	return child, nil
}

// ResolveChildBySegment is an idempotent lookup-or-insert for every segment
// kind except SegArrayIndex{Index: nil}, which always pushes a fresh
// element (it has no stable identity to look up by).
func (d *Document) ResolveChildBySegment(parent NodeId, seg PathSegment, path Path) (NodeId, error) {
	switch s := seg.(type) {
	case SegIdent:
		if id, ok := d.lookupMapChild(parent, KeyString(s.Name.String())); ok {
			return id, nil
		}
		return d.AddMapChild(parent, KeyString(s.Name.String()), path)
	case SegValue:
		if id, ok := d.lookupMapChild(parent, s.Key); ok {
			return id, nil
		}
		return d.AddMapChild(parent, s.Key, path)
	case SegExtension:
		n := d.Node(parent)
		if id, ok := n.Extensions[s.Name]; ok {
			return id, nil
		}
		return d.AddExtension(parent, s.Name, path)
	case SegTupleIndex:
		n := d.Node(parent)
		if t, ok := n.Content.(*Tuple); ok {
			if id, ok := t.Get(s.Index); ok {
				return id, nil
			}
		}
		return d.AddTupleElement(parent, s.Index, path)
	case SegArrayIndex:
		if s.Index == nil {
			return d.AddArrayElement(parent, nil, path)
		}
		n := d.Node(parent)
		if a, ok := n.Content.(*Array); ok {
			if id, ok := a.Get(int(*s.Index)); ok {
				return id, nil
			}
		}
		idx := int(*s.Index)
		return d.AddArrayElement(parent, &idx, path)
	}
	panic(fmt.Sprintf("document: unknown PathSegment %T", seg))
}

func (d *Document) lookupMapChild(parent NodeId, key ObjectKey) (NodeId, bool) {
	n := d.Node(parent)
	m, ok := n.Content.(*Map)
	if !ok {
		return 0, false
	}
	return m.Get(key)
}

// CopySubtree deep-copies the subtree rooted at src (from document srcDoc)
// into d, returning the new root's id. Extensions are omitted: they carry
// schema metadata, not literal value, and literal-schema comparison must
// ignore them.
func (d *Document) CopySubtree(srcDoc *Document, src NodeId) NodeId {
	n := srcDoc.Node(src)
	var content NodeValue
	switch c := n.Content.(type) {
	case *Map:
		nm := newMap()
		for _, e := range c.Entries() {
			nm.add(e.Key, d.CopySubtree(srcDoc, e.Value))
		}
		content = nm
	case *Array:
		na := &Array{}
		for _, id := range c.Elems() {
			na.elems = append(na.elems, d.CopySubtree(srcDoc, id))
		}
		content = na
	case *Tuple:
		nt := &Tuple{}
		for _, id := range c.Elems() {
			nt.elems = append(nt.elems, d.CopySubtree(srcDoc, id))
		}
		content = nt
	default:
		content = c // primitives and Hole are value types, safe to share
	}
	return d.createNode(content)
}

// Equal reports whether d and other are structurally equal: same content
// recursively, map presence/values matter but order does not, arrays and
// tuples compared elementwise. Extensions are ignored, per §3.2(ii).
func (d *Document) Equal(other *Document) bool {
	return nodesEqual(d, d.RootId(), other, other.RootId())
}

// NodesEqual reports whether the subtree at id1 in d1 is structurally equal
// to the subtree at id2 in d2 (which may be the same document), by the same
// rules as Equal. Used by consumers that need to compare values below the
// document root, such as schema literal-constant and array-uniqueness
// checks.
func NodesEqual(d1 *Document, id1 NodeId, d2 *Document, id2 NodeId) bool {
	return nodesEqual(d1, id1, d2, id2)
}

func nodesEqual(d1 *Document, id1 NodeId, d2 *Document, id2 NodeId) bool {
	n1, n2 := d1.Node(id1), d2.Node(id2)
	switch c1 := n1.Content.(type) {
	case *Map:
		c2, ok := n2.Content.(*Map)
		if !ok || c1.Len() != c2.Len() {
			return false
		}
		for _, e := range c1.Entries() {
			v2, ok := c2.Get(e.Key)
			if !ok {
				return false
			}
			if !nodesEqual(d1, e.Value, d2, v2) {
				return false
			}
		}
		return true
	case *Array:
		c2, ok := n2.Content.(*Array)
		if !ok || c1.Len() != c2.Len() {
			return false
		}
		for i, id := range c1.Elems() {
			if !nodesEqual(d1, id, d2, c2.Elems()[i]) {
				return false
			}
		}
		return true
	case *Tuple:
		c2, ok := n2.Content.(*Tuple)
		if !ok || c1.Len() != c2.Len() {
			return false
		}
		for i, id := range c1.Elems() {
			if !nodesEqual(d1, id, d2, c2.Elems()[i]) {
				return false
			}
		}
		return true
	case Hole:
		c2, ok := n2.Content.(Hole)
		return ok && c1 == c2
	case Null:
		_, ok := n2.Content.(Null)
		return ok
	case Bool:
		c2, ok := n2.Content.(Bool)
		return ok && c1 == c2
	case Integer:
		c2, ok := n2.Content.(Integer)
		return ok && c1 == c2
	case BigInt:
		c2, ok := n2.Content.(BigInt)
		return ok && c1.V.Cmp(c2.V) == 0
	case F32:
		c2, ok := n2.Content.(F32)
		return ok && c1 == c2
	case F64:
		c2, ok := n2.Content.(F64)
		return ok && c1.V.Cmp(c2.V) == 0
	case Text:
		c2, ok := n2.Content.(Text)
		return ok && c1 == c2
	}
	return false
}
