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

package cst

import "fmt"

// NodeId addresses a node in a Tree's arena. The root is always NodeId 0.
type NodeId int

func (id NodeId) String() string { return fmt.Sprintf("%d", int(id)) }

// DynamicTokenId addresses a synthesized token with no corresponding
// input span (e.g. text produced by escape-sequence unescaping).
type DynamicTokenId int

// InputSpan is a byte-offset range into the original source text.
type InputSpan struct {
	Start, End int
}

// AsStr slices input by the span.
func (s InputSpan) AsStr(input string) string { return input[s.Start:s.End] }

// TerminalData is a terminal node's backing storage: either a literal
// span of the input, or a dynamic token synthesized by the parser.
type TerminalData struct {
	Dynamic bool
	Span    InputSpan
	Token   DynamicTokenId
}

// InputTerminalData returns TerminalData backed by an input span.
func InputTerminalData(span InputSpan) TerminalData {
	return TerminalData{Span: span}
}

// DynamicTerminalData returns TerminalData backed by a synthesized token.
func DynamicTerminalData(id DynamicTokenId) TerminalData {
	return TerminalData{Dynamic: true, Token: id}
}

// NonTerminalData is a non-terminal node's backing storage. Input means
// the non-terminal's span is exactly its source range (the common case);
// Dynamic means it was synthesized (e.g. an error-recovery placeholder)
// and has no direct source span.
type NonTerminalData struct {
	Dynamic bool
	Span    InputSpan
}

// NodeData is the per-node payload stored in a Tree's arena: either a
// terminal leaf or a non-terminal with a kind tag.
type NodeData struct {
	IsTerminal  bool
	Terminal    TerminalKind
	NonTerminal NonTerminalKind
	TermData    TerminalData
	NtData      NonTerminalData
}

// TerminalNode returns NodeData for a terminal leaf.
func TerminalNode(kind TerminalKind, data TerminalData) NodeData {
	return NodeData{IsTerminal: true, Terminal: kind, TermData: data}
}

// NonTerminalNode returns NodeData for a non-terminal.
func NonTerminalNode(kind NonTerminalKind, data NonTerminalData) NodeData {
	return NodeData{NonTerminal: kind, NtData: data}
}

// Kind returns the node's kind as a NodeKind.
func (d NodeData) Kind() NodeKind {
	if d.IsTerminal {
		return Term(d.Terminal)
	}
	return NonTerm(d.NonTerminal)
}

// Tree is the lossless concrete syntax tree: an append-only arena of
// NodeData plus parent/children tables. Node removal only unlinks a node
// from the tree's child/parent tables; its arena slot is never reused,
// so NodeId values stay valid for the lifetime of the Tree even across
// error-recovery edits.
type Tree struct {
	nodes          []NodeData
	children       map[NodeId][]NodeId
	parent         map[NodeId]NodeId
	dynamicTokens  map[DynamicTokenId]string
	nextDynamicId  int
	root           NodeId
}

// New returns a Tree whose root node holds rootData.
func New(rootData NodeData) *Tree {
	return &Tree{
		nodes:    []NodeData{rootData},
		children: make(map[NodeId][]NodeId),
		parent:   make(map[NodeId]NodeId),
		dynamicTokens: make(map[DynamicTokenId]string),
		root:     0,
	}
}

// Root returns the tree's root node id.
func (t *Tree) Root() NodeId { return t.root }

// SetRoot changes which node id the tree considers its root (used when
// error recovery splices in a replacement root).
func (t *Tree) SetRoot(id NodeId) { t.root = id }

// AddNode appends data as a new, unparented node and returns its id.
func (t *Tree) AddNode(data NodeData) NodeId {
	id := NodeId(len(t.nodes))
	t.nodes = append(t.nodes, data)
	return id
}

// AddChild appends child to parent's child list, reparenting child away
// from wherever it previously lived.
func (t *Tree) AddChild(parent, child NodeId) {
	if old, ok := t.parent[child]; ok {
		t.removeFromChildren(old, child)
	}
	t.children[parent] = append(t.children[parent], child)
	t.parent[child] = parent
}

// AddNodeWithParent allocates a node for data and immediately parents it
// under parent.
func (t *Tree) AddNodeWithParent(data NodeData, parent NodeId) NodeId {
	id := t.AddNode(data)
	t.AddChild(parent, id)
	return id
}

func (t *Tree) removeFromChildren(parent, child NodeId) {
	siblings := t.children[parent]
	for i, s := range siblings {
		if s == child {
			t.children[parent] = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// ChangeParent reparents id under newParent, unlinking it from wherever
// it was parented before.
func (t *Tree) ChangeParent(id, newParent NodeId) {
	t.AddChild(newParent, id)
}

// HasNoChildren reports whether node has zero children.
func (t *Tree) HasNoChildren(node NodeId) bool {
	return len(t.children[node]) == 0
}

// Children returns node's children in insertion order. The caller must
// not mutate the returned slice.
func (t *Tree) Children(node NodeId) []NodeId {
	return t.children[node]
}

// Parent returns node's parent, if any.
func (t *Tree) Parent(node NodeId) (NodeId, bool) {
	p, ok := t.parent[node]
	return p, ok
}

// NodeData returns the data stored at id, if id is in range.
func (t *Tree) NodeData(id NodeId) (NodeData, bool) {
	if int(id) < 0 || int(id) >= len(t.nodes) {
		return NodeData{}, false
	}
	return t.nodes[id], true
}

// UpdateNode replaces the data stored at id, returning the previous
// value. ok is false if id is out of range.
func (t *Tree) UpdateNode(id NodeId, data NodeData) (prev NodeData, ok bool) {
	if int(id) < 0 || int(id) >= len(t.nodes) {
		return NodeData{}, false
	}
	prev = t.nodes[id]
	t.nodes[id] = data
	return prev, true
}

// UpdateChildren replaces node's entire child list, reparenting every
// new child to node and unlinking every old child's parent pointer.
func (t *Tree) UpdateChildren(node NodeId, newChildren []NodeId) {
	for _, old := range t.children[node] {
		delete(t.parent, old)
	}
	for _, c := range newChildren {
		t.parent[c] = node
	}
	if len(newChildren) == 0 {
		delete(t.children, node)
	} else {
		t.children[node] = newChildren
	}
}

// RemoveNode unlinks id from the tree: it is removed from its parent's
// child list and its own child list is dropped, but no node data is
// deleted from the arena (NodeId values remain valid, just unreachable
// from Root).
func (t *Tree) RemoveNode(id NodeId) {
	if p, ok := t.parent[id]; ok {
		t.removeFromChildren(p, id)
		delete(t.parent, id)
	}
	delete(t.children, id)
}

// InsertDynamicTerminal interns data as a dynamic token and returns its
// id, for text produced during parsing (e.g. unescaped string content)
// that has no direct input span.
func (t *Tree) InsertDynamicTerminal(data string) DynamicTokenId {
	id := DynamicTokenId(t.nextDynamicId)
	t.dynamicTokens[id] = data
	t.nextDynamicId++
	return id
}

// DynamicToken looks up an interned dynamic token's text.
func (t *Tree) DynamicToken(id DynamicTokenId) (string, bool) {
	s, ok := t.dynamicTokens[id]
	return s, ok
}

// GetStr resolves a terminal's text against input: an Input-backed
// terminal slices input directly, a Dynamic-backed one looks up its
// interned string.
func (t *Tree) GetStr(data TerminalData, input string) (string, bool) {
	if data.Dynamic {
		return t.DynamicToken(data.Token)
	}
	return data.Span.AsStr(input), true
}

// GetTerminal returns id's terminal data, failing if id does not exist
// or is not a terminal of the expected kind.
func (t *Tree) GetTerminal(id NodeId, kind TerminalKind) (TerminalData, error) {
	d, ok := t.NodeData(id)
	if !ok {
		return TerminalData{}, &ViewConstructionError{Kind: NodeIdNotFound, Node: id}
	}
	if !d.IsTerminal || d.Terminal != kind {
		return TerminalData{}, &ViewConstructionError{Kind: UnexpectedNode, Node: id, Data: d, Expected: Term(kind)}
	}
	return d.TermData, nil
}

// GetNonTerminal returns id's non-terminal data, failing if id does not
// exist or is not a non-terminal of the expected kind.
func (t *Tree) GetNonTerminal(id NodeId, kind NonTerminalKind) (NonTerminalData, error) {
	d, ok := t.NodeData(id)
	if !ok {
		return NonTerminalData{}, &ViewConstructionError{Kind: NodeIdNotFound, Node: id}
	}
	if d.IsTerminal || d.NonTerminal != kind {
		return NonTerminalData{}, &ViewConstructionError{Kind: UnexpectedNode, Node: id, Data: d, Expected: NonTerm(kind)}
	}
	return d.NtData, nil
}

// RootHandle is the handle over the tree's root node.
type RootHandle struct{ Id NodeId }

// IgnoredVisitor receives trivia nodes collect_nodes skips over while
// matching a production's expected children.
type IgnoredVisitor interface {
	VisitIgnored(t *Tree, id NodeId, data NodeData)
}

// IgnoredVisitorFunc adapts a function to IgnoredVisitor.
type IgnoredVisitorFunc func(t *Tree, id NodeId, data NodeData)

func (f IgnoredVisitorFunc) VisitIgnored(t *Tree, id NodeId, data NodeData) { f(t, id, data) }

// CollectNodes walks node's children in order, matching each entry of
// expected against the next non-trivia child. Builtin trivia terminals
// (whitespace, newlines, line/block comments) encountered between
// expected children are dispatched to ignored and skipped, unless the
// expected kind itself has AutoWSOff set, in which case a trivia node in
// that position is itself the unexpected node.
//
// Returns exactly len(expected) node ids on success. Fails with
// UnexpectedNode if a non-trivia child's kind does not match the next
// expected entry, UnexpectedEndOfChildren if children run out before
// expected is exhausted, or UnexpectedExtraNode if non-trivia children
// remain after expected is exhausted.
func (t *Tree) CollectNodes(node NodeId, expected []NodeKind, ignored IgnoredVisitor) ([]NodeId, error) {
	children := t.children[node]
	result := make([]NodeId, 0, len(expected))
	ci := 0
	for _, exp := range expected {
		for {
			if ci >= len(children) {
				return nil, &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: node, Expected: exp}
			}
			childId := children[ci]
			data, ok := t.NodeData(childId)
			if !ok {
				return nil, &ViewConstructionError{Kind: NodeIdNotFound, Node: childId}
			}
			if data.IsTerminal && data.Terminal.IsBuiltinTerminal() && data.Kind() != exp {
				if exp.IsTerminal() && exp.Terminal.AutoWSOff() {
					return nil, &ViewConstructionError{Kind: UnexpectedNode, Node: childId, Data: data, Expected: exp}
				}
				if ignored != nil {
					ignored.VisitIgnored(t, childId, data)
				}
				ci++
				continue
			}
			if data.Kind() != exp {
				return nil, &ViewConstructionError{Kind: UnexpectedNode, Node: childId, Data: data, Expected: exp}
			}
			result = append(result, childId)
			ci++
			break
		}
	}
	for ci < len(children) {
		childId := children[ci]
		data, ok := t.NodeData(childId)
		if ok && data.IsTerminal && data.Terminal.IsBuiltinTerminal() {
			if ignored != nil {
				ignored.VisitIgnored(t, childId, data)
			}
			ci++
			continue
		}
		return nil, &ViewConstructionError{Kind: UnexpectedExtraNode, Node: childId, Data: data}
	}
	return result, nil
}

// CollectEmptyChildren verifies node has no non-trivia children,
// dispatching any trivia found to ignored. Fails with
// UnexpectedExtraNode if a non-trivia child is present.
func (t *Tree) CollectEmptyChildren(node NodeId, ignored IgnoredVisitor) error {
	_, err := t.CollectNodes(node, nil, ignored)
	return err
}
