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

// ViewConstructionErrorKind enumerates the ways building a typed
// handle/view over a raw tree node can fail.
type ViewConstructionErrorKind int

const (
	// UnexpectedNode: a child's kind did not match the grammar rule's
	// next expected production.
	UnexpectedNode ViewConstructionErrorKind = iota
	// UnexpectedExtraNode: children remained after every expected
	// production was matched.
	UnexpectedExtraNode
	// UnexpectedEndOfChildren: children ran out before every expected
	// production was matched.
	UnexpectedEndOfChildren
	// UnexpectedEmptyChildren: a rule requiring at least one child found
	// none.
	UnexpectedEmptyChildren
	// NodeIdNotFound: a NodeId did not resolve to any node in the tree.
	NodeIdNotFound
	// WrappedError: a nested view's own construction failed; Err holds
	// the cause.
	WrappedError
)

func (k ViewConstructionErrorKind) String() string {
	switch k {
	case UnexpectedNode:
		return "UnexpectedNode"
	case UnexpectedExtraNode:
		return "UnexpectedExtraNode"
	case UnexpectedEndOfChildren:
		return "UnexpectedEndOfChildren"
	case UnexpectedEmptyChildren:
		return "UnexpectedEmptyChildren"
	case NodeIdNotFound:
		return "NodeIdNotFound"
	case WrappedError:
		return "WrappedError"
	default:
		return "Unknown"
	}
}

// ViewConstructionError reports why building a view over the tree
// failed. It corresponds directly to the taxonomy collect_nodes and the
// generated view constructors raise.
type ViewConstructionError struct {
	Kind     ViewConstructionErrorKind
	Node     NodeId
	Data     NodeData
	Expected NodeKind
	Err      error
}

func (e *ViewConstructionError) Error() string {
	switch e.Kind {
	case UnexpectedNode:
		return fmt.Sprintf("unexpected node %s at %s: expected %s, found %s", e.Kind, e.Node, e.Expected, e.Data.Kind())
	case UnexpectedExtraNode:
		return fmt.Sprintf("unexpected extra node %s at %s", e.Data.Kind(), e.Node)
	case UnexpectedEndOfChildren:
		return fmt.Sprintf("unexpected end of children at %s: expected %s", e.Node, e.Expected)
	case UnexpectedEmptyChildren:
		return fmt.Sprintf("unexpected empty children at %s", e.Node)
	case NodeIdNotFound:
		return fmt.Sprintf("node id not found: %s", e.Node)
	case WrappedError:
		return fmt.Sprintf("view construction failed at %s: %v", e.Node, e.Err)
	default:
		return fmt.Sprintf("view construction error at %s", e.Node)
	}
}

func (e *ViewConstructionError) Unwrap() error { return e.Err }

// wrap lifts a nested error (view construction or otherwise) into a
// WrappedError rooted at node, leaving an existing *ViewConstructionError
// untouched so the taxonomy doesn't nest needlessly.
func wrap(node NodeId, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ViewConstructionError); ok {
		return err
	}
	return &ViewConstructionError{Kind: WrappedError, Node: node, Err: err}
}

// TerminalHandle is implemented by every generated wrapper over a
// terminal node (e.g. Whitespace, Ident).
type TerminalHandle interface {
	TerminalKind() TerminalKind
	NodeId() NodeId
}

// NonTerminalHandle is implemented by every generated wrapper over a
// non-terminal node.
type NonTerminalHandle interface {
	NonTerminalKind() NonTerminalKind
	NodeId() NodeId
}

// View is implemented by types that reconstruct themselves from a
// handle's children: the generated Sequence/OneOf/Option/Recursive
// shapes described in the view layer.
type View[H any] interface {
	FromHandle(t *Tree, input string, handle H) error
}

// RecursiveView marks a view whose production refers to itself
// (directly or through a chain), so the generated accessor must box
// nested occurrences rather than embed them by value.
type RecursiveView interface {
	isRecursiveView()
}

// TerminalNodeHandle is the concrete handle produced for every terminal
// kind: its NodeId plus the resolved source text.
type TerminalNodeHandle struct {
	Id   NodeId
	Kind TerminalKind
	Text string
}

func (h TerminalNodeHandle) NodeId() NodeId             { return h.Id }
func (h TerminalNodeHandle) TerminalKind() TerminalKind { return h.Kind }

// NewTerminalHandle builds a TerminalNodeHandle from id, verifying it
// names a terminal of the expected kind and resolving its text.
func NewTerminalHandle(t *Tree, input string, id NodeId, kind TerminalKind) (TerminalNodeHandle, error) {
	data, err := t.GetTerminal(id, kind)
	if err != nil {
		return TerminalNodeHandle{}, err
	}
	text, ok := t.GetStr(data, input)
	if !ok {
		return TerminalNodeHandle{}, &ViewConstructionError{Kind: NodeIdNotFound, Node: id}
	}
	return TerminalNodeHandle{Id: id, Kind: kind, Text: text}, nil
}

// NonTerminalNodeHandle is the generic handle produced for every
// non-terminal kind before its specific view type is reconstructed from
// its children.
type NonTerminalNodeHandle struct {
	Id   NodeId
	Kind NonTerminalKind
}

func (h NonTerminalNodeHandle) NodeId() NodeId          { return h.Id }
func (h NonTerminalNodeHandle) NonTerminalKind() NonTerminalKind { return h.Kind }

// NewNonTerminalHandle builds a NonTerminalNodeHandle from id, verifying
// it names a non-terminal of the expected kind.
func NewNonTerminalHandle(t *Tree, id NodeId, kind NonTerminalKind) (NonTerminalNodeHandle, error) {
	if _, err := t.GetNonTerminal(id, kind); err != nil {
		return NonTerminalNodeHandle{}, err
	}
	return NonTerminalNodeHandle{Id: id, Kind: kind}, nil
}

// SequenceView reconstructs a fixed-arity production: every one of
// Fields appears in order, trivia between them skipped automatically.
// Callers pass the expected child kinds and get back their matched
// node ids in the same order.
func SequenceView(t *Tree, node NodeId, fields []NodeKind) ([]NodeId, error) {
	return t.CollectNodes(node, fields, nil)
}

// OptionView reconstructs a `?`-quantified production: zero or one
// occurrence of kind among node's children. Unlike SequenceView it does
// not require kind to be the only non-trivia content present — a
// production like Binding mixes its Key/Value children with an operator
// terminal neither caller asks about, so OptionView searches rather than
// matching the full child list. Returns (id, true) if a child of kind is
// found anywhere among node's direct children.
func OptionView(t *Tree, node NodeId, kind NodeKind) (NodeId, bool, error) {
	for _, childId := range t.Children(node) {
		data, ok := t.NodeData(childId)
		if !ok {
			return 0, false, &ViewConstructionError{Kind: NodeIdNotFound, Node: childId}
		}
		if data.Kind() == kind {
			return childId, true, nil
		}
	}
	return 0, false, nil
}

// OneOfView reconstructs a grammar alternative: the first child of node
// matching any of candidates, skipping over children that match neither
// (other production members the caller isn't asking about, e.g. Section's
// leading Path before its Body alternative). Returns the matched
// candidate's index and the child's id; fails only if none of node's
// children match any candidate.
func OneOfView(t *Tree, node NodeId, candidates []NodeKind) (int, NodeId, error) {
	for _, childId := range t.Children(node) {
		data, ok := t.NodeData(childId)
		if !ok {
			return -1, 0, &ViewConstructionError{Kind: NodeIdNotFound, Node: childId}
		}
		for i, cand := range candidates {
			if data.Kind() == cand {
				return i, childId, nil
			}
		}
	}
	return -1, 0, &ViewConstructionError{Kind: UnexpectedEndOfChildren, Node: node}
}

// RepeatedView reconstructs a `*`-quantified production: every child of
// node matching kind, in order, ignoring anything else (separator
// punctuation like Comma, delimiter braces/brackets, and trivia all fall
// out naturally since they never match kind).
func RepeatedView(t *Tree, node NodeId, kind NodeKind) ([]NodeId, error) {
	var result []NodeId
	for _, childId := range t.Children(node) {
		data, ok := t.NodeData(childId)
		if !ok {
			return nil, &ViewConstructionError{Kind: NodeIdNotFound, Node: childId}
		}
		if data.Kind() == kind {
			result = append(result, childId)
		}
	}
	return result, nil
}
